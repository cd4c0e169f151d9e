// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vulkan implements driver.Driver on top of the Vulkan API.
//
// Native objects are kept in an arena and handed out as stable
// driver.Handle values. Objects that are freed together with their owner
// (queues, swapchain images, command buffers, descriptor sets) are tracked
// as children and leave the arena with it.
package vulkan

import (
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/gfx/driver"
	vk "github.com/vulkan-go/vulkan"
)

// Driver is the Vulkan driver.Driver.
type Driver struct {
	mu       sync.Mutex
	next     driver.Handle
	objects  map[driver.Handle]interface{}
	children map[driver.Handle][]driver.Handle

	physical map[vk.PhysicalDevice]driver.Handle
	debug    map[driver.Handle]vk.DebugReportCallback
	formats  map[driver.Handle]vk.SurfaceFormat
}

// New loads the Vulkan API. procAddr is the vkGetInstanceProcAddr of the
// windowing system; when nil the system loader is used.
func New(procAddr unsafe.Pointer) (*Driver, error) {
	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.Wrap(err, "vk.SetDefaultGetInstanceProcAddr()")
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "vk.Init()")
	}
	return &Driver{
		objects:  make(map[driver.Handle]interface{}),
		children: make(map[driver.Handle][]driver.Handle),
		physical: make(map[vk.PhysicalDevice]driver.Handle),
		debug:    make(map[driver.Handle]vk.DebugReportCallback),
		formats:  make(map[driver.Handle]vk.SurfaceFormat),
	}, nil
}

func (d *Driver) put(obj interface{}) driver.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.objects[d.next] = obj
	return d.next
}

func (d *Driver) putChild(parent driver.Handle, obj interface{}) driver.Handle {
	h := d.put(obj)
	d.mu.Lock()
	d.children[parent] = append(d.children[parent], h)
	d.mu.Unlock()
	return h
}

// remove drops h and every child of it from the arena.
func (d *Driver) remove(h driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(h)
}

func (d *Driver) removeLocked(h driver.Handle) {
	for _, child := range d.children[h] {
		d.removeLocked(child)
	}
	delete(d.children, h)
	delete(d.objects, h)
}

func (d *Driver) forget(parent driver.Handle, handles []driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	gone := make(map[driver.Handle]bool, len(handles))
	for _, h := range handles {
		gone[h] = true
		d.removeLocked(h)
	}
	kept := d.children[parent][:0]
	for _, h := range d.children[parent] {
		if !gone[h] {
			kept = append(kept, h)
		}
	}
	d.children[parent] = kept
}

// lookup returns the native object behind h, or the zero value for
// NullHandle and unknown handles.
func lookup[T any](d *Driver, h driver.Handle) T {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, _ := d.objects[h].(T)
	return obj
}

func lookupAll[T any](d *Driver, hs []driver.Handle) []T {
	out := make([]T, len(hs))
	for i, h := range hs {
		out[i] = lookup[T](d, h)
	}
	return out
}

// result turns a Vulkan result code into an error. Device loss and
// outdated swapchains map onto the driver package errors.
func result(ret vk.Result) error {
	switch ret {
	case vk.Success:
		return nil
	case vk.ErrorDeviceLost:
		return driver.ErrDeviceLost
	case vk.ErrorOutOfDate:
		return driver.ErrOutOfDate
	}
	if err := vk.Error(ret); err != nil {
		return err
	}
	return errors.Newf("unexpected result %d", ret)
}

func safeString(s string) string {
	return s + "\x00"
}

func safeStrings(sgs []string) []string {
	safe := make([]string, 0, len(sgs))
	for _, s := range sgs {
		safe = append(safe, safeString(s))
	}
	return safe
}

// sliceUint32 reslices SPIR-V bytes into words without copying.
func sliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// LayerAvailable implements driver.Driver.
func (d *Driver) LayerAvailable(name string) bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if vk.EnumerateInstanceLayerProperties(&count, layers) != vk.Success {
		return false
	}
	for _, layer := range layers {
		layer.Deref()
		if vk.ToString(layer.LayerName[:]) == name {
			return true
		}
	}
	return false
}

// debugExtension is enabled on the instance when a debug callback is wanted.
const debugExtension = "VK_EXT_debug_report"

// CreateInstance implements driver.Driver.
func (d *Driver) CreateInstance(info driver.InstanceInfo) (driver.Handle, error) {
	extensions := append([]string(nil), info.Extensions...)
	if info.Debug {
		extensions = append(extensions, debugExtension)
	}
	extensions = safeStrings(extensions)
	layers := safeStrings(info.Layers)

	ici := vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         vk.MakeVersion(1, 0, 0),
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PApplicationName:   safeString(info.ApplicationName),
			PEngineName:        safeString(info.EngineName),
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}

	var instance vk.Instance
	if err := result(vk.CreateInstance(&ici, nil, &instance)); err != nil {
		return driver.NullHandle, err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return driver.NullHandle, errors.Wrap(err, "vk.InitInstance()")
	}
	h := d.put(instance)

	if info.Debug {
		setMessages(info.Messages)
		dci := vk.DebugReportCallbackCreateInfo{
			SType: vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
				vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit),
			PfnCallback: debugReport,
		}
		var dbg vk.DebugReportCallback
		if err := result(vk.CreateDebugReportCallback(instance, &dci, nil, &dbg)); err != nil {
			d.remove(h)
			vk.DestroyInstance(instance, nil)
			setMessages(nil)
			return driver.NullHandle, errors.Wrap(err, "vk.CreateDebugReportCallback()")
		}
		d.mu.Lock()
		d.debug[h] = dbg
		d.mu.Unlock()
	}
	return h, nil
}

// DestroyInstance implements driver.Driver. The debug callback goes first.
func (d *Driver) DestroyInstance(h driver.Handle) {
	instance := lookup[vk.Instance](d, h)
	d.mu.Lock()
	dbg, ok := d.debug[h]
	delete(d.debug, h)
	d.mu.Unlock()
	if ok {
		vk.DestroyDebugReportCallback(instance, dbg, nil)
		setMessages(nil)
	}
	vk.DestroyInstance(instance, nil)
	d.remove(h)

	d.mu.Lock()
	defer d.mu.Unlock()
	for pd, ph := range d.physical {
		if _, live := d.objects[ph]; !live {
			delete(d.physical, pd)
		}
	}
}

// PhysicalDevices implements driver.Driver.
func (d *Driver) PhysicalDevices(h driver.Handle) ([]driver.PhysicalDevice, error) {
	instance := lookup[vk.Instance](d, h)
	var count uint32
	if err := result(vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return nil, err
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := result(vk.EnumeratePhysicalDevices(instance, &count, devices)); err != nil {
		return nil, err
	}

	infos := make([]driver.PhysicalDevice, 0, len(devices))
	for _, pd := range devices {
		d.mu.Lock()
		ph, known := d.physical[pd]
		d.mu.Unlock()
		if !known {
			ph = d.putChild(h, pd)
			d.mu.Lock()
			d.physical[pd] = ph
			d.mu.Unlock()
		}
		infos = append(infos, describe(ph, pd))
	}
	return infos, nil
}

func describe(h driver.Handle, pd vk.PhysicalDevice) driver.PhysicalDevice {
	info := driver.PhysicalDevice{Handle: h, QueueFamily: -1}

	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	info.Name = vk.ToString(props.DeviceName[:])
	info.VendorID = int(props.VendorID)
	info.DeviceID = int(props.DeviceID)

	var numExtensions uint32
	if vk.EnumerateDeviceExtensionProperties(pd, "", &numExtensions, nil) == vk.Success {
		extensions := make([]vk.ExtensionProperties, numExtensions)
		vk.EnumerateDeviceExtensionProperties(pd, "", &numExtensions, extensions)
		for _, ext := range extensions {
			ext.Deref()
			info.Extensions = append(info.Extensions, vk.ToString(ext.ExtensionName[:]))
		}
	}

	var numFamilies uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &numFamilies, nil)
	families := make([]vk.QueueFamilyProperties, numFamilies)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &numFamilies, families)
	for i := range families {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			info.QueueFamily = i
			break
		}
	}

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memory)
	memory.Deref()
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		memory.MemoryTypes[i].Deref()
		info.MemoryTypes = append(info.MemoryTypes, driver.MemoryType{
			Properties: memoryProperty(memory.MemoryTypes[i].PropertyFlags),
			HeapIndex:  memory.MemoryTypes[i].HeapIndex,
		})
	}
	for i := uint32(0); i < memory.MemoryHeapCount; i++ {
		memory.MemoryHeaps[i].Deref()
		info.Memory += uint64(memory.MemoryHeaps[i].Size)
	}
	return info
}

// NativeInstance returns the vk.Instance behind h for window systems
// that create surfaces themselves.
func (d *Driver) NativeInstance(h driver.Handle) vk.Instance {
	return lookup[vk.Instance](d, h)
}

// SurfaceFromPointer implements driver.Driver.
func (d *Driver) SurfaceFromPointer(instance driver.Handle, surface unsafe.Pointer) driver.Handle {
	return d.putChild(instance, vk.SurfaceFromPointer(uintptr(surface)))
}

// DestroyNativeSurface destroys a surface that was created for instance
// but never wrapped with SurfaceFromPointer.
func (d *Driver) DestroyNativeSurface(instance driver.Handle, surface unsafe.Pointer) {
	if surface == nil {
		return
	}
	vk.DestroySurface(lookup[vk.Instance](d, instance), vk.SurfaceFromPointer(uintptr(surface)), nil)
}

// DestroySurface implements driver.Driver.
func (d *Driver) DestroySurface(instance, surface driver.Handle) {
	vk.DestroySurface(lookup[vk.Instance](d, instance), lookup[vk.Surface](d, surface), nil)
	d.forget(instance, []driver.Handle{surface})
	d.mu.Lock()
	delete(d.formats, surface)
	d.mu.Unlock()
}

// CreateDevice implements driver.Driver.
func (d *Driver) CreateDevice(physical driver.Handle, info driver.DeviceInfo) (driver.Handle, error) {
	extensions := safeStrings(info.Extensions)
	dci := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: info.QueueFamily,
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		}},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}
	var device vk.Device
	if err := result(vk.CreateDevice(lookup[vk.PhysicalDevice](d, physical), &dci, nil, &device)); err != nil {
		return driver.NullHandle, err
	}
	return d.put(device), nil
}

// DestroyDevice implements driver.Driver.
func (d *Driver) DestroyDevice(device driver.Handle) {
	vk.DestroyDevice(lookup[vk.Device](d, device), nil)
	d.remove(device)
}

// DeviceQueue implements driver.Driver.
func (d *Driver) DeviceQueue(device driver.Handle, family uint32) driver.Handle {
	var queue vk.Queue
	vk.GetDeviceQueue(lookup[vk.Device](d, device), family, 0, &queue)
	return d.putChild(device, queue)
}

// DeviceWaitIdle implements driver.Driver.
func (d *Driver) DeviceWaitIdle(device driver.Handle) error {
	return result(vk.DeviceWaitIdle(lookup[vk.Device](d, device)))
}

var _ driver.Driver = (*Driver)(nil)

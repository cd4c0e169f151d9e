// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package drivertest provides an in-memory driver.Driver for tests.
//
// Objects are tracked with their kind and parent, so tests can assert that
// nothing leaked and that nothing was destroyed twice or before its
// children. Fences keep a signaled state that tests flip to play the part
// of the GPU, and every wait is counted per fence.
package drivertest

import (
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/gfx/driver"
)

// Kind is the type of a fake native object.
type Kind string

// Object kinds.
const (
	KindInstance            Kind = "instance"
	KindSurface             Kind = "surface"
	KindDevice              Kind = "device"
	KindQueue               Kind = "queue"
	KindCommandPool         Kind = "command pool"
	KindCommandBuffer       Kind = "command buffer"
	KindSemaphore           Kind = "semaphore"
	KindFence               Kind = "fence"
	KindBuffer              Kind = "buffer"
	KindMemory              Kind = "memory"
	KindShaderModule        Kind = "shader module"
	KindDescriptorSetLayout Kind = "descriptor set layout"
	KindDescriptorPool      Kind = "descriptor pool"
	KindDescriptorSet       Kind = "descriptor set"
	KindPipelineLayout      Kind = "pipeline layout"
	KindPipeline            Kind = "pipeline"
	KindRenderPass          Kind = "render pass"
	KindSwapchain           Kind = "swapchain"
	KindImage               Kind = "image"
	KindImageView           Kind = "image view"
	KindFramebuffer         Kind = "framebuffer"
)

// ValidationLayer is the layer name the fake reports as installed by default.
const ValidationLayer = "VK_LAYER_KHRONOS_validation"

type object struct {
	kind   Kind
	parent driver.Handle

	signaled bool
	pending  bool

	typeIndex uint32
	data      []byte
	mapped    bool
	bound     driver.Handle
	size      uint64
	usage     driver.BufferUsage

	pipeline driver.GraphicsPipelineInfo
	code     []byte
}

type failure struct {
	after int
	err   error
}

// Submit records one queue submission.
type Submit struct {
	Queue driver.Handle
	Info  driver.SubmitInfo
	Fence driver.Handle
}

// Present records one presentation.
type Present struct {
	Swapchain  driver.Handle
	ImageIndex uint32
	Wait       driver.Handle
}

// Driver is a fake driver.Driver. It is safe for concurrent use so tests
// can signal fences from a second goroutine while the code under test
// blocks in WaitForFences.
type Driver struct {
	// Layers lists the instance layers reported as available.
	Layers []string

	// Devices lists the physical devices reported by PhysicalDevices.
	// Handles are assigned on first enumeration.
	Devices []driver.PhysicalDevice

	// SwapchainImages is the number of images a swapchain is created with
	// when the requested minimum is lower.
	SwapchainImages uint32

	// AcquireOrder scripts the image indices AcquireNextImage returns.
	// When empty images are handed out round robin.
	AcquireOrder []uint32

	// CompleteOnWait makes a wait on a pending fence signal it, as if the
	// GPU finished just as the CPU started waiting. Waits are still counted.
	CompleteOnWait bool

	mu       sync.Mutex
	cond     *sync.Cond
	next     driver.Handle
	objects  map[driver.Handle]*object
	failures map[string]*failure
	waits    map[driver.Handle]int
	problems []string
	submits  []Submit
	presents []Present
	created  []driver.SwapchainInfo
	draws    []driver.DrawInfo
	acquired int
	messages func(driver.Message)
}

// New returns a fake with one discrete GPU exposing a device-local memory
// type at index 0 and a host-visible, host-coherent type at index 1.
func New() *Driver {
	d := &Driver{
		Layers: []string{ValidationLayer},
		Devices: []driver.PhysicalDevice{{
			Name:        "Fake GPU",
			VendorID:    0x1234,
			DeviceID:    1,
			Extensions:  []string{"VK_KHR_swapchain"},
			QueueFamily: 0,
			MemoryTypes: []driver.MemoryType{
				{Properties: driver.MemoryDeviceLocal, HeapIndex: 0},
				{Properties: driver.HostWritable, HeapIndex: 1},
			},
			Memory: 1 << 30,
		}},
		SwapchainImages: 3,
		objects:         make(map[driver.Handle]*object),
		failures:        make(map[string]*failure),
		waits:           make(map[driver.Handle]int),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// FailOn makes the next call of the named Driver method after the first
// after successful ones fail with err. The failure happens once.
// FailOn("CreateFence", 1, err) lets the first fence through and fails the
// second.
func (d *Driver) FailOn(call string, after int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[call] = &failure{after: after, err: err}
}

// must be called with mu held
func (d *Driver) fail(call string) error {
	f, ok := d.failures[call]
	if !ok {
		return nil
	}
	if f.after > 0 {
		f.after--
		return nil
	}
	delete(d.failures, call)
	return f.err
}

// must be called with mu held
func (d *Driver) create(kind Kind, parent driver.Handle) (driver.Handle, *object) {
	d.next++
	obj := &object{kind: kind, parent: parent}
	d.objects[d.next] = obj
	return d.next, obj
}

// must be called with mu held
func (d *Driver) get(h driver.Handle, kind Kind) (*object, bool) {
	obj, ok := d.objects[h]
	if !ok || obj.kind != kind {
		return nil, false
	}
	return obj, true
}

// must be called with mu held
func (d *Driver) problem(format string, args ...interface{}) {
	d.problems = append(d.problems, fmt.Sprintf(format, args...))
}

// must be called with mu held
func (d *Driver) destroy(h driver.Handle, kind Kind) {
	if h == driver.NullHandle {
		return
	}
	if _, ok := d.get(h, kind); !ok {
		d.problem("destroy of unknown or already destroyed %s %d", kind, h)
		return
	}
	for child, obj := range d.objects {
		if obj.parent != h {
			continue
		}
		if diesWithParent(obj.kind) {
			delete(d.objects, child)
			continue
		}
		d.problem("%s %d destroyed while its %s %d is alive", kind, h, obj.kind, child)
	}
	delete(d.objects, h)
}

// diesWithParent reports kinds that are implicitly freed with their owner.
func diesWithParent(kind Kind) bool {
	switch kind {
	case KindQueue, KindImage, KindCommandBuffer, KindDescriptorSet:
		return true
	}
	return false
}

// Problems returns every misuse the fake observed: double destroys,
// destroys of unknown handles, owners destroyed before their children.
func (d *Driver) Problems() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.problems...)
}

// Live returns the number of live objects of the given kind.
func (d *Driver) Live(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, obj := range d.objects {
		if obj.kind == kind {
			n++
		}
	}
	return n
}

// Leaks describes every object still alive, excluding those freed
// implicitly with their owner.
func (d *Driver) Leaks() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var leaks []string
	for h, obj := range d.objects {
		if diesWithParent(obj.kind) {
			continue
		}
		leaks = append(leaks, fmt.Sprintf("%s %d", obj.kind, h))
	}
	sort.Strings(leaks)
	return leaks
}

// Signal marks fence signaled, completing the GPU work it guards, and
// wakes waiters.
func (d *Driver) Signal(fence driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if obj, ok := d.get(fence, KindFence); ok {
		obj.signaled = true
		obj.pending = false
	}
	d.cond.Broadcast()
}

// CompleteAll signals every fence with submitted work pending.
func (d *Driver) CompleteAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, obj := range d.objects {
		if obj.kind == KindFence && obj.pending {
			obj.signaled = true
			obj.pending = false
		}
	}
	d.cond.Broadcast()
}

// Signaled reports the current state of fence.
func (d *Driver) Signaled(fence driver.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(fence, KindFence)
	return ok && obj.signaled
}

// Waits returns how many WaitForFences calls included fence.
func (d *Driver) Waits(fence driver.Handle) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waits[fence]
}

// TotalWaits returns the number of fence waits issued so far.
func (d *Driver) TotalWaits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, w := range d.waits {
		n += w
	}
	return n
}

// Memory returns a copy of the contents of a memory object.
func (d *Driver) Memory(memory driver.Handle) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(memory, KindMemory)
	if !ok {
		return nil
	}
	return append([]byte(nil), obj.data...)
}

// Mapped reports whether a memory object is currently mapped.
func (d *Driver) Mapped(memory driver.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(memory, KindMemory)
	return ok && obj.mapped
}

// BoundMemory returns the memory object a buffer is bound to.
func (d *Driver) BoundMemory(buffer driver.Handle) driver.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(buffer, KindBuffer)
	if !ok {
		return driver.NullHandle
	}
	return obj.bound
}

// Pipeline returns the configuration a pipeline was created with.
func (d *Driver) Pipeline(pipeline driver.Handle) (driver.GraphicsPipelineInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(pipeline, KindPipeline)
	if !ok {
		return driver.GraphicsPipelineInfo{}, false
	}
	return obj.pipeline, true
}

// ShaderCode returns the code a shader module was created from.
func (d *Driver) ShaderCode(module driver.Handle) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(module, KindShaderModule)
	if !ok {
		return nil
	}
	return obj.code
}

// Submits returns every queue submission so far.
func (d *Driver) Submits() []Submit {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Submit(nil), d.submits...)
}

// Presents returns every presentation so far.
func (d *Driver) Presents() []Present {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Present(nil), d.presents...)
}

// Swapchains returns the create info of every swapchain created so far.
func (d *Driver) Swapchains() []driver.SwapchainInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]driver.SwapchainInfo(nil), d.created...)
}

// Draws returns every recorded draw.
func (d *Driver) Draws() []driver.DrawInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]driver.DrawInfo(nil), d.draws...)
}

// Emit delivers a validation message to the instance debug callback.
func (d *Driver) Emit(msg driver.Message) {
	d.mu.Lock()
	fn := d.messages
	d.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// LayerAvailable implements driver.Driver.
func (d *Driver) LayerAvailable(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range d.Layers {
		if l == name {
			return true
		}
	}
	return false
}

// CreateInstance implements driver.Driver.
func (d *Driver) CreateInstance(info driver.InstanceInfo) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateInstance"); err != nil {
		return driver.NullHandle, err
	}
	if info.Debug {
		d.messages = info.Messages
	}
	h, _ := d.create(KindInstance, driver.NullHandle)
	return h, nil
}

// DestroyInstance implements driver.Driver.
func (d *Driver) DestroyInstance(instance driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = nil
	d.destroy(instance, KindInstance)
}

// PhysicalDevices implements driver.Driver.
func (d *Driver) PhysicalDevices(instance driver.Handle) ([]driver.PhysicalDevice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("PhysicalDevices"); err != nil {
		return nil, err
	}
	if _, ok := d.get(instance, KindInstance); !ok {
		return nil, errors.Newf("unknown instance %d", instance)
	}
	for i := range d.Devices {
		if d.Devices[i].Handle == driver.NullHandle {
			d.next++
			d.Devices[i].Handle = d.next
		}
	}
	return append([]driver.PhysicalDevice(nil), d.Devices...), nil
}

// SurfaceFromPointer implements driver.Driver.
func (d *Driver) SurfaceFromPointer(instance driver.Handle, _ unsafe.Pointer) driver.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, _ := d.create(KindSurface, instance)
	return h
}

// DestroySurface implements driver.Driver.
func (d *Driver) DestroySurface(_, surface driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(surface, KindSurface)
}

// CreateDevice implements driver.Driver.
func (d *Driver) CreateDevice(physical driver.Handle, info driver.DeviceInfo) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateDevice"); err != nil {
		return driver.NullHandle, err
	}
	h, _ := d.create(KindDevice, driver.NullHandle)
	return h, nil
}

// DestroyDevice implements driver.Driver.
func (d *Driver) DestroyDevice(device driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(device, KindDevice)
}

// DeviceQueue implements driver.Driver.
func (d *Driver) DeviceQueue(device driver.Handle, _ uint32) driver.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	for h, obj := range d.objects {
		if obj.kind == KindQueue && obj.parent == device {
			return h
		}
	}
	h, _ := d.create(KindQueue, device)
	return h
}

// DeviceWaitIdle implements driver.Driver. All pending work completes.
func (d *Driver) DeviceWaitIdle(driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("DeviceWaitIdle"); err != nil {
		return err
	}
	for _, obj := range d.objects {
		if obj.kind == KindFence && obj.pending {
			obj.signaled = true
			obj.pending = false
		}
	}
	d.cond.Broadcast()
	return nil
}

// CreateCommandPool implements driver.Driver.
func (d *Driver) CreateCommandPool(device driver.Handle, _ uint32) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateCommandPool"); err != nil {
		return driver.NullHandle, err
	}
	h, _ := d.create(KindCommandPool, device)
	return h, nil
}

// DestroyCommandPool implements driver.Driver.
func (d *Driver) DestroyCommandPool(_, pool driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(pool, KindCommandPool)
}

// AllocateCommandBuffers implements driver.Driver.
func (d *Driver) AllocateCommandBuffers(_, pool driver.Handle, count int) ([]driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("AllocateCommandBuffers"); err != nil {
		return nil, err
	}
	buffers := make([]driver.Handle, count)
	for i := range buffers {
		buffers[i], _ = d.create(KindCommandBuffer, pool)
	}
	return buffers, nil
}

// FreeCommandBuffers implements driver.Driver.
func (d *Driver) FreeCommandBuffers(_, _ driver.Handle, buffers []driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range buffers {
		d.destroy(b, KindCommandBuffer)
	}
}

// CreateSemaphore implements driver.Driver.
func (d *Driver) CreateSemaphore(device driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateSemaphore"); err != nil {
		return driver.NullHandle, err
	}
	h, _ := d.create(KindSemaphore, device)
	return h, nil
}

// DestroySemaphore implements driver.Driver.
func (d *Driver) DestroySemaphore(_, semaphore driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(semaphore, KindSemaphore)
}

// CreateFence implements driver.Driver.
func (d *Driver) CreateFence(device driver.Handle, signaled bool) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateFence"); err != nil {
		return driver.NullHandle, err
	}
	h, obj := d.create(KindFence, device)
	obj.signaled = signaled
	return h, nil
}

// DestroyFence implements driver.Driver.
func (d *Driver) DestroyFence(_, fence driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(fence, KindFence)
}

// WaitForFences implements driver.Driver. It blocks until every fence is
// signaled by Signal, CompleteAll or CompleteOnWait.
func (d *Driver) WaitForFences(_ driver.Handle, fences []driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("WaitForFences"); err != nil {
		return err
	}
	for _, f := range fences {
		if _, ok := d.get(f, KindFence); !ok {
			return errors.Newf("wait on unknown fence %d", f)
		}
		d.waits[f]++
	}
	for {
		done := true
		for _, f := range fences {
			obj, ok := d.get(f, KindFence)
			if !ok {
				return errors.Newf("fence %d destroyed while waited on", f)
			}
			if obj.signaled {
				continue
			}
			if d.CompleteOnWait && obj.pending {
				obj.signaled = true
				obj.pending = false
				continue
			}
			done = false
		}
		if done {
			return nil
		}
		d.cond.Wait()
	}
}

// ResetFences implements driver.Driver.
func (d *Driver) ResetFences(_ driver.Handle, fences []driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("ResetFences"); err != nil {
		return err
	}
	for _, f := range fences {
		obj, ok := d.get(f, KindFence)
		if !ok {
			return errors.Newf("reset of unknown fence %d", f)
		}
		if obj.pending {
			d.problem("fence %d reset while its work is pending", f)
		}
		obj.signaled = false
	}
	return nil
}

// FenceSignaled implements driver.Driver.
func (d *Driver) FenceSignaled(_, fence driver.Handle) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(fence, KindFence)
	if !ok {
		return false, errors.Newf("unknown fence %d", fence)
	}
	return obj.signaled, nil
}

// CreateBuffer implements driver.Driver.
func (d *Driver) CreateBuffer(device driver.Handle, size uint64, usage driver.BufferUsage) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateBuffer"); err != nil {
		return driver.NullHandle, err
	}
	h, obj := d.create(KindBuffer, device)
	obj.size = size
	obj.usage = usage
	return h, nil
}

// BufferMemoryRequirements implements driver.Driver. Sizes are rounded up
// to 64 bytes and every memory type is acceptable.
func (d *Driver) BufferMemoryRequirements(_, buffer driver.Handle) driver.MemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(buffer, KindBuffer)
	if !ok {
		return driver.MemoryRequirements{}
	}
	const align = 64
	return driver.MemoryRequirements{
		Size:      (obj.size + align - 1) / align * align,
		Alignment: align,
		TypeBits:  1<<uint(len(d.Devices[0].MemoryTypes)) - 1,
	}
}

// DestroyBuffer implements driver.Driver.
func (d *Driver) DestroyBuffer(_, buffer driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(buffer, KindBuffer)
}

// AllocateMemory implements driver.Driver.
func (d *Driver) AllocateMemory(device driver.Handle, size uint64, typeIndex uint32) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("AllocateMemory"); err != nil {
		return driver.NullHandle, err
	}
	h, obj := d.create(KindMemory, device)
	obj.data = make([]byte, size)
	obj.typeIndex = typeIndex
	return h, nil
}

// FreeMemory implements driver.Driver.
func (d *Driver) FreeMemory(_, memory driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for h, obj := range d.objects {
		if obj.kind == KindBuffer && obj.bound == memory {
			d.problem("memory %d freed while bound to live buffer %d", memory, h)
		}
	}
	d.destroy(memory, KindMemory)
}

// BindBufferMemory implements driver.Driver.
func (d *Driver) BindBufferMemory(_, buffer, memory driver.Handle, offset uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("BindBufferMemory"); err != nil {
		return err
	}
	buf, ok := d.get(buffer, KindBuffer)
	if !ok {
		return errors.Newf("unknown buffer %d", buffer)
	}
	mem, ok := d.get(memory, KindMemory)
	if !ok {
		return errors.Newf("unknown memory %d", memory)
	}
	if offset+buf.size > uint64(len(mem.data)) {
		return errors.Newf("buffer of %d bytes does not fit memory of %d at offset %d", buf.size, len(mem.data), offset)
	}
	buf.bound = memory
	return nil
}

// MapMemory implements driver.Driver. Mapping memory that is not host
// visible fails, as does mapping twice.
func (d *Driver) MapMemory(_, memory driver.Handle, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("MapMemory"); err != nil {
		return nil, err
	}
	obj, ok := d.get(memory, KindMemory)
	if !ok {
		return nil, errors.Newf("unknown memory %d", memory)
	}
	if !d.Devices[0].MemoryTypes[obj.typeIndex].Properties.Has(driver.MemoryHostVisible) {
		return nil, errors.Newf("memory %d is not host visible", memory)
	}
	if obj.mapped {
		return nil, errors.Newf("memory %d is already mapped", memory)
	}
	if offset+size > uint64(len(obj.data)) {
		return nil, errors.Newf("map range %d+%d exceeds %d", offset, size, len(obj.data))
	}
	obj.mapped = true
	return obj.data[offset : offset+size : offset+size], nil
}

// UnmapMemory implements driver.Driver.
func (d *Driver) UnmapMemory(_, memory driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.get(memory, KindMemory)
	if !ok || !obj.mapped {
		d.problem("unmap of memory %d that is not mapped", memory)
		return
	}
	obj.mapped = false
}

// CreateShaderModule implements driver.Driver.
func (d *Driver) CreateShaderModule(device driver.Handle, code []byte) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateShaderModule"); err != nil {
		return driver.NullHandle, err
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return driver.NullHandle, errors.Newf("shader code of %d bytes is not a multiple of 4", len(code))
	}
	h, obj := d.create(KindShaderModule, device)
	obj.code = append([]byte(nil), code...)
	return h, nil
}

// DestroyShaderModule implements driver.Driver.
func (d *Driver) DestroyShaderModule(_, module driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(module, KindShaderModule)
}

// CreateDescriptorSetLayout implements driver.Driver.
func (d *Driver) CreateDescriptorSetLayout(device driver.Handle, _ []driver.DescriptorBinding) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateDescriptorSetLayout"); err != nil {
		return driver.NullHandle, err
	}
	h, _ := d.create(KindDescriptorSetLayout, device)
	return h, nil
}

// DestroyDescriptorSetLayout implements driver.Driver.
func (d *Driver) DestroyDescriptorSetLayout(_, layout driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(layout, KindDescriptorSetLayout)
}

// CreateDescriptorPool implements driver.Driver.
func (d *Driver) CreateDescriptorPool(device driver.Handle, _, _ uint32) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateDescriptorPool"); err != nil {
		return driver.NullHandle, err
	}
	h, _ := d.create(KindDescriptorPool, device)
	return h, nil
}

// DestroyDescriptorPool implements driver.Driver. Sets die with the pool.
func (d *Driver) DestroyDescriptorPool(_, pool driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(pool, KindDescriptorPool)
}

// AllocateDescriptorSet implements driver.Driver.
func (d *Driver) AllocateDescriptorSet(_, pool, _ driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("AllocateDescriptorSet"); err != nil {
		return driver.NullHandle, err
	}
	h, _ := d.create(KindDescriptorSet, pool)
	return h, nil
}

// UpdateUniformDescriptor implements driver.Driver.
func (d *Driver) UpdateUniformDescriptor(_, set driver.Handle, _ uint32, buffer driver.Handle, _ uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if obj, ok := d.get(set, KindDescriptorSet); ok {
		obj.bound = buffer
	}
}

// CreatePipelineLayout implements driver.Driver.
func (d *Driver) CreatePipelineLayout(device driver.Handle, _ []driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreatePipelineLayout"); err != nil {
		return driver.NullHandle, err
	}
	h, _ := d.create(KindPipelineLayout, device)
	return h, nil
}

// DestroyPipelineLayout implements driver.Driver.
func (d *Driver) DestroyPipelineLayout(_, layout driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(layout, KindPipelineLayout)
}

// CreateGraphicsPipeline implements driver.Driver.
func (d *Driver) CreateGraphicsPipeline(device driver.Handle, info driver.GraphicsPipelineInfo) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateGraphicsPipeline"); err != nil {
		return driver.NullHandle, err
	}
	for _, s := range info.Stages {
		if _, ok := d.get(s.Module, KindShaderModule); !ok {
			return driver.NullHandle, errors.Newf("stage uses unknown shader module %d", s.Module)
		}
	}
	h, obj := d.create(KindPipeline, device)
	obj.pipeline = info
	return h, nil
}

// DestroyPipeline implements driver.Driver.
func (d *Driver) DestroyPipeline(_, pipeline driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(pipeline, KindPipeline)
}

// CreateRenderPass implements driver.Driver.
func (d *Driver) CreateRenderPass(device driver.Handle, _ driver.Format) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateRenderPass"); err != nil {
		return driver.NullHandle, err
	}
	h, _ := d.create(KindRenderPass, device)
	return h, nil
}

// DestroyRenderPass implements driver.Driver.
func (d *Driver) DestroyRenderPass(_, renderPass driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(renderPass, KindRenderPass)
}

// CreateSwapchain implements driver.Driver.
func (d *Driver) CreateSwapchain(device, _ driver.Handle, info driver.SwapchainInfo) (driver.Swapchain, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateSwapchain"); err != nil {
		return driver.Swapchain{}, err
	}
	if info.Old != driver.NullHandle {
		if _, ok := d.get(info.Old, KindSwapchain); !ok {
			d.problem("swapchain created from unknown old %s %d", KindSwapchain, info.Old)
		}
	}
	d.created = append(d.created, info)
	count := info.MinImages
	if count < d.SwapchainImages {
		count = d.SwapchainImages
	}
	h, _ := d.create(KindSwapchain, device)
	sc := driver.Swapchain{
		Handle: h,
		Format: driver.FormatB8G8R8A8Unorm,
		Extent: info.Extent,
		Images: make([]driver.Handle, count),
	}
	for i := range sc.Images {
		sc.Images[i], _ = d.create(KindImage, h)
	}
	d.acquired = 0
	return sc, nil
}

// DestroySwapchain implements driver.Driver.
func (d *Driver) DestroySwapchain(_, swapchain driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(swapchain, KindSwapchain)
}

// CreateImageView implements driver.Driver.
func (d *Driver) CreateImageView(device, _ driver.Handle, _ driver.Format) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateImageView"); err != nil {
		return driver.NullHandle, err
	}
	h, _ := d.create(KindImageView, device)
	return h, nil
}

// DestroyImageView implements driver.Driver.
func (d *Driver) DestroyImageView(_, view driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(view, KindImageView)
}

// CreateFramebuffer implements driver.Driver.
func (d *Driver) CreateFramebuffer(device, _, _ driver.Handle, _ driver.Extent2D) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateFramebuffer"); err != nil {
		return driver.NullHandle, err
	}
	h, _ := d.create(KindFramebuffer, device)
	return h, nil
}

// DestroyFramebuffer implements driver.Driver.
func (d *Driver) DestroyFramebuffer(_, framebuffer driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(framebuffer, KindFramebuffer)
}

// AcquireNextImage implements driver.Driver.
func (d *Driver) AcquireNextImage(_, swapchain, _ driver.Handle) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("AcquireNextImage"); err != nil {
		return 0, err
	}
	images := 0
	for _, obj := range d.objects {
		if obj.kind == KindImage && obj.parent == swapchain {
			images++
		}
	}
	if images == 0 {
		return 0, errors.Newf("unknown swapchain %d", swapchain)
	}
	var idx uint32
	if len(d.AcquireOrder) > 0 {
		idx = d.AcquireOrder[d.acquired%len(d.AcquireOrder)]
	} else {
		idx = uint32(d.acquired % images)
	}
	d.acquired++
	return idx, nil
}

// RecordDraw implements driver.Driver.
func (d *Driver) RecordDraw(commandBuffer driver.Handle, info driver.DrawInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("RecordDraw"); err != nil {
		return err
	}
	if _, ok := d.get(commandBuffer, KindCommandBuffer); !ok {
		return errors.Newf("unknown command buffer %d", commandBuffer)
	}
	d.draws = append(d.draws, info)
	return nil
}

// QueueSubmit implements driver.Driver. The fence becomes pending until a
// test completes it. Submitting with a signaled fence is recorded as a
// problem since the fence was not reset.
func (d *Driver) QueueSubmit(queue driver.Handle, submit driver.SubmitInfo, fence driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("QueueSubmit"); err != nil {
		return err
	}
	if fence != driver.NullHandle {
		obj, ok := d.get(fence, KindFence)
		if !ok {
			return errors.Newf("submit with unknown fence %d", fence)
		}
		if obj.signaled {
			d.problem("fence %d submitted without reset", fence)
		}
		obj.signaled = false
		obj.pending = true
	}
	d.submits = append(d.submits, Submit{Queue: queue, Info: submit, Fence: fence})
	return nil
}

// QueuePresent implements driver.Driver.
func (d *Driver) QueuePresent(_, swapchain driver.Handle, imageIndex uint32, wait driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("QueuePresent"); err != nil {
		return err
	}
	d.presents = append(d.presents, Present{Swapchain: swapchain, ImageIndex: imageIndex, Wait: wait})
	return nil
}

var _ driver.Driver = (*Driver)(nil)

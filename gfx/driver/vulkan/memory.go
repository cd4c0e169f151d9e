// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"unsafe"

	"github.com/devblok/wind/gfx/driver"
	vk "github.com/vulkan-go/vulkan"
)

// CreateBuffer implements driver.Driver.
func (d *Driver) CreateBuffer(device driver.Handle, size uint64, usage driver.BufferUsage) (driver.Handle, error) {
	bci := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       bufferUsage(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := result(vk.CreateBuffer(lookup[vk.Device](d, device), &bci, nil, &buffer)); err != nil {
		return driver.NullHandle, err
	}
	return d.put(buffer), nil
}

// BufferMemoryRequirements implements driver.Driver.
func (d *Driver) BufferMemoryRequirements(device, buffer driver.Handle) driver.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(lookup[vk.Device](d, device), lookup[vk.Buffer](d, buffer), &req)
	req.Deref()
	return driver.MemoryRequirements{
		Size:      uint64(req.Size),
		Alignment: uint64(req.Alignment),
		TypeBits:  req.MemoryTypeBits,
	}
}

// DestroyBuffer implements driver.Driver.
func (d *Driver) DestroyBuffer(device, buffer driver.Handle) {
	vk.DestroyBuffer(lookup[vk.Device](d, device), lookup[vk.Buffer](d, buffer), nil)
	d.remove(buffer)
}

// AllocateMemory implements driver.Driver.
func (d *Driver) AllocateMemory(device driver.Handle, size uint64, typeIndex uint32) (driver.Handle, error) {
	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: typeIndex,
	}
	var memory vk.DeviceMemory
	if err := result(vk.AllocateMemory(lookup[vk.Device](d, device), &mai, nil, &memory)); err != nil {
		return driver.NullHandle, err
	}
	return d.put(memory), nil
}

// FreeMemory implements driver.Driver.
func (d *Driver) FreeMemory(device, memory driver.Handle) {
	vk.FreeMemory(lookup[vk.Device](d, device), lookup[vk.DeviceMemory](d, memory), nil)
	d.remove(memory)
}

// BindBufferMemory implements driver.Driver.
func (d *Driver) BindBufferMemory(device, buffer, memory driver.Handle, offset uint64) error {
	return result(vk.BindBufferMemory(
		lookup[vk.Device](d, device),
		lookup[vk.Buffer](d, buffer),
		lookup[vk.DeviceMemory](d, memory),
		vk.DeviceSize(offset),
	))
}

// MapMemory implements driver.Driver.
func (d *Driver) MapMemory(device, memory driver.Handle, offset, size uint64) ([]byte, error) {
	var mapped unsafe.Pointer
	ret := vk.MapMemory(
		lookup[vk.Device](d, device),
		lookup[vk.DeviceMemory](d, memory),
		vk.DeviceSize(offset), vk.DeviceSize(size), 0, &mapped,
	)
	if err := result(ret); err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(mapped), size), nil
}

// UnmapMemory implements driver.Driver.
func (d *Driver) UnmapMemory(device, memory driver.Handle) {
	vk.UnmapMemory(lookup[vk.Device](d, device), lookup[vk.DeviceMemory](d, memory))
}

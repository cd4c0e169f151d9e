// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
)

// ErrNoMemoryType is returned when no memory type satisfies a request.
var ErrNoMemoryType = errors.New("suitable memory type not found")

// Memory defines a usable memory region.
type Memory struct {
	device     *Device
	handle     driver.Handle
	size       uint64
	offset     uint64
	properties driver.MemoryProperty
	mapped     []byte
}

// Handle returns the memory handle.
func (m *Memory) Handle() driver.Handle {
	return m.handle
}

// Len returns the length of assigned memory.
func (m *Memory) Len() uint64 {
	return m.size
}

// Offset returns the start location of assigned memory.
func (m *Memory) Offset() uint64 {
	return m.offset
}

// Properties returns the properties of the memory type backing m.
func (m *Memory) Properties() driver.MemoryProperty {
	return m.properties
}

// Mapped reports whether the memory is currently mapped.
func (m *Memory) Mapped() bool {
	return m.mapped != nil
}

// Map maps the entire region and returns a view of it. Mapping memory that
// is not host visible is a contract violation.
func (m *Memory) Map() ([]byte, error) {
	if !m.properties.Has(driver.MemoryHostVisible) {
		return nil, gfx.Violation("Memory.Map: memory is not host visible")
	}
	if m.mapped != nil {
		return m.mapped, nil
	}
	data, err := m.device.drv.MapMemory(m.device.handle, m.handle, m.offset, m.size)
	if err != nil {
		return nil, gfx.Runtime(err, "vk.MapMemory()")
	}
	m.mapped = data
	return data, nil
}

// Unmap removes the memory mapping if it was mapped.
func (m *Memory) Unmap() {
	if m.mapped != nil {
		m.device.drv.UnmapMemory(m.device.handle, m.handle)
		m.mapped = nil
	}
}

// Release frees memory after unmapping it if previously mapped.
func (m *Memory) Release() {
	if m.handle == driver.NullHandle {
		return
	}
	m.Unmap()
	m.device.drv.FreeMemory(m.device.handle, m.handle)
	m.handle = driver.NullHandle
}

// MemoryAllocator is responsible for returning usable
// memory for any resources that may need it.
type MemoryAllocator struct {
	device *Device
	types  []driver.MemoryType
}

// NewMemoryAllocator creates a new memory allocator. Allocates for the logical device,
// reads memory properties of the physical device to influence allocation.
func NewMemoryAllocator(device *Device) *MemoryAllocator {
	return &MemoryAllocator{
		device: device,
		types:  device.MemoryTypes(),
	}
}

// Malloc returns a usable memory chunk ready for use.
func (ma *MemoryAllocator) Malloc(req driver.MemoryRequirements, prop driver.MemoryProperty) (Memory, error) {
	memTypeIdx, err := ma.FindMemoryType(req.TypeBits, prop)
	if err != nil {
		return Memory{}, gfx.Bootstrap(err, "Malloc()")
	}

	memory, err := ma.device.drv.AllocateMemory(ma.device.handle, req.Size, memTypeIdx)
	if err != nil {
		return Memory{}, gfx.Bootstrap(err, "vk.AllocateMemory()")
	}

	return Memory{
		device:     ma.device,
		handle:     memory,
		size:       req.Size,
		properties: ma.types[memTypeIdx].Properties,
	}, nil
}

// FindMemoryType returns the first memory type allowed by filter that has
// every property in prop.
func (ma *MemoryAllocator) FindMemoryType(filter uint32, prop driver.MemoryProperty) (uint32, error) {
	for idx := range ma.types {
		if filter&(1<<uint(idx)) != 0 && ma.types[idx].Properties.Has(prop) {
			return uint32(idx), nil
		}
	}
	return 0, errors.Wrapf(ErrNoMemoryType, "filter %b, properties %b", filter, prop)
}

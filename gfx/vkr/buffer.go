// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
	log "github.com/sirupsen/logrus"
)

// Buffer implements a generic buffer bound to its own memory allocation.
type Buffer struct {
	ref    gfx.Ref
	device *Device
	drop   func()
	handle driver.Handle
	size   uint64
	usage  driver.BufferUsage

	memory     Memory
	persistent bool
}

// NewBuffer creates, configures, allocates and binds a new buffer of size
// bytes backed by memory with the requested properties.
func NewBuffer(device *Device, ma *MemoryAllocator, size uint64, usage driver.BufferUsage, prop driver.MemoryProperty) (*Buffer, error) {
	if size == 0 {
		return nil, gfx.Violation("NewBuffer: zero size")
	}
	drop, err := acquire(&device.ref)
	if err != nil {
		return nil, err
	}

	drv := device.drv
	buffer, err := drv.CreateBuffer(device.handle, size, usage)
	if err != nil {
		drop()
		return nil, gfx.Bootstrap(err, "vk.CreateBuffer()")
	}

	memory, err := ma.Malloc(drv.BufferMemoryRequirements(device.handle, buffer), prop)
	if err != nil {
		drv.DestroyBuffer(device.handle, buffer)
		drop()
		return nil, err
	}

	if err := drv.BindBufferMemory(device.handle, buffer, memory.Handle(), memory.Offset()); err != nil {
		drv.DestroyBuffer(device.handle, buffer)
		memory.Release()
		drop()
		return nil, gfx.Bootstrap(err, "vk.BindBufferMemory()")
	}

	log.WithFields(log.Fields{
		"size":       size,
		"allocation": memory.Len(),
	}).Debug("Buffer created")

	return &Buffer{
		ref:    gfx.NewRef("buffer"),
		device: device,
		drop:   drop,
		handle: buffer,
		size:   size,
		usage:  usage,
		memory: memory,
	}, nil
}

// Handle returns the buffer handle.
func (b *Buffer) Handle() driver.Handle {
	b.ref.MustBeLive()
	return b.handle
}

// Size returns the usable size requested at creation. The allocation
// behind it may be larger.
func (b *Buffer) Size() uint64 {
	return b.size
}

// Usage returns the usage the buffer was created with.
func (b *Buffer) Usage() driver.BufferUsage {
	return b.usage
}

// Mem returns the Memory that the buffer is based on.
func (b *Buffer) Mem() *Memory {
	return &b.memory
}

func (b *Buffer) checkHostAccess(op string, n int) error {
	if err := b.ref.Check(); err != nil {
		return err
	}
	if uint64(n) > b.size {
		return gfx.Violation("Buffer.%s: %d bytes into a buffer of %d", op, n, b.size)
	}
	if !b.memory.Properties().Has(driver.HostWritable) {
		return gfx.Violation("Buffer.%s: memory is not host visible and coherent", op)
	}
	return nil
}

// Write copies data to the start of the buffer. Unless the buffer is
// persistently mapped the memory is mapped for the copy and unmapped
// again. Data larger than the buffer or a buffer without host visible,
// coherent memory is a contract violation; nothing is written then.
func (b *Buffer) Write(data []byte) error {
	if err := b.checkHostAccess("Write", len(data)); err != nil {
		return err
	}
	mapped, err := b.memory.Map()
	if err != nil {
		return err
	}
	copy(mapped, data)
	if !b.persistent {
		b.memory.Unmap()
	}
	return nil
}

// Read copies the start of the buffer into p and returns the number of
// bytes copied.
func (b *Buffer) Read(p []byte) (int, error) {
	n := len(p)
	if uint64(n) > b.size {
		n = int(b.size)
	}
	if err := b.checkHostAccess("Read", n); err != nil {
		return 0, err
	}
	mapped, err := b.memory.Map()
	if err != nil {
		return 0, err
	}
	copy(p, mapped[:n])
	if !b.persistent {
		b.memory.Unmap()
	}
	return n, nil
}

// Map maps the buffer persistently and returns its first Size bytes.
// Writes go straight into the mapping until Unmap.
func (b *Buffer) Map() ([]byte, error) {
	if err := b.checkHostAccess("Map", 0); err != nil {
		return nil, err
	}
	mapped, err := b.memory.Map()
	if err != nil {
		return nil, err
	}
	b.persistent = true
	return mapped[:b.size:b.size], nil
}

// Unmap ends a persistent mapping.
func (b *Buffer) Unmap() {
	b.persistent = false
	b.memory.Unmap()
}

// Release destroys the buffer and the memory asociated with it.
func (b *Buffer) Release() error {
	if b == nil {
		return nil
	}
	ok, err := b.ref.BeginRelease()
	if !ok {
		return err
	}
	b.persistent = false
	b.device.drv.DestroyBuffer(b.device.handle, b.handle)
	b.memory.Release()
	b.drop()
	return nil
}

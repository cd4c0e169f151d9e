// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
)

// CommandPool allocates command buffers for the device's graphics queue.
type CommandPool struct {
	ref     gfx.Ref
	device  *Device
	drop    func()
	handle  driver.Handle
	buffers []driver.Handle
}

// NewCommandPool creates a pool bound to the graphics queue family.
func NewCommandPool(device *Device) (*CommandPool, error) {
	drop, err := acquire(&device.ref)
	if err != nil {
		return nil, err
	}
	handle, err := device.drv.CreateCommandPool(device.handle, device.family)
	if err != nil {
		drop()
		return nil, gfx.Bootstrap(err, "vk.CreateCommandPool()")
	}
	return &CommandPool{
		ref:    gfx.NewRef("command pool"),
		device: device,
		drop:   drop,
		handle: handle,
	}, nil
}

// Handle returns the pool handle.
func (p *CommandPool) Handle() driver.Handle {
	p.ref.MustBeLive()
	return p.handle
}

// Allocate returns n primary command buffers. They are freed with the pool.
func (p *CommandPool) Allocate(n int) ([]driver.Handle, error) {
	if err := p.ref.Check(); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, gfx.Violation("CommandPool.Allocate: %d buffers", n)
	}
	buffers, err := p.device.drv.AllocateCommandBuffers(p.device.handle, p.handle, n)
	if err != nil {
		return nil, gfx.Bootstrap(err, "vk.AllocateCommandBuffers()")
	}
	p.buffers = append(p.buffers, buffers...)
	return buffers, nil
}

// Release frees the allocated command buffers and destroys the pool.
func (p *CommandPool) Release() error {
	if p == nil {
		return nil
	}
	ok, err := p.ref.BeginRelease()
	if !ok {
		return err
	}
	if len(p.buffers) > 0 {
		p.device.drv.FreeCommandBuffers(p.device.handle, p.handle, p.buffers)
		p.buffers = nil
	}
	p.device.drv.DestroyCommandPool(p.device.handle, p.handle)
	p.drop()
	return nil
}

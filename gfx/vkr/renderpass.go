// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
)

// RenderPass has a single color attachment that is cleared on load and
// handed to presentation when the pass ends.
type RenderPass struct {
	ref    gfx.Ref
	device *Device
	drop   func()
	handle driver.Handle
	format driver.Format
}

// NewRenderPass creates a render pass for attachments of format.
func NewRenderPass(device *Device, format driver.Format) (*RenderPass, error) {
	if format == driver.FormatUndefined {
		return nil, gfx.Violation("NewRenderPass: undefined attachment format")
	}
	drop, err := acquire(&device.ref)
	if err != nil {
		return nil, err
	}
	handle, err := device.drv.CreateRenderPass(device.handle, format)
	if err != nil {
		drop()
		return nil, gfx.Bootstrap(err, "vk.CreateRenderPass()")
	}
	return &RenderPass{
		ref:    gfx.NewRef("render pass"),
		device: device,
		drop:   drop,
		handle: handle,
		format: format,
	}, nil
}

// Handle returns the render pass handle.
func (r *RenderPass) Handle() driver.Handle {
	r.ref.MustBeLive()
	return r.handle
}

// Format returns the color attachment format.
func (r *RenderPass) Format() driver.Format {
	return r.format
}

// Release destroys the render pass.
func (r *RenderPass) Release() error {
	if r == nil {
		return nil
	}
	ok, err := r.ref.BeginRelease()
	if !ok {
		return err
	}
	r.device.drv.DestroyRenderPass(r.device.handle, r.handle)
	r.drop()
	return nil
}

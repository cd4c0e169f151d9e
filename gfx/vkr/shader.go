// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
	"github.com/gobuffalo/packd"
)

// ShaderModule wraps compiled shader code. Modules are only needed while
// a pipeline is being built.
type ShaderModule struct {
	ref    gfx.Ref
	device *Device
	drop   func()
	handle driver.Handle
	name   string
}

// NewShaderModule creates a module from SPIR-V code.
func NewShaderModule(device *Device, name string, code []byte) (*ShaderModule, error) {
	drop, err := acquire(&device.ref)
	if err != nil {
		return nil, err
	}
	handle, err := device.drv.CreateShaderModule(device.handle, code)
	if err != nil {
		drop()
		return nil, gfx.Bootstrap(err, "vk.CreateShaderModule(): "+name)
	}
	return &ShaderModule{
		ref:    gfx.NewRef("shader module " + name),
		device: device,
		drop:   drop,
		handle: handle,
		name:   name,
	}, nil
}

// LoadShaderModule reads name from shaders and creates a module from it.
func LoadShaderModule(device *Device, shaders packd.Finder, name string) (*ShaderModule, error) {
	code, err := shaders.Find(name)
	if err != nil {
		return nil, gfx.Bootstrap(err, "reading shader "+name)
	}
	return NewShaderModule(device, name, code)
}

// Handle returns the module handle.
func (s *ShaderModule) Handle() driver.Handle {
	s.ref.MustBeLive()
	return s.handle
}

// Name returns the asset name the module was loaded from.
func (s *ShaderModule) Name() string {
	return s.name
}

// Release destroys the module.
func (s *ShaderModule) Release() error {
	if s == nil {
		return nil
	}
	ok, err := s.ref.BeginRelease()
	if !ok {
		return err
	}
	s.device.drv.DestroyShaderModule(s.device.handle, s.handle)
	s.drop()
	return nil
}

// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
	"github.com/devblok/wind/model"
)

// UniformBinding is the default layout: one uniform buffer at binding 0
// read by the vertex stage.
var UniformBinding = driver.DescriptorBinding{
	Binding: 0,
	Type:    driver.DescriptorUniformBuffer,
	Count:   1,
	Stages:  driver.ShaderStageVertex,
}

// DescriptorLayout describes the resources a pipeline's shaders bind.
type DescriptorLayout struct {
	ref      gfx.Ref
	device   *Device
	drop     func()
	handle   driver.Handle
	bindings []driver.DescriptorBinding
}

// NewDescriptorLayout creates a descriptor set layout. Without bindings
// the layout holds UniformBinding.
func NewDescriptorLayout(device *Device, bindings ...driver.DescriptorBinding) (*DescriptorLayout, error) {
	if len(bindings) == 0 {
		bindings = []driver.DescriptorBinding{UniformBinding}
	}
	drop, err := acquire(&device.ref)
	if err != nil {
		return nil, err
	}
	handle, err := device.drv.CreateDescriptorSetLayout(device.handle, bindings)
	if err != nil {
		drop()
		return nil, gfx.Bootstrap(err, "vk.CreateDescriptorSetLayout()")
	}
	return &DescriptorLayout{
		ref:      gfx.NewRef("descriptor layout"),
		device:   device,
		drop:     drop,
		handle:   handle,
		bindings: bindings,
	}, nil
}

// Handle returns the layout handle.
func (l *DescriptorLayout) Handle() driver.Handle {
	l.ref.MustBeLive()
	return l.handle
}

// Bindings returns the bindings the layout was created with.
func (l *DescriptorLayout) Bindings() []driver.DescriptorBinding {
	return l.bindings
}

// Release destroys the layout.
func (l *DescriptorLayout) Release() error {
	if l == nil {
		return nil
	}
	ok, err := l.ref.BeginRelease()
	if !ok {
		return err
	}
	l.device.drv.DestroyDescriptorSetLayout(l.device.handle, l.handle)
	l.drop()
	return nil
}

// DescriptorSets holds one descriptor set per uniform buffer, each
// pointing binding 0 at its buffer.
type DescriptorSets struct {
	ref    gfx.Ref
	device *Device
	drop   func()
	pool   driver.Handle
	sets   []driver.Handle
}

// NewDescriptorSets allocates a pool and one set of layout per buffer.
func NewDescriptorSets(device *Device, layout *DescriptorLayout, buffers []*UniformBuffer) (*DescriptorSets, error) {
	if len(buffers) == 0 {
		return nil, gfx.Violation("NewDescriptorSets: no uniform buffers")
	}
	refs := []*gfx.Ref{&device.ref, &layout.ref}
	for _, b := range buffers {
		refs = append(refs, &b.ref)
	}
	drop, err := acquire(refs...)
	if err != nil {
		return nil, err
	}

	drv := device.drv
	n := uint32(len(buffers))
	pool, err := drv.CreateDescriptorPool(device.handle, n, n)
	if err != nil {
		drop()
		return nil, gfx.Bootstrap(err, "vk.CreateDescriptorPool()")
	}

	sets := make([]driver.Handle, 0, len(buffers))
	for _, b := range buffers {
		set, err := drv.AllocateDescriptorSet(device.handle, pool, layout.handle)
		if err != nil {
			drv.DestroyDescriptorPool(device.handle, pool)
			drop()
			return nil, gfx.Bootstrap(err, "vk.AllocateDescriptorSets()")
		}
		drv.UpdateUniformDescriptor(device.handle, set, UniformBinding.Binding, b.handle, model.UniformSize)
		sets = append(sets, set)
	}

	return &DescriptorSets{
		ref:    gfx.NewRef("descriptor sets"),
		device: device,
		drop:   drop,
		pool:   pool,
		sets:   sets,
	}, nil
}

// Set returns the set bound to the i-th buffer.
func (s *DescriptorSets) Set(i int) driver.Handle {
	s.ref.MustBeLive()
	return s.sets[i]
}

// Len returns the number of sets.
func (s *DescriptorSets) Len() int {
	return len(s.sets)
}

// Release destroys the pool and with it every set.
func (s *DescriptorSets) Release() error {
	if s == nil {
		return nil
	}
	ok, err := s.ref.BeginRelease()
	if !ok {
		return err
	}
	s.device.drv.DestroyDescriptorPool(s.device.handle, s.pool)
	s.drop()
	return nil
}

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

// UniformBuffer is a host visible buffer holding one model.Uniform.
type UniformBuffer struct {
	*Buffer
}

// NewUniformBuffer creates a buffer sized for model.Uniform.
func NewUniformBuffer(device *Device, ma *MemoryAllocator) (*UniformBuffer, error) {
	buffer, err := NewBuffer(device, ma, model.UniformSize, driver.BufferUsageUniform, driver.HostWritable)
	if err != nil {
		return nil, err
	}
	return &UniformBuffer{Buffer: buffer}, nil
}

// NewUniformBuffers creates n uniform buffers, one per frame in flight.
func NewUniformBuffers(device *Device, ma *MemoryAllocator, n int) ([]*UniformBuffer, error) {
	buffers := make([]*UniformBuffer, 0, n)
	for i := 0; i < n; i++ {
		ub, err := NewUniformBuffer(device, ma)
		if err != nil {
			for _, created := range buffers {
				created.Release()
			}
			return nil, err
		}
		buffers = append(buffers, ub)
	}
	return buffers, nil
}

// Update writes ubo into the buffer.
func (u *UniformBuffer) Update(ubo model.Uniform) error {
	return u.Write(ubo.Bytes())
}

// Release destroys the buffer.
func (u *UniformBuffer) Release() error {
	if u == nil {
		return nil
	}
	return u.Buffer.Release()
}

var _ gfx.Resource = (*UniformBuffer)(nil)

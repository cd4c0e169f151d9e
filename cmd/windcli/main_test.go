// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"testing"

	"github.com/devblok/wind/gfx/driver"
	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	info := describe(driver.PhysicalDevice{
		Name:        "fake",
		QueueFamily: 0,
		Memory:      1 << 30,
		MemoryTypes: []driver.MemoryType{
			{Properties: driver.MemoryDeviceLocal},
			{Properties: driver.HostWritable},
			{Properties: driver.MemoryHostVisible},
		},
	})
	assert.Equal(t, "fake", info.Name)
	assert.Equal(t, uint64(1<<30), info.Memory)
	assert.Equal(t, 1, info.HostVisible)
}

// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr_test

import (
	"testing"

	"github.com/devblok/wind/assets"
	"github.com/devblok/wind/gfx/driver/drivertest"
	"github.com/devblok/wind/gfx/vkr"
	"github.com/gobuffalo/packd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	vertexCode   = []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}
	fragmentCode = []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 2, 0}
)

type fixture struct {
	drv      *drivertest.Driver
	instance *vkr.Instance
	device   *vkr.Device
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	drv := drivertest.New()
	instance, err := vkr.NewInstance(drv, vkr.InstanceConfig{ApplicationName: t.Name()})
	require.NoError(t, err)
	physical, err := instance.PickPhysicalDevice()
	require.NoError(t, err)
	device, err := vkr.NewDevice(instance, physical, vkr.DeviceConfig{})
	require.NoError(t, err)
	return &fixture{drv: drv, instance: instance, device: device}
}

// teardown releases the device and instance and checks the fake saw
// nothing leak and nothing destroyed out of order.
func (f *fixture) teardown(t *testing.T) {
	t.Helper()
	require.NoError(t, f.device.Release())
	require.NoError(t, f.instance.Release())
	assert.Empty(t, f.drv.Leaks())
	assert.Empty(t, f.drv.Problems())
}

func shaderBox(t *testing.T) packd.Finder {
	t.Helper()
	box := packd.NewMemoryBox()
	require.NoError(t, box.AddBytes(assets.VertexShaderPath, vertexCode))
	require.NoError(t, box.AddBytes(assets.FragmentShaderPath, fragmentCode))
	return box
}

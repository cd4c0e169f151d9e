// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr_test

import (
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
	"github.com/devblok/wind/gfx/driver/drivertest"
	"github.com/devblok/wind/gfx/vkr"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceValidationUnavailable(t *testing.T) {
	drv := drivertest.New()
	drv.Layers = nil

	instance, err := vkr.NewInstance(drv, vkr.InstanceConfig{Validation: true})
	assert.Nil(t, instance)
	assert.True(t, errors.Is(err, gfx.ErrValidationUnavailable))
	assert.True(t, errors.Is(err, gfx.ErrBootstrap))
	assert.Equal(t, 0, drv.Live(drivertest.KindInstance))
}

func TestInstanceValidationMessagesAreLogged(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	drv := drivertest.New()
	instance, err := vkr.NewInstance(drv, vkr.InstanceConfig{Validation: true})
	require.NoError(t, err)
	assert.True(t, instance.Validation())

	drv.Emit(driver.Message{
		Severity: driver.SeverityError,
		Layer:    vkr.ValidationLayer,
		Code:     7,
		Text:     "vkDestroyDevice: objects not destroyed",
	})
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.ErrorLevel, entry.Level)
	assert.Equal(t, "vkDestroyDevice: objects not destroyed", entry.Message)
	assert.Equal(t, vkr.ValidationLayer, entry.Data["layer"])

	drv.Emit(driver.Message{Severity: driver.SeverityPerformance, Text: "slow path"})
	assert.Equal(t, log.WarnLevel, hook.LastEntry().Level)

	require.NoError(t, instance.Release())
}

func TestInstanceWithoutValidation(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	drv := drivertest.New()
	drv.Layers = nil
	instance, err := vkr.NewInstance(drv, vkr.InstanceConfig{})
	require.NoError(t, err)
	assert.False(t, instance.Validation())

	hook.Reset()
	drv.Emit(driver.Message{Severity: driver.SeverityError, Text: "ignored"})
	assert.Nil(t, hook.LastEntry())

	require.NoError(t, instance.Release())
}

func TestPickPhysicalDevice(t *testing.T) {
	drv := drivertest.New()
	drv.Devices = append([]driver.PhysicalDevice{{Name: "Compute only", QueueFamily: -1}}, drv.Devices...)
	instance, err := vkr.NewInstance(drv, vkr.InstanceConfig{})
	require.NoError(t, err)

	physical, err := instance.PickPhysicalDevice()
	require.NoError(t, err)
	assert.Equal(t, "Fake GPU", physical.Name)

	_, err = vkr.NewDevice(instance, drv.Devices[0], vkr.DeviceConfig{})
	assert.True(t, errors.Is(err, gfx.ErrBootstrap))

	drv.Devices = drv.Devices[:1]
	_, err = instance.PickPhysicalDevice()
	assert.True(t, errors.Is(err, gfx.ErrBootstrap))

	require.NoError(t, instance.Release())
}

func TestDeviceAccessors(t *testing.T) {
	f := newFixture(t)
	assert.NotEqual(t, driver.NullHandle, f.device.Handle())
	assert.NotEqual(t, driver.NullHandle, f.device.Queue())
	assert.Equal(t, uint32(0), f.device.QueueFamily())
	assert.Equal(t, "Fake GPU", f.device.Physical().Name)
	assert.Len(t, f.device.MemoryTypes(), 2)
	assert.Equal(t, f.drv, f.device.Driver())
	assert.NoError(t, f.device.WaitIdle())
	f.teardown(t)
}

func TestDeviceCreationFailure(t *testing.T) {
	drv := drivertest.New()
	instance, err := vkr.NewInstance(drv, vkr.InstanceConfig{})
	require.NoError(t, err)
	physical, err := instance.PickPhysicalDevice()
	require.NoError(t, err)

	drv.FailOn("CreateDevice", 0, errors.New("initialization failed"))
	_, err = vkr.NewDevice(instance, physical, vkr.DeviceConfig{})
	assert.True(t, errors.Is(err, gfx.ErrBootstrap))
	assert.Contains(t, err.Error(), "vk.CreateDevice()")

	require.NoError(t, instance.Release(), "failed device kept its instance reference")
}

func TestTeardownOrderIsEnforced(t *testing.T) {
	f := newFixture(t)
	pool, err := vkr.NewCommandPool(f.device)
	require.NoError(t, err)

	err = f.device.Release()
	assert.True(t, errors.Is(err, gfx.ErrInUse))
	assert.True(t, gfx.IsContractViolation(err))
	assert.NotPanics(t, func() { f.device.Handle() }, "device torn down despite the rejection")
	assert.True(t, errors.Is(f.instance.Release(), gfx.ErrInUse))
	assert.Empty(t, f.drv.Problems())

	require.NoError(t, pool.Release())
	f.teardown(t)
}

func TestCommandPool(t *testing.T) {
	f := newFixture(t)
	pool, err := vkr.NewCommandPool(f.device)
	require.NoError(t, err)

	buffers, err := pool.Allocate(3)
	require.NoError(t, err)
	assert.Len(t, buffers, 3)
	assert.Equal(t, 3, f.drv.Live(drivertest.KindCommandBuffer))

	_, err = pool.Allocate(0)
	assert.True(t, gfx.IsContractViolation(err))

	require.NoError(t, pool.Release())
	assert.Equal(t, 0, f.drv.Live(drivertest.KindCommandBuffer))
	_, err = pool.Allocate(1)
	assert.True(t, errors.Is(err, gfx.ErrReleased))
	f.teardown(t)
}

func TestSurface(t *testing.T) {
	f := newFixture(t)
	var native int
	surface, err := vkr.NewSurface(f.instance, unsafe.Pointer(&native))
	require.NoError(t, err)
	assert.NotEqual(t, driver.NullHandle, surface.Handle())

	_, err = vkr.NewSurface(f.instance, nil)
	assert.True(t, gfx.IsContractViolation(err))

	require.NoError(t, f.device.Release())
	assert.True(t, errors.Is(f.instance.Release(), gfx.ErrInUse))
	require.NoError(t, surface.Release())
	require.NoError(t, f.instance.Release())
	assert.Empty(t, f.drv.Leaks())
	assert.Empty(t, f.drv.Problems())
}

func TestReleaseAllInDependencyOrder(t *testing.T) {
	f := newFixture(t)
	ma := vkr.NewMemoryAllocator(f.device)
	pool, err := vkr.NewCommandPool(f.device)
	require.NoError(t, err)
	ub, err := vkr.NewUniformBuffer(f.device, ma)
	require.NoError(t, err)
	fs, err := vkr.NewFrameSync(f.device, 2, 3)
	require.NoError(t, err)

	require.NoError(t, gfx.ReleaseAll(fs, ub, pool, f.device, f.instance))
	assert.Empty(t, f.drv.Leaks())
	assert.Empty(t, f.drv.Problems())
}

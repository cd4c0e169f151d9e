// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr_test

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
	"github.com/devblok/wind/gfx/driver/drivertest"
	"github.com/devblok/wind/gfx/vkr"
	"github.com/devblok/wind/model"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformBufferRoundTrip(t *testing.T) {
	f := newFixture(t)
	ub, err := vkr.NewUniformBuffer(f.device, vkr.NewMemoryAllocator(f.device))
	require.NoError(t, err)
	assert.Equal(t, uint64(192), ub.Size())

	ubo := model.Uniform{
		Model:      glm.Translate3D(1, 2, 3),
		View:       glm.LookAtV(glm.Vec3{2, 2, 2}, glm.Vec3{}, glm.Vec3{0, 0, 1}),
		Projection: glm.Perspective(glm.DegToRad(45), 16.0/9.0, 0.1, 10),
	}
	require.NoError(t, ub.Update(ubo))
	assert.False(t, f.drv.Mapped(ub.Mem().Handle()), "mapping outlived the write")

	readBack := make([]byte, 192)
	n, err := ub.Read(readBack)
	require.NoError(t, err)
	assert.Equal(t, 192, n)
	assert.Equal(t, ubo.Bytes(), readBack)
	assert.Equal(t, ubo.Bytes(), f.drv.Memory(ub.Mem().Handle())[:192])

	require.NoError(t, ub.Release())
	f.teardown(t)
}

func TestBufferWriteOverrun(t *testing.T) {
	f := newFixture(t)
	ub, err := vkr.NewUniformBuffer(f.device, vkr.NewMemoryAllocator(f.device))
	require.NoError(t, err)

	err = ub.Write(bytes.Repeat([]byte{0xff}, 256))
	assert.True(t, gfx.IsContractViolation(err))
	assert.False(t, f.drv.Mapped(ub.Mem().Handle()))
	assert.Equal(t, make([]byte, 192), f.drv.Memory(ub.Mem().Handle())[:192], "overrun wrote data")

	require.NoError(t, ub.Write(bytes.Repeat([]byte{0xff}, 192)))

	require.NoError(t, ub.Release())
	f.teardown(t)
}

func TestBufferWriteDeviceLocal(t *testing.T) {
	f := newFixture(t)
	buf, err := vkr.NewBuffer(f.device, vkr.NewMemoryAllocator(f.device), 64,
		driver.BufferUsageVertex|driver.BufferUsageTransferDst, driver.MemoryDeviceLocal)
	require.NoError(t, err)

	assert.True(t, gfx.IsContractViolation(buf.Write([]byte{1, 2, 3})))
	_, err = buf.Map()
	assert.True(t, gfx.IsContractViolation(err))

	require.NoError(t, buf.Release())
	f.teardown(t)
}

func TestBufferPersistentMapping(t *testing.T) {
	f := newFixture(t)
	buf, err := vkr.NewBuffer(f.device, vkr.NewMemoryAllocator(f.device), 28, driver.BufferUsageVertex, driver.HostWritable)
	require.NoError(t, err)

	mapped, err := buf.Map()
	require.NoError(t, err)
	assert.Len(t, mapped, 28)

	require.NoError(t, buf.Write([]byte{1, 2, 3, 4}))
	assert.True(t, f.drv.Mapped(buf.Mem().Handle()), "write ended a persistent mapping")
	assert.Equal(t, []byte{1, 2, 3, 4}, mapped[:4])

	buf.Unmap()
	assert.False(t, f.drv.Mapped(buf.Mem().Handle()))

	// Release unmaps a mapping left open.
	_, err = buf.Map()
	require.NoError(t, err)
	require.NoError(t, buf.Release())
	assert.Empty(t, f.drv.Problems())
	f.teardown(t)
}

func TestBufferNoMemoryType(t *testing.T) {
	f := newFixture(t)
	ma := vkr.NewMemoryAllocator(f.device)
	_, err := ma.FindMemoryType(1<<0, driver.MemoryHostCached)
	assert.True(t, errors.Is(err, vkr.ErrNoMemoryType))

	_, err = vkr.NewBuffer(f.device, ma, 16, driver.BufferUsageUniform, driver.MemoryHostCached)
	assert.True(t, errors.Is(err, vkr.ErrNoMemoryType))
	assert.True(t, errors.Is(err, gfx.ErrBootstrap))
	assert.Equal(t, 0, f.drv.Live(drivertest.KindBuffer))

	f.teardown(t)
}

func TestBufferZeroSize(t *testing.T) {
	f := newFixture(t)
	_, err := vkr.NewBuffer(f.device, vkr.NewMemoryAllocator(f.device), 0, driver.BufferUsageUniform, driver.HostWritable)
	assert.True(t, gfx.IsContractViolation(err))
	f.teardown(t)
}

func TestNewUniformBuffers(t *testing.T) {
	f := newFixture(t)
	ma := vkr.NewMemoryAllocator(f.device)

	buffers, err := vkr.NewUniformBuffers(f.device, ma, 3)
	require.NoError(t, err)
	require.Len(t, buffers, 3)
	assert.NotEqual(t, buffers[0].Handle(), buffers[1].Handle())
	for _, b := range buffers {
		require.NoError(t, b.Release())
	}

	boom := errors.New("out of device memory")
	f.drv.FailOn("AllocateMemory", 2, boom)
	_, err = vkr.NewUniformBuffers(f.device, ma, 3)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 0, f.drv.Live(drivertest.KindBuffer))
	assert.Equal(t, 0, f.drv.Live(drivertest.KindMemory))

	f.teardown(t)
}

func TestBufferUseAfterRelease(t *testing.T) {
	f := newFixture(t)
	ub, err := vkr.NewUniformBuffer(f.device, vkr.NewMemoryAllocator(f.device))
	require.NoError(t, err)
	require.NoError(t, ub.Release())

	assert.True(t, errors.Is(ub.Update(model.Identity()), gfx.ErrReleased))
	assert.Panics(t, func() { ub.Handle() })
	assert.NoError(t, ub.Release())

	f.teardown(t)
}

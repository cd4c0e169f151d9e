// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
	"github.com/devblok/wind/gfx/driver/drivertest"
	"github.com/devblok/wind/gfx/vkr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapchainFramebuffers(t *testing.T) {
	f := newRendererFixture(t)
	extent := driver.Extent2D{Width: 320, Height: 200}
	sc, err := vkr.NewSwapchain(f.device, f.surface, vkr.SwapchainConfig{MinImages: 2, Extent: extent})
	require.NoError(t, err)

	assert.Equal(t, 3, sc.ImageCount(), "surface minimum not honoured")
	assert.Equal(t, extent, sc.Extent())
	assert.Equal(t, 3, f.drv.Live(drivertest.KindImageView))

	rp, err := vkr.NewRenderPass(f.device, sc.Format())
	require.NoError(t, err)
	require.NoError(t, sc.AttachRenderPass(rp))
	assert.Equal(t, 3, f.drv.Live(drivertest.KindFramebuffer))
	assert.NotEqual(t, sc.Framebuffer(0), sc.Framebuffer(1))
	assert.True(t, gfx.IsContractViolation(sc.AttachRenderPass(rp)))

	assert.True(t, errors.Is(rp.Release(), gfx.ErrInUse))
	require.NoError(t, sc.Release())
	assert.Equal(t, 0, f.drv.Live(drivertest.KindFramebuffer))
	assert.Equal(t, 0, f.drv.Live(drivertest.KindImageView))
	require.NoError(t, rp.Release())
	f.teardown(t)
}

func TestSwapchainAcquireAndPresent(t *testing.T) {
	f := newRendererFixture(t)
	f.drv.AcquireOrder = []uint32{2, 0}
	sc, err := vkr.NewSwapchain(f.device, f.surface, vkr.SwapchainConfig{MinImages: 3})
	require.NoError(t, err)
	fs, err := vkr.NewFrameSync(f.device, 1, sc.ImageCount())
	require.NoError(t, err)

	image, err := sc.Acquire(fs.ImageSemaphore())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), image)
	require.NoError(t, sc.Present(image, fs.RenderSemaphore()))
	assert.True(t, gfx.IsContractViolation(sc.Present(3, fs.RenderSemaphore())))

	f.drv.FailOn("AcquireNextImage", 0, driver.ErrOutOfDate)
	_, err = sc.Acquire(fs.ImageSemaphore())
	assert.True(t, errors.Is(err, driver.ErrOutOfDate))
	assert.False(t, gfx.IsFatal(err))

	f.drv.FailOn("QueuePresent", 0, driver.ErrOutOfDate)
	err = sc.Present(0, fs.RenderSemaphore())
	assert.True(t, errors.Is(err, driver.ErrOutOfDate))
	assert.False(t, gfx.IsFatal(err))

	f.drv.FailOn("QueuePresent", 0, driver.ErrDeviceLost)
	assert.True(t, gfx.IsFatal(sc.Present(0, fs.RenderSemaphore())))

	require.NoError(t, gfx.ReleaseAll(fs, sc))
	_, err = sc.Acquire(driver.NullHandle)
	assert.True(t, errors.Is(err, gfx.ErrReleased))
	f.teardown(t)
}

func TestSwapchainReplacesOld(t *testing.T) {
	f := newRendererFixture(t)
	first, err := vkr.NewSwapchain(f.device, f.surface, vkr.SwapchainConfig{MinImages: 3})
	require.NoError(t, err)
	second, err := vkr.NewSwapchain(f.device, f.surface, vkr.SwapchainConfig{MinImages: 3, Old: first})
	require.NoError(t, err)

	created := f.drv.Swapchains()
	require.Len(t, created, 2)
	assert.Equal(t, driver.NullHandle, created[0].Old)
	assert.Equal(t, first.Handle(), created[1].Old)
	assert.True(t, first.Retired())
	assert.False(t, second.Retired())

	_, err = first.Acquire(driver.NullHandle)
	assert.True(t, errors.Is(err, driver.ErrOutOfDate))

	third, err := vkr.NewSwapchain(f.device, f.surface, vkr.SwapchainConfig{MinImages: 3, Old: first})
	require.NoError(t, err)
	assert.Equal(t, driver.NullHandle, f.drv.Swapchains()[2].Old, "retired swapchain replaced twice")

	require.NoError(t, gfx.ReleaseAll(third, second, first))
	_, err = vkr.NewSwapchain(f.device, f.surface, vkr.SwapchainConfig{MinImages: 3, Old: first})
	assert.True(t, errors.Is(err, gfx.ErrReleased))
	f.teardown(t)
}

func TestSwapchainInvalidImageCount(t *testing.T) {
	f := newRendererFixture(t)
	_, err := vkr.NewSwapchain(f.device, f.surface, vkr.SwapchainConfig{})
	assert.True(t, gfx.IsContractViolation(err))
	f.teardown(t)
}

func TestRenderPassFormat(t *testing.T) {
	f := newFixture(t)
	_, err := vkr.NewRenderPass(f.device, driver.FormatUndefined)
	assert.True(t, gfx.IsContractViolation(err))

	rp, err := vkr.NewRenderPass(f.device, driver.FormatB8G8R8A8Srgb)
	require.NoError(t, err)
	assert.Equal(t, driver.FormatB8G8R8A8Srgb, rp.Format())
	require.NoError(t, rp.Release())
	f.teardown(t)
}

func TestDescriptorSets(t *testing.T) {
	f := newFixture(t)
	ma := vkr.NewMemoryAllocator(f.device)
	layout, err := vkr.NewDescriptorLayout(f.device)
	require.NoError(t, err)
	assert.Equal(t, []driver.DescriptorBinding{vkr.UniformBinding}, layout.Bindings())

	buffers, err := vkr.NewUniformBuffers(f.device, ma, 2)
	require.NoError(t, err)
	sets, err := vkr.NewDescriptorSets(f.device, layout, buffers)
	require.NoError(t, err)
	assert.Equal(t, 2, sets.Len())
	assert.NotEqual(t, sets.Set(0), sets.Set(1))
	assert.Equal(t, 2, f.drv.Live(drivertest.KindDescriptorSet))

	assert.True(t, errors.Is(buffers[0].Release(), gfx.ErrInUse))
	assert.True(t, errors.Is(layout.Release(), gfx.ErrInUse))

	_, err = vkr.NewDescriptorSets(f.device, layout, nil)
	assert.True(t, gfx.IsContractViolation(err))

	require.NoError(t, sets.Release())
	assert.Equal(t, 0, f.drv.Live(drivertest.KindDescriptorSet))
	require.NoError(t, gfx.ReleaseAll(buffers[0], buffers[1], layout))
	f.teardown(t)
}

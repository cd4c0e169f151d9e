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
	"github.com/devblok/wind/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rendererFixture struct {
	*fixture
	surface *vkr.Surface
}

func newRendererFixture(t *testing.T) *rendererFixture {
	t.Helper()
	f := newFixture(t)
	f.drv.CompleteOnWait = true
	var window int
	surface, err := vkr.NewSurface(f.instance, unsafe.Pointer(&window))
	require.NoError(t, err)
	return &rendererFixture{fixture: f, surface: surface}
}

func (f *rendererFixture) newRenderer(t *testing.T) *vkr.Renderer {
	t.Helper()
	r, err := vkr.NewRenderer(f.device, f.surface, shaderBox(t), vkr.RendererConfig{
		FramesInFlight: 2,
		SwapchainSize:  3,
		Extent:         driver.Extent2D{Width: 640, Height: 480},
	})
	require.NoError(t, err)
	return r
}

func (f *rendererFixture) teardown(t *testing.T) {
	t.Helper()
	require.NoError(t, f.surface.Release())
	f.fixture.teardown(t)
}

func TestRendererDrawsFrames(t *testing.T) {
	f := newRendererFixture(t)
	f.drv.AcquireOrder = []uint32{0, 1, 2, 0, 1}
	r := f.newRenderer(t)
	assert.Equal(t, 3, r.ImageCount())

	for i := 0; i < 5; i++ {
		assert.Equal(t, i%2, r.CurrentFrame())
		require.NoError(t, r.DrawFrame(model.Identity()))
	}
	assert.Equal(t, uint64(5), r.Frames())

	presents := f.drv.Presents()
	require.Len(t, presents, 5)
	for i, image := range []uint32{0, 1, 2, 0, 1} {
		assert.Equal(t, image, presents[i].ImageIndex)
	}

	submits := f.drv.Submits()
	require.Len(t, submits, 5)
	assert.Equal(t, submits[0].Fence, submits[2].Fence)
	assert.Equal(t, submits[1].Fence, submits[3].Fence)
	assert.NotEqual(t, submits[0].Fence, submits[1].Fence)
	for i, s := range submits {
		assert.Equal(t, presents[i].Wait, s.Info.SignalSemaphores[0], "present does not wait on render")
	}

	draws := f.drv.Draws()
	require.Len(t, draws, 5)
	assert.Equal(t, uint32(3), draws[0].VertexCount)
	assert.Equal(t, vkr.DefaultClearColor, draws[0].ClearColor)
	assert.Equal(t, driver.Extent2D{Width: 640, Height: 480}, draws[0].Extent)
	assert.Equal(t, draws[0].DescriptorSet, draws[2].DescriptorSet)
	assert.NotEqual(t, draws[0].DescriptorSet, draws[1].DescriptorSet)
	assert.Equal(t, draws[0].Framebuffer, draws[3].Framebuffer, "image 0 drawn through another framebuffer")

	require.NoError(t, r.Release())
	f.teardown(t)
}

func TestRendererRecreatesOnAcquireOutOfDate(t *testing.T) {
	f := newRendererFixture(t)
	r := f.newRenderer(t)

	require.NoError(t, r.DrawFrame(model.Identity()))
	f.drv.FailOn("AcquireNextImage", 0, driver.ErrOutOfDate)
	require.NoError(t, r.DrawFrame(model.Identity()), "out of date swapchain is not fatal")
	assert.Len(t, f.drv.Presents(), 1, "dropped frame was presented")
	assert.Equal(t, 1, f.drv.Live(drivertest.KindSwapchain))
	assert.Equal(t, 2, f.drv.Live(drivertest.KindFence))

	require.NoError(t, r.DrawFrame(model.Identity()))
	presents := f.drv.Presents()
	require.Len(t, presents, 2)
	assert.NotEqual(t, presents[0].Swapchain, presents[1].Swapchain)
	assert.Empty(t, f.drv.Problems())

	require.NoError(t, r.Release())
	f.teardown(t)
}

func TestRendererRecreatesOnPresentOutOfDate(t *testing.T) {
	f := newRendererFixture(t)
	r := f.newRenderer(t)

	f.drv.FailOn("QueuePresent", 0, driver.ErrOutOfDate)
	require.NoError(t, r.DrawFrame(model.Identity()))
	assert.Len(t, f.drv.Submits(), 1)
	assert.Equal(t, uint64(1), r.Frames())
	assert.Equal(t, 0, r.CurrentFrame(), "frame sync survived recreation")

	require.NoError(t, r.DrawFrame(model.Identity()))
	assert.Len(t, f.drv.Presents(), 1)
	assert.Empty(t, f.drv.Problems())

	require.NoError(t, r.Release())
	f.teardown(t)
}

func TestRendererResize(t *testing.T) {
	f := newRendererFixture(t)
	r := f.newRenderer(t)
	require.NoError(t, r.DrawFrame(model.Identity()))

	size := driver.Extent2D{Width: 800, Height: 600}
	r.Resize(size)
	require.NoError(t, r.DrawFrame(model.Identity()))
	assert.Equal(t, size, r.Extent())

	draws := f.drv.Draws()
	assert.Equal(t, size, draws[len(draws)-1].Extent)
	assert.Equal(t, 1, f.drv.Live(drivertest.KindSwapchain))

	require.NoError(t, r.Release())
	f.teardown(t)
}

func TestRendererHandsOverOldSwapchain(t *testing.T) {
	f := newRendererFixture(t)
	r := f.newRenderer(t)
	require.NoError(t, r.DrawFrame(model.Identity()))

	r.Resize(driver.Extent2D{Width: 800, Height: 600})
	require.NoError(t, r.DrawFrame(model.Identity()))

	created := f.drv.Swapchains()
	require.Len(t, created, 2)
	presents := f.drv.Presents()
	require.Len(t, presents, 2)
	assert.Equal(t, driver.NullHandle, created[0].Old)
	assert.Equal(t, presents[0].Swapchain, created[1].Old, "old swapchain not handed over")
	assert.Equal(t, 1, f.drv.Live(drivertest.KindSwapchain))
	assert.Empty(t, f.drv.Problems())

	require.NoError(t, r.Release())
	f.teardown(t)
}

func TestRendererRecreationFailureKeepsOldSwapchain(t *testing.T) {
	f := newRendererFixture(t)
	r := f.newRenderer(t)
	require.NoError(t, r.DrawFrame(model.Identity()))

	boom := errors.New("out of device memory")
	f.drv.FailOn("CreateSwapchain", 0, boom)
	r.Resize(driver.Extent2D{Width: 800, Height: 600})
	err := r.DrawFrame(model.Identity())
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 1, f.drv.Live(drivertest.KindSwapchain), "old swapchain released before its replacement existed")
	assert.Len(t, f.drv.Presents(), 1)

	require.NoError(t, r.DrawFrame(model.Identity()))
	created := f.drv.Swapchains()
	require.Len(t, created, 2)
	assert.Equal(t, driver.NullHandle, created[1].Old, "retired swapchain handed over again")
	assert.Equal(t, 1, f.drv.Live(drivertest.KindSwapchain))
	assert.Len(t, f.drv.Presents(), 2)

	require.NoError(t, r.Release())
	f.teardown(t)
}

func TestRendererCreationFailure(t *testing.T) {
	for _, call := range []string{"CreateSwapchain", "CreateGraphicsPipeline", "AllocateCommandBuffers", "CreateFence"} {
		t.Run(call, func(t *testing.T) {
			f := newRendererFixture(t)
			boom := errors.New("out of device memory")
			f.drv.FailOn(call, 0, boom)

			r, err := vkr.NewRenderer(f.device, f.surface, shaderBox(t), vkr.RendererConfig{})
			assert.Nil(t, r)
			assert.True(t, errors.Is(err, boom))
			assert.True(t, errors.Is(err, gfx.ErrBootstrap))

			f.teardown(t)
		})
	}
}

func TestRendererDeviceLost(t *testing.T) {
	f := newRendererFixture(t)
	r := f.newRenderer(t)

	f.drv.FailOn("QueueSubmit", 0, driver.ErrDeviceLost)
	err := r.DrawFrame(model.Identity())
	assert.True(t, gfx.IsFatal(err))
	assert.True(t, errors.Is(err, gfx.ErrRuntime))
	assert.True(t, errors.Is(err, driver.ErrDeviceLost))

	require.NoError(t, r.Release())
	f.teardown(t)
}

func TestRendererFatalPresentNotCounted(t *testing.T) {
	f := newRendererFixture(t)
	r := f.newRenderer(t)
	require.NoError(t, r.DrawFrame(model.Identity()))

	f.drv.FailOn("QueuePresent", 0, driver.ErrDeviceLost)
	err := r.DrawFrame(model.Identity())
	assert.True(t, gfx.IsFatal(err))
	assert.Equal(t, uint64(1), r.Frames(), "frame counted although presentation failed")

	require.NoError(t, r.Release())
	f.teardown(t)
}

func TestRendererReleasedDevice(t *testing.T) {
	f := newRendererFixture(t)
	require.NoError(t, f.surface.Release())
	require.NoError(t, f.device.Release())

	r, err := vkr.NewRenderer(f.device, f.surface, shaderBox(t), vkr.RendererConfig{})
	assert.Nil(t, r)
	assert.True(t, errors.Is(err, gfx.ErrReleased))
	assert.Equal(t, 0, f.drv.Live(drivertest.KindSwapchain))

	require.NoError(t, f.instance.Release())
	assert.Empty(t, f.drv.Leaks())
	assert.Empty(t, f.drv.Problems())
}

func TestRendererHoldsDevice(t *testing.T) {
	f := newRendererFixture(t)
	r := f.newRenderer(t)

	assert.True(t, errors.Is(f.device.Release(), gfx.ErrInUse))
	assert.True(t, errors.Is(f.surface.Release(), gfx.ErrInUse))

	require.NoError(t, r.Release())
	require.NoError(t, r.Release())
	assert.True(t, errors.Is(r.DrawFrame(model.Identity()), gfx.ErrReleased))
	f.teardown(t)
}

// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
	"github.com/devblok/wind/model"
	"github.com/gobuffalo/packd"
	log "github.com/sirupsen/logrus"
)

// DefaultClearColor is the color a frame starts from.
var DefaultClearColor = [4]float32{0.05, 0.05, 0.05, 1.0}

// RendererConfig configures NewRenderer.
type RendererConfig struct {
	FramesInFlight int
	SwapchainSize  uint32
	Extent         driver.Extent2D
	ClearColor     [4]float32

	// Vertices are drawn every frame. Defaults to model.Triangle.
	Vertices []model.Vertex
	Pipeline PipelineConfig
}

func (c RendererConfig) withDefaults() RendererConfig {
	if c.FramesInFlight == 0 {
		c.FramesInFlight = 2
	}
	if c.SwapchainSize == 0 {
		c.SwapchainSize = 3
	}
	if c.ClearColor == [4]float32{} {
		c.ClearColor = DefaultClearColor
	}
	if len(c.Vertices) == 0 {
		c.Vertices = model.Triangle()
	}
	return c
}

// Renderer draws one vertex buffer per frame into a surface, keeping up
// to FramesInFlight frames queued on the GPU.
type Renderer struct {
	ref     gfx.Ref
	cfg     RendererConfig
	drop    func()
	device  *Device
	surface *Surface
	extent  driver.Extent2D
	stale   bool
	frames  uint64

	allocator      *MemoryAllocator
	renderPass     *RenderPass
	swapchain      *Swapchain
	sync           *FrameSync
	layout         *DescriptorLayout
	pipeline       *Pipeline
	uniforms       []*UniformBuffer
	descriptors    *DescriptorSets
	pool           *CommandPool
	commandBuffers []driver.Handle
	vertices       *Buffer
}

// NewRenderer builds everything needed to draw into surface. On failure
// whatever was already created is released again.
func NewRenderer(device *Device, surface *Surface, shaders packd.Finder, cfg RendererConfig) (*Renderer, error) {
	cfg = cfg.withDefaults()
	if cfg.FramesInFlight < 1 {
		return nil, gfx.Violation("NewRenderer: %d frames in flight", cfg.FramesInFlight)
	}
	drop, err := acquire(&device.ref, &surface.ref)
	if err != nil {
		return nil, err
	}
	r := &Renderer{
		ref:       gfx.NewRef("renderer"),
		cfg:       cfg,
		drop:      drop,
		device:    device,
		surface:   surface,
		extent:    cfg.Extent,
		allocator: NewMemoryAllocator(device),
	}
	if err := r.build(shaders); err != nil {
		if rerr := r.destroy(); rerr != nil {
			log.WithError(rerr).Error("Failed to clean up partially built renderer")
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"framesInFlight": cfg.FramesInFlight,
		"images":         r.swapchain.ImageCount(),
		"vertices":       len(cfg.Vertices),
	}).Info("Renderer initialised")
	return r, nil
}

func (r *Renderer) build(shaders packd.Finder) error {
	var err error
	if r.swapchain, r.sync, err = r.createSwapchain(nil); err != nil {
		return err
	}
	if r.layout, err = NewDescriptorLayout(r.device); err != nil {
		return err
	}
	if r.pipeline, err = NewPipeline(r.device, r.renderPass, r.layout, shaders, r.cfg.Pipeline); err != nil {
		return err
	}
	if r.uniforms, err = NewUniformBuffers(r.device, r.allocator, r.cfg.FramesInFlight); err != nil {
		return err
	}
	if r.descriptors, err = NewDescriptorSets(r.device, r.layout, r.uniforms); err != nil {
		return err
	}
	if r.pool, err = NewCommandPool(r.device); err != nil {
		return err
	}
	if r.commandBuffers, err = r.pool.Allocate(r.cfg.FramesInFlight); err != nil {
		return err
	}

	data := model.VertexBytes(r.cfg.Vertices)
	r.vertices, err = NewBuffer(r.device, r.allocator, uint64(len(data)), driver.BufferUsageVertex, driver.HostWritable)
	if err != nil {
		return err
	}
	return r.vertices.Write(data)
}

// createSwapchain makes a swapchain replacing old, with its framebuffers
// and a frame sync sized to its images. The render pass is created with
// the first swapchain and kept across recreation.
func (r *Renderer) createSwapchain(old *Swapchain) (*Swapchain, *FrameSync, error) {
	sc, err := NewSwapchain(r.device, r.surface, SwapchainConfig{
		MinImages: r.cfg.SwapchainSize,
		Extent:    r.extent,
		Old:       old,
	})
	if err != nil {
		return nil, nil, err
	}

	if r.renderPass == nil {
		if r.renderPass, err = NewRenderPass(r.device, sc.Format()); err != nil {
			return nil, nil, errors.CombineErrors(err, sc.Release())
		}
	}
	if sc.Format() != r.renderPass.Format() {
		err = gfx.Bootstrap(
			errors.Newf("surface format changed from %d to %d", r.renderPass.Format(), sc.Format()),
			"vk.CreateSwapchain()",
		)
		return nil, nil, errors.CombineErrors(err, sc.Release())
	}
	if err := sc.AttachRenderPass(r.renderPass); err != nil {
		return nil, nil, errors.CombineErrors(err, sc.Release())
	}

	fs, err := NewFrameSync(r.device, r.cfg.FramesInFlight, sc.ImageCount())
	if err != nil {
		return nil, nil, errors.CombineErrors(err, sc.Release())
	}
	return sc, fs, nil
}

// recreate rebuilds the swapchain once the GPU is idle, handing the old
// one over to its replacement before releasing it. The renderer stays
// stale until a rebuild succeeds.
func (r *Renderer) recreate() error {
	r.stale = true
	if err := r.device.WaitIdle(); err != nil {
		return err
	}
	sc, fs, err := r.createSwapchain(r.swapchain)
	if err != nil {
		return err
	}
	oldSync, oldSwapchain := r.sync, r.swapchain
	r.swapchain, r.sync = sc, fs
	if err := gfx.ReleaseAll(oldSync, oldSwapchain); err != nil {
		return err
	}
	r.stale = false

	log.WithFields(log.Fields{
		"width":  sc.Extent().Width,
		"height": sc.Extent().Height,
	}).Debug("Swapchain recreated")
	return nil
}

// Resize requests a swapchain of the given size. It is rebuilt before the
// next frame is drawn.
func (r *Renderer) Resize(extent driver.Extent2D) {
	if extent == r.extent {
		return
	}
	r.extent = extent
	r.stale = true
}

// DrawFrame renders one frame using ubo as the uniform data of the frame
// slot. An out of date swapchain is recreated and the frame is dropped.
func (r *Renderer) DrawFrame(ubo model.Uniform) error {
	if err := r.ref.Check(); err != nil {
		return err
	}
	if r.stale {
		if err := r.recreate(); err != nil {
			return err
		}
	}

	fs := r.sync
	if err := fs.WaitForCurrentFrameSlot(); err != nil {
		return err
	}
	image, err := r.swapchain.Acquire(fs.ImageSemaphore())
	if errors.Is(err, driver.ErrOutOfDate) {
		log.WithError(err).Debug("Dropping frame")
		return r.recreate()
	} else if err != nil {
		return err
	}
	if err := fs.WaitForImage(image); err != nil {
		return err
	}

	slot := fs.CurrentFrame()
	if err := r.uniforms[slot].Update(ubo); err != nil {
		return err
	}
	err = r.device.drv.RecordDraw(r.commandBuffers[slot], driver.DrawInfo{
		RenderPass:     r.renderPass.Handle(),
		Framebuffer:    r.swapchain.Framebuffer(image),
		Extent:         r.swapchain.Extent(),
		ClearColor:     r.cfg.ClearColor,
		Pipeline:       r.pipeline.Handle(),
		PipelineLayout: r.pipeline.Layout(),
		DescriptorSet:  r.descriptors.Set(slot),
		VertexBuffer:   r.vertices.Handle(),
		VertexCount:    uint32(len(r.cfg.Vertices)),
	})
	if err != nil {
		return gfx.Runtime(err, "vk.BeginCommandBuffer()")
	}

	if err := fs.ResetCurrentFrameFence(); err != nil {
		return err
	}
	err = r.device.Submit(driver.SubmitInfo{
		WaitSemaphores:   []driver.Handle{fs.ImageSemaphore()},
		CommandBuffers:   []driver.Handle{r.commandBuffers[slot]},
		SignalSemaphores: []driver.Handle{fs.RenderSemaphore()},
	}, fs.CurrentFrameFence())
	if err != nil {
		return err
	}

	err = r.swapchain.Present(image, fs.RenderSemaphore())
	fs.Advance()
	outOfDate := errors.Is(err, driver.ErrOutOfDate)
	if err == nil || outOfDate {
		r.frames++
	}
	if outOfDate {
		return r.recreate()
	}
	return err
}

// Frames returns the number of frames presented, counting those the
// swapchain reported as out of date.
func (r *Renderer) Frames() uint64 {
	return r.frames
}

// Extent returns the size of the swapchain images.
func (r *Renderer) Extent() driver.Extent2D {
	r.ref.MustBeLive()
	return r.swapchain.Extent()
}

// ImageCount returns the number of swapchain images.
func (r *Renderer) ImageCount() int {
	r.ref.MustBeLive()
	return r.swapchain.ImageCount()
}

// CurrentFrame returns the frame slot the next frame is drawn with.
func (r *Renderer) CurrentFrame() int {
	r.ref.MustBeLive()
	return r.sync.CurrentFrame()
}

func (r *Renderer) destroy() error {
	resources := []gfx.Releasable{r.sync, r.pool, r.descriptors}
	for _, u := range r.uniforms {
		resources = append(resources, u)
	}
	resources = append(resources, r.vertices, r.pipeline, r.swapchain, r.layout, r.renderPass)
	err := gfx.ReleaseAll(resources...)
	r.drop()
	return err
}

// Release waits for the GPU to finish and tears down everything the
// renderer created. The device and surface stay alive.
func (r *Renderer) Release() error {
	if r == nil {
		return nil
	}
	ok, err := r.ref.BeginRelease()
	if !ok {
		return err
	}
	waitErr := r.device.WaitIdle()
	if waitErr != nil {
		log.WithError(waitErr).Error("Releasing renderer without an idle device")
	}
	err = errors.CombineErrors(waitErr, r.destroy())
	log.WithField("frames", r.frames).Debug("Renderer released")
	return err
}

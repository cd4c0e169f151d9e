// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
	log "github.com/sirupsen/logrus"
)

// SwapchainConfig configures NewSwapchain.
type SwapchainConfig struct {
	// MinImages is the least number of images requested. The surface may
	// hand out more.
	MinImages uint32
	Extent    driver.Extent2D
	// Old is the swapchain being replaced, if any. It is retired by the
	// call whether or not creation succeeds and must still be released.
	Old *Swapchain
}

// Swapchain is the set of presentable images of a surface, with one image
// view each and, once a render pass is attached, one framebuffer each.
type Swapchain struct {
	ref     gfx.Ref
	device  *Device
	drop    func()
	surface *Surface
	info    driver.Swapchain
	retired bool

	views        []driver.Handle
	renderPass   *RenderPass
	framebuffers []driver.Handle
}

// NewSwapchain creates a swapchain for surface and views of its images.
func NewSwapchain(device *Device, surface *Surface, cfg SwapchainConfig) (*Swapchain, error) {
	if cfg.MinImages < 1 {
		return nil, gfx.Violation("NewSwapchain: %d images", cfg.MinImages)
	}
	old := driver.NullHandle
	if cfg.Old != nil {
		if err := cfg.Old.ref.Check(); err != nil {
			return nil, err
		}
		if cfg.Old.surface != surface {
			return nil, gfx.Violation("NewSwapchain: old swapchain belongs to another surface")
		}
		// a retired swapchain cannot be replaced a second time
		if !cfg.Old.retired {
			old = cfg.Old.info.Handle
		}
	}
	drop, err := acquire(&device.ref, &surface.ref)
	if err != nil {
		return nil, err
	}

	drv := device.drv
	info, err := drv.CreateSwapchain(device.handle, device.physical.Handle, driver.SwapchainInfo{
		Surface:   surface.handle,
		MinImages: cfg.MinImages,
		Extent:    cfg.Extent,
		Old:       old,
	})
	if cfg.Old != nil {
		cfg.Old.retired = true
	}
	if err != nil {
		drop()
		return nil, gfx.Bootstrap(err, "vk.CreateSwapchain()")
	}

	s := &Swapchain{
		ref:     gfx.NewRef("swapchain"),
		device:  device,
		drop:    drop,
		surface: surface,
		info:    info,
	}
	for _, image := range info.Images {
		view, err := drv.CreateImageView(device.handle, image, info.Format)
		if err != nil {
			s.destroy()
			drop()
			return nil, gfx.Bootstrap(err, "vk.CreateImageView()")
		}
		s.views = append(s.views, view)
	}

	log.WithFields(log.Fields{
		"images": len(info.Images),
		"width":  info.Extent.Width,
		"height": info.Extent.Height,
	}).Debug("Swapchain created")
	return s, nil
}

// Handle returns the swapchain handle.
func (s *Swapchain) Handle() driver.Handle {
	s.ref.MustBeLive()
	return s.info.Handle
}

// Retired reports whether the swapchain was handed to NewSwapchain as the
// one being replaced. A retired swapchain can no longer acquire images.
func (s *Swapchain) Retired() bool {
	return s.retired
}

// ImageCount returns the number of swapchain images.
func (s *Swapchain) ImageCount() int {
	return len(s.info.Images)
}

// Format returns the format of the images.
func (s *Swapchain) Format() driver.Format {
	return s.info.Format
}

// Extent returns the size of the images.
func (s *Swapchain) Extent() driver.Extent2D {
	return s.info.Extent
}

// AttachRenderPass creates one framebuffer per image for renderPass.
func (s *Swapchain) AttachRenderPass(renderPass *RenderPass) error {
	if err := s.ref.Check(); err != nil {
		return err
	}
	if s.renderPass != nil {
		return gfx.Violation("Swapchain.AttachRenderPass: render pass already attached")
	}
	if err := renderPass.ref.Acquire(); err != nil {
		return err
	}
	drv := s.device.drv
	for _, view := range s.views {
		fb, err := drv.CreateFramebuffer(s.device.handle, renderPass.handle, view, s.info.Extent)
		if err != nil {
			s.destroyFramebuffers()
			renderPass.ref.Drop()
			return gfx.Bootstrap(err, "vk.CreateFramebuffer()")
		}
		s.framebuffers = append(s.framebuffers, fb)
	}
	s.renderPass = renderPass
	return nil
}

// Framebuffer returns the framebuffer of image i.
func (s *Swapchain) Framebuffer(i uint32) driver.Handle {
	s.ref.MustBeLive()
	return s.framebuffers[i]
}

// Acquire returns the index of the next image to render into. The
// semaphore is signaled once the image is ready. An outdated swapchain
// yields an error matching driver.ErrOutOfDate, which callers handle by
// recreating the swapchain; other failures are fatal.
func (s *Swapchain) Acquire(semaphore driver.Handle) (uint32, error) {
	if err := s.ref.Check(); err != nil {
		return 0, err
	}
	if s.retired {
		return 0, errors.Wrap(driver.ErrOutOfDate, "vk.AcquireNextImage()")
	}
	idx, err := s.device.drv.AcquireNextImage(s.device.handle, s.info.Handle, semaphore)
	if errors.Is(err, driver.ErrOutOfDate) {
		return 0, errors.Wrap(err, "vk.AcquireNextImage()")
	}
	if err != nil {
		return 0, gfx.Runtime(err, "vk.AcquireNextImage()")
	}
	return idx, nil
}

// Present queues image for presentation once wait is signaled.
func (s *Swapchain) Present(image uint32, wait driver.Handle) error {
	if err := s.ref.Check(); err != nil {
		return err
	}
	if int(image) >= len(s.info.Images) {
		return gfx.Violation("Swapchain.Present: image %d of %d", image, len(s.info.Images))
	}
	err := s.device.drv.QueuePresent(s.device.queue, s.info.Handle, image, wait)
	if errors.Is(err, driver.ErrOutOfDate) {
		return errors.Wrap(err, "vk.QueuePresent()")
	}
	return gfx.Runtime(err, "vk.QueuePresent()")
}

func (s *Swapchain) destroyFramebuffers() {
	for _, fb := range s.framebuffers {
		s.device.drv.DestroyFramebuffer(s.device.handle, fb)
	}
	s.framebuffers = nil
}

func (s *Swapchain) destroy() {
	drv := s.device.drv
	s.destroyFramebuffers()
	for _, view := range s.views {
		drv.DestroyImageView(s.device.handle, view)
	}
	s.views = nil
	drv.DestroySwapchain(s.device.handle, s.info.Handle)
}

// Release destroys framebuffers, image views and the swapchain.
func (s *Swapchain) Release() error {
	if s == nil {
		return nil
	}
	ok, err := s.ref.BeginRelease()
	if !ok {
		return err
	}
	s.destroy()
	if s.renderPass != nil {
		s.renderPass.ref.Drop()
		s.renderPass = nil
	}
	s.drop()
	return nil
}

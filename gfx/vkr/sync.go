// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
	log "github.com/sirupsen/logrus"
)

type syncObject struct {
	handle driver.Handle
	fence  bool
}

// FrameSync paces CPU submission against the GPU. It owns one frame slot
// per frame in flight, each holding an image-available semaphore, a
// render-finished semaphore and a fence, and remembers which slot's fence
// last rendered into each swapchain image.
//
// A frame goes through the slot like this:
//
//	fs.WaitForCurrentFrameSlot()
//	image := swapchain.Acquire(fs.ImageSemaphore())
//	fs.WaitForImage(image)
//	fs.ResetCurrentFrameFence()
//	device.Submit(..., fs.CurrentFrameFence())
//	swapchain.Present(image, fs.RenderSemaphore())
//	fs.Advance()
//
// FrameSync belongs to the goroutine driving the render loop. Overlapping
// calls from another goroutine panic.
type FrameSync struct {
	ref    gfx.Ref
	guard  gfx.Guard
	device *Device
	drop   func()

	current        int
	imageAvailable []driver.Handle
	renderFinished []driver.Handle
	fences         []driver.Handle
	waited         []bool
	imagesInFlight []driver.Handle

	created []syncObject
}

// NewFrameSync creates maxFramesInFlight frame slots with their fences
// signaled, so the first wait on every slot returns at once, and an empty
// in-flight entry for each of the numSwapchainImages images.
//
// A creation failure destroys everything created so far and is returned
// as a bootstrap error.
func NewFrameSync(device *Device, maxFramesInFlight, numSwapchainImages int) (*FrameSync, error) {
	if maxFramesInFlight < 1 {
		return nil, gfx.Violation("NewFrameSync: %d frames in flight", maxFramesInFlight)
	}
	if numSwapchainImages < 1 {
		return nil, gfx.Violation("NewFrameSync: %d swapchain images", numSwapchainImages)
	}
	drop, err := acquire(&device.ref)
	if err != nil {
		return nil, err
	}

	fs := &FrameSync{
		ref:            gfx.NewRef("frame sync"),
		guard:          gfx.NewGuard("FrameSync"),
		device:         device,
		drop:           drop,
		imageAvailable: make([]driver.Handle, maxFramesInFlight),
		renderFinished: make([]driver.Handle, maxFramesInFlight),
		fences:         make([]driver.Handle, maxFramesInFlight),
		waited:         make([]bool, maxFramesInFlight),
		imagesInFlight: make([]driver.Handle, numSwapchainImages),
	}

	drv := device.drv
	for i := 0; i < maxFramesInFlight; i++ {
		if fs.imageAvailable[i], err = fs.semaphore(); err != nil {
			break
		}
		if fs.renderFinished[i], err = fs.semaphore(); err != nil {
			break
		}
		if fs.fences[i], err = drv.CreateFence(device.handle, true); err != nil {
			err = gfx.Bootstrap(err, "vk.CreateFence()")
			break
		}
		fs.created = append(fs.created, syncObject{handle: fs.fences[i], fence: true})
	}
	if err != nil {
		fs.destroy()
		drop()
		return nil, err
	}

	log.WithFields(log.Fields{
		"frames": maxFramesInFlight,
		"images": numSwapchainImages,
	}).Debug("Frame sync created")
	return fs, nil
}

func (fs *FrameSync) semaphore() (driver.Handle, error) {
	h, err := fs.device.drv.CreateSemaphore(fs.device.handle)
	if err != nil {
		return driver.NullHandle, gfx.Bootstrap(err, "vk.CreateSemaphore()")
	}
	fs.created = append(fs.created, syncObject{handle: h})
	return h, nil
}

// destroy tears objects down in reverse creation order.
func (fs *FrameSync) destroy() {
	drv := fs.device.drv
	for i := len(fs.created) - 1; i >= 0; i-- {
		obj := fs.created[i]
		if obj.fence {
			drv.DestroyFence(fs.device.handle, obj.handle)
		} else {
			drv.DestroySemaphore(fs.device.handle, obj.handle)
		}
	}
	fs.created = nil
}

// WaitForCurrentFrameSlot blocks until the GPU has finished the work last
// submitted from the current slot. There is no timeout. A failed wait,
// device loss included, is a fatal runtime error.
func (fs *FrameSync) WaitForCurrentFrameSlot() error {
	defer fs.guard.Enter("WaitForCurrentFrameSlot")()
	if err := fs.ref.Check(); err != nil {
		return err
	}
	fence := fs.fences[fs.current]
	if err := fs.device.drv.WaitForFences(fs.device.handle, []driver.Handle{fence}); err != nil {
		return gfx.Runtime(err, "vk.WaitForFences()")
	}
	fs.waited[fs.current] = true
	return nil
}

// WaitForImage blocks until the frame that last rendered into imageIndex
// has finished, then records the current slot as its user. The wait is
// skipped when that frame was the current slot's own previous frame and
// the slot was already waited on.
func (fs *FrameSync) WaitForImage(imageIndex uint32) error {
	defer fs.guard.Enter("WaitForImage")()
	if err := fs.ref.Check(); err != nil {
		return err
	}
	if int(imageIndex) >= len(fs.imagesInFlight) {
		return gfx.Violation("FrameSync.WaitForImage: image %d of %d", imageIndex, len(fs.imagesInFlight))
	}
	own := fs.fences[fs.current]
	inFlight := fs.imagesInFlight[imageIndex]
	if inFlight != driver.NullHandle && !(inFlight == own && fs.waited[fs.current]) {
		if err := fs.device.drv.WaitForFences(fs.device.handle, []driver.Handle{inFlight}); err != nil {
			return gfx.Runtime(err, "vk.WaitForFences()")
		}
		if inFlight == own {
			fs.waited[fs.current] = true
		}
	}
	fs.imagesInFlight[imageIndex] = own
	return nil
}

// ResetCurrentFrameFence unsignals the current slot's fence ahead of the
// submission that will signal it again. The slot must have been waited on
// since it last became current; resetting a fence the GPU may still signal
// is a contract violation.
func (fs *FrameSync) ResetCurrentFrameFence() error {
	defer fs.guard.Enter("ResetCurrentFrameFence")()
	if err := fs.ref.Check(); err != nil {
		return err
	}
	if !fs.waited[fs.current] {
		return gfx.Violation("FrameSync.ResetCurrentFrameFence: slot %d reset without a wait", fs.current)
	}
	fence := fs.fences[fs.current]
	if err := fs.device.drv.ResetFences(fs.device.handle, []driver.Handle{fence}); err != nil {
		return gfx.Runtime(err, "vk.ResetFences()")
	}
	fs.waited[fs.current] = false
	return nil
}

// Advance moves to the next frame slot, wrapping around.
func (fs *FrameSync) Advance() {
	fs.ref.MustBeLive()
	defer fs.guard.Enter("Advance")()
	fs.current = (fs.current + 1) % len(fs.fences)
	fs.waited[fs.current] = false
}

// ImageSemaphore returns the current slot's image-available semaphore.
func (fs *FrameSync) ImageSemaphore() driver.Handle {
	fs.ref.MustBeLive()
	return fs.imageAvailable[fs.current]
}

// RenderSemaphore returns the current slot's render-finished semaphore.
func (fs *FrameSync) RenderSemaphore() driver.Handle {
	fs.ref.MustBeLive()
	return fs.renderFinished[fs.current]
}

// CurrentFrameFence returns the current slot's fence.
func (fs *FrameSync) CurrentFrameFence() driver.Handle {
	fs.ref.MustBeLive()
	return fs.fences[fs.current]
}

// CurrentFrame returns the current slot index.
func (fs *FrameSync) CurrentFrame() int {
	return fs.current
}

// MaxFramesInFlight returns the number of frame slots.
func (fs *FrameSync) MaxFramesInFlight() int {
	return len(fs.fences)
}

// ImagesInFlight returns a copy of the image to fence table.
func (fs *FrameSync) ImagesInFlight() []driver.Handle {
	return append([]driver.Handle(nil), fs.imagesInFlight...)
}

// Release destroys every fence and semaphore. The GPU must be idle.
func (fs *FrameSync) Release() error {
	if fs == nil {
		return nil
	}
	defer fs.guard.Enter("Release")()
	ok, err := fs.ref.BeginRelease()
	if !ok {
		return err
	}
	fs.destroy()
	fs.drop()
	return nil
}

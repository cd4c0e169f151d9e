// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/gfx/driver"
	vk "github.com/vulkan-go/vulkan"
)

// surfaceFormat picks the first surface format the driver package knows,
// falling back to B8G8R8A8 when the surface has no preference.
func (d *Driver) surfaceFormat(physical vk.PhysicalDevice, surface driver.Handle) (vk.SurfaceFormat, error) {
	d.mu.Lock()
	cached, ok := d.formats[surface]
	d.mu.Unlock()
	if ok {
		return cached, nil
	}

	vkSurface := lookup[vk.Surface](d, surface)
	var count uint32
	if err := result(vk.GetPhysicalDeviceSurfaceFormats(physical, vkSurface, &count, nil)); err != nil {
		return vk.SurfaceFormat{}, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceFormats()")
	}
	if count == 0 {
		return vk.SurfaceFormat{}, errors.New("vk.GetPhysicalDeviceSurfaceFormats(): surface has no formats")
	}
	surfaceFormats := make([]vk.SurfaceFormat, count)
	if err := result(vk.GetPhysicalDeviceSurfaceFormats(physical, vkSurface, &count, surfaceFormats)); err != nil {
		return vk.SurfaceFormat{}, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceFormats()")
	}

	chosen := vk.SurfaceFormat{}
	found := false
	for i := range surfaceFormats {
		surfaceFormats[i].Deref()
		if surfaceFormats[i].Format == vk.FormatUndefined {
			chosen = surfaceFormats[i]
			chosen.Format = vk.FormatB8g8r8a8Unorm
			found = true
			break
		}
		if fromFormat(surfaceFormats[i].Format) != driver.FormatUndefined {
			chosen = surfaceFormats[i]
			found = true
			break
		}
	}
	if !found {
		return vk.SurfaceFormat{}, errors.New("vk.GetPhysicalDeviceSurfaceFormats(): no supported surface format")
	}

	d.mu.Lock()
	d.formats[surface] = chosen
	d.mu.Unlock()
	return chosen, nil
}

// CreateSwapchain implements driver.Driver. The extent follows the surface
// when it dictates one and the request otherwise.
func (d *Driver) CreateSwapchain(device, physical driver.Handle, info driver.SwapchainInfo) (driver.Swapchain, error) {
	vkDevice := lookup[vk.Device](d, device)
	vkPhysical := lookup[vk.PhysicalDevice](d, physical)
	vkSurface := lookup[vk.Surface](d, info.Surface)

	format, err := d.surfaceFormat(vkPhysical, info.Surface)
	if err != nil {
		return driver.Swapchain{}, err
	}

	var caps vk.SurfaceCapabilities
	if err := result(vk.GetPhysicalDeviceSurfaceCapabilities(vkPhysical, vkSurface, &caps)); err != nil {
		return driver.Swapchain{}, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceCapabilities()")
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	extent := vk.Extent2D{Width: info.Extent.Width, Height: info.Extent.Height}
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		extent = caps.CurrentExtent
	} else {
		extent.Width = clamp(extent.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
		extent.Height = clamp(extent.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	}

	minImages := info.MinImages
	if minImages < caps.MinImageCount {
		minImages = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && minImages > caps.MaxImageCount {
		minImages = caps.MaxImageCount
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, flag := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(flag) != 0 {
			compositeAlpha = flag
			break
		}
	}

	scci := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          vkSurface,
		MinImageCount:    minImages,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     lookup[vk.Swapchain](d, info.Old),
	}
	var swapchain vk.Swapchain
	if err := result(vk.CreateSwapchain(vkDevice, &scci, nil, &swapchain)); err != nil {
		return driver.Swapchain{}, err
	}

	var numImages uint32
	if err := result(vk.GetSwapchainImages(vkDevice, swapchain, &numImages, nil)); err != nil {
		vk.DestroySwapchain(vkDevice, swapchain, nil)
		return driver.Swapchain{}, errors.Wrap(err, "vk.GetSwapchainImages()")
	}
	images := make([]vk.Image, numImages)
	if err := result(vk.GetSwapchainImages(vkDevice, swapchain, &numImages, images)); err != nil {
		vk.DestroySwapchain(vkDevice, swapchain, nil)
		return driver.Swapchain{}, errors.Wrap(err, "vk.GetSwapchainImages()")
	}

	sc := driver.Swapchain{
		Handle: d.put(swapchain),
		Format: fromFormat(format.Format),
		Extent: driver.Extent2D{Width: extent.Width, Height: extent.Height},
	}
	for _, image := range images {
		sc.Images = append(sc.Images, d.putChild(sc.Handle, image))
	}
	return sc, nil
}

func clamp(v, min, max uint32) uint32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// DestroySwapchain implements driver.Driver. Its images go with it.
func (d *Driver) DestroySwapchain(device, swapchain driver.Handle) {
	vk.DestroySwapchain(lookup[vk.Device](d, device), lookup[vk.Swapchain](d, swapchain), nil)
	d.remove(swapchain)
}

// CreateImageView implements driver.Driver.
func (d *Driver) CreateImageView(device, image driver.Handle, format driver.Format) (driver.Handle, error) {
	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    lookup[vk.Image](d, image),
		ViewType: vk.ImageViewType2d,
		Format:   toFormat(format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if err := result(vk.CreateImageView(lookup[vk.Device](d, device), &ivci, nil, &view)); err != nil {
		return driver.NullHandle, err
	}
	return d.put(view), nil
}

// DestroyImageView implements driver.Driver.
func (d *Driver) DestroyImageView(device, view driver.Handle) {
	vk.DestroyImageView(lookup[vk.Device](d, device), lookup[vk.ImageView](d, view), nil)
	d.remove(view)
}

// CreateFramebuffer implements driver.Driver.
func (d *Driver) CreateFramebuffer(device, renderPass, view driver.Handle, extent driver.Extent2D) (driver.Handle, error) {
	attachments := []vk.ImageView{lookup[vk.ImageView](d, view)}
	fci := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      lookup[vk.RenderPass](d, renderPass),
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}
	var framebuffer vk.Framebuffer
	if err := result(vk.CreateFramebuffer(lookup[vk.Device](d, device), &fci, nil, &framebuffer)); err != nil {
		return driver.NullHandle, err
	}
	return d.put(framebuffer), nil
}

// DestroyFramebuffer implements driver.Driver.
func (d *Driver) DestroyFramebuffer(device, framebuffer driver.Handle) {
	vk.DestroyFramebuffer(lookup[vk.Device](d, device), lookup[vk.Framebuffer](d, framebuffer), nil)
	d.remove(framebuffer)
}

// AcquireNextImage implements driver.Driver. A suboptimal swapchain still
// hands out the image.
func (d *Driver) AcquireNextImage(device, swapchain, semaphore driver.Handle) (uint32, error) {
	var idx uint32
	ret := vk.AcquireNextImage(
		lookup[vk.Device](d, device),
		lookup[vk.Swapchain](d, swapchain),
		vk.MaxUint64,
		lookup[vk.Semaphore](d, semaphore),
		nil,
		&idx,
	)
	if ret == vk.Suboptimal {
		return idx, nil
	}
	return idx, result(ret)
}

// QueuePresent implements driver.Driver. A suboptimal swapchain is
// reported as out of date so that it gets recreated.
func (d *Driver) QueuePresent(queue, swapchain driver.Handle, imageIndex uint32, wait driver.Handle) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{lookup[vk.Semaphore](d, wait)},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{lookup[vk.Swapchain](d, swapchain)},
		PImageIndices:      []uint32{imageIndex},
	}
	ret := vk.QueuePresent(lookup[vk.Queue](d, queue), &presentInfo)
	if ret == vk.Suboptimal {
		return driver.ErrOutOfDate
	}
	return result(ret)
}

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

// SwapchainExtension is required on every device that presents.
const SwapchainExtension = "VK_KHR_swapchain"

// DeviceConfig configures NewDevice.
type DeviceConfig struct {
	// Extensions are enabled in addition to SwapchainExtension.
	Extensions []string
}

// Device is the logical device context. Every other object but the
// instance and surfaces is created from it.
type Device struct {
	ref      gfx.Ref
	instance *Instance
	drop     func()
	drv      driver.Driver
	physical driver.PhysicalDevice
	handle   driver.Handle
	queue    driver.Handle
	family   uint32
}

// NewDevice creates a logical device with one graphics queue on physical.
func NewDevice(instance *Instance, physical driver.PhysicalDevice, cfg DeviceConfig) (*Device, error) {
	if physical.QueueFamily < 0 {
		return nil, gfx.Bootstrap(
			errors.Newf("device %q has no graphics queue", physical.Name),
			"NewDevice()",
		)
	}
	drop, err := acquire(&instance.ref)
	if err != nil {
		return nil, err
	}

	family := uint32(physical.QueueFamily)
	handle, err := instance.drv.CreateDevice(physical.Handle, driver.DeviceInfo{
		QueueFamily: family,
		Extensions:  append([]string{SwapchainExtension}, cfg.Extensions...),
	})
	if err != nil {
		drop()
		return nil, gfx.Bootstrap(err, "vk.CreateDevice()")
	}

	log.WithFields(log.Fields{
		"device": physical.Name,
		"family": family,
	}).Debug("Device created")

	return &Device{
		ref:      gfx.NewRef("device"),
		instance: instance,
		drop:     drop,
		drv:      instance.drv,
		physical: physical,
		handle:   handle,
		queue:    instance.drv.DeviceQueue(handle, family),
		family:   family,
	}, nil
}

// Handle returns the logical device handle.
func (d *Device) Handle() driver.Handle {
	d.ref.MustBeLive()
	return d.handle
}

// Driver returns the driver the device was created on.
func (d *Device) Driver() driver.Driver {
	return d.drv
}

// Physical returns the physical device description.
func (d *Device) Physical() driver.PhysicalDevice {
	return d.physical
}

// QueueFamily returns the graphics queue family index.
func (d *Device) QueueFamily() uint32 {
	return d.family
}

// Queue returns the graphics queue.
func (d *Device) Queue() driver.Handle {
	d.ref.MustBeLive()
	return d.queue
}

// MemoryTypes returns the memory types of the physical device.
func (d *Device) MemoryTypes() []driver.MemoryType {
	return d.physical.MemoryTypes
}

// WaitIdle blocks until all submitted work has finished.
func (d *Device) WaitIdle() error {
	if err := d.ref.Check(); err != nil {
		return err
	}
	return gfx.Runtime(d.drv.DeviceWaitIdle(d.handle), "vk.DeviceWaitIdle()")
}

// Submit queues work on the graphics queue. The fence, if any, is
// signaled once the work completes.
func (d *Device) Submit(submit driver.SubmitInfo, fence driver.Handle) error {
	if err := d.ref.Check(); err != nil {
		return err
	}
	return gfx.Runtime(d.drv.QueueSubmit(d.queue, submit, fence), "vk.QueueSubmit()")
}

// Release destroys the device. It fails while anything created from the
// device is alive.
func (d *Device) Release() error {
	if d == nil {
		return nil
	}
	ok, err := d.ref.BeginRelease()
	if !ok {
		return err
	}
	d.drv.DestroyDevice(d.handle)
	d.drop()
	log.WithField("device", d.physical.Name).Debug("Device released")
	return nil
}

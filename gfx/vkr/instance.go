// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
	log "github.com/sirupsen/logrus"
)

// ValidationLayer is the layer enabled when validation is requested.
const ValidationLayer = "VK_LAYER_KHRONOS_validation"

// EngineName is reported to the driver on instance creation.
const EngineName = "wind"

// InstanceConfig configures NewInstance.
type InstanceConfig struct {
	ApplicationName string

	// Extensions are the instance extensions required by the window system.
	Extensions []string

	// Validation enables the validation layer and routes its reports
	// into the log. Creation fails when the layer is not installed.
	Validation bool
}

// Instance is the root of the object graph.
type Instance struct {
	ref        gfx.Ref
	drv        driver.Driver
	handle     driver.Handle
	validation bool
}

// NewInstance creates the API instance.
func NewInstance(drv driver.Driver, cfg InstanceConfig) (*Instance, error) {
	info := driver.InstanceInfo{
		ApplicationName: cfg.ApplicationName,
		EngineName:      EngineName,
		Extensions:      cfg.Extensions,
	}
	if cfg.Validation {
		if !drv.LayerAvailable(ValidationLayer) {
			return nil, errors.Mark(
				errors.Wrapf(gfx.ErrValidationUnavailable, "layer %s", ValidationLayer),
				gfx.ErrBootstrap,
			)
		}
		info.Layers = []string{ValidationLayer}
		info.Debug = true
		info.Messages = logMessage
	}

	handle, err := drv.CreateInstance(info)
	if err != nil {
		return nil, gfx.Bootstrap(err, "vk.CreateInstance()")
	}

	log.WithFields(log.Fields{
		"application": cfg.ApplicationName,
		"validation":  cfg.Validation,
	}).Debug("Instance created")

	return &Instance{
		ref:        gfx.NewRef("instance"),
		drv:        drv,
		handle:     handle,
		validation: cfg.Validation,
	}, nil
}

func logMessage(msg driver.Message) {
	entry := log.WithFields(log.Fields{
		"layer": msg.Layer,
		"code":  msg.Code,
	})
	switch msg.Severity {
	case driver.SeverityError:
		entry.Error(msg.Text)
	case driver.SeverityWarning, driver.SeverityPerformance:
		entry.Warn(msg.Text)
	default:
		entry.Info(msg.Text)
	}
}

// Handle returns the instance handle.
func (i *Instance) Handle() driver.Handle {
	i.ref.MustBeLive()
	return i.handle
}

// Driver returns the driver the instance was created on.
func (i *Instance) Driver() driver.Driver {
	return i.drv
}

// Validation reports whether the validation layer is enabled.
func (i *Instance) Validation() bool {
	return i.validation
}

// PhysicalDevices lists the devices the instance can see.
func (i *Instance) PhysicalDevices() ([]driver.PhysicalDevice, error) {
	if err := i.ref.Check(); err != nil {
		return nil, err
	}
	devices, err := i.drv.PhysicalDevices(i.handle)
	if err != nil {
		return nil, gfx.Bootstrap(err, "vk.EnumeratePhysicalDevices()")
	}
	return devices, nil
}

// PickPhysicalDevice returns the first device with a graphics queue family.
func (i *Instance) PickPhysicalDevice() (driver.PhysicalDevice, error) {
	devices, err := i.PhysicalDevices()
	if err != nil {
		return driver.PhysicalDevice{}, err
	}
	for _, d := range devices {
		if d.QueueFamily >= 0 {
			return d, nil
		}
	}
	return driver.PhysicalDevice{}, gfx.Bootstrap(
		errors.Newf("none of %d devices has a graphics queue", len(devices)),
		"PickPhysicalDevice()",
	)
}

// Release destroys the instance. It fails while devices or surfaces
// created from it are alive.
func (i *Instance) Release() error {
	if i == nil {
		return nil
	}
	ok, err := i.ref.BeginRelease()
	if !ok {
		return err
	}
	i.drv.DestroyInstance(i.handle)
	log.Debug("Instance released")
	return nil
}

// Surface is a presentation surface created by the window system.
type Surface struct {
	ref      gfx.Ref
	instance *Instance
	drop     func()
	handle   driver.Handle
}

// NewSurface adopts a native surface pointer, as returned by SDL, for use
// with the instance. The surface is destroyed by Release.
func NewSurface(instance *Instance, native unsafe.Pointer) (*Surface, error) {
	if native == nil {
		return nil, gfx.Violation("NewSurface: nil native surface")
	}
	drop, err := acquire(&instance.ref)
	if err != nil {
		return nil, err
	}
	return &Surface{
		ref:      gfx.NewRef("surface"),
		instance: instance,
		drop:     drop,
		handle:   instance.drv.SurfaceFromPointer(instance.handle, native),
	}, nil
}

// Handle returns the surface handle.
func (s *Surface) Handle() driver.Handle {
	s.ref.MustBeLive()
	return s.handle
}

// Release destroys the surface.
func (s *Surface) Release() error {
	if s == nil {
		return nil
	}
	ok, err := s.ref.BeginRelease()
	if !ok {
		return err
	}
	s.instance.drv.DestroySurface(s.instance.handle, s.handle)
	s.drop()
	return nil
}

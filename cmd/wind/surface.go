// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"unsafe"

	"github.com/devblok/wind/gfx/driver"
	"github.com/devblok/wind/gfx/vkr"
	log "github.com/sirupsen/logrus"
)

// nativeSurfaceDestroyer frees a window surface that no vkr.Surface owns.
type nativeSurfaceDestroyer interface {
	DestroyNativeSurface(instance driver.Handle, surface unsafe.Pointer)
}

// newSurface wraps the surface SDL created for the window. If wrapping
// fails the native surface is destroyed again.
func newSurface(drv nativeSurfaceDestroyer, instance *vkr.Instance, native unsafe.Pointer) (*vkr.Surface, error) {
	handle := instance.Handle()
	surface, err := vkr.NewSurface(instance, native)
	if err != nil {
		log.WithError(err).Debug("Destroying unowned window surface")
		drv.DestroyNativeSurface(handle, native)
		return nil, err
	}
	return surface, nil
}

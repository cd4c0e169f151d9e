// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines the ownership contract every GPU resource follows.
//
// A resource exposes its native handle read-only and a teardown operation.
// Resources created against another resource hold a Ref on it, so an owner
// refuses teardown while any dependent is alive. Teardown therefore runs
// anti-topologically: dependents first, owners last.
package gfx

import (
	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/gfx/driver"
)

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases the native objects owned by the implementing
	// structure. Releasing twice is a no-op. Releasing while dependents
	// are alive fails with ErrInUse and leaves the resource intact.
	Release() error
}

// Resource describes a GPU object owning a native handle.
type Resource interface {
	Releasable

	// Handle returns the native handle. Reading the handle of a
	// released resource is a contract violation.
	Handle() driver.Handle
}

// ReleaseAll releases resources in the given order, which has to be
// dependents first. It keeps going after a failure and returns every
// error combined.
func ReleaseAll(resources ...Releasable) error {
	var combined error
	for _, r := range resources {
		if r == nil {
			continue
		}
		combined = errors.CombineErrors(combined, r.Release())
	}
	return combined
}

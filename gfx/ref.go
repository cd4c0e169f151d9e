// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
)

// Ref tracks the dependents of an owning resource and whether the resource
// has been torn down. The zero value is a live resource with no dependents.
type Ref struct {
	name       string
	dependents int32
	released   int32
}

// NewRef returns a Ref for a resource identified by name in logs and errors.
func NewRef(name string) Ref {
	return Ref{name: name}
}

// Name returns the resource name.
func (r *Ref) Name() string {
	return r.name
}

// Acquire registers a new dependent. Acquiring a released owner fails.
func (r *Ref) Acquire() error {
	if r.Released() {
		return errors.Mark(Violation("%s: acquired after release", r.name), ErrReleased)
	}
	atomic.AddInt32(&r.dependents, 1)
	return nil
}

// Drop unregisters a dependent previously registered with Acquire.
func (r *Ref) Drop() {
	if atomic.AddInt32(&r.dependents, -1) < 0 {
		panic(Violation("%s: dependent dropped more times than acquired", r.name))
	}
}

// Dependents returns the number of live dependents.
func (r *Ref) Dependents() int {
	return int(atomic.LoadInt32(&r.dependents))
}

// Released reports whether teardown already ran.
func (r *Ref) Released() bool {
	return atomic.LoadInt32(&r.released) == 1
}

// Check returns ErrReleased once the resource is torn down.
func (r *Ref) Check() error {
	if r.Released() {
		return errors.Mark(Violation("%s: used after release", r.name), ErrReleased)
	}
	return nil
}

// MustBeLive panics when the resource is torn down. Handle accessors use it
// since they have no error to return.
func (r *Ref) MustBeLive() {
	if err := r.Check(); err != nil {
		panic(err)
	}
}

// BeginRelease decides whether teardown may run now. It reports false with
// a nil error when the resource was already released, and false with
// ErrInUse while dependents are alive.
func (r *Ref) BeginRelease() (bool, error) {
	if r.Released() {
		return false, nil
	}
	if n := r.Dependents(); n > 0 {
		err := errors.Mark(Violation("%s: released while %d dependents are alive", r.name, n), ErrInUse)
		log.WithFields(log.Fields{
			"resource":   r.name,
			"dependents": n,
		}).Error("Refusing to release resource in use")
		return false, err
	}
	if !atomic.CompareAndSwapInt32(&r.released, 0, 1) {
		return false, nil
	}
	return true, nil
}

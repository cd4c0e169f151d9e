// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"github.com/cockroachdb/errors"
)

// Error classes. Every error produced by the renderer core carries one of
// the first three marks; errors.Is tells them apart.
var (
	// ErrBootstrap marks failures while creating instances, devices and
	// resources. They abort initialisation and are never retried.
	ErrBootstrap = errors.New("fatal bootstrap error")

	// ErrRuntime marks fence wait, submission and presentation failures,
	// device loss included. They terminate the render loop.
	ErrRuntime = errors.New("fatal runtime error")

	// ErrContractViolation marks programming errors: overrunning a buffer,
	// mapping device-local memory, reusing a frame slot before waiting on it.
	ErrContractViolation = errors.New("contract violation")

	// ErrInUse is a contract violation raised when a resource is released
	// while dependents still reference it.
	ErrInUse = errors.New("resource in use")

	// ErrReleased is a contract violation raised when a released resource
	// is used.
	ErrReleased = errors.New("resource released")

	// ErrValidationUnavailable is a bootstrap error raised when validation
	// was requested but the layers are not installed.
	ErrValidationUnavailable = errors.New("validation layers requested but not available")
)

// Bootstrap wraps err from the named call as a fatal bootstrap error.
func Bootstrap(err error, call string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, call), ErrBootstrap)
}

// Runtime wraps err from the named call as a fatal runtime error.
func Runtime(err error, call string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, call), ErrRuntime)
}

// Violation builds a contract violation error.
func Violation(format string, args ...interface{}) error {
	return errors.Mark(errors.AssertionFailedWithDepthf(1, format, args...), ErrContractViolation)
}

// IsContractViolation reports whether err is a programming error.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrContractViolation)
}

// IsFatal reports whether err ends the current render session.
func IsFatal(err error) bool {
	return errors.Is(err, ErrBootstrap) || errors.Is(err, ErrRuntime)
}

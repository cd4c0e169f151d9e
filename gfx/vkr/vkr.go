// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr implements the vulkan renderer core: the ownership graph of
// GPU objects and the synchronisation of CPU frame submission with the GPU.
//
// Every object holds a reference on the objects it was created from and
// refuses to be released while something created from it is still alive,
// so teardown has to run dependents first.
package vkr

import (
	"github.com/devblok/wind/gfx"
)

// acquire registers a dependent on every ref. On failure nothing stays
// acquired. The returned func drops all of them again.
func acquire(refs ...*gfx.Ref) (func(), error) {
	for i, r := range refs {
		if err := r.Acquire(); err != nil {
			for _, prev := range refs[:i] {
				prev.Drop()
			}
			return nil, err
		}
	}
	return func() {
		for _, r := range refs {
			r.Drop()
		}
	}, nil
}

// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "sync/atomic"

// Guard detects overlapping use of state that has a single designated
// caller. It does not serialise anything: a second caller entering while
// the first is still inside panics with a contract violation.
type Guard struct {
	name string
	busy int32
}

// NewGuard returns a Guard reporting violations under name.
func NewGuard(name string) Guard {
	return Guard{name: name}
}

// Enter marks the guarded state busy and returns the matching exit func.
//
//	defer g.Enter("Advance")()
func (g *Guard) Enter(op string) func() {
	if !atomic.CompareAndSwapInt32(&g.busy, 0, 1) {
		panic(Violation("%s.%s: concurrent use of single-writer state", g.name, op))
	}
	return g.exit
}

func (g *Guard) exit() {
	atomic.StoreInt32(&g.busy, 0)
}

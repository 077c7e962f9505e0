// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package program provides the portable interface to a running Rexx
// activity being introspected. It plays the role of a debugger's
// "Program" interface (spec.md §4.2.6): read access to the activation
// stack, variable/condition state, and the image, whether the activity
// lives in this process or is reached over net/rpc.
package program

import (
	"io"
)

// Introspector is the interface to a (possibly remote) Rexx activity.
// Implementations run read-only queries against the activity's stack and
// heap by dispatching them through one goroutine that runs each under the
// activity's kernel lock (Activity.Run), so they see a consistent snapshot without racing the activity's own execution
// (spec.md §4.2.1's single-active-activity invariant).
type Introspector interface {
	// Open opens a virtual file associated with the interpreter.
	// Names are things like "image" (the saved heap image) or "trace"
	// (the current activation traceback, read-only). Mode is one of
	// "r", "w", "rw".
	Open(name string, mode string) (File, error)

	// Eval evaluates expr and returns its string representation(s).
	// Syntax:
	//	re:regexp
	//		Returns the traceback lines matching regexp; variable
	//		names are not searched
	//	sym:name
	//		Returns a one-element list holding the string value of
	//		the named variable in the variable pool the server was
	//		created with
	//	frame:n
	//		Returns a one-element list holding the traceback line
	//		for activation-stack depth n
	Eval(expr string) ([]string, error)

	// Frames returns up to count stack frames from the top of the
	// activity's activation stack, most recent first.
	Frames(count int) ([]Frame, error)

	// HeapStats reports the heap's current occupancy.
	HeapStats() (HeapStats, error)

	// SaveImage flattens the heap to a byte image and returns it.
	SaveImage() ([]byte, error)

	// RestoreImage replaces the heap's contents with a previously saved
	// image.
	RestoreImage(data []byte) error
}

// The File interface provides access to file-like resources exposed by
// the interpreter. It implements only ReaderAt and WriterAt, not Reader
// and Writer, because an image file is accessed by offset far more often
// than streamed sequentially.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}

// Frame is one rendered activation-stack entry (spec.md §4.4.6's
// traceback line), already formatted the way CreateStackFrame does it.
type Frame struct {
	S string
}

// HeapStats summarizes heap occupancy (spec.md §4.1).
type HeapStats struct {
	LiveObjects    int
	PendingUninits int
}

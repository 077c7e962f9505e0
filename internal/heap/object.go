// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package heap implements the segmented, mark-sweep object heap described
// in spec.md §4.1: every language-visible value is allocated here, old-
// to-new references are tracked for incremental roots, uninit methods are
// queued after a sweep finds their owner dead, and an object graph can be
// saved/restored as an image or flattened/unflattened through an envelope.
//
// The bookkeeping here mirrors internal/gocore's approach to a foreign Go
// process's heap (arenas/spans/mark bits over a core.Address space) but
// manages this process's own Rexx objects rather than reading someone
// else's memory: Address is a synthetic handle into a segment, not a raw
// pointer, so the accounting can be driven entirely from Go without unsafe
// pointer arithmetic.
package heap

import (
	"fmt"

	"github.com/oorexx/corexx/internal/value"
)

// Address is a heap-relative handle: (segment base) + offset. It plays
// the role core.Address plays for gocore, but addresses a segment owned
// by this process instead of a traced one.
type Address uint64

const (
	// PtrWidth is the width of a pointer-sized field, matching the
	// teacher's PtrSize() notion (core.Process.PtrSize).
	PtrWidth = 8
	// Grain is the allocation granularity: two pointer-widths (spec.md §3).
	Grain = 2 * PtrWidth
	// MinObjectSize is the minimum size of any allocated object: three grains.
	MinObjectSize = 3 * Grain
	// MaxObjectSize is SIZE_MAX - Grain, spec.md §3.
	MaxObjectSize = ^uint64(0) - Grain

	// NormalThreshold is the largest size handled by the Normal segment
	// set's per-size-class free lists (spec.md §4.1.1).
	NormalThreshold = 512
	// LargeAllocationUnit is the minimum remainder size worth splitting
	// back into a free list when servicing a Large-set allocation.
	LargeAllocationUnit = Grain * 4
)

// roundToGrain rounds size up to the next multiple of Grain, and enforces
// the minimum object size.
func roundToGrain(size uint64) uint64 {
	if size < MinObjectSize {
		size = MinObjectSize
	}
	if r := size % Grain; r != 0 {
		size += Grain - r
	}
	return size
}

// Object is the universal header described in spec.md §3: a behaviour
// (here, a value.Kind tag plus the Go-level payload), a size rounded to
// the allocation grain, a mark bit whose meaning flips each GC cycle, an
// old-space flag, and a "no references" leaf hint.
type Object struct {
	Addr    Address
	Size    uint64
	Kind    value.Kind
	Payload value.Ref

	seg      *segment
	mark     bool // compared against Heap.markSense to test liveness
	oldSpace bool
	noRefs   bool // leaf hint: skip marking children
	uninit   bool // class defines an uninit method
}

// Marked reports whether o is live for the GC cycle currently in progress
// (or the most recently completed one).
func (o *Object) Marked(markSense bool) bool { return o.mark == markSense }

func (o *Object) String() string {
	return fmt.Sprintf("Object{addr=%#x size=%d kind=%s old=%v}", o.Addr, o.Size, o.Kind, o.oldSpace)
}

// OldSpace reports whether o belongs to a restored image segment.
func (o *Object) OldSpace() bool { return o.oldSpace }

// live invokes the object's mark hook: it reports the object's direct
// children for the grey worklist, mirroring Object::live() in the
// original interpreter and markObjects's add() closure in gocore.
func (o *Object) live() []*value.Ref {
	if o.noRefs || o.Payload == nil {
		return nil
	}
	return o.Payload.Refs()
}

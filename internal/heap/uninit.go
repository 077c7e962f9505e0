// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

// UninitHook is invoked once for each object whose uninit method must
// run, after it has been found dead by a sweep (spec.md §4.2.5). The
// activity package supplies the actual implementation (acquiring an
// internal frame and calling the method with trapConditions=true); heap
// only owns the registration table and the pending queue.
type UninitHook func(obj *Object)

// RegisterUninit records obj as having an uninit method, the way the
// original interpreter's object constructors register themselves in an
// identity table at creation (spec.md §4.2.5).
func (h *Heap) RegisterUninit(obj *Object) {
	obj.uninit = true
	h.uninitTable[obj.Addr] = obj
}

// collectUninits is run after each sweep: unmarked entries in the uninit
// table are moved to the pending queue (spec.md §4.1.2 step 5).
func (h *Heap) collectUninits() {
	for addr, obj := range h.uninitTable {
		if obj.mark != h.markSense {
			delete(h.uninitTable, addr)
			h.uninitQueue = append(h.uninitQueue, obj)
		}
	}
}

// RunUninits drains the pending queue, calling hook once per object.
// Re-entrant calls (hook triggering another RunUninits, e.g. via a
// finalizer that allocates) are a no-op, matching the source's guard.
func (h *Heap) RunUninits(hook UninitHook) {
	if h.runningUninits {
		return
	}
	h.runningUninits = true
	defer func() { h.runningUninits = false }()

	for len(h.uninitQueue) > 0 {
		obj := h.uninitQueue[0]
		h.uninitQueue = h.uninitQueue[1:]
		hook(obj)
	}
}

// PendingUninits reports how many objects are queued for finalisation.
func (h *Heap) PendingUninits() int { return len(h.uninitQueue) }

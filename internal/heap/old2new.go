// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import "github.com/oorexx/corexx/internal/value"

// RecordFieldSet must be called whenever a "set field" operation stores
// value into a field of container (spec.md §4.1.3). If container is
// old-space and value is new-space, container is inserted into old2new.
func (h *Heap) RecordFieldSet(container, value *Object) {
	if container == nil || value == nil {
		return
	}
	if !container.oldSpace || value.oldSpace {
		return
	}
	set := h.old2new[container.Addr]
	if set == nil {
		set = make(map[Address]bool)
		h.old2new[container.Addr] = set
	}
	set[value.Addr] = true
}

// old2NewRoots returns the value.Ref set recorded as old2new entries, to
// be seeded as GC roots (spec.md §4.1.3: "entries are roots").
func (h *Heap) old2NewRoots() []*value.Ref {
	var out []*value.Ref
	for containerAddr, targets := range h.old2new {
		container := h.Find(containerAddr)
		if container == nil {
			continue
		}
		for addr := range targets {
			if obj := h.Find(addr); obj != nil && obj.Payload != nil {
				ref := obj.Payload
				out = append(out, &ref)
			}
		}
	}
	return out
}

// pruneOld2New removes old2new entries whose container is unreachable, or
// whose recorded children have all become old-space themselves
// (spec.md §4.1.3).
func (h *Heap) pruneOld2New() {
	for containerAddr, targets := range h.old2new {
		container := h.Find(containerAddr)
		if container == nil {
			delete(h.old2new, containerAddr)
			continue
		}
		for addr := range targets {
			target := h.Find(addr)
			if target == nil || target.oldSpace {
				delete(targets, addr)
			}
		}
		if len(targets) == 0 {
			delete(h.old2new, containerAddr)
		}
	}
}

// WeakRef is a handle whose Get returns nil once its referent has been
// swept (spec.md §4.1.2 step 4).
type WeakRef struct{ w *weakRef }

// NewWeakRef registers a weak reference to obj.
func (h *Heap) NewWeakRef(obj *Object) *WeakRef {
	w := &weakRef{referent: obj}
	h.weak = append(h.weak, w)
	return &WeakRef{w: w}
}

// Get returns the referent, or nil if it has been collected.
func (r *WeakRef) Get() *Object { return r.w.referent }

// HasOld2NewEntry reports whether container is recorded as referencing
// new-space data, for test assertions against spec.md §8's invariant.
func (h *Heap) HasOld2NewEntry(container *Object) bool {
	set, ok := h.old2new[container.Addr]
	return ok && len(set) > 0
}

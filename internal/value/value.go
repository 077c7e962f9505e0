// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package value defines the Rexx-visible object kinds the heap allocates.
// It is deliberately small: built-in function semantics and the full
// surface grammar are out of scope (spec.md §1); this package only needs
// enough kinds to exercise allocation, old2new recording, condition
// directories and variable slots.
package value

import "fmt"

// Kind tags the shape of an Object's payload, the way gocore.Type.Kind
// tags a foreign process's runtime types.
type Kind uint8

const (
	KindString Kind = iota
	KindInteger
	KindArray
	KindDirectory
	KindStem
	KindMethod
	KindRoutine
	KindPackage
	KindNil
	KindTrue
	KindFalse
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindArray:
		return "array"
	case KindDirectory:
		return "directory"
	case KindStem:
		return "stem"
	case KindMethod:
		return "method"
	case KindRoutine:
		return "routine"
	case KindPackage:
		return "package"
	case KindNil:
		return "nil"
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Ref is a heap reference to a value payload. Concrete payload types
// (String, Integer, Array, Directory, Stem) implement Ref directly and
// are wrapped in a heap Object by heap.Allocate.
type Ref interface {
	Kind() Kind
	// Refs returns the object's outgoing reference fields, for GC
	// marking. Directory and Stem return pointers to copies of their
	// entries, so storing through them does not change the container.
	Refs() []*Ref
}

// String is an immutable Rexx character string.
type String struct {
	Text string
}

func (*String) Kind() Kind    { return KindString }
func (*String) Refs() []*Ref  { return nil }
func NewString(s string) *String { return &String{Text: s} }

// Integer is a Rexx whole number within native range; arbitrary-precision
// decimal arithmetic is a built-in concern and out of scope.
type Integer struct {
	Value int64
}

func (*Integer) Kind() Kind   { return KindInteger }
func (*Integer) Refs() []*Ref { return nil }

// Array is a fixed-size indexed collection of object references.
type Array struct {
	Items []Ref
}

func (*Array) Kind() Kind { return KindArray }
func (a *Array) Refs() []*Ref {
	refs := make([]*Ref, len(a.Items))
	for i := range a.Items {
		refs[i] = &a.Items[i]
	}
	return refs
}

// Directory is a string-keyed object dictionary; condition objects
// (spec.md §4.2.3) are Directories.
type Directory struct {
	entries map[string]Ref
	order   []string // insertion order, for deterministic iteration
}

func NewDirectory() *Directory {
	return &Directory{entries: make(map[string]Ref)}
}

func (*Directory) Kind() Kind { return KindDirectory }

func (d *Directory) Refs() []*Ref {
	refs := make([]*Ref, 0, len(d.entries))
	for _, k := range d.order {
		v := d.entries[k]
		refs = append(refs, &v)
	}
	return refs
}

func (d *Directory) Put(key string, v Ref) {
	if _, ok := d.entries[key]; !ok {
		d.order = append(d.order, key)
	}
	d.entries[key] = v
}

func (d *Directory) Get(key string) (Ref, bool) {
	v, ok := d.entries[key]
	return v, ok
}

func (d *Directory) Keys() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Stem is the container for a compound variable's components
// (spec.md §3 Variables / Stem).
type Stem struct {
	Default Ref
	Tails   map[string]Ref
}

func NewStem() *Stem {
	return &Stem{Tails: make(map[string]Ref)}
}

func (*Stem) Kind() Kind { return KindStem }

func (s *Stem) Refs() []*Ref {
	refs := make([]*Ref, 0, len(s.Tails)+1)
	if s.Default != nil {
		d := s.Default
		refs = append(refs, &d)
	}
	for k := range s.Tails {
		v := s.Tails[k]
		refs = append(refs, &v)
	}
	return refs
}

// Singletons. Unflatten must re-resolve proxies to these process-wide
// instances (spec.md §4.1.5).
var (
	Nil   = &singleton{kind: KindNil}
	True  = &singleton{kind: KindTrue}
	False = &singleton{kind: KindFalse}
)

type singleton struct{ kind Kind }

func (s *singleton) Kind() Kind   { return s.kind }
func (*singleton) Refs() []*Ref { return nil }

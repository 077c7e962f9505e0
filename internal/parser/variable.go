// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import "strings"

// Retriever is the compiled form of a variable reference: either a
// cached slot index into the owning Package's variable-slot array, or
// (slot == 0, under INTERPRET) a name to be looked up dynamically every
// time (spec.md §4.4.4).
type Retriever struct {
	Name string
	Slot int // 0 means "look up name dynamically"
	Stem bool

	// Compound, if non-nil, is the combined retriever for a compound
	// variable's resolved tail: literal segments verbatim, interned
	// simple-variable segments resolved through Dictionary at evaluation
	// time.
	Compound *CompoundRetriever
}

// CompoundRetriever resolves a compound variable's tail (spec.md
// §4.4.4): "each non-empty alphabetic segment is interned as a simple
// variable; each numeric or empty segment is kept as a literal string".
type CompoundRetriever struct {
	Stem     *Retriever   // the stem part, before the first '.'
	Segments []TailSegment
}

// TailSegment is one '.'-delimited piece of a compound variable's tail.
type TailSegment struct {
	Literal   string     // used when Variable == nil
	Variable  *Retriever // used when the segment names a simple variable
}

// Dictionary interns variable names to Retrievers for one compilation
// unit (one Package, or one INTERPRET invocation), matching spec.md
// §4.4.4's addSimpleVariable.
type Dictionary struct {
	byName map[string]*Retriever
	nextSlot int

	// Interpret forces every addSimpleVariable call to return slot 0
	// (dynamic lookup), per spec.md §4.4.4's "except under interpret,
	// where slot = 0 forces dynamic lookup".
	Interpret bool
}

// NewDictionary creates an empty variable dictionary. Slot 0 is reserved
// so a zero Retriever.Slot unambiguously means "dynamic lookup".
func NewDictionary(interpret bool) *Dictionary {
	return &Dictionary{byName: make(map[string]*Retriever), nextSlot: 1, Interpret: interpret}
}

// AddSimpleVariable returns name's cached Retriever, allocating a new
// slot the first time name is seen (spec.md §4.4.4).
func (d *Dictionary) AddSimpleVariable(name string) *Retriever {
	key := strings.ToUpper(name)
	if r, ok := d.byName[key]; ok {
		return r
	}
	r := &Retriever{Name: key}
	if !d.Interpret {
		r.Slot = d.nextSlot
		d.nextSlot++
	}
	d.byName[key] = r
	return r
}

// AddStemVariable interns a stem name (trailing '.'), which also
// allocates a slot (spec.md §4.4.4).
func (d *Dictionary) AddStemVariable(name string) *Retriever {
	r := d.AddSimpleVariable(name)
	r.Stem = true
	return r
}

// AddCompoundVariable interns a compound variable reference
// ("name.tail1.tail2..."), sub-parsing the tail per spec.md §4.4.4: each
// non-empty alphabetic segment becomes an interned simple variable; each
// numeric or empty segment is kept as a literal string. The combined
// Retriever caches the full resolved path so later references to the
// identical compound name reuse it.
func (d *Dictionary) AddCompoundVariable(name string) *Retriever {
	key := strings.ToUpper(name)
	if r, ok := d.byName[key]; ok {
		return r
	}

	parts := strings.Split(name, ".")
	stemName := parts[0] + "."
	stem := d.AddStemVariable(stemName)

	segments := make([]TailSegment, 0, len(parts)-1)
	for _, seg := range parts[1:] {
		if seg == "" || isNumericSegment(seg) {
			segments = append(segments, TailSegment{Literal: strings.ToUpper(seg)})
			continue
		}
		segments = append(segments, TailSegment{Variable: d.AddSimpleVariable(seg)})
	}

	r := &Retriever{
		Name: key,
		Slot: stem.Slot,
		Compound: &CompoundRetriever{Stem: stem, Segments: segments},
	}
	d.byName[key] = r
	return r
}

func isNumericSegment(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsCompound reports whether name (as written in source) denotes a
// compound variable: its first '.' comes before its last character, per
// spec.md §4.4.4's "stem names (trailing '.')" vs. "compound variables
// (name contains '.')" split. A name whose only '.' is the trailing one
// is a stem (IsStem).
func IsCompound(name string) bool {
	i := strings.IndexByte(name, '.')
	return i >= 0 && i < len(name)-1
}

// IsStem reports whether name is a bare stem reference (a trailing '.'
// with nothing after it).
func IsStem(name string) bool {
	return strings.HasSuffix(name, ".") && strings.Count(name, ".") == 1
}

// SlotCount reports how many simple-variable slots this dictionary has
// handed out, used to size a code block's variable pool (spec.md §3's
// "variable-slot count").
func (d *Dictionary) SlotCount() int { return d.nextSlot - 1 }

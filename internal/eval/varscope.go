// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eval

import (
	"strings"

	"github.com/oorexx/corexx/internal/nativeactivation"
	"github.com/oorexx/corexx/internal/value"
)

// VarScope is one code block's flat variable pool (spec.md §4.4.4),
// keyed by the canonical uppercase name the parser's Dictionary already
// assigns each symbol. It implements nativeactivation.VarStore directly,
// so a native callout made from within this scope's frame is mediated by
// the exact same storage a Rexx clause reads and writes, rather than a
// private copy a native callout would otherwise need to be shown.
type VarScope struct {
	vals  map[string]value.Ref
	order []string // insertion order, for VarStore.Names/VarNext
}

func NewVarScope() *VarScope { return &VarScope{vals: make(map[string]value.Ref)} }

func (s *VarScope) Lookup(name string) (value.Ref, bool) {
	v, ok := s.vals[strings.ToUpper(name)]
	return v, ok
}

func (s *VarScope) Set(name string, v value.Ref) {
	key := strings.ToUpper(name)
	if _, exists := s.vals[key]; !exists {
		s.order = append(s.order, key)
	}
	s.vals[key] = v
}

func (s *VarScope) Drop(name string) {
	key := strings.ToUpper(name)
	delete(s.vals, key)
	for i, n := range s.order {
		if n == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *VarScope) Names() []string {
	return append([]string(nil), s.order...)
}

var _ nativeactivation.VarStore = (*VarScope)(nil)

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import "strings"

// ParseProgram runs the full spec.md §4.4 pipeline over one source file:
// the main code block first (Translator.Translate, stopping cleanly at
// the first '::' directive), then every directive and its body
// (ParseDirectives). Routines and classes are indexed by name for the
// caller's convenience; ::CLASS directives are additionally sorted into
// dependency order.
func ParseProgram(lex *Lexer, dict *Dictionary) (*Package, error) {
	pkg, err := NewTranslator(lex, dict).Translate()
	if err != nil {
		return nil, err
	}

	dirs, err := ParseDirectives(lex)
	if err != nil {
		return nil, err
	}
	pkg.Directives = dirs

	var classes []*Directive
	pkg.Routines = make(map[string]*Directive)
	pkg.Methods = make(map[string]*Directive)
	for _, d := range dirs {
		switch d.Kind {
		case DirRoutine:
			pkg.Routines[strings.ToUpper(d.Name)] = d
		case DirMethod:
			pkg.Methods[strings.ToUpper(d.Name)] = d
		case DirClass:
			classes = append(classes, d)
		}
	}

	sorted, err := SortClasses(classes)
	if err != nil {
		return nil, err
	}
	pkg.Classes = sorted

	return pkg, nil
}

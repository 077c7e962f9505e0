// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import (
	"fmt"
	"strings"
)

// DirectiveKind enumerates the recognised '::' directives (spec.md
// §4.4.5).
type DirectiveKind int

const (
	DirClass DirectiveKind = iota
	DirMethod
	DirRoutine
	DirRequires
	DirLibrary
	DirAttribute
	DirConstant
	DirOptions
	DirResource
)

var directiveNames = map[string]DirectiveKind{
	"CLASS": DirClass, "METHOD": DirMethod, "ROUTINE": DirRoutine,
	"REQUIRES": DirRequires, "LIBRARY": DirLibrary, "ATTRIBUTE": DirAttribute,
	"CONSTANT": DirConstant, "OPTIONS": DirOptions, "RESOURCE": DirResource,
}

// Directive is one "::KEYWORD name options..." clause (spec.md §4.4.5).
// For DirClass, Depends names the SUBCLASS/INHERIT/MIXINCLASS
// dependencies the topological sort below resolves. For DirRoutine and
// DirMethod, Body/Labels/Dict hold the directive's own code block,
// translated with a fresh Dictionary (spec.md §4.4.4: a routine or
// method gets its own variable pool, distinct from the caller's).
type Directive struct {
	Kind    DirectiveKind
	Name    string
	Options string // remaining clause text, unparsed beyond the name
	Depends []string
	Line    int

	Body          []*Instruction
	Labels        map[string]*Instruction
	Dict          *Dictionary
	MaxStack      int
	VariableSlots int
}

// ParseDirectives reads every "::keyword ..." clause from lex until EOF,
// after the first code block has already been consumed by a Translator
// (spec.md §4.4.5: "After the first code block, ::CLASS... directives
// configure the Package").
func ParseDirectives(lex *Lexer) ([]*Directive, error) {
	var out []*Directive
	for {
		tok := lex.Next()
		if tok.Kind == TokEOF {
			return out, nil
		}
		if tok.Kind == TokBlank || tok.Kind == TokSemicolon {
			continue
		}
		if tok.Kind != TokDirective {
			return nil, fmt.Errorf("line %d: expected a '::' directive, got %v", tok.Line, tok)
		}
		d, err := parseOneDirective(lex, tok.Line)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
}

func parseOneDirective(lex *Lexer, line int) (*Directive, error) {
	kw := nextNonBlankFrom(lex)
	if kw.Kind != TokSymbol {
		return nil, fmt.Errorf("line %d: expected directive keyword, got %v", line, kw)
	}
	kind, ok := directiveNames[strings.ToUpper(kw.Text)]
	if !ok {
		return nil, fmt.Errorf("line %d: unrecognised directive %q", line, kw.Text)
	}
	d := &Directive{Kind: kind, Line: line}

	name := nextNonBlankFrom(lex)
	if name.Kind == TokSymbol {
		d.Name = name.Text
	} else {
		lex.Reclaim(name)
	}

	var rest strings.Builder
	for {
		tok := lex.Next()
		if tok.Kind == TokSemicolon || tok.Kind == TokEOF {
			if tok.Kind == TokEOF {
				lex.Reclaim(tok)
			}
			break
		}
		if tok.Kind == TokBlank {
			rest.WriteByte(' ')
			continue
		}
		rest.WriteString(tok.Text)
	}
	d.Options = strings.TrimSpace(rest.String())

	if kind == DirClass {
		d.Depends = extractClassDependencies(d.Options)
	}

	if kind == DirRoutine || kind == DirMethod {
		if err := parseDirectiveBody(lex, d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// parseDirectiveBody translates a ::ROUTINE/::METHOD body into its own
// Package, using a fresh Dictionary so the body's variable pool is
// independent of both the main code block's and any other directive's
// (spec.md §4.4.4). It reuses the same Translator a top-level code block
// uses: translateClause already stops cleanly at the next '::' directive
// token without consuming it, so the body translation ends exactly where
// the next directive (or EOF) begins.
func parseDirectiveBody(lex *Lexer, d *Directive) error {
	dict := NewDictionary(false)
	body, err := NewTranslator(lex, dict).Translate()
	if err != nil {
		return fmt.Errorf("line %d: body of %s %s: %w", d.Line, directiveKeyword(d.Kind), d.Name, err)
	}
	d.Body = body.Instructions
	d.Labels = body.Labels
	d.Dict = dict
	d.MaxStack = body.MaxStack
	d.VariableSlots = body.VariableSlots
	return nil
}

func directiveKeyword(kind DirectiveKind) string {
	for name, k := range directiveNames {
		if k == kind {
			return name
		}
	}
	return "?"
}

func nextNonBlankFrom(lex *Lexer) Token {
	for {
		tok := lex.Next()
		if tok.Kind != TokBlank {
			return tok
		}
	}
}

// extractClassDependencies scans a ::CLASS directive's trailing options
// text for SUBCLASS/INHERIT/MIXINCLASS names (spec.md §4.4.5: "Class
// directives declare a dependency on any SUBCLASS/INHERIT/MIXINCLASS
// names"). Options are already whitespace-collapsed by parseOneDirective,
// so this is a simple token scan rather than a full sub-grammar.
func extractClassDependencies(options string) []string {
	fields := strings.Fields(options)
	var deps []string
	for i := 0; i < len(fields); i++ {
		switch strings.ToUpper(fields[i]) {
		case "SUBCLASS", "INHERIT":
			if i+1 < len(fields) {
				deps = append(deps, strings.ToUpper(fields[i+1]))
			}
		case "MIXINCLASS":
			// MIXINCLASS may list several comma-separated names.
			for j := i + 1; j < len(fields); j++ {
				name := strings.Trim(fields[j], ",")
				if name == "" {
					break
				}
				deps = append(deps, strings.ToUpper(name))
				if !strings.HasSuffix(fields[j], ",") {
					break
				}
			}
		}
	}
	return deps
}

// ErrClassCycle is returned by SortClasses when the dependency graph
// among ::CLASS directives contains a cycle (spec.md §4.4.5: "A cycle
// raises a structured error pointing at the first unresolved class").
type ErrClassCycle struct {
	Remaining []string // class names still unresolved when the cycle was detected
}

func (e *ErrClassCycle) Error() string {
	return fmt.Sprintf("circular class dependency involving %s", e.Remaining[0])
}

// SortClasses performs spec.md §4.4.5's topological sort: while classes
// with no unresolved dependencies exist, pull one into the install
// order and remove its name from the remaining classes' dependency sets.
func SortClasses(classes []*Directive) ([]*Directive, error) {
	remaining := make(map[string]*Directive, len(classes))
	deps := make(map[string]map[string]bool, len(classes))
	var order []string // preserves input order among ties, for determinism
	for _, c := range classes {
		key := strings.ToUpper(c.Name)
		remaining[key] = c
		depSet := make(map[string]bool, len(c.Depends))
		for _, d := range c.Depends {
			if _, isLocal := indexOf(classes, d); isLocal {
				depSet[d] = true
			}
		}
		deps[key] = depSet
		order = append(order, key)
	}

	var result []*Directive
	for len(remaining) > 0 {
		progressed := false
		for _, key := range order {
			c, ok := remaining[key]
			if !ok {
				continue
			}
			if len(deps[key]) > 0 {
				continue
			}
			result = append(result, c)
			delete(remaining, key)
			for _, otherDeps := range deps {
				delete(otherDeps, key)
			}
			progressed = true
		}
		if !progressed {
			var left []string
			for _, key := range order {
				if _, ok := remaining[key]; ok {
					left = append(left, key)
				}
			}
			return nil, &ErrClassCycle{Remaining: left}
		}
	}
	return result, nil
}

func indexOf(classes []*Directive, name string) (int, bool) {
	for i, c := range classes {
		if strings.EqualFold(c.Name, name) {
			return i, true
		}
	}
	return -1, false
}

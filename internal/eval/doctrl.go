// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eval

import (
	"fmt"
	"strings"

	"github.com/oorexx/corexx/internal/parser"
)

// doControl is a parsed "var = from TO to [BY step]" DO/LOOP control
// clause. Anything the parser's Non-goals already exclude (REPEAT,
// WHILE, UNTIL, FOR) is left unrecognised here too: a DO/LOOP with no
// control clause, or one this mini-parser doesn't recognise, runs its
// body once as a plain grouping block.
type doControl struct {
	varName        string
	from, to, step *parser.Expr
}

// parseDoControl re-lexes the already whitespace-collapsed control
// clause text parser.Instruction.ControlClause holds (spec.md Non-goals:
// full iteration grammar is out of this package's scope). No Dictionary
// is attached to the re-lex: VarScope keys on a variable's plain
// uppercase name, not a Dictionary-assigned slot, so the control
// variable needs no interning to read and write the same value a bare
// reference to its name elsewhere in the block would.
func parseDoControl(cc string) (*doControl, bool, error) {
	fields := strings.Fields(cc)
	if len(fields) < 4 || fields[1] != "=" {
		return nil, false, nil
	}
	upper := make([]string, len(fields))
	for i, f := range fields {
		upper[i] = strings.ToUpper(f)
	}
	toIdx := fieldIndex(upper, "TO")
	if toIdx < 0 {
		return nil, false, nil
	}
	byIdx := fieldIndex(upper, "BY")
	toEnd := len(fields)
	if byIdx > 0 {
		toEnd = byIdx
	}

	from, err := parseControlExpr(strings.Join(fields[2:toIdx], " "))
	if err != nil {
		return nil, true, fmt.Errorf("control clause %q: %w", cc, err)
	}
	to, err := parseControlExpr(strings.Join(fields[toIdx+1:toEnd], " "))
	if err != nil {
		return nil, true, fmt.Errorf("control clause %q: %w", cc, err)
	}
	var step *parser.Expr
	if byIdx > 0 {
		step, err = parseControlExpr(strings.Join(fields[byIdx+1:], " "))
		if err != nil {
			return nil, true, fmt.Errorf("control clause %q: %w", cc, err)
		}
	}
	return &doControl{varName: fields[0], from: from, to: to, step: step}, true, nil
}

func fieldIndex(fields []string, key string) int {
	for i, f := range fields {
		if f == key {
			return i
		}
	}
	return -1
}

func parseControlExpr(text string) (*parser.Expr, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty sub-expression")
	}
	lex := parser.NewLexer(parser.NewSliceReader([]string{text}))
	e, _, err := parser.NewExprParser(lex).Parse()
	return e, err
}

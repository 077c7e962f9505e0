// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import (
	"fmt"
	"strings"
)

// InstructionKind enumerates the clause types translate() recognises
// (spec.md §4.4.2). Expression-only clauses (assignments, message sends)
// are InstrExpression; everything else is a keyword instruction.
//
// Full DO/LOOP iteration-control-clause grammar (DO i=1 TO n BY s,
// REPEAT, WHILE/UNTIL, ...) is beyond what this package parses: spec.md
// §1's Non-goals exclude "defining the surface Rexx language grammar in
// full", so DO/LOOP here are recognised as block openers only, with
// their control clause retained as unparsed Source text on the
// Instruction for a higher layer to interpret.
type InstructionKind int

const (
	InstrExpression InstructionKind = iota
	InstrIf
	InstrElse
	InstrDo
	InstrLoop
	InstrSelect
	InstrWhen
	InstrOtherwise
	InstrEnd
	InstrCall
	InstrSignal
	InstrLabel
	InstrReturn
	InstrExit
	InstrSay
)

// Instruction is one node of the graph translate() builds. Block
// instructions (If/Do/Loop/Select/When) own a Body of child
// instructions.
type Instruction struct {
	Kind  InstructionKind
	Label string // for InstrLabel; also the trapped condition name for CALL/SIGNAL ON|OFF
	Expr  *Expr
	Body  []*Instruction

	// Else is populated only for InstrIf, once a following ELSE clause is
	// matched to it.
	Else []*Instruction

	// Unresolved, for InstrCall/InstrSignal, is the target name pending
	// the deferred resolution sweep (spec.md §4.4.2: "every CALL/SIGNAL
	// ... is matched against the now-complete label map"). For the
	// CALL/SIGNAL ON|OFF trap-registration form, Unresolved instead holds
	// the literal "ON" or "OFF".
	Unresolved string
	Resolved   *Instruction // filled in once resolution finds a matching label

	// ControlClause is the unparsed remainder of a DO/LOOP clause after
	// the keyword (spec.md Non-goals: full iteration grammar is out of
	// scope for this package).
	ControlClause string

	Line int
}

// openKind distinguishes the handful of block-opener shapes END must
// match against (spec.md §4.4.2: "END checks the type of the matched
// opener... mismatched yields a specific error per opener category").
type openKind int

const (
	openDo openKind = iota
	openLoop
	openSelect
	openOtherwise
	openIfThen // a pending IF-THEN/WHEN-THEN awaiting its single-clause body
)

// pendingBlock is one entry on translate()'s control stack.
type pendingBlock struct {
	kind openKind
	instr *Instruction // the owner whose Body/Else receives the consumed clause(s)

	// elseOf is set only for an openIfThen block created to capture an
	// ELSE's single body clause; the consumed clause is appended to
	// elseOf.Else instead of instr.Body.
	elseOf *Instruction
}

// Package is the result of parsing one compilation unit: the top-level
// instruction sequence and the label map (spec.md §4.4.2).
type Package struct {
	Instructions []*Instruction
	Labels       map[string]*Instruction

	// MaxStack is the high-water mark of the evaluation stack this code
	// block's expressions need (spec.md §3), computed by Translate once
	// the whole instruction graph is built.
	MaxStack int
	// VariableSlots is the number of simple-variable slots this code
	// block's Dictionary handed out (spec.md §4.4.4).
	VariableSlots int

	// Directives, Routines, Methods, and Classes are populated by
	// ParseProgram once the trailing '::' directives (spec.md §4.4.5) have
	// been read; a Package built by Translate alone (no directives in the
	// source) leaves them nil.
	Directives []*Directive
	Routines   map[string]*Directive
	Methods    map[string]*Directive
	Classes    []*Directive

	pendingRefs []*Instruction
}

// Translator drives translate() (spec.md §4.4.2) over a Lexer, producing
// a Package.
type Translator struct {
	lex  *Lexer
	dict *Dictionary
	pkg  *Package

	stack []*pendingBlock

	// lastIf/lastIfDepth track the most recently completed IF-THEN body,
	// so a following ELSE (at the same nesting depth) can be matched to
	// it, and so any other clause encountered at that same depth first
	// invalidates the pending ELSE match (spec.md §4.4.2).
	lastIf      *Instruction
	lastIfDepth int
}

// NewTranslator creates a translator reading clauses from lex, interning
// variables into dict.
func NewTranslator(lex *Lexer, dict *Dictionary) *Translator {
	return &Translator{
		lex:  lex,
		dict: dict,
		pkg:  &Package{Labels: make(map[string]*Instruction)},
	}
}

// Translate runs the full driver loop: one clause at a time until EOF,
// then the deferred call-resolution sweep (spec.md §4.4.2).
func (t *Translator) Translate() (*Package, error) {
	for {
		instr, eof, err := t.translateClause()
		if err != nil {
			return nil, err
		}
		if eof {
			break
		}
		if instr != nil {
			if err := t.attach(instr); err != nil {
				return nil, err
			}
		}
	}
	if len(t.stack) > 0 {
		return nil, fmt.Errorf("unclosed block still open at end of source")
	}
	t.resolveCalls()
	t.pkg.MaxStack = maxStackDepth(t.pkg.Instructions)
	t.pkg.VariableSlots = t.dict.SlotCount()
	return t.pkg, nil
}

// maxStackDepth walks the whole instruction graph (including nested
// Body/Else blocks) computing the largest exprStackDepth any single
// clause's expression needs (spec.md §3).
func maxStackDepth(instrs []*Instruction) int {
	best := 0
	for _, instr := range instrs {
		if d := exprStackDepth(instr.Expr); d > best {
			best = d
		}
		if d := maxStackDepth(instr.Body); d > best {
			best = d
		}
		if d := maxStackDepth(instr.Else); d > best {
			best = d
		}
	}
	return best
}

// attach implements the control-stack rules of spec.md §4.4.2.
func (t *Translator) attach(instr *Instruction) error {
	if instr.Kind == InstrLabel {
		if _, exists := t.pkg.Labels[instr.Label]; !exists {
			t.pkg.Labels[instr.Label] = instr // "first definition wins"
		}
		t.appendToCurrent(instr)
		return nil
	}

	if instr.Kind == InstrElse {
		if t.lastIf == nil {
			return fmt.Errorf("line %d: ELSE without a matching IF/THEN", instr.Line)
		}
		target := t.lastIf
		t.lastIf = nil
		t.stack = append(t.stack, &pendingBlock{kind: openIfThen, elseOf: target})
		return nil
	}

	if instr.Kind == InstrWhen {
		return t.handleWhen(instr)
	}
	if instr.Kind == InstrOtherwise {
		return t.handleOtherwise(instr)
	}
	if instr.Kind == InstrEnd {
		return t.handleEnd()
	}

	oldLastIf, oldDepth := t.lastIf, t.lastIfDepth
	var consumedIf *Instruction
	var attachDepth int

	if len(t.stack) > 0 && t.stack[len(t.stack)-1].kind == openIfThen {
		top := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		attachDepth = len(t.stack)
		if top.elseOf != nil {
			top.elseOf.Else = append(top.elseOf.Else, instr)
		} else {
			top.instr.Body = append(top.instr.Body, instr)
			if top.instr.Kind == InstrIf {
				consumedIf = top.instr
			}
		}
	} else {
		t.appendToCurrent(instr)
		attachDepth = len(t.stack)
	}

	switch instr.Kind {
	case InstrDo:
		t.stack = append(t.stack, &pendingBlock{kind: openDo, instr: instr})
	case InstrLoop:
		t.stack = append(t.stack, &pendingBlock{kind: openLoop, instr: instr})
	case InstrSelect:
		t.stack = append(t.stack, &pendingBlock{kind: openSelect, instr: instr})
	case InstrIf:
		t.stack = append(t.stack, &pendingBlock{kind: openIfThen, instr: instr})
	}

	if consumedIf != nil {
		t.lastIf, t.lastIfDepth = consumedIf, attachDepth
	} else if oldLastIf != nil && attachDepth == oldDepth {
		t.lastIf = nil
	}
	return nil
}

func (t *Translator) appendToCurrent(instr *Instruction) {
	if len(t.stack) == 0 {
		t.pkg.Instructions = append(t.pkg.Instructions, instr)
		return
	}
	top := t.stack[len(t.stack)-1].instr
	top.Body = append(top.Body, instr)
}

// handleWhen validates WHEN is only used directly under a SELECT, then
// gives it THEN handling identical to IF (spec.md §4.4.2).
func (t *Translator) handleWhen(when *Instruction) error {
	if len(t.stack) == 0 || t.stack[len(t.stack)-1].kind != openSelect {
		return fmt.Errorf("line %d: WHEN without an enclosing SELECT", when.Line)
	}
	t.appendToCurrent(when)
	t.stack = append(t.stack, &pendingBlock{kind: openIfThen, instr: when})
	return nil
}

// handleOtherwise validates OTHERWISE is only used directly under a
// SELECT and replaces it on the stack until its matching END (spec.md
// §4.4.2).
func (t *Translator) handleOtherwise(oth *Instruction) error {
	if len(t.stack) == 0 || t.stack[len(t.stack)-1].kind != openSelect {
		return fmt.Errorf("line %d: OTHERWISE without an enclosing SELECT", oth.Line)
	}
	t.appendToCurrent(oth)
	t.stack[len(t.stack)-1] = &pendingBlock{kind: openOtherwise, instr: oth}
	return nil
}

// handleEnd matches END against the stack top's opener category,
// reporting a specific error per category on mismatch (spec.md §4.4.2).
func (t *Translator) handleEnd() error {
	if len(t.stack) == 0 {
		return fmt.Errorf("END without a matching DO/LOOP/SELECT")
	}
	top := t.stack[len(t.stack)-1]
	switch top.kind {
	case openDo, openLoop, openOtherwise, openSelect:
		// A SELECT with no OTHERWISE closes directly from openSelect: its
		// WHEN clauses each pushed and popped their own openIfThen entry
		// as their THEN-body was consumed, so the stack is already back
		// to openSelect by the time END is reached (spec.md §4.4.2).
		t.stack = t.stack[:len(t.stack)-1]
		return nil
	case openIfThen:
		return fmt.Errorf("END cannot close an IF/THEN or WHEN/THEN clause")
	default:
		return fmt.Errorf("END: unrecognised opener on control stack")
	}
}

// resolveCalls runs the deferred sweep of spec.md §4.4.2: every plain
// CALL/SIGNAL recorded during parsing is matched against the now-
// complete label map. Names that remain unresolved are left as-is for
// the caller to try as built-ins and finally external calls at
// execution time.
func (t *Translator) resolveCalls() {
	for _, instr := range t.pkg.pendingRefs {
		if target, ok := t.pkg.Labels[instr.Unresolved]; ok {
			instr.Resolved = target
		}
	}
}

// --- clause recognition -----------------------------------------------

var clauseKeywords = map[string]bool{
	"IF": true, "THEN": true, "ELSE": true, "DO": true, "LOOP": true,
	"SELECT": true, "WHEN": true, "OTHERWISE": true, "END": true,
	"CALL": true, "SIGNAL": true, "RETURN": true, "EXIT": true, "SAY": true,
}

func isClauseKeyword(tok Token) bool {
	return tok.Kind == TokSymbol && clauseKeywords[strings.ToUpper(tok.Text)]
}

// translateClause reads and classifies exactly one clause, returning its
// Instruction (nil for an empty clause), or eof=true at end of input.
func (t *Translator) translateClause() (*Instruction, bool, error) {
	first := t.nextNonBlank()
	switch first.Kind {
	case TokEOF:
		return nil, true, nil
	case TokSemicolon:
		return nil, false, nil
	case TokDirective:
		// A '::' directive ends the current code block without being
		// consumed (spec.md §4.4.5: "After the first code block, ::CLASS
		// ... directives configure the Package"); ParseDirectives picks up
		// from here, and the same rule lets a ::ROUTINE/::METHOD body
		// (itself translated by a fresh Translator) stop cleanly at the
		// next directive too.
		t.lex.Reclaim(first)
		return nil, true, nil
	}

	if first.Kind == TokSymbol {
		switch strings.ToUpper(first.Text) {
		case "IF":
			return t.parseIfOrWhen(InstrIf, first.Line)
		case "WHEN":
			return t.parseIfOrWhen(InstrWhen, first.Line)
		case "ELSE":
			return &Instruction{Kind: InstrElse, Line: first.Line}, false, nil
		case "DO":
			return t.parseBlockOpener(InstrDo, first.Line)
		case "LOOP":
			return t.parseBlockOpener(InstrLoop, first.Line)
		case "SELECT":
			t.consumeToSemicolon()
			return &Instruction{Kind: InstrSelect, Line: first.Line}, false, nil
		case "OTHERWISE":
			t.consumeToSemicolon()
			return &Instruction{Kind: InstrOtherwise, Line: first.Line}, false, nil
		case "END":
			t.consumeToSemicolon()
			return &Instruction{Kind: InstrEnd, Line: first.Line}, false, nil
		case "CALL":
			return t.parseCallOrSignal(InstrCall, first.Line)
		case "SIGNAL":
			return t.parseCallOrSignal(InstrSignal, first.Line)
		case "RETURN":
			return t.parseReturnOrExit(InstrReturn, first.Line)
		case "EXIT":
			return t.parseReturnOrExit(InstrExit, first.Line)
		case "SAY":
			return t.parseReturnOrExit(InstrSay, first.Line)
		}

		if label, ok := t.tryParseLabel(first); ok {
			return label, false, nil
		}
	}

	t.lex.Reclaim(first)
	return t.parseExpressionClause(first.Line)
}

// tryParseLabel recognises "SYMBOL :" as the entire clause (spec.md
// §4.4.2's label hoisting). first has already been consumed; on a
// non-match every consumed token is pushed back.
func (t *Translator) tryParseLabel(first Token) (*Instruction, bool) {
	colon := t.lex.Next()
	if colon.Kind != TokColon {
		t.lex.Reclaim(colon)
		return nil, false
	}
	after := t.nextNonBlank()
	if after.Kind == TokSemicolon {
		return &Instruction{Kind: InstrLabel, Label: strings.ToUpper(first.Text), Line: first.Line}, true
	}
	if after.Kind == TokEOF {
		t.lex.Reclaim(after)
		return &Instruction{Kind: InstrLabel, Label: strings.ToUpper(first.Text), Line: first.Line}, true
	}
	// Not a label after all (e.g. a qualified-name expression ns:name):
	// push everything back in original order.
	t.lex.Reclaim(after)
	t.lex.Reclaim(colon)
	return nil, false
}

// parseIfOrWhen parses "<cond> THEN", stopping at THEN without consuming
// whatever follows it: that remainder becomes the next clause, which
// attach()'s control-stack logic consumes as the body (spec.md §4.4.2).
func (t *Translator) parseIfOrWhen(kind InstructionKind, line int) (*Instruction, bool, error) {
	ep := NewExprParser(t.lex).WithDictionary(t.dict)
	cond, closeTok, err := ep.Parse()
	if err != nil {
		return nil, false, err
	}
	if !(closeTok.Kind == TokSymbol && strings.EqualFold(closeTok.Text, "THEN")) {
		return nil, false, fmt.Errorf("line %d: expected THEN, got %v", line, closeTok)
	}
	return &Instruction{Kind: kind, Expr: cond, Line: line}, false, nil
}

// parseBlockOpener recognises DO/LOOP, retaining the (unparsed) control
// clause text per this package's Non-goals note on iteration grammar.
func (t *Translator) parseBlockOpener(kind InstructionKind, line int) (*Instruction, bool, error) {
	var b strings.Builder
	for {
		tok := t.lex.Next()
		if tok.Kind == TokSemicolon || tok.Kind == TokEOF {
			if tok.Kind == TokEOF {
				t.lex.Reclaim(tok)
			}
			break
		}
		if tok.Kind != TokBlank {
			b.WriteString(tok.Text)
			b.WriteByte(' ')
		}
	}
	return &Instruction{Kind: kind, ControlClause: strings.TrimSpace(b.String()), Line: line}, false, nil
}

// parseCallOrSignal recognises both the CALL/SIGNAL label/routine form
// and the CALL/SIGNAL ON|OFF condition-trap form (spec.md §4.4.2 /
// §4.2.3). Arguments to a CALL target are not parsed here: argument
// marshalling is the nativeactivation package's concern.
func (t *Translator) parseCallOrSignal(kind InstructionKind, line int) (*Instruction, bool, error) {
	name := t.nextNonBlank()
	if name.Kind != TokSymbol {
		return nil, false, fmt.Errorf("line %d: CALL/SIGNAL requires a target name", line)
	}
	instr := &Instruction{Kind: kind, Line: line}
	upper := strings.ToUpper(name.Text)
	if upper == "ON" || upper == "OFF" {
		cond := t.nextNonBlank()
		instr.Label = strings.ToUpper(cond.Text)
		instr.Unresolved = upper
		t.consumeToSemicolon()
		return instr, false, nil
	}
	instr.Unresolved = upper
	t.consumeToSemicolon()
	t.pkg.pendingRefs = append(t.pkg.pendingRefs, instr)
	return instr, false, nil
}

func (t *Translator) parseReturnOrExit(kind InstructionKind, line int) (*Instruction, bool, error) {
	peek := t.nextNonBlank()
	if peek.Kind == TokSemicolon {
		return &Instruction{Kind: kind, Line: line}, false, nil
	}
	if peek.Kind == TokEOF {
		t.lex.Reclaim(peek)
		return &Instruction{Kind: kind, Line: line}, false, nil
	}
	t.lex.Reclaim(peek)
	ep := NewExprParser(t.lex).WithDictionary(t.dict)
	expr, _, err := ep.Parse()
	if err != nil {
		return nil, false, err
	}
	return &Instruction{Kind: kind, Expr: expr, Line: line}, false, nil
}

func (t *Translator) parseExpressionClause(line int) (*Instruction, bool, error) {
	ep := NewExprParser(t.lex).WithDictionary(t.dict)
	expr, _, err := ep.Parse()
	if err != nil {
		return nil, false, err
	}
	return &Instruction{Kind: InstrExpression, Expr: expr, Line: line}, false, nil
}

func (t *Translator) nextNonBlank() Token {
	for {
		tok := t.lex.Next()
		if tok.Kind != TokBlank {
			return tok
		}
	}
}

func (t *Translator) consumeToSemicolon() {
	for {
		tok := t.lex.Next()
		if tok.Kind == TokSemicolon {
			return
		}
		if tok.Kind == TokEOF {
			t.lex.Reclaim(tok)
			return
		}
	}
}

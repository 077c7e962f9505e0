// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import (
	"strings"
	"testing"
)

func lex(lines ...string) *Lexer { return NewLexer(NewSliceReader(lines)) }

func TestLexerTokenizesSimpleAssignment(t *testing.T) {
	l := lex("x = 1 + 2")
	var kinds []TokenKind
	for {
		tok := l.Next()
		if tok.Kind == TokEOF {
			break
		}
		kinds = append(kinds, tok.Kind)
	}
	want := []TokenKind{TokSymbol, TokBlank, TokOperator, TokBlank, TokNumber, TokBlank, TokOperator, TokBlank, TokNumber, TokSemicolon}
	if len(kinds) != len(want) {
		t.Fatalf("got %d tokens %v, want %d", len(kinds), kinds, len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestLexerReclaim(t *testing.T) {
	l := lex("abc")
	first := l.Next()
	l.Reclaim(first)
	second := l.Next()
	if first.Text != second.Text || first.Kind != second.Kind {
		t.Fatalf("expected reclaim to replay the same token, got %v then %v", first, second)
	}
}

func TestExprParserPrecedence(t *testing.T) {
	l := lex("1 + 2 * 3;")
	ep := NewExprParser(l)
	e, _, err := ep.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	// '+' binds loosest among arithmetic operators here since '*' binds
	// tighter, so the top node should be '+' with a '*' on the right.
	if e.Text != "+" {
		t.Fatalf("expected top-level '+', got %q", e.Text)
	}
	if e.Right == nil || e.Right.Text != "*" {
		t.Fatalf("expected right operand to be a '*' node, got %#v", e.Right)
	}
}

func TestExprParserParentheses(t *testing.T) {
	l := lex("(1 + 2) * 3;")
	ep := NewExprParser(l)
	e, _, err := ep.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if e.Text != "*" {
		t.Fatalf("expected top-level '*', got %q", e.Text)
	}
	if e.Left == nil || e.Left.Kind != ExprParen {
		t.Fatalf("expected left operand to be a parenthesised group, got %#v", e.Left)
	}
}

func TestExprParserFunctionCall(t *testing.T) {
	l := lex("max(1, 2, 3);")
	ep := NewExprParser(l)
	e, _, err := ep.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if e.Kind != ExprFunctionCall || e.Text != "max" {
		t.Fatalf("expected function call node for 'max', got %#v", e)
	}
	if len(e.Args) != 3 {
		t.Fatalf("expected 3 arguments, got %d", len(e.Args))
	}
}

func TestExprParserSparseArgsTrimTrailingNulls(t *testing.T) {
	l := lex("f(1,,3,,);")
	ep := NewExprParser(l)
	e, _, err := ep.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(e.Args) != 3 {
		t.Fatalf("expected trailing nulls trimmed to 3 args, got %d: %#v", len(e.Args), e.Args)
	}
	if e.Args[1] != nil {
		t.Fatalf("expected omitted second argument to be nil")
	}
}

func TestExprParserMessageSend(t *testing.T) {
	l := lex("obj~name;")
	ep := NewExprParser(l)
	e, _, err := ep.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if e.Kind != ExprMessageSend || e.Text != "name" {
		t.Fatalf("expected message send to 'name', got %#v", e)
	}
	if e.Left == nil || e.Left.Text != "obj" {
		t.Fatalf("expected receiver 'obj', got %#v", e.Left)
	}
}

func TestExprParserIndexMessage(t *testing.T) {
	l := lex("a[1, 2];")
	ep := NewExprParser(l)
	e, _, err := ep.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if e.Kind != ExprIndex {
		t.Fatalf("expected index expression, got %#v", e)
	}
	if len(e.Args) != 2 {
		t.Fatalf("expected 2 index args, got %d", len(e.Args))
	}
}

func TestExprParserQualifiedName(t *testing.T) {
	l := lex("ns:name;")
	ep := NewExprParser(l)
	e, _, err := ep.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if e.Kind != ExprQualified || e.NS != "ns" || e.Text != "name" {
		t.Fatalf("expected qualified reference ns:name, got %#v", e)
	}
}

func TestExprParserImplicitConcatenation(t *testing.T) {
	l := lex("'a' 'b';")
	ep := NewExprParser(l)
	e, _, err := ep.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if e.Kind != ExprConcat {
		t.Fatalf("expected implicit concatenation node, got %#v", e)
	}
}

func TestDictionaryInternsSimpleVariable(t *testing.T) {
	d := NewDictionary(false)
	r1 := d.AddSimpleVariable("foo")
	r2 := d.AddSimpleVariable("FOO")
	if r1 != r2 {
		t.Fatalf("expected case-insensitive interning to return the same retriever")
	}
	if r1.Slot == 0 {
		t.Fatalf("expected a nonzero slot outside interpret mode")
	}
}

func TestDictionaryInterpretModeForcesSlotZero(t *testing.T) {
	d := NewDictionary(true)
	r := d.AddSimpleVariable("x")
	if r.Slot != 0 {
		t.Fatalf("expected slot 0 under interpret mode, got %d", r.Slot)
	}
}

func TestDictionaryCompoundVariable(t *testing.T) {
	d := NewDictionary(false)
	r := d.AddCompoundVariable("stem.a.1")
	if r.Compound == nil {
		t.Fatalf("expected a compound retriever")
	}
	if !r.Compound.Stem.Stem {
		t.Fatalf("expected the stem part to be marked as a stem")
	}
	if len(r.Compound.Segments) != 2 {
		t.Fatalf("expected 2 tail segments, got %d", len(r.Compound.Segments))
	}
	if r.Compound.Segments[0].Variable == nil {
		t.Fatalf("expected the alphabetic segment 'a' to intern as a variable")
	}
	if r.Compound.Segments[1].Variable != nil || r.Compound.Segments[1].Literal != "1" {
		t.Fatalf("expected the numeric segment '1' to be kept literal, got %#v", r.Compound.Segments[1])
	}
}

func TestTranslateSimpleIfElse(t *testing.T) {
	l := lex(
		"if x then",
		"  y = 1",
		"else",
		"  y = 2",
	)
	tr := NewTranslator(l, NewDictionary(false))
	pkg, err := tr.Translate()
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(pkg.Instructions) != 1 {
		t.Fatalf("expected 1 top-level instruction, got %d", len(pkg.Instructions))
	}
	ifInstr := pkg.Instructions[0]
	if ifInstr.Kind != InstrIf {
		t.Fatalf("expected top-level IF, got %v", ifInstr.Kind)
	}
	if len(ifInstr.Body) != 1 || ifInstr.Body[0].Kind != InstrExpression {
		t.Fatalf("expected IF body to be a single expression, got %#v", ifInstr.Body)
	}
	if len(ifInstr.Else) != 1 || ifInstr.Else[0].Kind != InstrExpression {
		t.Fatalf("expected ELSE body to be a single expression, got %#v", ifInstr.Else)
	}
}

func TestTranslateIfThenDoEndThenElse(t *testing.T) {
	l := lex(
		"if x then do",
		"  y = 1",
		"  z = 2",
		"end",
		"else",
		"  y = 3",
	)
	tr := NewTranslator(l, NewDictionary(false))
	pkg, err := tr.Translate()
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	ifInstr := pkg.Instructions[0]
	if len(ifInstr.Body) != 1 || ifInstr.Body[0].Kind != InstrDo {
		t.Fatalf("expected IF body to be a DO block, got %#v", ifInstr.Body)
	}
	doBlock := ifInstr.Body[0]
	if len(doBlock.Body) != 2 {
		t.Fatalf("expected 2 statements inside DO block, got %d", len(doBlock.Body))
	}
	if len(ifInstr.Else) != 1 {
		t.Fatalf("expected ELSE to still match the outer IF after a DO...END body, got %#v", ifInstr.Else)
	}
}

func TestTranslateElseWithoutIfIsError(t *testing.T) {
	l := lex("else", "y = 1")
	tr := NewTranslator(l, NewDictionary(false))
	if _, err := tr.Translate(); err == nil {
		t.Fatalf("expected error for ELSE without a matching IF")
	}
}

func TestTranslateSelectWhenOtherwise(t *testing.T) {
	l := lex(
		"select",
		"  when x then",
		"    y = 1",
		"  otherwise",
		"    y = 2",
		"end",
	)
	tr := NewTranslator(l, NewDictionary(false))
	pkg, err := tr.Translate()
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	sel := pkg.Instructions[0]
	if sel.Kind != InstrSelect {
		t.Fatalf("expected top-level SELECT, got %v", sel.Kind)
	}
	if len(sel.Body) != 2 {
		t.Fatalf("expected SELECT body to contain WHEN and OTHERWISE, got %d", len(sel.Body))
	}
	when := sel.Body[0]
	if when.Kind != InstrWhen || len(when.Body) != 1 {
		t.Fatalf("expected WHEN with a single-clause body, got %#v", when)
	}
	oth := sel.Body[1]
	if oth.Kind != InstrOtherwise || len(oth.Body) != 1 {
		t.Fatalf("expected OTHERWISE with a single-clause body, got %#v", oth)
	}
}

func TestTranslateEndMismatchErrors(t *testing.T) {
	l := lex("if x then", "end")
	tr := NewTranslator(l, NewDictionary(false))
	if _, err := tr.Translate(); err == nil {
		t.Fatalf("expected an error for END closing an IF/THEN clause")
	}
}

func TestTranslateSelectWithOnlyWhenClausesNoOtherwise(t *testing.T) {
	l := lex(
		"select",
		"  when a then",
		"    x = 1",
		"  when b then",
		"    x = 2",
		"end",
	)
	tr := NewTranslator(l, NewDictionary(false))
	pkg, err := tr.Translate()
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	sel := pkg.Instructions[0]
	if len(sel.Body) != 2 {
		t.Fatalf("expected 2 WHEN clauses under SELECT, got %d", len(sel.Body))
	}
}

func TestTranslateLabelHoisting(t *testing.T) {
	l := lex("start:", "call sub", "sub:", "return")
	tr := NewTranslator(l, NewDictionary(false))
	pkg, err := tr.Translate()
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if _, ok := pkg.Labels["START"]; !ok {
		t.Fatalf("expected START label to be hoisted")
	}
	if _, ok := pkg.Labels["SUB"]; !ok {
		t.Fatalf("expected SUB label to be hoisted")
	}
}

func TestTranslateDeferredCallResolution(t *testing.T) {
	l := lex("call sub", "sub:", "return")
	tr := NewTranslator(l, NewDictionary(false))
	pkg, err := tr.Translate()
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	var call *Instruction
	for _, instr := range pkg.Instructions {
		if instr.Kind == InstrCall {
			call = instr
		}
	}
	if call == nil {
		t.Fatalf("expected a CALL instruction")
	}
	if call.Resolved == nil || call.Resolved.Kind != InstrLabel {
		t.Fatalf("expected CALL to resolve to the SUB label, got %#v", call.Resolved)
	}
}

func TestTranslateUnresolvedCallLeftForRuntime(t *testing.T) {
	l := lex("call undefinedRoutine")
	tr := NewTranslator(l, NewDictionary(false))
	pkg, err := tr.Translate()
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	call := pkg.Instructions[0]
	if call.Resolved != nil {
		t.Fatalf("expected no label match, got %#v", call.Resolved)
	}
	if call.Unresolved != "UNDEFINEDROUTINE" {
		t.Fatalf("expected unresolved name preserved, got %q", call.Unresolved)
	}
}

func TestParseDirectivesAndClassTopologicalSort(t *testing.T) {
	l := lex(
		"::CLASS Dog SUBCLASS Animal",
		"::CLASS Animal",
		"::CLASS Puppy SUBCLASS Dog",
	)
	dirs, err := ParseDirectives(l)
	if err != nil {
		t.Fatalf("ParseDirectives failed: %v", err)
	}
	var classes []*Directive
	for _, d := range dirs {
		if d.Kind == DirClass {
			classes = append(classes, d)
		}
	}
	if len(classes) != 3 {
		t.Fatalf("expected 3 class directives, got %d", len(classes))
	}
	sorted, err := SortClasses(classes)
	if err != nil {
		t.Fatalf("SortClasses failed: %v", err)
	}
	pos := map[string]int{}
	for i, c := range sorted {
		pos[strings.ToUpper(c.Name)] = i
	}
	if pos["ANIMAL"] > pos["DOG"] || pos["DOG"] > pos["PUPPY"] {
		t.Fatalf("expected install order Animal, Dog, Puppy; got %v", sorted)
	}
}

func TestSortClassesDetectsCycle(t *testing.T) {
	classes := []*Directive{
		{Name: "A", Depends: []string{"B"}},
		{Name: "B", Depends: []string{"A"}},
	}
	_, err := SortClasses(classes)
	if err == nil {
		t.Fatalf("expected a cycle error")
	}
	if _, ok := err.(*ErrClassCycle); !ok {
		t.Fatalf("expected *ErrClassCycle, got %T", err)
	}
}

func TestTranslateComputesMaxStackAndVariableSlots(t *testing.T) {
	l := lex(
		"a = 1",
		"b = 2",
		"c = a + b * (a - b)",
	)
	pkg, err := NewTranslator(l, NewDictionary(false)).Translate()
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if pkg.VariableSlots != 3 {
		t.Fatalf("expected 3 variable slots (a, b, c), got %d", pkg.VariableSlots)
	}
	// c's RHS is "a + b * (a - b)": "a - b" needs 2 slots by
	// Sethi-Ullman's equal-depth rule, and "b * (...)" and the outer "+"
	// keep that at 2 since their other operand needs only 1.
	if pkg.MaxStack < 2 {
		t.Fatalf("expected MaxStack >= 2 for a nested arithmetic expression, got %d", pkg.MaxStack)
	}
}

func TestTranslateStopsAtDirectiveWithoutConsumingIt(t *testing.T) {
	l := lex(
		"say 1",
		"::ROUTINE f",
		"return 2",
	)
	pkg, err := NewTranslator(l, NewDictionary(false)).Translate()
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(pkg.Instructions) != 1 || pkg.Instructions[0].Kind != InstrSay {
		t.Fatalf("expected exactly one SAY instruction in the main block, got %#v", pkg.Instructions)
	}
	dirs, err := ParseDirectives(l)
	if err != nil {
		t.Fatalf("ParseDirectives failed: %v", err)
	}
	if len(dirs) != 1 || dirs[0].Kind != DirRoutine || dirs[0].Name != "f" {
		t.Fatalf("expected one ::ROUTINE f directive, got %#v", dirs)
	}
	if len(dirs[0].Body) != 1 || dirs[0].Body[0].Kind != InstrReturn {
		t.Fatalf("expected routine body to hold one RETURN instruction, got %#v", dirs[0].Body)
	}
}

func TestParseProgramIndexesRoutinesAndSortsClasses(t *testing.T) {
	l := lex(
		"say 'hi'",
		"::ROUTINE double",
		"  arg n",
		"  return n * 2",
		"::CLASS Dog SUBCLASS Animal",
		"::CLASS Animal",
	)
	pkg, err := ParseProgram(l, NewDictionary(false))
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	if _, ok := pkg.Routines["DOUBLE"]; !ok {
		t.Fatalf("expected DOUBLE routine to be indexed, got %v", pkg.Routines)
	}
	if len(pkg.Classes) != 2 || strings.ToUpper(pkg.Classes[0].Name) != "ANIMAL" {
		t.Fatalf("expected Animal before Dog in sorted class order, got %#v", pkg.Classes)
	}
}

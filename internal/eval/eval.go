// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package eval walks the graph internal/parser builds (spec.md §4.4) and
// drives it through one activity (spec.md §4.2), the way a real
// interpreter's RexxInstruction::execute chain does against its own
// RexxActivation — except here there is exactly one concrete Interp
// type instead of one execute() override per Instruction subclass,
// dispatching on Instruction.Kind instead of on the vtable.
package eval

import (
	"fmt"
	"io"

	"github.com/oorexx/corexx/internal/activity"
	"github.com/oorexx/corexx/internal/parser"
	"github.com/oorexx/corexx/internal/value"
)

// ctrlKind tags what a runBlock/execInstr call is asking its caller to
// do next, the Go stand-in for the source's C++ longjmp-style RETURN /
// EXIT / SIGNAL unwinds.
type ctrlKind int

const (
	ctrlNone ctrlKind = iota
	ctrlReturn
	ctrlExit
	ctrlSignal
)

// ctrl carries a control-flow signal out of execInstr/evalExpr: the
// value a RETURN/EXIT carried, or the label a SIGNAL jump must resume
// at.
type ctrl struct {
	kind   ctrlKind
	value  value.Ref
	target *parser.Instruction
}

// Interp drives one code block's instruction sequence against one
// activity. A ::ROUTINE invocation runs in a fresh Interp with its own
// VarScope (spec.md §4.4.4: routines get an independent variable pool);
// an internal-label CALL instead reuses the caller's own Interp, since
// internal calls share the caller's variables.
type Interp struct {
	act    *activity.Activity
	pkg    *parser.Package
	vars   *VarScope
	args   []value.Ref
	out    io.Writer
	source string
}

// NewInterp creates the top-level interpreter for pkg, Acquire'd against
// act and writing SAY output to out. source names the program for
// traceback frames (spec.md §4.2.2).
func NewInterp(act *activity.Activity, pkg *parser.Package, out io.Writer, source string) *Interp {
	return &Interp{act: act, pkg: pkg, vars: NewVarScope(), out: out, source: source}
}

// NewInterpWithVars is NewInterp but for a driver (the REPL) that keeps
// one VarScope alive across several otherwise-independent Packages, so a
// variable set on one line is still visible on the next.
func NewInterpWithVars(act *activity.Activity, pkg *parser.Package, vars *VarScope, out io.Writer, source string) *Interp {
	return &Interp{act: act, pkg: pkg, vars: vars, out: out, source: source}
}

// EvalLines runs instrs against this Interp's state without acquiring
// the kernel lock or pushing/popping a program frame itself: for a
// driver that already holds both once for its whole session (spec.md
// §4.2.2), rather than per incremental chunk the way Run's one-shot
// top-level entry point does.
func (it *Interp) EvalLines(instrs []*parser.Instruction) (rc int, halted bool, err error) {
	c, err := it.runBlock(instrs)
	if err != nil {
		return conditionRC(it.act.Condition()), true, err
	}
	switch c.kind {
	case ctrlExit, ctrlReturn:
		n, _ := numberOf(c.value)
		return int(n), true, nil
	default:
		return 0, false, nil
	}
}

// Run executes the package's main code block under the kernel lock
// (spec.md §4.2.1), returning the numeric code a shell invocation would
// see: 0 on falling off the end, the coerced operand of an unconditional
// RETURN/EXIT, or an untrapped condition's exit code (spec.md §7).
func (it *Interp) Run() int {
	it.act.Acquire()
	defer it.act.Release()
	it.act.PushFrame(activity.NewFrame(activity.FrameProgram, "MAIN", it.source))
	defer it.act.PopFrame(false)

	c, err := it.runBlock(it.pkg.Instructions)
	if err != nil {
		fmt.Fprintln(it.out, errorMessage(it.act, err))
		return conditionRC(it.act.Condition())
	}
	switch c.kind {
	case ctrlExit, ctrlReturn:
		n, _ := numberOf(c.value)
		return int(n)
	default:
		return 0
	}
}

func errorMessage(act *activity.Activity, err error) string {
	if cond := act.Condition(); cond != nil {
		return cond.String()
	}
	return err.Error()
}

// conditionRC maps an untrapped condition's name to the RC class
// spec.md §7 assigns it.
func conditionRC(cond *activity.Condition) int {
	if cond == nil {
		return 1
	}
	switch cond.Name {
	case activity.CondFailure:
		return 2
	case activity.CondHalt:
		return 3
	default:
		return 1
	}
}

// runBlock runs instrs in order, following SIGNAL jumps that target a
// label within this same slice (spec.md §4.4.2's label map is per code
// block) and stopping on RETURN/EXIT or a SIGNAL whose target isn't
// found here, which propagates the ctrl to the caller's own block.
func (it *Interp) runBlock(instrs []*parser.Instruction) (ctrl, error) {
	i := 0
	for i < len(instrs) {
		c, err := it.execInstr(instrs[i])
		if err != nil {
			return ctrl{}, err
		}
		switch c.kind {
		case ctrlNone:
			i++
		case ctrlSignal:
			idx := indexOfInstr(instrs, c.target)
			if idx < 0 {
				return c, nil
			}
			i = idx
		default: // ctrlReturn, ctrlExit
			return c, nil
		}
	}
	return ctrl{}, nil
}

func indexOfInstr(instrs []*parser.Instruction, target *parser.Instruction) int {
	for i, instr := range instrs {
		if instr == target {
			return i
		}
	}
	return -1
}

func (it *Interp) execInstr(instr *parser.Instruction) (ctrl, error) {
	switch instr.Kind {
	case parser.InstrExpression:
		return it.execExpression(instr)
	case parser.InstrSay:
		return it.execSay(instr)
	case parser.InstrIf:
		return it.execIf(instr)
	case parser.InstrDo, parser.InstrLoop:
		return it.execDo(instr)
	case parser.InstrSelect:
		return it.execSelect(instr)
	case parser.InstrLabel:
		return ctrl{}, nil
	case parser.InstrCall:
		return it.execCall(instr)
	case parser.InstrSignal:
		return it.execSignal(instr)
	case parser.InstrReturn:
		v, c, err := it.evalOptional(instr.Expr)
		if err != nil || c.kind != ctrlNone {
			return c, err
		}
		return ctrl{kind: ctrlReturn, value: v}, nil
	case parser.InstrExit:
		v, c, err := it.evalOptional(instr.Expr)
		if err != nil || c.kind != ctrlNone {
			return c, err
		}
		return ctrl{kind: ctrlExit, value: v}, nil
	default:
		return ctrl{}, fmt.Errorf("line %d: %v is not yet executed by this interpreter", instr.Line, instr.Kind)
	}
}

func (it *Interp) evalOptional(e *parser.Expr) (value.Ref, ctrl, error) {
	if e == nil {
		return value.NewString(""), ctrl{}, nil
	}
	return it.evalExpr(e)
}

// execExpression tells an assignment clause from a plain expression
// clause the same way spec.md §4.4.2 leaves translate() agnostic to the
// distinction: a top-level binary "=" whose left operand is a bare
// symbol assigns; anything else just evaluates (and discards) its
// value, the way a bare message-send clause does.
func (it *Interp) execExpression(instr *parser.Instruction) (ctrl, error) {
	e := instr.Expr
	if e != nil && e.Kind == parser.ExprBinary && e.Text == "=" &&
		e.Left != nil && e.Left.Kind == parser.ExprSymbol {
		v, c, err := it.evalExpr(e.Right)
		if err != nil || c.kind != ctrlNone {
			return c, err
		}
		it.vars.Set(exprVarName(e.Left), v)
		return ctrl{}, nil
	}
	_, c, err := it.evalExpr(e)
	return c, err
}

func (it *Interp) execSay(instr *parser.Instruction) (ctrl, error) {
	if instr.Expr == nil {
		fmt.Fprintln(it.out)
		return ctrl{}, nil
	}
	v, c, err := it.evalExpr(instr.Expr)
	if err != nil || c.kind != ctrlNone {
		return c, err
	}
	fmt.Fprintln(it.out, stringOf(v))
	return ctrl{}, nil
}

func (it *Interp) execIf(instr *parser.Instruction) (ctrl, error) {
	v, c, err := it.evalExpr(instr.Expr)
	if err != nil || c.kind != ctrlNone {
		return c, err
	}
	if truthy(v) {
		return it.runBlock(instr.Body)
	}
	return it.runBlock(instr.Else)
}

// execSelect runs the first WHEN whose condition is true, or OTHERWISE's
// body if none matched; a SELECT with no matching WHEN and no OTHERWISE
// falls through silently rather than raising NOTMATCH (spec.md Non-goals
// scope out built-in condition raising beyond division-by-zero SYNTAX).
func (it *Interp) execSelect(instr *parser.Instruction) (ctrl, error) {
	for _, w := range instr.Body {
		if w.Kind == parser.InstrOtherwise {
			return it.runBlock(w.Body)
		}
		v, c, err := it.evalExpr(w.Expr)
		if err != nil || c.kind != ctrlNone {
			return c, err
		}
		if truthy(v) {
			return it.runBlock(w.Body)
		}
	}
	return ctrl{}, nil
}

// execDo evaluates a recognised "var = from TO to [BY step]" control
// clause as a counted loop; anything else (no control clause, or one
// parseDoControl doesn't recognise) runs the body once as a plain
// grouping block, matching this package's DO/LOOP grammar Non-goals.
func (it *Interp) execDo(instr *parser.Instruction) (ctrl, error) {
	cc := instr.ControlClause
	if cc == "" {
		return it.runBlock(instr.Body)
	}
	dc, ok, err := parseDoControl(cc)
	if err != nil {
		return ctrl{}, fmt.Errorf("line %d: %w", instr.Line, err)
	}
	if !ok {
		return it.runBlock(instr.Body)
	}

	from, c, err := it.evalExpr(dc.from)
	if err != nil || c.kind != ctrlNone {
		return c, err
	}
	to, c, err := it.evalExpr(dc.to)
	if err != nil || c.kind != ctrlNone {
		return c, err
	}
	step := int64(1)
	if dc.step != nil {
		sv, c, err := it.evalExpr(dc.step)
		if err != nil || c.kind != ctrlNone {
			return c, err
		}
		step, _ = numberOf(sv)
	}

	fromN, _ := numberOf(from)
	toN, _ := numberOf(to)
	for i := fromN; (step >= 0 && i <= toN) || (step < 0 && i >= toN); i += step {
		it.vars.Set(dc.varName, &value.Integer{Value: i})
		c, err := it.runBlock(instr.Body)
		if err != nil {
			return ctrl{}, err
		}
		if c.kind != ctrlNone {
			return c, nil
		}
	}
	return ctrl{}, nil
}

func (it *Interp) execCall(instr *parser.Instruction) (ctrl, error) {
	if instr.Unresolved == "ON" || instr.Unresolved == "OFF" {
		return it.execTrapToggle(instr, true)
	}
	return it.callTarget(instr)
}

func (it *Interp) execSignal(instr *parser.Instruction) (ctrl, error) {
	if instr.Unresolved == "ON" || instr.Unresolved == "OFF" {
		return it.execTrapToggle(instr, false)
	}
	if instr.Resolved == nil {
		return ctrl{}, fmt.Errorf("line %d: SIGNAL target %q not found", instr.Line, instr.Unresolved)
	}
	return ctrl{kind: ctrlSignal, target: instr.Resolved}, nil
}

// execTrapToggle registers or clears a CALL ON/OFF or SIGNAL ON/OFF trap
// against the activity's current Rexx frame (spec.md §4.2.3).
func (it *Interp) execTrapToggle(instr *parser.Instruction, resumable bool) (ctrl, error) {
	frame := it.act.CurrentRexxFrame()
	if frame == nil {
		return ctrl{}, fmt.Errorf("line %d: no active Rexx frame to trap against", instr.Line)
	}
	if instr.Unresolved == "ON" {
		frame.Trap(instr.Label, resumable)
	} else {
		frame.Untrap(instr.Label)
	}
	return ctrl{}, nil
}

// callTarget runs a CALL to an internal label first (spec.md §4.4.2's
// resolveCalls sweep), falling back to a ::ROUTINE of the same name.
func (it *Interp) callTarget(instr *parser.Instruction) (ctrl, error) {
	if instr.Resolved != nil {
		return it.callInternalLabel(instr.Resolved)
	}
	if d, ok := it.pkg.Routines[instr.Unresolved]; ok {
		_, err := it.invokeRoutine(d, nil)
		return ctrl{}, err
	}
	return ctrl{}, fmt.Errorf("line %d: CALL target %q not found", instr.Line, instr.Unresolved)
}

// callInternalLabel runs target's instructions using the caller's own
// Interp, so the internal call shares the caller's variable pool
// (spec.md §4.4.4: internal CALLs, unlike ::ROUTINE, do not get their
// own variable scope). A RETURN reached inside is consumed here, the
// way it resumes the clause right after the original CALL; any other
// control signal (EXIT, an unresolved SIGNAL) propagates further out.
func (it *Interp) callInternalLabel(target *parser.Instruction) (ctrl, error) {
	idx := indexOfInstr(it.pkg.Instructions, target)
	if idx < 0 {
		return ctrl{}, fmt.Errorf("internal CALL target %q is not part of the main code block", target.Label)
	}
	it.act.PushFrame(activity.NewFrame(activity.FrameInternalCall, target.Label, it.source))
	defer it.act.PopFrame(false)
	c, err := it.runBlock(it.pkg.Instructions[idx:])
	if err != nil {
		return ctrl{}, err
	}
	if c.kind == ctrlReturn {
		return ctrl{}, nil
	}
	return c, nil
}

// invokeRoutine runs a ::ROUTINE body (spec.md §4.4.5) in a fresh Interp
// with its own VarScope, so the routine's variables are independent of
// the caller's (spec.md §4.4.4).
func (it *Interp) invokeRoutine(d *parser.Directive, args []value.Ref) (value.Ref, error) {
	it.act.PushFrame(activity.NewFrame(activity.FrameRoutine, d.Name, it.source))
	defer it.act.PopFrame(false)

	sub := &Interp{act: it.act, pkg: it.pkg, vars: NewVarScope(), out: it.out, source: it.source, args: args}
	c, err := sub.runBlock(d.Body)
	if err != nil {
		return nil, err
	}
	if c.kind == ctrlReturn {
		return c.value, nil
	}
	return value.NewString(""), nil
}

// raise reports cond through the activity's condition protocol (spec.md
// §4.2.3) and translates its three-way result into a ctrl signal: a
// resumable CALL ON trap returns control to the raise point (ctrlNone,
// nil error); a SIGNAL ON trap jumps to the condition's own name as a
// label; an untrapped condition terminates the activity and propagates
// as a Go error for Run to report.
func (it *Interp) raise(cond *activity.Condition) (ctrl, error) {
	err := it.act.Raise(cond)
	if err == nil {
		return ctrl{}, nil
	}
	if it.act.Terminated() {
		return ctrl{}, err
	}
	target, ok := it.pkg.Labels[cond.Name]
	if !ok {
		return ctrl{}, fmt.Errorf("SIGNAL ON %s: no %s: label in this code block", cond.Name, cond.Name)
	}
	return ctrl{kind: ctrlSignal, target: target}, nil
}

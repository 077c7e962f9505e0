// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package activity implements the activity/activation runtime of
// spec.md §4.2: a green-thread-ish scheduler in which at most one
// activity may hold the interpreter lock, a stack of heterogeneous
// activation frames, condition propagation, and guarded-method
// concurrency.
//
// The kernel-lock scheduling loop is grounded on
// program/server/ptrace.go's ptraceRun: a dedicated goroutine owns an OS
// thread and serializes work handed to it over an unbuffered
// chan func() error / chan error pair. Here that goroutine is the
// Manager's run loop, and what passes over its channels is the *Activity
// asking for or giving up the kernel lock; the work itself (frame pushes,
// instruction execution) runs on the caller's own goroutine once Acquire
// returns.
package activity

import "fmt"

// StackFrameClass identifies the kind of activation a Frame represents,
// mirroring StackFrameClass.hpp in the original interpreter.
type StackFrameClass int

const (
	FrameProgram StackFrameClass = iota
	FrameMethod
	FrameRoutine
	FrameInternalCall
	FrameInterpret
	FrameCompile
)

// String preserves the observable ambiguity spec.md §9 flags:
// the original's StackFrameClass.hpp defines FRAME_METHOD == "ROUTINE" as
// well as FRAME_ROUTINE == "ROUTINE" ("#define FRAME_METHOD \"ROUTINE\"").
// Until a caller is shown to depend on the string "METHOD", corexx emits
// "ROUTINE" for both, exactly as the source does.
func (c StackFrameClass) String() string {
	switch c {
	case FrameProgram:
		return "PROGRAM"
	case FrameMethod:
		return "ROUTINE" // sic: see spec.md §9 Open Question.
	case FrameRoutine:
		return "ROUTINE"
	case FrameInternalCall:
		return "INTERNAL CALL"
	case FrameInterpret:
		return "INTERPRET"
	case FrameCompile:
		return "COMPILE"
	default:
		return fmt.Sprintf("StackFrameClass(%d)", int(c))
	}
}

// Frame is the common capability of all four activation variants
// (spec.md §3 Activation frames): Rexx (interpreted code), Native (C
// callback context), Internal (C++/Go method call), Compile (parser
// frame, exists only so parse-time errors can report a location).
//
// The source dispatches these four kinds through virtual calls; corexx
// follows spec.md §9's design note and uses one concrete Frame struct
// with a Kind tag instead of an interface hierarchy, since the only
// behavioural difference between variants is which fields are populated
// and what createStackFrame reports.
type Frame struct {
	Kind StackFrameClass

	// MessageName is the method/routine/program name this frame is
	// executing, or "" for frames that don't have one (e.g. Compile).
	MessageName string

	// Executable names the Package or Method object driving this frame,
	// for traceback formatting.
	Executable string

	// Source, if non-empty, is the line of source text this frame is
	// currently evaluating — populated for Rexx and Compile frames so
	// parse-time and run-time errors can both report a location
	// (spec.md §4.4.6).
	Source string
	Line   int

	// prevStackFrame threads frames as a singly-linked list in addition
	// to their position on the activity's array stack (spec.md §3).
	prevStackFrame *Frame

	// Condition-handling state (spec.md §4.2.3): frames can register a
	// CALL ON / SIGNAL ON trap for a condition name.
	traps map[string]trapKind

	// Digits/Fuzz/Form: the numeric settings in effect for this frame.
	// They live only here; pushing or popping a frame does not copy them
	// onto the Activity.
	Digits int
	Fuzz   int
	Form   NumericForm
}

// NumericForm is the Rexx NUMERIC FORM setting (SCIENTIFIC or ENGINEERING).
type NumericForm int

const (
	FormScientific NumericForm = iota
	FormEngineering
)

type trapKind int

const (
	trapNone trapKind = iota
	trapCall           // CALL ON: resumable
	trapSignal         // SIGNAL ON: non-resumable, does not return
)

// NewFrame creates a frame of the given kind with default numeric
// settings (DIGITS 9, FUZZ 0, FORM SCIENTIFIC, the Rexx defaults).
func NewFrame(kind StackFrameClass, messageName, executable string) *Frame {
	return &Frame{
		Kind:        kind,
		MessageName: messageName,
		Executable:  executable,
		Digits:      9,
		Fuzz:        0,
		Form:        FormScientific,
	}
}

// MessageNameOf answers messageName(), matching the four-frame-variant
// shared interface in spec.md §3.
func (f *Frame) MessageNameOf() string { return f.MessageName }

// ExecutableOf answers executable().
func (f *Frame) ExecutableOf() string { return f.Executable }

// GetSource answers getSource(): the clause currently executing.
func (f *Frame) GetSource() (string, int) { return f.Source, f.Line }

// CreateStackFrame answers createStackFrame(): a traceback-ready
// description of this frame, including the StackFrameClass-sensitive
// string (spec.md §9's preserved ambiguity).
func (f *Frame) CreateStackFrame() string {
	if f.Line > 0 {
		return fmt.Sprintf("%s %s (line %d): %s", f.Kind, f.MessageName, f.Line, f.Source)
	}
	return fmt.Sprintf("%s %s", f.Kind, f.MessageName)
}

// Trap registers a CALL ON / SIGNAL ON handler for conditionName.
func (f *Frame) Trap(conditionName string, resumable bool) {
	if f.traps == nil {
		f.traps = make(map[string]trapKind)
	}
	if resumable {
		f.traps[conditionName] = trapCall
	} else {
		f.traps[conditionName] = trapSignal
	}
}

// Untrap removes a previously registered trap.
func (f *Frame) Untrap(conditionName string) {
	delete(f.traps, conditionName)
}

// trapFor reports whether this frame traps conditionName, and whether
// the trap is resumable.
func (f *Frame) trapFor(conditionName string) (kind trapKind, ok bool) {
	kind, ok = f.traps[conditionName]
	return kind, ok
}

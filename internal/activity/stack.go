// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activity

// stackQuantum is the fixed amount the activation stack grows by when
// full (spec.md §4.2.2).
const stackQuantum = 32

// activationStack is the growable array of frame pointers described in
// spec.md §4.2.2, plus the cached top-frame / top-Rexx-frame pointers an
// Activity keeps so evaluating code can read them with one indirection.
type activationStack struct {
	frames []*Frame

	top      *Frame
	topRexx  *Frame // nearest Rexx (interpreted-code) frame, possibly == top

	// reusable is a small pool of popped frames available for reuse, the
	// way popStackFrame's non-reply path caches the popped frame instead
	// of discarding it.
	reusable []*Frame
}

func newActivationStack() *activationStack {
	return &activationStack{frames: make([]*Frame, 0, stackQuantum)}
}

// Depth returns the current stack depth.
func (s *activationStack) Depth() int { return len(s.frames) }

// Push appends frame, expanding by stackQuantum when the backing array is
// full (spec.md §4.2.2 pushStackFrame), and updates the cached top-frame
// and current-Rexx-frame pointers.
func (s *activationStack) Push(frame *Frame) {
	if len(s.frames) == cap(s.frames) {
		grown := make([]*Frame, len(s.frames), cap(s.frames)+stackQuantum)
		copy(grown, s.frames)
		s.frames = grown
	}
	frame.prevStackFrame = s.top
	s.frames = append(s.frames, frame)
	s.top = frame
	if frame.Kind == FrameProgram || frame.Kind == FrameInterpret {
		s.topRexx = frame
	}
}

// Pop removes the top frame. If reply is true (a concurrent method
// return), the frame is not cached for reuse since it may still be
// referenced elsewhere (spec.md §4.2.2).
func (s *activationStack) Pop(reply bool) *Frame {
	n := len(s.frames)
	if n == 0 {
		return nil
	}
	frame := s.frames[n-1]
	s.frames = s.frames[:n-1]
	s.top = frame.prevStackFrame
	s.topRexx = recomputeTopRexx(s.frames)
	if !reply && len(s.reusable) < stackQuantum {
		s.reusable = append(s.reusable, frame)
	}
	return frame
}

func recomputeTopRexx(frames []*Frame) *Frame {
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Kind == FrameProgram || frames[i].Kind == FrameInterpret {
			return frames[i]
		}
	}
	return nil
}

// PopTo pops and terminates every frame down to and including target
// (spec.md §4.2.2 popStackFrame(targetFrame)).
func (s *activationStack) PopTo(target *Frame) {
	for len(s.frames) > 0 {
		f := s.frames[len(s.frames)-1]
		if f == target {
			s.Pop(false)
			return
		}
		s.Pop(false)
	}
}

// UnwindToFrame unwinds the stack so frame becomes the top, used during
// condition unwind (spec.md §4.2.2 unwindToFrame).
func (s *activationStack) UnwindToFrame(frame *Frame) {
	for len(s.frames) > 0 && s.frames[len(s.frames)-1] != frame {
		s.Pop(false)
	}
}

// UnwindToDepth unwinds the stack to exactly n frames.
func (s *activationStack) UnwindToDepth(n int) {
	for len(s.frames) > n {
		s.Pop(false)
	}
}

// Top returns the current top frame, or nil if empty.
func (s *activationStack) Top() *Frame { return s.top }

// TopRexx returns the nearest Rexx (interpreted-code) frame.
func (s *activationStack) TopRexx() *Frame { return s.topRexx }

// Frames returns the stack bottom-to-top, for traceback construction.
func (s *activationStack) Frames() []*Frame {
	out := make([]*Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

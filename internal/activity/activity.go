// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activity

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/oorexx/corexx/internal/heap"
	"github.com/oorexx/corexx/internal/value"
)

// Activity is one thread of Rexx execution: an activation stack plus the
// condition state that travels with it (spec.md §3 "Activity"). Numeric
// settings are kept on each Frame only; the Activity holds no copy of
// them. At most one Activity may hold the interpreter's kernel lock at a
// time; all others are blocked in Activity.Acquire.
type Activity struct {
	mgr   *Manager
	stack *activationStack

	condition  *Condition
	terminated bool

	randSeed *rand.Rand

	// guardWaits records the guard-variable-pool names this activity is
	// currently blocked on, so the deadlock detector (guard.go) can walk
	// the wait graph transitively.
	guardWaits []string

	// guardWake is this activity's rendezvous channel for GuardedPool.Reserve
	// (guard.go): lazily created by parkChan while the pool's own mutex is
	// held; Reserve then receives on it, and Release signals it, after
	// that mutex has been dropped.
	guardWake chan struct{}

	// nestingLevel counts re-entrant acquisitions of the kernel lock by
	// this same Activity (native callouts that call back into Rexx hold
	// the lock across the callout, spec.md §4.3).
	nestingLevel int

	// granted is this activity's rendezvous channel with the Manager's
	// dispatch goroutine: Acquire blocks on it, run() signals it once the
	// kernel lock is handed over.
	granted chan struct{}
}

// Manager is the kernel-lock scheduler (spec.md §4.2.1): a single
// goroutine owns the "run" token and hands it, one Activity at a time, to
// the Activity that has waited longest for it. Modelled directly on
// program/server/ptrace.go's ptraceRun: a dedicated goroutine serializes
// requests over an unbuffered channel pair so the caller's goroutine
// never needs to know who currently holds the token.
type Manager struct {
	h *heap.Heap

	acquireCh chan *Activity
	releaseCh chan *Activity

	// currentMu guards current: run() is its sole writer, but Acquire's
	// reentrant check (below) reads it from every caller's own goroutine,
	// so the read and every write share this lock rather than racing on
	// the bare pointer.
	currentMu sync.Mutex
	current   *Activity

	// waiting is the FIFO of activities parked in Acquire while another
	// Activity holds the lock; on each release run() hands the lock to
	// waiting[0].
	waiting []*Activity
}

// setCurrent records which Activity holds the kernel lock, or nil when
// none does.
func (m *Manager) setCurrent(a *Activity) {
	m.currentMu.Lock()
	m.current = a
	m.currentMu.Unlock()
}

// holder reports which Activity currently holds the kernel lock.
func (m *Manager) holder() *Activity {
	m.currentMu.Lock()
	defer m.currentMu.Unlock()
	return m.current
}

// NewManager creates a kernel-lock scheduler bound to heap h and starts
// its dispatch goroutine.
func NewManager(h *heap.Heap) *Manager {
	m := &Manager{
		h:         h,
		acquireCh: make(chan *Activity),
		releaseCh: make(chan *Activity),
	}
	go m.run()
	return m
}

// run is the dedicated scheduling goroutine. It never touches Rexx state
// itself — it only decides which Activity is allowed to proceed, mirroring
// ptraceRun's separation between "the thread that owns the OS resource"
// and "the callers asking to use it".
func (m *Manager) run() {
	for {
		select {
		case a, ok := <-m.acquireCh:
			if !ok {
				return
			}
			if m.holder() == nil {
				m.setCurrent(a)
				a.granted <- struct{}{}
				continue
			}
			m.waiting = append(m.waiting, a)
		case a := <-m.releaseCh:
			if m.holder() != a {
				continue
			}
			m.setCurrent(nil)
			if len(m.waiting) > 0 {
				next := m.waiting[0]
				m.waiting = m.waiting[1:]
				m.setCurrent(next)
				next.granted <- struct{}{}
			}
		}
	}
}

// NewActivity creates a new Activity bound to this manager, with an empty
// activation stack and default numeric settings (spec.md §3).
func (m *Manager) NewActivity(seed int64) *Activity {
	return &Activity{
		mgr:      m,
		stack:    newActivationStack(),
		randSeed: rand.New(rand.NewSource(seed)),
	}
}

// Acquire blocks until this activity holds the kernel lock. Re-entrant:
// an Activity already holding the lock (a native callout calling back
// into Rexx) may call Acquire again without deadlocking itself
// (spec.md §4.3).
func (a *Activity) Acquire() {
	if a.mgr.holder() == a {
		a.nestingLevel++
		return
	}
	if a.granted == nil {
		a.granted = make(chan struct{}, 1)
	}
	a.mgr.acquireCh <- a
	<-a.granted
	a.nestingLevel = 1
}

// Release gives up the kernel lock, or simply decrements the nesting
// count if this is a re-entrant release.
func (a *Activity) Release() {
	if a.nestingLevel > 1 {
		a.nestingLevel--
		return
	}
	a.nestingLevel = 0
	a.mgr.releaseCh <- a
}

// Run submits fn to execute while holding the kernel lock, blocking the
// calling goroutine until fn returns (spec.md §4.2.1's single-active-
// activity invariant). This is the entry point instruction evaluation
// uses to drive one clause at a time.
func (a *Activity) Run(fn func() error) error {
	a.Acquire()
	defer a.Release()
	return fn()
}

// PushFrame pushes frame onto this activity's stack while the lock is
// held, updating the cached top/top-Rexx pointers (spec.md §4.2.2).
func (a *Activity) PushFrame(frame *Frame) { a.stack.Push(frame) }

// PopFrame pops the top frame (spec.md §4.2.2).
func (a *Activity) PopFrame(reply bool) *Frame { return a.stack.Pop(reply) }

// CurrentFrame returns the top of the activation stack.
func (a *Activity) CurrentFrame() *Frame { return a.stack.Top() }

// CurrentRexxFrame returns the nearest interpreted-code frame, used when
// resolving unqualified variable references and for traceback formatting.
func (a *Activity) CurrentRexxFrame() *Frame { return a.stack.TopRexx() }

// Depth reports the current activation stack depth.
func (a *Activity) Depth() int { return a.stack.Depth() }

// Traceback renders the activation stack bottom-to-top the way
// spec.md §4.4.6 describes error reporting doing.
func (a *Activity) Traceback() []string {
	frames := a.stack.Frames()
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.CreateStackFrame()
	}
	return out
}

// Terminated reports whether an untrapped condition has unwound this
// activity to its base frame (spec.md §4.2.3).
func (a *Activity) Terminated() bool { return a.terminated }

// GCRoots implements heap.RootSource (spec.md §4.1.2 step 1, "the
// activity stack of every live Activity"). Frame-local variables live in
// the variable pool the nativeactivation package owns, not on Frame
// itself, so that package registers its own RootSource once it exists;
// this method is the seam the heap already depends on.
func (a *Activity) GCRoots() []*value.Ref { return nil }

// parkChan returns this activity's guard-wait channel, creating it on
// first use. Callers hold the owning GuardedPool's mutex across both
// creation and registration in its waiters slice, so a subsequent wake()
// from another goroutine always observes a non-nil channel.
func (a *Activity) parkChan() chan struct{} {
	if a.guardWake == nil {
		a.guardWake = make(chan struct{}, 1)
	}
	return a.guardWake
}

// wake signals this activity's parked Reserve call to resume.
func (a *Activity) wake() {
	select {
	case a.guardWake <- struct{}{}:
	default:
	}
}

func (a *Activity) String() string {
	return fmt.Sprintf("activity(depth=%d, terminated=%v)", a.Depth(), a.terminated)
}

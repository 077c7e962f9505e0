// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package activity

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oorexx/corexx/internal/heap"
	"github.com/oorexx/corexx/internal/value"
)

func TestActivationStackPushPopTracksTopRexx(t *testing.T) {
	s := newActivationStack()
	prog := NewFrame(FrameProgram, "MAIN", "test.rex")
	s.Push(prog)
	if s.TopRexx() != prog {
		t.Fatalf("expected program frame to be topRexx")
	}

	internal := NewFrame(FrameInternalCall, "SEND", "kernel")
	s.Push(internal)
	if s.Top() != internal {
		t.Fatalf("expected internal frame to be top")
	}
	if s.TopRexx() != prog {
		t.Fatalf("internal frame must not become topRexx")
	}

	s.Pop(false)
	if s.Top() != prog {
		t.Fatalf("expected pop to restore program frame as top")
	}
}

func TestActivationStackGrowsPastQuantum(t *testing.T) {
	s := newActivationStack()
	for i := 0; i < stackQuantum+5; i++ {
		s.Push(NewFrame(FrameInternalCall, "F", "x"))
	}
	if s.Depth() != stackQuantum+5 {
		t.Fatalf("expected depth %d, got %d", stackQuantum+5, s.Depth())
	}
}

func TestFrameClassStringPreservesMethodRoutineAmbiguity(t *testing.T) {
	if FrameMethod.String() != "ROUTINE" {
		t.Fatalf("expected FrameMethod.String() == ROUTINE, got %q", FrameMethod.String())
	}
	if FrameRoutine.String() != "ROUTINE" {
		t.Fatalf("expected FrameRoutine.String() == ROUTINE, got %q", FrameRoutine.String())
	}
}

func TestManagerSerializesSingleActivity(t *testing.T) {
	h := heap.New(heap.DefaultOptions())
	mgr := NewManager(h)
	a := mgr.NewActivity(1)

	ran := false
	err := a.Run(func() error {
		ran = true
		a.PushFrame(NewFrame(FrameProgram, "MAIN", "t.rex"))
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !ran {
		t.Fatalf("expected fn to run")
	}
	if a.Depth() != 1 {
		t.Fatalf("expected depth 1 after push, got %d", a.Depth())
	}
}

func TestActivityReentrantAcquire(t *testing.T) {
	h := heap.New(heap.DefaultOptions())
	mgr := NewManager(h)
	a := mgr.NewActivity(1)

	a.Acquire()
	a.Acquire() // re-entrant: must not deadlock
	a.Release()
	a.Release()
}

func TestConditionSubstituteMessage(t *testing.T) {
	c := &Condition{Name: CondSyntax, Additional: []string{"FOO", "3"}}
	got := c.SubstituteMessage("Variable &1 referenced before assignment on line &2")
	want := "Variable FOO referenced before assignment on line 3"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestConditionSubstituteMessageMissingSlot(t *testing.T) {
	c := &Condition{Name: CondError}
	got := c.SubstituteMessage("no slot &1 here")
	if got != "no slot &1 here" {
		t.Fatalf("expected unreplaced marker, got %q", got)
	}
}

func TestRaiseCallOnIsResumable(t *testing.T) {
	h := heap.New(heap.DefaultOptions())
	mgr := NewManager(h)
	a := mgr.NewActivity(1)

	prog := NewFrame(FrameProgram, "MAIN", "t.rex")
	prog.Trap(CondNoValue, true) // CALL ON: resumable
	a.PushFrame(prog)

	err := a.Raise(&Condition{Name: CondNoValue, Description: "x"})
	if err != nil {
		t.Fatalf("expected resumable trap to return nil, got %v", err)
	}
	if a.Depth() != 1 {
		t.Fatalf("resumable trap must not unwind the stack, depth=%d", a.Depth())
	}
	if a.Condition() == nil || a.Condition().Name != CondNoValue {
		t.Fatalf("expected condition object to be recorded")
	}
}

func TestRaiseSignalOnUnwinds(t *testing.T) {
	h := heap.New(heap.DefaultOptions())
	mgr := NewManager(h)
	a := mgr.NewActivity(1)

	prog := NewFrame(FrameProgram, "MAIN", "t.rex")
	prog.Trap(CondSyntax, false) // SIGNAL ON: non-resumable
	a.PushFrame(prog)
	a.PushFrame(NewFrame(FrameInternalCall, "DEEP", "x"))
	a.PushFrame(NewFrame(FrameInternalCall, "DEEPER", "x"))

	err := a.Raise(&Condition{Name: CondSyntax, Description: "bad clause"})
	if err == nil {
		t.Fatalf("expected SIGNAL ON to return an unwind error")
	}
	if a.Depth() != 1 {
		t.Fatalf("expected unwind to the trapping frame, depth=%d", a.Depth())
	}
}

func TestRaiseUntrappedTerminatesActivity(t *testing.T) {
	h := heap.New(heap.DefaultOptions())
	mgr := NewManager(h)
	a := mgr.NewActivity(1)
	a.PushFrame(NewFrame(FrameProgram, "MAIN", "t.rex"))

	_ = a.Raise(&Condition{Name: CondFailure, Description: "oops"})
	if !a.Terminated() {
		t.Fatalf("expected untrapped condition to terminate the activity")
	}
	if a.Depth() != 0 {
		t.Fatalf("expected full unwind, depth=%d", a.Depth())
	}
}

func TestGuardedPoolReentrantReserve(t *testing.T) {
	h := heap.New(heap.DefaultOptions())
	mgr := NewManager(h)
	a := mgr.NewActivity(1)

	g := NewGuardedPool()
	g.Reserve(a)
	g.Reserve(a) // re-entrant: same activity reserving twice
	if g.state != guardReserved || g.owner != a || g.depth != 2 {
		t.Fatalf("expected re-entrant reservation, got state=%v depth=%d", g.state, g.depth)
	}
	g.Release()
	if g.state != guardReserved {
		t.Fatalf("expected pool still reserved after one release of two")
	}
	g.Release()
	if g.state != guardReleased {
		t.Fatalf("expected pool released after matching releases")
	}
}

func TestGuardedPoolWatchFiresOnRelease(t *testing.T) {
	g := NewGuardedPool()
	ready := false
	wake := g.AddWatch(func() bool { return ready })

	select {
	case <-wake:
		t.Fatalf("watch should not fire before condition holds")
	default:
	}

	ready = true
	g.wakeWatchers()
	select {
	case <-wake:
	default:
		t.Fatalf("expected watch to fire once condition holds")
	}
}

func TestDeadlockDetectorFindsCycle(t *testing.T) {
	h := heap.New(heap.DefaultOptions())
	mgr := NewManager(h)
	a := mgr.NewActivity(1)
	b := mgr.NewActivity(2)

	// a waits on a pool owned by b; b waits on a pool owned by a: a cycle.
	a.guardWaits = []string{"pool-b"}
	b.guardWaits = []string{"pool-a"}
	owners := map[string]*Activity{"pool-a": a, "pool-b": b}

	d := NewDeadlockDetector(func(key string) *Activity { return owners[key] })
	if !d.Check(a) {
		t.Fatalf("expected deadlock to be detected")
	}
}

func TestDeadlockDetectorNoCycle(t *testing.T) {
	h := heap.New(heap.DefaultOptions())
	mgr := NewManager(h)
	a := mgr.NewActivity(1)
	b := mgr.NewActivity(2)

	a.guardWaits = []string{"pool-b"}
	owners := map[string]*Activity{"pool-b": b}

	d := NewDeadlockDetector(func(key string) *Activity { return owners[key] })
	if d.Check(a) {
		t.Fatalf("expected no deadlock")
	}
}

func TestUninitDispatcherRunsQueuedFinalizers(t *testing.T) {
	h := heap.New(heap.DefaultOptions())
	mgr := NewManager(h)
	runner := mgr.NewActivity(1)

	type rootSource struct{ roots []*value.Ref }
	// No external roots: the allocated object becomes unreachable as soon
	// as we stop holding a Go-level reference to its value.Ref, so the
	// next Collect finds it dead and queues its uninit.
	payload := value.NewString("finalizable")
	obj, err := h.Allocate(value.KindString, payload, 8)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	h.RegisterUninit(obj)

	if err := h.Collect(); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if h.PendingUninits() != 1 {
		t.Fatalf("expected 1 pending uninit, got %d", h.PendingUninits())
	}

	var ran []*heap.Object
	d := NewUninitDispatcher(h, runner, func(o *heap.Object) { ran = append(ran, o) })
	d.Run()

	if len(ran) != 1 || ran[0] != obj {
		t.Fatalf("expected uninit hook to run exactly once for obj, ran=%v", ran)
	}
	if h.PendingUninits() != 0 {
		t.Fatalf("expected pending uninit queue drained, got %d", h.PendingUninits())
	}
}

func TestGuardedPoolBlocksConcurrentContenders(t *testing.T) {
	h := heap.New(heap.DefaultOptions())
	mgr := NewManager(h)
	g := NewGuardedPool()

	const contenders = 8
	var mu sync.Mutex
	var order []int
	var active int32

	var wg sync.WaitGroup
	wg.Add(contenders)
	for i := 0; i < contenders; i++ {
		a := mgr.NewActivity(int64(i + 1))
		go func(i int, a *Activity) {
			defer wg.Done()
			g.Reserve(a)
			if atomic.AddInt32(&active, 1) != 1 {
				t.Errorf("activity %d observed another holder inside the guarded section", i)
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			// Give a concurrent Reserve a chance to race in if the
			// blocking primitive were broken.
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
			g.Release()
		}(i, a)
	}
	wg.Wait()

	if len(order) != contenders {
		t.Fatalf("expected all %d contenders to pass through the guard, got %d", contenders, len(order))
	}
}

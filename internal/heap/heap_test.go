// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"testing"

	"github.com/oorexx/corexx/internal/value"
)

// rootSource is a minimal RootSource for tests, grounded on the way
// gocore.Process seeds markObjects from goroutine/global roots.
type rootSource struct{ refs []*value.Ref }

func (r *rootSource) GCRoots() []*value.Ref { return r.refs }

func TestAllocateRoundsToGrain(t *testing.T) {
	h := New(DefaultOptions())
	obj, err := h.Allocate(value.KindString, value.NewString("hi"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if obj.Size%Grain != 0 {
		t.Errorf("size %d is not a multiple of the grain %d", obj.Size, Grain)
	}
	if obj.Size < MinObjectSize {
		t.Errorf("size %d below minimum object size %d", obj.Size, MinObjectSize)
	}
}

func TestCollectSweepsUnreachable(t *testing.T) {
	h := New(DefaultOptions())
	root := &rootSource{}
	h.AddRootSource(root)

	kept, err := h.Allocate(value.KindString, value.NewString("kept"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Allocate(value.KindString, value.NewString("garbage"), 1); err != nil {
		t.Fatal(err)
	}

	keptRef := kept.Payload
	root.refs = []*value.Ref{&keptRef}

	before := h.LiveObjectCount()
	if before != 2 {
		t.Fatalf("expected 2 live objects before collect, got %d", before)
	}

	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	after := h.LiveObjectCount()
	if after != 1 {
		t.Fatalf("expected 1 live object after collect, got %d", after)
	}
	if h.Find(kept.Addr) == nil {
		t.Error("kept object should still be reachable after collect")
	}
}

func TestCollectRejectsReentry(t *testing.T) {
	h := New(DefaultOptions())
	h.gcRunning = true
	if err := h.Collect(); err != ErrGCReentrant {
		t.Errorf("expected ErrGCReentrant, got %v", err)
	}
}

func TestOld2NewRecordedAndPruned(t *testing.T) {
	h := New(DefaultOptions())
	newObj, err := h.Allocate(value.KindString, value.NewString("new"), 1)
	if err != nil {
		t.Fatal(err)
	}
	// A real OldSpace object, the way RestoreImage would adopt one from
	// a loaded image: it lives in the OldSpace segment set and is never
	// swept, only scanned.
	oldObj := h.adoptOldSpace(value.NewString("old"))

	h.RecordFieldSet(oldObj, newObj)
	if !h.HasOld2NewEntry(oldObj) {
		t.Fatal("expected old2new entry to be recorded")
	}

	// Without any other roots, the new object is only reachable via the
	// old2new entry; a collect should keep it alive and keep the entry.
	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	if !h.HasOld2NewEntry(oldObj) {
		t.Error("old2new entry should survive while the reference is live")
	}
	if h.Find(newObj.Addr) == nil {
		t.Error("new-space object reachable only via old2new should survive collection")
	}
}

func TestWeakRefClearedOnCollect(t *testing.T) {
	h := New(DefaultOptions())
	obj, err := h.Allocate(value.KindString, value.NewString("ephemeral"), 1)
	if err != nil {
		t.Fatal(err)
	}
	w := h.NewWeakRef(obj)
	if w.Get() == nil {
		t.Fatal("weak ref should initially resolve")
	}
	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	if w.Get() != nil {
		t.Error("weak ref should be cleared once its referent is unreachable")
	}
}

func TestUninitRunsOnceAfterUnreachable(t *testing.T) {
	h := New(DefaultOptions())
	counter := value.NewDirectory()
	counter.Put("n", &value.Integer{Value: 0})

	obj, err := h.Allocate(value.KindDirectory, value.NewDirectory(), 1)
	if err != nil {
		t.Fatal(err)
	}
	h.RegisterUninit(obj)

	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	runs := 0
	h.RunUninits(func(o *Object) {
		runs++
		n, _ := counter.Get("n")
		counter.Put("n", &value.Integer{Value: n.(*value.Integer).Value + 1})
	})
	if runs != 1 {
		t.Fatalf("expected uninit to run exactly once, got %d", runs)
	}

	// A second collect with nothing newly dead must not re-run it.
	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	h.RunUninits(func(o *Object) { runs++ })
	if runs != 1 {
		t.Fatalf("uninit ran again on a later collect: count=%d", runs)
	}
	n, _ := counter.Get("n")
	if n.(*value.Integer).Value != 1 {
		t.Errorf("expected counter incremented exactly once, got %d", n.(*value.Integer).Value)
	}
}

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	arr := &value.Array{Items: []value.Ref{
		value.NewString("a"),
		&value.Integer{Value: 42},
		value.Nil,
		value.True,
	}}
	data, err := Flatten(arr)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unflatten(data)
	if err != nil {
		t.Fatal(err)
	}
	gotArr, ok := got.(*value.Array)
	if !ok {
		t.Fatalf("expected *value.Array, got %T", got)
	}
	if len(gotArr.Items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(gotArr.Items))
	}
	if gotArr.Items[0].(*value.String).Text != "a" {
		t.Errorf("string round trip mismatch: %v", gotArr.Items[0])
	}
	if gotArr.Items[1].(*value.Integer).Value != 42 {
		t.Errorf("integer round trip mismatch: %v", gotArr.Items[1])
	}
	if gotArr.Items[2] != value.Ref(value.Nil) {
		t.Errorf("expected .nil identity to be preserved, got %v", gotArr.Items[2])
	}
	if gotArr.Items[3] != value.Ref(value.True) {
		t.Errorf("expected .true identity to be preserved, got %v", gotArr.Items[3])
	}
}

func TestImageSaveRestoreRoundTrip(t *testing.T) {
	h := New(DefaultOptions())
	g := value.NewString("global")
	gref := value.Ref(g)
	h.AddRootSource(&rootSource{refs: []*value.Ref{&gref}})

	data, err := h.SaveImage()
	if err != nil {
		t.Fatal(err)
	}

	h2 := New(DefaultOptions())
	roots, err := h2.RestoreImage(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 1 {
		t.Fatalf("expected 1 restored root, got %d", len(roots))
	}
	s, ok := roots[0].(*value.String)
	if !ok || s.Text != "global" {
		t.Fatalf("expected restored global string, got %#v", roots[0])
	}
}

func TestRestoreImageRejectsBadMagic(t *testing.T) {
	h := New(DefaultOptions())
	if _, err := h.RestoreImage([]byte("not an image")); err == nil {
		t.Error("expected an error restoring a non-image buffer")
	}
}

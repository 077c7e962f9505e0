// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"errors"
	"fmt"

	"github.com/oorexx/corexx/internal/value"
)

// Options configures heap policy decisions the spec leaves open.
type Options struct {
	// SegmentQuantum is the size of a freshly-requested segment when no
	// existing free space satisfies an allocation.
	SegmentQuantum uint64
	// SingleObjectThreshold is the size above which an allocation gets
	// its own dedicated segment (spec.md §4.1.1).
	SingleObjectThreshold uint64

	// ExactFitLegal resolves spec.md §9's open question: whether a
	// large-object allocation that exactly fills the remaining
	// uncommitted space in a segment is legal. The Unix and Windows
	// memory-pool backends disagreed; corexx defaults to the Unix
	// policy (legal) since its image-restore path already depends on
	// golang.org/x/sys/unix.
	ExactFitLegal bool
}

func DefaultOptions() Options {
	return Options{
		SegmentQuantum:        1 << 20, // 1 MiB
		SingleObjectThreshold: 1 << 16, // 64 KiB
		ExactFitLegal:         true,
	}
}

// Heap is the segmented, mark-sweep object heap (spec.md §4.1).
type Heap struct {
	opts Options

	oldSpace *segmentSet
	normal   *segmentSet
	large    *segmentSet
	single   *segmentSet

	nextBase Address // next free base address for a new segment

	old2new map[Address]map[Address]bool // container -> set of new-space values it references

	markSense bool // flips each GC cycle; Object.mark == markSense means "live this cycle"
	gcRunning bool // single-word reentrancy guard (spec.md §4.1.6)

	weak []*weakRef

	uninitTable    map[Address]*Object // objects whose class defines uninit, registered at creation
	uninitQueue    []*Object           // drained after each sweep
	runningUninits bool                // reentrancy guard for RunUninits

	roots []RootSource

	liveObjectCount int

	// refIndex maps an allocated payload back to the Object header that
	// owns it, since payloads are ordinary Go values rather than raw
	// memory the heap could do pointer arithmetic on.
	refIndex map[value.Ref]*Object
}

// weakRef is cleared by the sweeper when its referent is unmarked
// (spec.md §4.1.2 step 4).
type weakRef struct {
	referent *Object
}

// RootSource supplies additional GC roots beyond the heap's own
// uninit/weak bookkeeping — e.g. the activity package's frame stacks and
// the environment/system directories. Kept as an interface so heap has no
// import-time dependency on activity (spec.md §9: "never as free
// globals").
type RootSource interface {
	GCRoots() []*value.Ref
}

// New creates an empty heap.
func New(opts Options) *Heap {
	return &Heap{
		opts:        opts,
		oldSpace:    newSegmentSet(segOldSpace),
		normal:      newSegmentSet(segNormal),
		large:       newSegmentSet(segLarge),
		single:      newSegmentSet(segSingleObject),
		nextBase:    1, // 0 is reserved as a "no address" sentinel
		old2new:     make(map[Address]map[Address]bool),
		uninitTable: make(map[Address]*Object),
	}
}

// AddRootSource registers an external root provider (e.g. the activity
// manager). Order is insertion order; it is not significant.
func (h *Heap) AddRootSource(rs RootSource) { h.roots = append(h.roots, rs) }

// ErrOutOfMemory is raised (spec.md §4.1.6) when allocation fails even
// after a collection, retry, and segment expansion.
var ErrOutOfMemory = errors.New("heap: storage exhausted")

// Allocate implements the allocation contract of spec.md §4.1.1.
func (h *Heap) Allocate(kind value.Kind, payload value.Ref, sizeHint uint64) (*Object, error) {
	size := roundToGrain(sizeHint)
	if size > MaxObjectSize {
		return nil, fmt.Errorf("heap: requested size %d exceeds maximum object size", sizeHint)
	}

	obj, err := h.allocateOnce(kind, payload, size)
	if err == nil {
		return obj, nil
	}

	// Allocation failure protocol: GC, retry once, scavenge Large into
	// Normal, then expand.
	h.Collect()
	if obj, err = h.allocateOnce(kind, payload, size); err == nil {
		return obj, nil
	}
	h.scavengeLargeIntoNormal()
	if obj, err = h.allocateOnce(kind, payload, size); err == nil {
		return obj, nil
	}
	if err := h.expand(size); err != nil {
		return nil, err
	}
	obj, err = h.allocateOnce(kind, payload, size)
	if err != nil {
		return nil, ErrOutOfMemory
	}
	return obj, nil
}

func (h *Heap) allocateOnce(kind value.Kind, payload value.Ref, size uint64) (*Object, error) {
	switch {
	case size <= NormalThreshold:
		return h.allocateNormal(kind, payload, size)
	case size <= h.opts.SingleObjectThreshold:
		return h.allocateLarge(kind, payload, size)
	default:
		return h.allocateSingle(kind, payload, size)
	}
}

func (h *Heap) allocateNormal(kind value.Kind, payload value.Ref, size uint64) (*Object, error) {
	if db := h.normal.popSizeClass(size); db != nil {
		return h.installObject(db.seg, db, kind, payload, size)
	}
	if db := h.normal.popSizeClassAtLeast(size); db != nil {
		return h.finishSplit(h.normal, db, kind, payload, size, MinObjectSize)
	}
	// Walk the large-dead fallback chain, splitting tails back into the
	// appropriate size class.
	for i, db := range h.normal.largeDead {
		if db.size >= size {
			h.normal.largeDead = append(h.normal.largeDead[:i], h.normal.largeDead[i+1:]...)
			return h.finishSplit(h.normal, db, kind, payload, size, MinObjectSize)
		}
	}
	seg := h.bumpAllocateSegment(h.normal, size)
	if seg == nil {
		return nil, ErrOutOfMemory
	}
	return h.installFresh(seg, kind, payload, size)
}

func (h *Heap) finishSplit(ss *segmentSet, db *deadBlock, kind value.Kind, payload value.Ref, size, minRemainder uint64) (*Object, error) {
	seg := db.seg
	seg.removeDead(db)
	if tail := splitTail(db, size, minRemainder); tail != nil {
		seg.insertDead(tail)
		if ss.kind == segNormal {
			if tail.size <= NormalThreshold {
				ss.pushSizeClass(tail)
			} else {
				ss.largeDead = insertSorted(ss.largeDead, tail)
			}
		} else {
			ss.largeFree = insertSorted(ss.largeFree, tail)
		}
	}
	return h.installObject(seg, db, kind, payload, size)
}

func (h *Heap) allocateLarge(kind value.Kind, payload value.Ref, size uint64) (*Object, error) {
	if _, db := bestFit(h.large.largeFree, size); db != nil {
		h.large.largeFree = removeFromSlice(h.large.largeFree, db)
		return h.finishSplit(h.large, db, kind, payload, size, LargeAllocationUnit)
	}
	seg := h.bumpAllocateSegment(h.large, max(size, h.opts.SegmentQuantum))
	if seg == nil {
		return nil, ErrOutOfMemory
	}
	return h.installFresh(seg, kind, payload, size)
}

func (h *Heap) allocateSingle(kind value.Kind, payload value.Ref, size uint64) (*Object, error) {
	min := h.nextBase
	max := min + Address(size)
	h.nextBase = max
	seg := newSegment(segSingleObject, min, max)
	h.single.addSegment(seg)
	return h.installFresh(seg, kind, payload, size)
}

// bumpAllocateSegment requests a brand new segment for ss sized at least
// `need` bytes, using the configured quantum.
func (h *Heap) bumpAllocateSegment(ss *segmentSet, need uint64) *segment {
	size := h.opts.SegmentQuantum
	if need > size {
		size = roundToGrain(need)
	}
	min := h.nextBase
	max := min + Address(size)
	h.nextBase = max
	seg := newSegment(ss.kind, min, max)
	ss.addSegment(seg)
	return seg
}

func (h *Heap) installFresh(seg *segment, kind value.Kind, payload value.Ref, size uint64) (*Object, error) {
	remaining := seg.size() - uint64(seg.bump-seg.min)
	if !h.opts.ExactFitLegal && remaining == size {
		// Windows-style policy: an allocation that exactly fills the
		// remaining uncommitted space is not legal; leave one grain.
		if remaining < size+Grain {
			return nil, ErrOutOfMemory
		}
	}
	if remaining < size {
		return nil, ErrOutOfMemory
	}
	addr := seg.bump
	seg.bump += Address(size)
	obj := &Object{Addr: addr, Size: size, Kind: kind, Payload: payload, seg: seg, mark: h.markSense}
	seg.objects[addr] = obj
	seg.liveObjects++
	seg.liveBytes += int64(size)
	h.liveObjectCount++
	if payload != nil {
		h.registerRef(payload, obj)
	}
	return obj, nil
}

func (h *Heap) installObject(seg *segment, db *deadBlock, kind value.Kind, payload value.Ref, size uint64) (*Object, error) {
	obj := &Object{Addr: db.addr, Size: size, Kind: kind, Payload: payload, seg: seg, mark: h.markSense}
	seg.objects[db.addr] = obj
	seg.liveObjects++
	seg.liveBytes += int64(size)
	seg.deadBytes -= int64(db.size)
	h.liveObjectCount++
	if payload != nil {
		h.registerRef(payload, obj)
	}
	return obj, nil
}

// scavengeLargeIntoNormal folds the Large set's best-fit free list into
// the Normal set's large-dead fallback chain, spec.md §4.1.1's "Normal-
// set scavenge from the Large set" retry step.
func (h *Heap) scavengeLargeIntoNormal() {
	for _, seg := range h.large.segments() {
		h.large.removeSegment(seg)
		seg.kind = segNormal
		h.normal.addSegment(seg)
	}
	for _, db := range h.large.largeFree {
		h.normal.largeDead = insertSorted(h.normal.largeDead, db)
	}
	h.large.largeFree = nil
}

// expand requests a new segment sized by a live-byte / target-occupancy
// formula (spec.md §4.1.1): enough to hold `need` plus headroom so the
// Normal set doesn't immediately need to expand again.
func (h *Heap) expand(need uint64) error {
	const targetOccupancy = 2 // keep ~50% slack after expansion
	size := roundToGrain(need * targetOccupancy)
	if size < h.opts.SegmentQuantum {
		size = h.opts.SegmentQuantum
	}
	seg := h.bumpAllocateSegment(h.normal, size)
	if seg == nil {
		return ErrOutOfMemory
	}
	// Immediately register the whole segment as one dead block so the
	// retried allocation can find it.
	db := &deadBlock{addr: seg.bump, size: seg.size()}
	seg.bump = seg.max
	seg.insertDead(db)
	if db.size <= NormalThreshold {
		h.normal.pushSizeClass(db)
	} else {
		h.normal.largeDead = insertSorted(h.normal.largeDead, db)
	}
	return nil
}

func max(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// Find returns the object containing addr, if any has been allocated and
// not yet reclaimed.
func (h *Heap) Find(addr Address) *Object {
	for _, ss := range []*segmentSet{h.oldSpace, h.normal, h.large, h.single} {
		for s := ss.head; s != nil; s = s.next {
			if addr >= s.min && addr < s.max {
				return s.objects[addr]
			}
		}
	}
	return nil
}

// LiveObjectCount returns the number of objects currently considered live
// (allocated and not yet swept).
func (h *Heap) LiveObjectCount() int { return h.liveObjectCount }

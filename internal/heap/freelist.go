// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import "sort"

// popSizeClass removes and returns a dead block from the exact size
// class, or nil if none is free.
func (ss *segmentSet) popSizeClass(size uint64) *deadBlock {
	list := ss.sizeClasses[size]
	if len(list) == 0 {
		return nil
	}
	db := list[len(list)-1]
	ss.sizeClasses[size] = list[:len(list)-1]
	return db
}

// popSizeClassAtLeast walks size classes upward from size looking for a
// free block (spec.md §4.1.1 "else walk larger lists upward").
func (ss *segmentSet) popSizeClassAtLeast(size uint64) *deadBlock {
	for s := size; s <= NormalThreshold; s += Grain {
		if db := ss.popSizeClass(s); db != nil {
			return db
		}
	}
	return nil
}

func (ss *segmentSet) pushSizeClass(db *deadBlock) {
	ss.sizeClasses[db.size] = append(ss.sizeClasses[db.size], db)
}

// insertSorted inserts db into a dead-block chain (the Normal set's
// large-dead fallback chain or the Large set's free list) keeping it
// sorted by address, as spec.md §3 requires ("sorted by coalesced
// locality").
func insertSorted(list []*deadBlock, db *deadBlock) []*deadBlock {
	i := sort.Search(len(list), func(i int) bool { return list[i].addr >= db.addr })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = db
	return list
}

func removeFromSlice(list []*deadBlock, db *deadBlock) []*deadBlock {
	for i, x := range list {
		if x == db {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// bestFit scans list (assumed sorted by address, which is adequate for a
// heap of this scale) for the smallest block able to hold size.
func bestFit(list []*deadBlock, size uint64) (int, *deadBlock) {
	best := -1
	var bestBlock *deadBlock
	for i, db := range list {
		if db.size >= size && (bestBlock == nil || db.size < bestBlock.size) {
			best, bestBlock = i, db
		}
	}
	return best, bestBlock
}

// splitTail splits db, keeping the first `size` bytes allocated and
// returning a new dead block covering the remainder, or nil if the
// remainder is below minRemainder: MinObjectSize for the Normal set,
// LargeAllocationUnit for the Large set (spec.md §4.1.1).
func splitTail(db *deadBlock, size uint64, minRemainder uint64) *deadBlock {
	remainder := db.size - size
	if remainder < minRemainder {
		return nil
	}
	tail := &deadBlock{addr: db.addr + Address(size), size: remainder}
	return tail
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"encoding/binary"
	"fmt"

	"github.com/oorexx/corexx/internal/value"
)

// imageMagic identifies a corexx image file; restore rejects anything
// else (spec.md §6: "header sentinels must match the running build").
const imageMagic = uint32(0x58524f43) // "CORX"

// controlWord is the fixed-size trailer spec.md §4.1.4 describes: buffer
// length plus the offset of a small "save array" (root table). It is
// written last, after the variable-length object data, so Save can be a
// single forward pass.
type controlWord struct {
	Magic           uint32
	PtrSize         uint8
	_pad            [3]byte
	BufLen          int64
	RootTableOffset int64
	RootCount       int64
}

const controlWordSize = 4 + 1 + 3 + 8 + 8 + 8

// SaveImage walks every registered root source and serialises the
// reachable object graph into a single buffer whose trailer is a
// controlWord (spec.md §4.1.4 Save). A single linear scan rewriting
// offset -> base+offset (performed by RestoreImage) reconstructs a valid
// heap, since every reference in the body is already buffer-relative.
func (h *Heap) SaveImage() ([]byte, error) {
	e := newEncoder()
	var rootOffsets []int64
	for _, rs := range h.roots {
		for _, ref := range rs.GCRoots() {
			if ref == nil || *ref == nil {
				continue
			}
			off, err := e.encode(*ref)
			if err != nil {
				return nil, fmt.Errorf("heap: save image: %w", err)
			}
			rootOffsets = append(rootOffsets, off)
		}
	}

	body := e.buf.Bytes()
	rootTableOffset := int64(len(body))
	for _, off := range rootOffsets {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(off))
		body = append(body, b[:]...)
	}

	cw := controlWord{
		Magic:           imageMagic,
		PtrSize:         PtrWidth,
		BufLen:          int64(len(body)),
		RootTableOffset: rootTableOffset,
		RootCount:       int64(len(rootOffsets)),
	}
	out := make([]byte, 0, len(body)+controlWordSize)
	out = append(out, body...)
	out = appendControlWord(out, cw)
	return out, nil
}

func appendControlWord(buf []byte, cw controlWord) []byte {
	var b [controlWordSize]byte
	binary.LittleEndian.PutUint32(b[0:4], cw.Magic)
	b[4] = cw.PtrSize
	binary.LittleEndian.PutUint64(b[8:16], uint64(cw.BufLen))
	binary.LittleEndian.PutUint64(b[16:24], uint64(cw.RootTableOffset))
	binary.LittleEndian.PutUint64(b[24:32], uint64(cw.RootCount))
	return append(buf, b[:]...)
}

func readControlWord(buf []byte) (controlWord, error) {
	if len(buf) < controlWordSize {
		return controlWord{}, fmt.Errorf("heap: image truncated: missing control word")
	}
	tail := buf[len(buf)-controlWordSize:]
	var cw controlWord
	cw.Magic = binary.LittleEndian.Uint32(tail[0:4])
	cw.PtrSize = tail[4]
	cw.BufLen = int64(binary.LittleEndian.Uint64(tail[8:16]))
	cw.RootTableOffset = int64(binary.LittleEndian.Uint64(tail[16:24]))
	cw.RootCount = int64(binary.LittleEndian.Uint64(tail[24:32]))
	return cw, nil
}

// ErrImageMismatch is returned when an image's sentinels don't match the
// running build (spec.md §6: "Mismatch aborts startup").
var ErrImageMismatch = fmt.Errorf("heap: image header sentinels do not match this build")

// RestoreImage attaches data as the OldSpace segment: every object it
// describes is adopted as an old-space Object, and the function returns
// the decoded roots in the order SaveImage wrote them (spec.md §4.1.4
// Restore). Restore never scans data for pointers to rewrite beyond what
// the decoder already resolves, since offsets here are logical indices
// into the buffer rather than raw addresses needing base-relocation; the
// base+offset rewrite spec.md describes happens implicitly in decode.
func (h *Heap) RestoreImage(data []byte) ([]value.Ref, error) {
	cw, err := readControlWord(data)
	if err != nil {
		return nil, err
	}
	if cw.Magic != imageMagic || cw.PtrSize != PtrWidth {
		return nil, ErrImageMismatch
	}
	body := data[:len(data)-controlWordSize]
	if int64(len(body)) != cw.BufLen {
		return nil, fmt.Errorf("heap: image truncated: expected %d body bytes, got %d", cw.BufLen, len(body))
	}

	d := newDecoder(body)
	roots := make([]value.Ref, 0, cw.RootCount)
	for i := int64(0); i < cw.RootCount; i++ {
		tableOff := cw.RootTableOffset + i*8
		if tableOff+8 > int64(len(body)) {
			return nil, fmt.Errorf("heap: image truncated: root table overruns body")
		}
		off := int64(binary.LittleEndian.Uint64(body[tableOff : tableOff+8]))
		ref, err := d.decode(off)
		if err != nil {
			return nil, fmt.Errorf("heap: restore image: %w", err)
		}
		roots = append(roots, ref)
	}

	for _, ref := range d.cache {
		h.adoptOldSpace(ref)
	}
	return roots, nil
}

// adoptOldSpace installs a decoded value as an OldSpace object: never
// swept, only scanned for old2new purposes (spec.md §3).
func (h *Heap) adoptOldSpace(ref value.Ref) *Object {
	if existing := h.refIndex[ref]; existing != nil {
		return existing
	}
	seg := h.oldSpaceSegmentFor(ref)
	addr := seg.bump
	seg.bump += Grain
	obj := &Object{Addr: addr, Size: Grain, Kind: ref.Kind(), Payload: ref, seg: seg, oldSpace: true, mark: h.markSense}
	seg.objects[addr] = obj
	h.registerRef(ref, obj)
	return obj
}

// oldSpaceSegmentFor returns (creating if necessary) the single OldSpace
// segment images are attached to.
func (h *Heap) oldSpaceSegmentFor(ref value.Ref) *segment {
	if h.oldSpace.head != nil {
		s := h.oldSpace.head
		s.max += Grain
		return s
	}
	min := h.nextBase
	seg := newSegment(segOldSpace, min, min+Grain)
	h.nextBase += Grain
	h.oldSpace.addSegment(seg)
	return seg
}

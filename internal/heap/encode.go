// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/oorexx/corexx/internal/value"
)

// tag is the wire encoding of a value.Kind, plus three reserved tags for
// the process-singleton proxies (spec.md §4.1.5: "proxies that
// re-resolve to a process-singleton like .nil").
type tag uint8

const (
	tagEOF tag = iota
	tagBackref
	tagString
	tagInteger
	tagArray
	tagDirectory
	tagStem
	tagNil
	tagTrue
	tagFalse
)

// encoder walks an object graph and serialises it into a flat buffer,
// rewriting every reference field to a buffer-relative offset
// (spec.md §4.1.4 Save, §4.1.5 Flatten share this shape). currentOffset
// tracks the position so a reallocation mid-walk (buffer growth) can
// still compute correct offsets, matching the source's envelope design.
type encoder struct {
	buf     bytes.Buffer
	offsets map[value.Ref]int64 // payload identity -> offset already written
}

func newEncoder() *encoder {
	return &encoder{offsets: make(map[value.Ref]int64)}
}

func (e *encoder) currentOffset() int64 { return int64(e.buf.Len()) }

// encode writes ref (and anything it transitively refers to) to the
// buffer, returning the offset at which ref's own record begins.
func (e *encoder) encode(ref value.Ref) (int64, error) {
	if ref == nil {
		return -1, nil
	}
	switch ref {
	case value.Ref(value.Nil):
		return int64(tagNil) | backrefSentinel, nil
	case value.Ref(value.True):
		return int64(tagTrue) | backrefSentinel, nil
	case value.Ref(value.False):
		return int64(tagFalse) | backrefSentinel, nil
	}
	if off, ok := e.offsets[ref]; ok {
		return off, nil
	}

	off := e.currentOffset()
	e.offsets[ref] = off

	switch v := ref.(type) {
	case *value.String:
		e.writeTag(tagString)
		e.writeString(v.Text)
	case *value.Integer:
		e.writeTag(tagInteger)
		e.writeInt64(v.Value)
	case *value.Array:
		e.writeTag(tagArray)
		e.writeInt64(int64(len(v.Items)))
		slots := e.currentOffset()
		for range v.Items {
			e.writeInt64(0)
		}
		for i, item := range v.Items {
			co, err := e.encode(item)
			if err != nil {
				return 0, err
			}
			binary.LittleEndian.PutUint64(e.buf.Bytes()[slots+int64(8*i):], uint64(co))
		}
	case *value.Directory:
		e.writeTag(tagDirectory)
		keys := v.Keys()
		e.writeInt64(int64(len(keys)))
		for _, k := range keys {
			val, _ := v.Get(k)
			co, err := e.encode(val)
			if err != nil {
				return 0, err
			}
			e.writeString(k)
			e.writeInt64(co)
		}
	case *value.Stem:
		e.writeTag(tagStem)
		defOff, err := e.encode(v.Default)
		if err != nil {
			return 0, err
		}
		e.writeInt64(defOff)
		e.writeInt64(int64(len(v.Tails)))
		for k, tv := range v.Tails {
			co, err := e.encode(tv)
			if err != nil {
				return 0, err
			}
			e.writeString(k)
			e.writeInt64(co)
		}
	default:
		return 0, fmt.Errorf("heap: cannot encode value of kind %s", ref.Kind())
	}
	return off, nil
}

// backrefSentinel marks an offset as referring to a singleton tag rather
// than a buffer position, so the decoder can tell them apart without a
// separate side-channel.
const backrefSentinel = int64(1) << 62

func (e *encoder) writeTag(t tag)        { e.buf.WriteByte(byte(t)) }
func (e *encoder) writeInt64(v int64)    { binary.Write(&e.buf, binary.LittleEndian, v) }
func (e *encoder) writeString(s string) {
	e.writeInt64(int64(len(s)))
	e.buf.WriteString(s)
}

// decoder reverses encoder: it reads records at known offsets and
// reconstructs value.Ref objects, invoking per-kind fix-ups the way the
// source's unflatten hook lets proxies re-resolve (spec.md §4.1.5).
type decoder struct {
	data  []byte
	cache map[int64]value.Ref
}

func newDecoder(data []byte) *decoder {
	return &decoder{data: data, cache: make(map[int64]value.Ref)}
}

func (d *decoder) decode(off int64) (value.Ref, error) {
	if off == -1 {
		return nil, nil
	}
	if off&backrefSentinel != 0 {
		switch tag(off &^ backrefSentinel) {
		case tagNil:
			return value.Nil, nil
		case tagTrue:
			return value.True, nil
		case tagFalse:
			return value.False, nil
		}
		return nil, fmt.Errorf("heap: bad singleton tag at %d", off)
	}
	if ref, ok := d.cache[off]; ok {
		return ref, nil
	}
	r := bytes.NewReader(d.data[off:])
	t, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("heap: truncated image at offset %d: %w", off, err)
	}
	switch tag(t) {
	case tagString:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		v := value.NewString(s)
		d.cache[off] = v
		return v, nil
	case tagInteger:
		n, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		v := &value.Integer{Value: n}
		d.cache[off] = v
		return v, nil
	case tagArray:
		n, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		arr := &value.Array{Items: make([]value.Ref, n)}
		d.cache[off] = arr
		childOffsets := make([]int64, n)
		for i := range childOffsets {
			childOffsets[i], err = readInt64(r)
			if err != nil {
				return nil, err
			}
		}
		for i, co := range childOffsets {
			item, err := d.decode(co)
			if err != nil {
				return nil, err
			}
			arr.Items[i] = item
		}
		return arr, nil
	case tagDirectory:
		n, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		dir := value.NewDirectory()
		d.cache[off] = dir
		for i := int64(0); i < n; i++ {
			key, err := readString(r)
			if err != nil {
				return nil, err
			}
			co, err := readInt64(r)
			if err != nil {
				return nil, err
			}
			val, err := d.decode(co)
			if err != nil {
				return nil, err
			}
			dir.Put(key, val)
		}
		return dir, nil
	case tagStem:
		defOff, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		n, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		stem := value.NewStem()
		d.cache[off] = stem
		def, err := d.decode(defOff)
		if err != nil {
			return nil, err
		}
		stem.Default = def
		for i := int64(0); i < n; i++ {
			key, err := readString(r)
			if err != nil {
				return nil, err
			}
			co, err := readInt64(r)
			if err != nil {
				return nil, err
			}
			val, err := d.decode(co)
			if err != nil {
				return nil, err
			}
			stem.Tails[key] = val
		}
		return stem, nil
	default:
		return nil, fmt.Errorf("heap: unknown tag %d at offset %d", t, off)
	}
}

func readInt64(r *bytes.Reader) (int64, error) {
	var v int64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readInt64(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := r.Read(buf); err != nil && n > 0 {
		return "", err
	}
	return string(buf), nil
}

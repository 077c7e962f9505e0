// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nativeactivation

import (
	"fmt"
	"math"
	"strconv"

	"github.com/oorexx/corexx/internal/value"
)

// CallContext carries the pseudo-argument values a native call is
// entitled to ask for (spec.md §4.3.1): the receiver, the method's
// defining scope, the super-class scope for this particular call, an
// implementation-defined CSELF pointer, the raw argument list, and the
// message name this call was sent as.
type CallContext struct {
	OSelf       value.Ref
	Scope       value.Ref
	SuperScope  value.Ref
	CSelf       interface{}
	ArgList     []value.Ref
	MessageName string
	Digits      int // current NUMERIC DIGITS, for whole-number range checks
}

// ArgError reports a structured argument error: the 1-based position of
// the offending argument and what was wrong with it (spec.md §4.3.1:
// "overflow and class-membership errors report the 1-based argument
// position and the offending object").
type ArgError struct {
	Position int
	Expected ArgType
	Got      value.Ref
	Reason   string
}

func (e *ArgError) Error() string {
	if e.Position == 0 {
		return fmt.Sprintf("native call: %s", e.Reason)
	}
	return fmt.Sprintf("native call argument %d: expected %s: %s", e.Position, e.Expected, e.Reason)
}

// Marshalled is one converted native argument, tagged by type so the
// call site can type-assert the concrete Go value it expects.
type Marshalled struct {
	Type  ArgType
	Value interface{}
}

// Marshal walks sig.Params() against ctx's positional arguments and
// pseudo-argument context, producing one Marshalled value per parameter
// (spec.md §4.3.1). Any value.Ref the marshaller itself allocates is also
// returned so the caller can hand it to a Locals table for protection
// (spec.md §4.3.2); none of marshalOne's conversions allocates one (each
// returns the argument itself or a plain Go value), so that list is empty.
func Marshal(sig Signature, ctx *CallContext) ([]Marshalled, []value.Ref, error) {
	params := sig.Params()
	out := make([]Marshalled, len(params))
	var created []value.Ref

	positional := 0
	for i, t := range params {
		pos := i + 1
		if t.IsPseudo() {
			v, err := marshalPseudo(t, ctx)
			if err != nil {
				return nil, nil, &ArgError{Position: pos, Expected: t, Reason: err.Error()}
			}
			out[i] = Marshalled{Type: t, Value: v}
			continue
		}

		var arg value.Ref
		if positional < len(ctx.ArgList) {
			arg = ctx.ArgList[positional]
		}
		positional++

		if arg == nil {
			if !t.IsOptional() {
				return nil, nil, &ArgError{Position: pos, Expected: t, Reason: "required argument omitted"}
			}
			out[i] = Marshalled{Type: t, Value: nil}
			continue
		}

		v, madeNew, err := marshalOne(t, arg, ctx.Digits)
		if err != nil {
			return nil, nil, &ArgError{Position: pos, Expected: t, Got: arg, Reason: err.Error()}
		}
		if madeNew {
			if ref, ok := v.(value.Ref); ok {
				created = append(created, ref)
			}
		}
		out[i] = Marshalled{Type: t, Value: v}
	}
	return out, created, nil
}

func marshalPseudo(t ArgType, ctx *CallContext) (interface{}, error) {
	switch t {
	case ArgOSelf:
		return ctx.OSelf, nil
	case ArgScope:
		return ctx.Scope, nil
	case ArgSuperScope:
		return ctx.SuperScope, nil
	case ArgCSelf:
		return ctx.CSelf, nil
	case ArgArgList:
		return ctx.ArgList, nil
	case ArgMessageName:
		return ctx.MessageName, nil
	default:
		return nil, fmt.Errorf("not a pseudo-argument type")
	}
}

// marshalOne converts one positional argument. madeNew reports whether
// the conversion allocated a fresh value.Ref the caller must protect
// (spec.md §4.3.2).
func marshalOne(t ArgType, arg value.Ref, digits int) (interface{}, bool, error) {
	switch t {
	case ArgObjectPtr, ArgPointerObject, ArgVariableReference:
		return arg, false, nil

	case ArgStringObject:
		s, ok := arg.(*value.String)
		if !ok {
			return nil, false, fmt.Errorf("not a string object")
		}
		return s, false, nil

	case ArgArrayObject:
		a, ok := arg.(*value.Array)
		if !ok {
			return nil, false, fmt.Errorf("not an array object")
		}
		return a, false, nil

	case ArgStemObject:
		st, ok := arg.(*value.Stem)
		if !ok {
			return nil, false, fmt.Errorf("not a stem object")
		}
		return st, false, nil

	case ArgCString, ArgPointerAsString:
		s, err := asString(arg)
		return s, false, err

	case ArgStringSize:
		s, err := asString(arg)
		if err != nil {
			return nil, false, err
		}
		return uint64(len(s)), false, nil

	case ArgDouble, ArgFloat:
		s, err := asString(arg)
		if err != nil {
			return nil, false, err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false, fmt.Errorf("not a valid number")
		}
		return f, false, nil

	case ArgLogical:
		switch arg {
		case value.True:
			return true, false, nil
		case value.False:
			return false, false, nil
		default:
			return nil, false, fmt.Errorf("not 0 or 1")
		}

	case ArgInt8, ArgInt16, ArgInt32, ArgInt64, ArgIntPtr,
		ArgUint8, ArgUint16, ArgUint32, ArgUint64, ArgUintPtr,
		ArgSizeT, ArgSSizeT:
		n, err := asInt64(arg)
		if err != nil {
			return nil, false, err
		}
		return n, false, overflowCheck(t, n)

	case ArgWholeNumber, ArgPositiveWholeNumber, ArgNonNegativeWholeNumber:
		n, err := asInt64(arg)
		if err != nil {
			return nil, false, err
		}
		if digits > 0 {
			limit := wholeNumberLimit(digits)
			if n >= limit || n <= -limit {
				return nil, false, fmt.Errorf("value exceeds current NUMERIC DIGITS")
			}
		}
		if t == ArgPositiveWholeNumber && n <= 0 {
			return nil, false, fmt.Errorf("must be a positive whole number")
		}
		if t == ArgNonNegativeWholeNumber && n < 0 {
			return nil, false, fmt.Errorf("must be a nonnegative whole number")
		}
		return n, false, nil

	case ArgClassObject, ArgMutableBuffer:
		return arg, false, nil

	default:
		return nil, false, fmt.Errorf("unsupported argument type %s", t)
	}
}

func asString(arg value.Ref) (string, error) {
	switch v := arg.(type) {
	case *value.String:
		return v.Text, nil
	case *value.Integer:
		return strconv.FormatInt(v.Value, 10), nil
	default:
		return "", fmt.Errorf("not convertible to a string")
	}
}

func asInt64(arg value.Ref) (int64, error) {
	switch v := arg.(type) {
	case *value.Integer:
		return v.Value, nil
	case *value.String:
		n, err := strconv.ParseInt(v.Text, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("not a whole number")
		}
		return n, nil
	default:
		return 0, fmt.Errorf("not convertible to a whole number")
	}
}

func overflowCheck(t ArgType, n int64) error {
	var lo, hi int64
	switch t {
	case ArgInt8:
		lo, hi = math.MinInt8, math.MaxInt8
	case ArgInt16:
		lo, hi = math.MinInt16, math.MaxInt16
	case ArgInt32:
		lo, hi = math.MinInt32, math.MaxInt32
	case ArgUint8:
		lo, hi = 0, math.MaxUint8
	case ArgUint16:
		lo, hi = 0, math.MaxUint16
	case ArgUint32:
		lo, hi = 0, math.MaxUint32
	case ArgUint64, ArgUintPtr, ArgSizeT:
		lo = 0
		if n < 0 {
			return fmt.Errorf("value overflows unsigned target type")
		}
		return nil
	default:
		return nil // 64-bit and pointer-width signed types: no narrower check
	}
	if n < lo || n > hi {
		return fmt.Errorf("value overflows target type")
	}
	return nil
}

// wholeNumberLimit returns 10^digits, the original interpreter's
// "a whole number representable in the current NUMERIC DIGITS" bound
// (spec.md §4.3.1).
func wholeNumberLimit(digits int) int64 {
	limit := int64(1)
	for i := 0; i < digits && limit < math.MaxInt64/10; i++ {
		limit *= 10
	}
	return limit
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nativeactivation implements the boundary between the
// interpreter and native (Go, in corexx's case, where the original
// interpreter would call C) code: signature-driven argument marshalling,
// local-reference protection, and the legacy variable-pool request-chain
// API (spec.md §4.3).
//
// Request/response shaping here follows
// program/proxyrpc/proxyrpc.go's convention of "one small, named type per
// operation, for regularity" — generalized from one type per RPC method
// to one descriptor per marshalling type code.
package nativeactivation

// ArgType is one of the 16-bit type codes a native routine's signature
// array uses (spec.md §4.3.1). The callee advertises a zero-terminated
// array of these; position 0 is always the return type.
type ArgType uint16

const (
	ArgEnd ArgType = iota // the zero terminator

	ArgObjectPtr // opaque object pointer (RexxObjectPtr)

	ArgInt8
	ArgInt16
	ArgInt32
	ArgInt64
	ArgIntPtr

	ArgUint8
	ArgUint16
	ArgUint32
	ArgUint64
	ArgUintPtr

	ArgSizeT
	ArgSSizeT

	ArgWholeNumber         // checked against current DIGITS
	ArgPositiveWholeNumber // > 0
	ArgNonNegativeWholeNumber
	ArgStringSize

	ArgDouble
	ArgFloat
	ArgLogical

	ArgCString
	ArgStringObject
	ArgArrayObject
	ArgStemObject // implicit lookup in caller context if absent
	ArgClassObject
	ArgMutableBuffer
	ArgVariableReference
	ArgPointerObject
	ArgPointerAsString

	// Pseudo-arguments: not pulled from the positional argument list, but
	// synthesised from the call context (spec.md §4.3.1).
	ArgOSelf        // the receiving object
	ArgScope        // the method's defining scope
	ArgSuperScope   // the super-class scope for this call
	ArgCSelf        // implementation-defined native "self" pointer
	ArgArgList      // the raw Rexx argument array
	ArgMessageName  // the message name this call was sent as
)

// IsPseudo reports whether t is synthesised from the call context rather
// than pulled from the positional argument list.
func (t ArgType) IsPseudo() bool {
	switch t {
	case ArgOSelf, ArgScope, ArgSuperScope, ArgCSelf, ArgArgList, ArgMessageName:
		return true
	default:
		return false
	}
}

// IsOptional reports whether a missing positional argument of type t is
// tolerated (spec.md §4.3.1: "omitted positional arguments are permitted
// only for optional types"). Object-shaped types are marshalled with a
// nil Value when omitted;
// numeric/logical/string-shaped scalar types have no safe default and
// are required.
func (t ArgType) IsOptional() bool {
	switch t {
	case ArgObjectPtr, ArgStringObject, ArgArrayObject, ArgStemObject,
		ArgClassObject, ArgMutableBuffer, ArgVariableReference,
		ArgPointerObject, ArgPointerAsString:
		return true
	default:
		return false
	}
}

func (t ArgType) String() string {
	switch t {
	case ArgEnd:
		return "END"
	case ArgObjectPtr:
		return "OBJECT"
	case ArgInt8, ArgInt16, ArgInt32, ArgInt64, ArgIntPtr:
		return "INT"
	case ArgUint8, ArgUint16, ArgUint32, ArgUint64, ArgUintPtr:
		return "UINT"
	case ArgSizeT:
		return "SIZE_T"
	case ArgSSizeT:
		return "SSIZE_T"
	case ArgWholeNumber:
		return "WHOLENUMBER"
	case ArgPositiveWholeNumber:
		return "POSITIVE_WHOLENUMBER"
	case ArgNonNegativeWholeNumber:
		return "NONNEGATIVE_WHOLENUMBER"
	case ArgStringSize:
		return "STRINGSIZE"
	case ArgDouble:
		return "DOUBLE"
	case ArgFloat:
		return "FLOAT"
	case ArgLogical:
		return "LOGICAL"
	case ArgCString:
		return "CSTRING"
	case ArgStringObject:
		return "RexxStringObject"
	case ArgArrayObject:
		return "RexxArrayObject"
	case ArgStemObject:
		return "RexxStemObject"
	case ArgClassObject:
		return "RexxClassObject"
	case ArgMutableBuffer:
		return "RexxMutableBufferObject"
	case ArgVariableReference:
		return "VARIABLE_REFERENCE"
	case ArgPointerObject:
		return "POINTER"
	case ArgPointerAsString:
		return "POINTERSTRING"
	case ArgOSelf:
		return "OSELF"
	case ArgScope:
		return "SCOPE"
	case ArgSuperScope:
		return "SUPERSCOPE"
	case ArgCSelf:
		return "CSELF"
	case ArgArgList:
		return "ARGLIST"
	case ArgMessageName:
		return "NAME"
	default:
		return "UNKNOWN"
	}
}

// Signature is the zero-terminated type-code array a native routine
// advertises. Signature[0] is the return type; Signature[1:] are the
// parameter types in call order.
type Signature []ArgType

// ReturnType answers the return-conversion slot.
func (s Signature) ReturnType() ArgType {
	if len(s) == 0 {
		return ArgEnd
	}
	return s[0]
}

// Params answers the parameter types, stopping at the first ArgEnd.
func (s Signature) Params() []ArgType {
	if len(s) == 0 {
		return nil
	}
	for i, t := range s[1:] {
		if t == ArgEnd {
			return s[1 : i+1]
		}
	}
	return s[1:]
}

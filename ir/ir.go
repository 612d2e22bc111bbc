// Package ir is a small typed intermediate representation for emitting
// straight line native code sequences. The code generator builds functions
// out of loads, stores, integer arithmetic, constants, and calls to external
// symbols declared on a compilation unit; control flow between sequences
// belongs to the caller.
//
// The representation is linear: a Func is its parameters plus one
// instruction stream in emission order. That is all the execution context
// accessor and the intrinsic call sites need, and it keeps lowering to machine
// code a single pass.
package ir

import (
	"fmt"
	"math"
	"strings"
)

// FuncRef is a unique identifier for a function declared on a Unit, and is
// used to reference the function in a call.
type FuncRef uint32

// String implements fmt.Stringer.
func (r FuncRef) String() string {
	return fmt.Sprintf("f%d", r)
}

// ValueID is the pure identifier of a Value without type information.
type ValueID uint32

const valueIDInvalid ValueID = math.MaxUint32

// ValueInvalid marks the absence of a value. The zero Value is not it: a
// zero Value carries id 0, the id of a function's first parameter, so any
// field that may hold no value must be set to ValueInvalid explicitly.
var ValueInvalid = Value{id: valueIDInvalid}

// Value represents a typed operand: a function parameter or the result of an
// instruction. Values are cheap handles and safe to copy.
type Value struct {
	id  ValueID
	typ *Type
}

// ID returns the ValueID of this value.
func (v Value) ID() ValueID {
	return v.id
}

// Type returns the Type of this value.
func (v Value) Type() *Type {
	return v.typ
}

// Valid returns true if this value is valid.
func (v Value) Valid() bool {
	return v.id != valueIDInvalid
}

// Format creates a debug string for this value.
func (v Value) Format() string {
	if !v.Valid() {
		return "v?"
	}
	return fmt.Sprintf("v%d", v.id)
}

func (v Value) formatWithType() string {
	return v.Format() + ":" + v.typ.String()
}

// Signature is a function type: the parameters a call site must supply and
// the results it receives.
type Signature struct {
	Params, Results []*Type
}

// String implements fmt.Stringer.
func (s *Signature) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteString(") -> ")
	switch len(s.Results) {
	case 0:
		sb.WriteString("void")
	case 1:
		sb.WriteString(s.Results[0].String())
	default:
		sb.WriteByte('(')
		for i, r := range s.Results {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(r.String())
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

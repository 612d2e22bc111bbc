package ir

import (
	"fmt"
	"strings"
)

// Func is a function under construction: its parameters and one linear
// instruction stream in emission order. Allocate an instruction, initialize
// it with one of the As* methods, then insert it:
//
//	instr := f.AllocateInstruction()
//	instr.AsLoad(ptr, 0x8, ir.I64)
//	f.InsertInstruction(instr)
//	v := instr.Return()
//
// A Func is owned by exactly one compilation flow and is not safe for
// concurrent use.
type Func struct {
	name   string
	sig    *Signature
	unit   *Unit
	params []Value
	instrs []*Instruction

	nextValueID ValueID
}

// Name returns the function's symbol name.
func (f *Func) Name() string {
	return f.name
}

// Sig returns the function's signature.
func (f *Func) Sig() *Signature {
	return f.sig
}

// Unit returns the compilation unit that owns this function.
func (f *Func) Unit() *Unit {
	return f.unit
}

// Param returns the i-th parameter's value.
func (f *Func) Param(i int) Value {
	if i >= len(f.params) {
		panic(fmt.Sprintf("BUG: parameter index out of range: %d", i))
	}
	return f.params[i]
}

// Params returns all parameter values.
func (f *Func) Params() []Value {
	return f.params
}

// Instructions returns the instruction stream in emission order. The
// returned slice is the function's own storage and must not be mutated.
func (f *Func) Instructions() []*Instruction {
	return f.instrs
}

// ValueCount returns the number of values allocated so far, parameters
// included. Value IDs are dense in [0, ValueCount).
func (f *Func) ValueCount() int {
	return int(f.nextValueID)
}

func (f *Func) allocateValue(typ *Type) Value {
	v := Value{id: f.nextValueID, typ: typ}
	f.nextValueID++
	return v
}

// AllocateInstruction returns a fresh instruction to be initialized with one
// of the As* methods and then inserted.
func (f *Func) AllocateInstruction() *Instruction {
	return &Instruction{rValue: ValueInvalid}
}

// InsertInstruction appends the instruction to the stream and allocates its
// result value if its opcode produces one.
func (f *Func) InsertInstruction(instr *Instruction) {
	switch instr.opcode {
	case OpcodeIconst, OpcodeF32const, OpcodeF64const,
		OpcodeIadd, OpcodeImul, OpcodeLoad, OpcodePtrToInt, OpcodeIntToPtr:
		instr.rValue = f.allocateValue(instr.typ)
	case OpcodeCall:
		if instr.typ != nil {
			instr.rValue = f.allocateValue(instr.typ)
		}
	case OpcodeStore, OpcodeReturn:
	default:
		panic(fmt.Sprintf("BUG: inserting uninitialized instruction: %d", instr.opcode))
	}
	f.instrs = append(f.instrs, instr)
}

// Format renders the whole function as text, one instruction per line. The
// output is deterministic and meant for debugging and tests.
func (f *Func) Format() string {
	var sb strings.Builder
	sb.WriteString("fn ")
	sb.WriteString(f.name)
	sb.WriteByte('(')
	for i, p := range f.params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.formatWithType())
	}
	sb.WriteByte(')')
	if len(f.sig.Results) > 0 {
		sb.WriteString(" -> ")
		for i, r := range f.sig.Results {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(r.String())
		}
	}
	sb.WriteByte('\n')
	for _, instr := range f.instrs {
		sb.WriteByte('\t')
		sb.WriteString(instr.format(f.unit))
		sb.WriteByte('\n')
	}
	return sb.String()
}

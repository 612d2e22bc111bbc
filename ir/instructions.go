package ir

import (
	"fmt"
	"math"
	"strings"
)

// Opcode represents an instruction.
type Opcode uint32

const (
	OpcodeInvalid Opcode = iota

	// OpcodeIconst materializes an integer constant: `v = Iconst imm`.
	OpcodeIconst

	// OpcodeF32const materializes a 32-bit floating point constant.
	OpcodeF32const

	// OpcodeF64const materializes a 64-bit floating point constant.
	OpcodeF64const

	// OpcodeIadd performs integer or pointer addition: `v = Iadd x, y`.
	OpcodeIadd

	// OpcodeImul performs integer multiplication: `v = Imul x, y`.
	OpcodeImul

	// OpcodeLoad reads typ's width from ptr+offset: `v = Load ptr, offset`.
	OpcodeLoad

	// OpcodeStore writes value's width to ptr+offset: `Store value, ptr, offset`.
	OpcodeStore

	// OpcodePtrToInt reinterprets a pointer as an i64: `v = PtrToInt ptr`.
	OpcodePtrToInt

	// OpcodeIntToPtr reinterprets an i64 as a pointer: `v = IntToPtr x`.
	OpcodeIntToPtr

	// OpcodeCall calls a function declared on the unit: `v = Call f, args...`.
	OpcodeCall

	// OpcodeReturn returns from the function: `Return vs...`.
	OpcodeReturn
)

// String implements fmt.Stringer.
func (o Opcode) String() string {
	switch o {
	case OpcodeIconst:
		return "Iconst"
	case OpcodeF32const:
		return "F32const"
	case OpcodeF64const:
		return "F64const"
	case OpcodeIadd:
		return "Iadd"
	case OpcodeImul:
		return "Imul"
	case OpcodeLoad:
		return "Load"
	case OpcodeStore:
		return "Store"
	case OpcodePtrToInt:
		return "PtrToInt"
	case OpcodeIntToPtr:
		return "IntToPtr"
	case OpcodeCall:
		return "Call"
	case OpcodeReturn:
		return "Return"
	}
	return "invalid"
}

// Instruction represents an instruction whose opcode is specified by Opcode.
// Since Go doesn't have union type, we use this flattened type for all
// instructions, and therefore each field has different meaning depending on
// Opcode.
type Instruction struct {
	opcode Opcode
	v      Value
	v2     Value
	vs     []Value
	u64    uint64
	typ    *Type

	rValue Value
}

// Opcode returns the opcode of this instruction.
func (i *Instruction) Opcode() Opcode {
	return i.opcode
}

// Return returns the Value produced by this instruction, or ValueInvalid for
// instructions without results.
func (i *Instruction) Return() Value {
	return i.rValue
}

// Arg returns the first argument of this instruction.
func (i *Instruction) Arg() Value {
	return i.v
}

// Arg2 returns the first two arguments of this instruction.
func (i *Instruction) Arg2() (Value, Value) {
	return i.v, i.v2
}

// Args returns all arguments of this instruction.
func (i *Instruction) Args() (v1, v2 Value, vs []Value) {
	return i.v, i.v2, i.vs
}

// AsIconst64 initializes this instruction as a 64-bit integer constant with OpcodeIconst.
func (i *Instruction) AsIconst64(v uint64) {
	i.opcode = OpcodeIconst
	i.typ = I64
	i.u64 = v
}

// AsIconst32 initializes this instruction as a 32-bit integer constant with OpcodeIconst.
func (i *Instruction) AsIconst32(v uint32) {
	i.opcode = OpcodeIconst
	i.typ = I32
	i.u64 = uint64(v)
}

// AsIconst initializes this instruction as an integer constant of an
// arbitrary integer or pointer type. The constant is stored zero extended.
func (i *Instruction) AsIconst(typ *Type, v uint64) {
	if !typ.IsInt() && !typ.IsPointer() {
		panic("BUG: AsIconst requires an integer or pointer type, have " + typ.String())
	}
	i.opcode = OpcodeIconst
	i.typ = typ
	i.u64 = v
}

// AsF32const initializes this instruction as a 32-bit floating point constant with OpcodeF32const.
func (i *Instruction) AsF32const(f float32) {
	i.opcode = OpcodeF32const
	i.typ = F32
	i.u64 = uint64(math.Float32bits(f))
}

// AsF64const initializes this instruction as a 64-bit floating point constant with OpcodeF64const.
func (i *Instruction) AsF64const(f float64) {
	i.opcode = OpcodeF64const
	i.typ = F64
	i.u64 = math.Float64bits(f)
}

// AsIadd initializes this instruction as an integer addition with OpcodeIadd.
// Pointer operands participate as 64-bit integers, which is how emitted code
// does its address arithmetic.
func (i *Instruction) AsIadd(x, y Value) {
	i.opcode = OpcodeIadd
	i.v = x
	i.v2 = y
	i.typ = x.Type()
}

// AsImul initializes this instruction as an integer multiplication with OpcodeImul.
func (i *Instruction) AsImul(x, y Value) {
	i.opcode = OpcodeImul
	i.v = x
	i.v2 = y
	i.typ = x.Type()
}

// AsLoad initializes this instruction as a load with OpcodeLoad. typ decides
// the width read from ptr+offset and the type of the result.
func (i *Instruction) AsLoad(ptr Value, offset uint32, typ *Type) {
	i.opcode = OpcodeLoad
	i.v = ptr
	i.u64 = uint64(offset)
	i.typ = typ
}

// AsStore initializes this instruction as a store with OpcodeStore. The
// width written to ptr+offset is value's type width.
func (i *Instruction) AsStore(value, ptr Value, offset uint32) {
	i.opcode = OpcodeStore
	i.v = value
	i.v2 = ptr
	i.u64 = uint64(offset)
}

// AsPtrToInt initializes this instruction as a pointer to integer
// reinterpretation with OpcodePtrToInt. The result is an i64.
func (i *Instruction) AsPtrToInt(ptr Value) {
	i.opcode = OpcodePtrToInt
	i.v = ptr
	i.typ = I64
}

// AsIntToPtr initializes this instruction as an integer to pointer
// reinterpretation with OpcodeIntToPtr. typ is the resulting pointer type and
// is how a differently typed view of the same address is synthesized.
func (i *Instruction) AsIntToPtr(x Value, typ *Type) {
	if !typ.IsPointer() {
		panic("BUG: AsIntToPtr requires a pointer type, have " + typ.String())
	}
	i.opcode = OpcodeIntToPtr
	i.v = x
	i.typ = typ
}

// AsCall initializes this instruction as a call to the function ref declared
// on the unit, with OpcodeCall: `v = Call ref, args...`.
func (i *Instruction) AsCall(ref FuncRef, sig *Signature, args []Value) {
	i.opcode = OpcodeCall
	i.u64 = uint64(ref)
	i.vs = args
	if len(sig.Results) > 0 {
		i.typ = sig.Results[0]
	}
}

// CallData returns the callee and arguments of an OpcodeCall instruction.
func (i *Instruction) CallData() (ref FuncRef, args []Value) {
	if i.opcode != OpcodeCall {
		panic("BUG: CallData only available for OpcodeCall")
	}
	return FuncRef(i.u64), i.vs
}

// AsReturn initializes this instruction as a return with OpcodeReturn.
func (i *Instruction) AsReturn(vs []Value) {
	i.opcode = OpcodeReturn
	i.vs = vs
}

// ReturnVals returns the values of an OpcodeReturn instruction.
func (i *Instruction) ReturnVals() []Value {
	return i.vs
}

// LoadData returns the pointer, offset, and type of an OpcodeLoad instruction.
func (i *Instruction) LoadData() (ptr Value, offset uint32, typ *Type) {
	if i.opcode != OpcodeLoad {
		panic("BUG: LoadData only available for OpcodeLoad")
	}
	return i.v, uint32(i.u64), i.typ
}

// StoreData returns the value, pointer, and offset of an OpcodeStore instruction.
func (i *Instruction) StoreData() (value, ptr Value, offset uint32) {
	if i.opcode != OpcodeStore {
		panic("BUG: StoreData only available for OpcodeStore")
	}
	return i.v, i.v2, uint32(i.u64)
}

// ConstData returns the raw bits of a constant instruction.
func (i *Instruction) ConstData() uint64 {
	switch i.opcode {
	case OpcodeIconst, OpcodeF32const, OpcodeF64const:
		return i.u64
	}
	panic("BUG: ConstData only available for constant opcodes")
}

// format renders the instruction, resolving call targets through the unit.
func (i *Instruction) format(u *Unit) string {
	var rhs string
	switch i.opcode {
	case OpcodeIconst:
		rhs = fmt.Sprintf("Iconst_%s %#x", i.typ, i.u64)
	case OpcodeF32const:
		rhs = fmt.Sprintf("F32const %f", math.Float32frombits(uint32(i.u64)))
	case OpcodeF64const:
		rhs = fmt.Sprintf("F64const %f", math.Float64frombits(i.u64))
	case OpcodeIadd, OpcodeImul:
		rhs = fmt.Sprintf("%s %s, %s", i.opcode, i.v.Format(), i.v2.Format())
	case OpcodeLoad:
		rhs = fmt.Sprintf("Load %s, %#x", i.v.Format(), uint32(i.u64))
	case OpcodeStore:
		rhs = fmt.Sprintf("Store %s, %s, %#x", i.v.Format(), i.v2.Format(), uint32(i.u64))
	case OpcodePtrToInt:
		rhs = fmt.Sprintf("PtrToInt %s", i.v.Format())
	case OpcodeIntToPtr:
		rhs = fmt.Sprintf("IntToPtr %s", i.v.Format())
	case OpcodeCall:
		args := make([]string, len(i.vs))
		for n, a := range i.vs {
			args[n] = a.Format()
		}
		callee := FuncRef(i.u64).String()
		if u != nil {
			callee = u.ExtFunc(FuncRef(i.u64)).Name
		}
		rhs = fmt.Sprintf("Call %s(%s)", callee, strings.Join(args, ", "))
	case OpcodeReturn:
		args := make([]string, len(i.vs))
		for n, a := range i.vs {
			args[n] = a.Format()
		}
		rhs = fmt.Sprintf("Return %s", strings.Join(args, ", "))
	default:
		rhs = "invalid"
	}
	if i.rValue.Valid() {
		return i.rValue.formatWithType() + " = " + rhs
	}
	return rhs
}

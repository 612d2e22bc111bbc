package ir

import "fmt"

// AddressSpace is a sparse, byte addressed memory image. The evaluator
// resolves loads and stores against it, which lets tests lay out runtime
// structures at arbitrary addresses and execute emitted sequences without
// generating native code.
type AddressSpace struct {
	bytes map[uint64]byte
}

// NewAddressSpace returns an empty address space. Unwritten bytes read as
// zero.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{bytes: map[uint64]byte{}}
}

func (a *AddressSpace) read(addr uint64, n uint32) (v uint64) {
	for i := uint32(0); i < n; i++ {
		v |= uint64(a.bytes[addr+uint64(i)]) << (8 * i)
	}
	return
}

func (a *AddressSpace) write(addr, v uint64, n uint32) {
	for i := uint32(0); i < n; i++ {
		a.bytes[addr+uint64(i)] = byte(v >> (8 * i))
	}
}

// WriteUint64 writes v little endian at addr.
func (a *AddressSpace) WriteUint64(addr, v uint64) {
	a.write(addr, v, 8)
}

// WriteUint32 writes v little endian at addr.
func (a *AddressSpace) WriteUint32(addr uint64, v uint32) {
	a.write(addr, uint64(v), 4)
}

// ReadUint64 reads a little endian uint64 at addr.
func (a *AddressSpace) ReadUint64(addr uint64) uint64 {
	return a.read(addr, 8)
}

// ReadUint32 reads a little endian uint32 at addr.
func (a *AddressSpace) ReadUint32(addr uint64) uint32 {
	return uint32(a.read(addr, 4))
}

// HostFunc handles a call to an external symbol during evaluation. Arguments
// and results use the same 64-bit representation as values: integers zero
// extended, floats as their IEEE 754 bit patterns.
type HostFunc func(args []uint64) []uint64

// Evaluator executes a function's instruction stream directly. All values
// are carried as uint64. Evaluation is a test and debugging aid: it assumes
// the stream was built through Func's builder methods and panics on anything
// malformed rather than returning errors.
type Evaluator struct {
	space  *AddressSpace
	funcs  map[string]HostFunc
	values map[ValueID]uint64
}

// NewEvaluator returns an evaluator resolving memory against space.
func NewEvaluator(space *AddressSpace) *Evaluator {
	return &Evaluator{space: space, funcs: map[string]HostFunc{}}
}

// Handle installs fn as the body of the external symbol name.
func (e *Evaluator) Handle(name string, fn HostFunc) {
	e.funcs[name] = fn
}

// ValueOf returns the value computed for v during the last Run.
func (e *Evaluator) ValueOf(v Value) uint64 {
	got, ok := e.values[v.ID()]
	if !ok {
		panic(fmt.Sprintf("BUG: value not computed: %s", v.Format()))
	}
	return got
}

func maskFor(t *Type) uint64 {
	if t.IsPointer() {
		return ^uint64(0)
	}
	switch t.Bits() {
	case 64:
		return ^uint64(0)
	case 32:
		return 0xffff_ffff
	case 16:
		return 0xffff
	case 8:
		return 0xff
	case 1:
		return 1
	}
	panic("BUG: mask of invalid width")
}

// Run executes f with the given parameter values and returns what its Return
// instruction produced, or nil if the stream ran to the end without one.
func (e *Evaluator) Run(f *Func, args ...uint64) []uint64 {
	if len(args) != len(f.params) {
		panic(fmt.Sprintf("BUG: function %s takes %d parameters, got %d arguments", f.name, len(f.params), len(args)))
	}
	e.values = make(map[ValueID]uint64, f.ValueCount())
	for i, p := range f.params {
		e.values[p.ID()] = args[i]
	}

	for _, instr := range f.instrs {
		switch instr.opcode {
		case OpcodeIconst, OpcodeF32const, OpcodeF64const:
			e.values[instr.rValue.ID()] = instr.u64
		case OpcodeIadd:
			x, y := e.values[instr.v.ID()], e.values[instr.v2.ID()]
			e.values[instr.rValue.ID()] = (x + y) & maskFor(instr.typ)
		case OpcodeImul:
			x, y := e.values[instr.v.ID()], e.values[instr.v2.ID()]
			e.values[instr.rValue.ID()] = (x * y) & maskFor(instr.typ)
		case OpcodeLoad:
			addr := e.values[instr.v.ID()] + instr.u64
			e.values[instr.rValue.ID()] = e.space.read(addr, instr.typ.Size())
		case OpcodeStore:
			addr := e.values[instr.v2.ID()] + instr.u64
			e.space.write(addr, e.values[instr.v.ID()], instr.v.Type().Size())
		case OpcodePtrToInt, OpcodeIntToPtr:
			e.values[instr.rValue.ID()] = e.values[instr.v.ID()]
		case OpcodeCall:
			ref, callArgs := instr.CallData()
			name := f.unit.ExtFunc(ref).Name
			fn, ok := e.funcs[name]
			if !ok {
				panic(fmt.Sprintf("BUG: no handler installed for external symbol %s", name))
			}
			vals := make([]uint64, len(callArgs))
			for i, a := range callArgs {
				vals[i] = e.values[a.ID()]
			}
			results := fn(vals)
			if instr.rValue.Valid() {
				e.values[instr.rValue.ID()] = results[0]
			}
		case OpcodeReturn:
			results := make([]uint64, len(instr.vs))
			for i, v := range instr.vs {
				results[i] = e.values[v.ID()]
			}
			return results
		default:
			panic(fmt.Sprintf("BUG: unknown opcode: %d", instr.opcode))
		}
	}
	return nil
}

// Package amd64 lowers ir functions to amd64 machine code.
//
// The lowering is naive: every value lives in a fixed stack slot,
// instructions move operands through a small scratch set (AX/CX for
// integers and pointers, X0/X1 for floats), and no register allocation
// happens. The output is the raw assembled byte sequence; resolving symbols
// and making the bytes executable belong to the linker and the runtime.
//
// Please refer to https://www.felixcloutier.com/x86/index.html
// if unfamiliar with amd64 instructions used here.
// Note that x86 pkg used here prefixes all the instructions with "A"
// e.g. MOVQ will be given as x86.AMOVQ.
package amd64

import (
	"fmt"

	asm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/wasmforge/forge/ir"
)

// Register conventions.
const (
	// reservedRegisterForSymbolTable R12: base of the runtime-provided symbol
	// table, an array of code pointers indexed by ir.FuncRef. R12 is callee
	// saved in the System V ABI, so the runtime entry points we call preserve
	// it and generated functions can keep calling through it without
	// reloading. Generated code never writes it.
	reservedRegisterForSymbolTable = x86.REG_R12

	// Scratch registers. All parameters, the context pointer in DI included,
	// are spilled to their stack slots in the preamble, so outside of call
	// argument sequences these are always free.
	scratchRegister       = x86.REG_AX
	scratchRegister2      = x86.REG_CX
	scratchFloatRegister  = x86.REG_X0
	scratchCalleeRegister = x86.REG_R11
)

// System V AMD64 argument and result registers. The context pointer is the
// implicit first argument of every generated function and therefore arrives
// in DI.
var (
	integerArgRegisters    = []int16{x86.REG_DI, x86.REG_SI, x86.REG_DX, x86.REG_CX, x86.REG_R8, x86.REG_R9}
	floatArgRegisters      = []int16{x86.REG_X0, x86.REG_X1, x86.REG_X2, x86.REG_X3, x86.REG_X4, x86.REG_X5, x86.REG_X6, x86.REG_X7}
	integerResultRegisters = []int16{x86.REG_AX, x86.REG_DX}
	floatResultRegisters   = []int16{x86.REG_X0, x86.REG_X1}
)

// trapSymbol is the declared name of the trap intrinsic. A call to it never
// returns, so it lowers to UD2 instead of a call sequence.
const trapSymbol = "llvm.trap"

// Lower assembles fn into amd64 machine code. The instruction stream must
// end in a return or a trap; anything the naive lowering cannot express,
// such as arithmetic on sub-32-bit widths or calls exceeding the argument
// registers, is reported as an error rather than miscompiled.
func Lower(fn *ir.Func) ([]byte, error) {
	if err := terminated(fn); err != nil {
		return nil, err
	}
	c, err := newCompiler(fn)
	if err != nil {
		return nil, err
	}
	if err := c.emitPreamble(); err != nil {
		return nil, err
	}
	for _, instr := range fn.Instructions() {
		if err := c.compileInstruction(instr); err != nil {
			return nil, err
		}
	}
	return c.builder.Assemble(), nil
}

// terminated errors unless the instruction stream ends in a return or a trap
// call. Falling off the end of the assembled bytes would execute whatever
// follows them in memory.
func terminated(fn *ir.Func) error {
	instrs := fn.Instructions()
	if len(instrs) == 0 {
		return fmt.Errorf("function %s has no instructions", fn.Name())
	}
	last := instrs[len(instrs)-1]
	switch last.Opcode() {
	case ir.OpcodeReturn:
		return nil
	case ir.OpcodeCall:
		if ref, _ := last.CallData(); fn.Unit().ExtFunc(ref).Name == trapSymbol {
			return nil
		}
	}
	return fmt.Errorf("function %s does not end with a return or a trap", fn.Name())
}

type compiler struct {
	fn      *ir.Func
	builder *asm.Builder
	// frameSize is the stack space reserved in the preamble: one 8 byte slot
	// per value, padded so the stack stays 16 byte aligned at call sites.
	frameSize int64
}

func newCompiler(fn *ir.Func) (*compiler, error) {
	// We can choose arbitrary number instead of 1024 which indicates the cache size in the compiler.
	b, err := asm.NewBuilder("amd64", 1024)
	if err != nil {
		return nil, fmt.Errorf("failed to create a new assembly builder: %w", err)
	}

	frame := 8 * int64(fn.ValueCount())
	frame = (frame + 15) &^ 15
	// Entry pushed the return address, so the extra 8 keeps SP at a 16 byte
	// boundary when this function calls out.
	frame += 8
	return &compiler{fn: fn, builder: b, frameSize: frame}, nil
}

func (c *compiler) newProg() (prog *obj.Prog) {
	prog = c.builder.NewProg()
	return
}

func (c *compiler) addInstruction(prog *obj.Prog) {
	c.builder.AddInstruction(prog)
}

// slotOffset is v's stack slot relative to SP after the preamble adjusted it.
func slotOffset(v ir.Value) int64 {
	return 8 * int64(v.ID())
}

// loadSlot moves v's slot into reg. Slots always move 8 bytes at a time;
// MOVQ works for both general purpose and XMM destinations, and slots hold
// canonical zero extended values.
func (c *compiler) loadSlot(reg int16, v ir.Value) {
	prog := c.newProg()
	prog.As = x86.AMOVQ
	prog.From.Type = obj.TYPE_MEM
	prog.From.Reg = x86.REG_SP
	prog.From.Offset = slotOffset(v)
	prog.To.Type = obj.TYPE_REG
	prog.To.Reg = reg
	c.addInstruction(prog)
}

// storeSlot moves reg into v's slot.
func (c *compiler) storeSlot(v ir.Value, reg int16) {
	prog := c.newProg()
	prog.As = x86.AMOVQ
	prog.From.Type = obj.TYPE_REG
	prog.From.Reg = reg
	prog.To.Type = obj.TYPE_MEM
	prog.To.Reg = x86.REG_SP
	prog.To.Offset = slotOffset(v)
	c.addInstruction(prog)
}

// emitPreamble reserves the frame and spills every parameter from its
// System V argument register into its slot.
func (c *compiler) emitPreamble() error {
	sub := c.newProg()
	sub.As = x86.ASUBQ
	sub.From.Type = obj.TYPE_CONST
	sub.From.Offset = c.frameSize
	sub.To.Type = obj.TYPE_REG
	sub.To.Reg = x86.REG_SP
	c.addInstruction(sub)

	ints, floats := 0, 0
	for _, p := range c.fn.Params() {
		if p.Type().IsFloat() {
			if floats == len(floatArgRegisters) {
				return fmt.Errorf("function %s exceeds the %d float parameter registers", c.fn.Name(), len(floatArgRegisters))
			}
			c.storeSlot(p, floatArgRegisters[floats])
			floats++
		} else {
			if ints == len(integerArgRegisters) {
				return fmt.Errorf("function %s exceeds the %d integer parameter registers", c.fn.Name(), len(integerArgRegisters))
			}
			c.storeSlot(p, integerArgRegisters[ints])
			ints++
		}
	}
	return nil
}

func (c *compiler) compileInstruction(instr *ir.Instruction) error {
	switch instr.Opcode() {
	case ir.OpcodeIconst, ir.OpcodeF32const, ir.OpcodeF64const:
		c.compileConst(instr)
	case ir.OpcodeIadd, ir.OpcodeImul:
		return c.compileArith(instr)
	case ir.OpcodeLoad:
		c.compileLoad(instr)
	case ir.OpcodeStore:
		c.compileStore(instr)
	case ir.OpcodePtrToInt, ir.OpcodeIntToPtr:
		c.compileMove(instr)
	case ir.OpcodeCall:
		return c.compileCall(instr)
	case ir.OpcodeReturn:
		return c.compileReturn(instr)
	default:
		return fmt.Errorf("unsupported instruction: %s", instr.Opcode())
	}
	return nil
}

// compileConst materializes the constant's raw bits through the integer
// scratch register. Float constants are bit patterns here; they only become
// SSE values when an instruction reads them.
func (c *compiler) compileConst(instr *ir.Instruction) {
	prog := c.newProg()
	prog.As = x86.AMOVQ
	prog.From.Type = obj.TYPE_CONST
	prog.From.Offset = int64(instr.ConstData())
	prog.To.Type = obj.TYPE_REG
	prog.To.Reg = scratchRegister
	c.addInstruction(prog)

	c.storeSlot(instr.Return(), scratchRegister)
}

func (c *compiler) compileArith(instr *ir.Instruction) error {
	x, y := instr.Arg2()

	var as obj.As
	switch bits := x.Type().Bits(); {
	case x.Type().IsFloat():
		return fmt.Errorf("%s on float operands is not supported", instr.Opcode())
	case bits == 64:
		if instr.Opcode() == ir.OpcodeIadd {
			as = x86.AADDQ
		} else {
			as = x86.AIMULQ
		}
	case bits == 32:
		if instr.Opcode() == ir.OpcodeIadd {
			as = x86.AADDL
		} else {
			as = x86.AIMULL
		}
	default:
		return fmt.Errorf("%s on %d bit operands is not supported", instr.Opcode(), bits)
	}

	c.loadSlot(scratchRegister, x)
	c.loadSlot(scratchRegister2, y)

	// op CX, AX. The 32 bit forms write the low half of AX, which the
	// hardware zero extends, keeping the slot canonical.
	prog := c.newProg()
	prog.As = as
	prog.From.Type = obj.TYPE_REG
	prog.From.Reg = scratchRegister2
	prog.To.Type = obj.TYPE_REG
	prog.To.Reg = scratchRegister
	c.addInstruction(prog)

	c.storeSlot(instr.Return(), scratchRegister)
	return nil
}

// compileLoad reads typ's width from [ptr+offset]. Narrow integers are zero
// extended to the full slot width; floats go through SSE registers, which
// zero the rest of the register on a memory load.
func (c *compiler) compileLoad(instr *ir.Instruction) {
	ptr, offset, typ := instr.LoadData()
	c.loadSlot(scratchRegister2, ptr)

	prog := c.newProg()
	dataReg := int16(scratchRegister)
	switch {
	case typ.IsFloat() && typ.Bits() == 32:
		prog.As = x86.AMOVSS
		dataReg = scratchFloatRegister
	case typ.IsFloat():
		prog.As = x86.AMOVSD
		dataReg = scratchFloatRegister
	case typ.IsPointer() || typ.Bits() == 64:
		prog.As = x86.AMOVQ
	case typ.Bits() == 32:
		// MOVL zero extends into the upper half.
		prog.As = x86.AMOVL
	case typ.Bits() == 16:
		prog.As = x86.AMOVWQZX
	default: // i8 and i1; an i1 occupies one byte.
		prog.As = x86.AMOVBQZX
	}
	prog.From.Type = obj.TYPE_MEM
	prog.From.Reg = scratchRegister2
	prog.From.Offset = int64(offset)
	prog.To.Type = obj.TYPE_REG
	prog.To.Reg = dataReg
	c.addInstruction(prog)

	c.storeSlot(instr.Return(), dataReg)
}

// compileStore writes the value's width to [ptr+offset].
func (c *compiler) compileStore(instr *ir.Instruction) {
	value, ptr, offset := instr.StoreData()
	typ := value.Type()

	dataReg := int16(scratchRegister)
	if typ.IsFloat() {
		dataReg = scratchFloatRegister
	}
	c.loadSlot(dataReg, value)
	c.loadSlot(scratchRegister2, ptr)

	prog := c.newProg()
	switch {
	case typ.IsFloat() && typ.Bits() == 32:
		prog.As = x86.AMOVSS
	case typ.IsFloat():
		prog.As = x86.AMOVSD
	case typ.IsPointer() || typ.Bits() == 64:
		prog.As = x86.AMOVQ
	case typ.Bits() == 32:
		prog.As = x86.AMOVL
	case typ.Bits() == 16:
		prog.As = x86.AMOVW
	default:
		prog.As = x86.AMOVB
	}
	prog.From.Type = obj.TYPE_REG
	prog.From.Reg = dataReg
	prog.To.Type = obj.TYPE_MEM
	prog.To.Reg = scratchRegister2
	prog.To.Offset = int64(offset)
	c.addInstruction(prog)
}

// compileMove handles ptrtoint and inttoptr: both are pure reinterpretations
// and lower to a slot to slot move.
func (c *compiler) compileMove(instr *ir.Instruction) {
	c.loadSlot(scratchRegister, instr.Arg())
	c.storeSlot(instr.Return(), scratchRegister)
}

// compileCall loads arguments into their System V registers straight from
// their slots, loads the callee's code pointer out of the symbol table, and
// calls it indirectly. A call to the trap symbol lowers to UD2 instead: it
// never returns and needs no arguments.
func (c *compiler) compileCall(instr *ir.Instruction) error {
	ref, args := instr.CallData()
	if c.fn.Unit().ExtFunc(ref).Name == trapSymbol {
		c.emitTrap()
		return nil
	}

	ints, floats := 0, 0
	for _, a := range args {
		var reg int16
		if a.Type().IsFloat() {
			if floats == len(floatArgRegisters) {
				return fmt.Errorf("call to %s exceeds the %d float argument registers", c.fn.Unit().ExtFunc(ref).Name, len(floatArgRegisters))
			}
			reg = floatArgRegisters[floats]
			floats++
		} else {
			if ints == len(integerArgRegisters) {
				return fmt.Errorf("call to %s exceeds the %d integer argument registers", c.fn.Unit().ExtFunc(ref).Name, len(integerArgRegisters))
			}
			reg = integerArgRegisters[ints]
			ints++
		}
		c.loadSlot(reg, a)
	}

	load := c.newProg()
	load.As = x86.AMOVQ
	load.From.Type = obj.TYPE_MEM
	load.From.Reg = reservedRegisterForSymbolTable
	load.From.Offset = 8 * int64(ref)
	load.To.Type = obj.TYPE_REG
	load.To.Reg = scratchCalleeRegister
	c.addInstruction(load)

	call := c.newProg()
	call.As = obj.ACALL
	call.To.Type = obj.TYPE_REG
	call.To.Reg = scratchCalleeRegister
	c.addInstruction(call)

	if result := instr.Return(); result.Valid() {
		reg := int16(x86.REG_AX)
		if result.Type().IsFloat() {
			reg = x86.REG_X0
		}
		c.storeSlot(result, reg)
	}
	return nil
}

// compileReturn loads results into their System V registers, releases the
// frame, and returns.
func (c *compiler) compileReturn(instr *ir.Instruction) error {
	ints, floats := 0, 0
	for _, v := range instr.ReturnVals() {
		var reg int16
		if v.Type().IsFloat() {
			if floats == len(floatResultRegisters) {
				return fmt.Errorf("function %s exceeds the %d float result registers", c.fn.Name(), len(floatResultRegisters))
			}
			reg = floatResultRegisters[floats]
			floats++
		} else {
			if ints == len(integerResultRegisters) {
				return fmt.Errorf("function %s exceeds the %d integer result registers", c.fn.Name(), len(integerResultRegisters))
			}
			reg = integerResultRegisters[ints]
			ints++
		}
		c.loadSlot(reg, v)
	}

	add := c.newProg()
	add.As = x86.AADDQ
	add.From.Type = obj.TYPE_CONST
	add.From.Offset = c.frameSize
	add.To.Type = obj.TYPE_REG
	add.To.Reg = x86.REG_SP
	c.addInstruction(add)

	ret := c.newProg()
	ret.As = obj.ARET
	c.addInstruction(ret)
	return nil
}

func (c *compiler) emitTrap() {
	ud2 := c.newProg()
	ud2.As = x86.AUD2
	c.addInstruction(ud2)
}

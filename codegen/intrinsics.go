// Package codegen bridges a module's structural metadata to the native code
// the backend emits: it declares the external symbols generated code may call
// (the intrinsics) and materializes, per compiled function, the access paths
// into the execution context for memories, tables, globals, signature
// identifiers, and imported functions.
//
// The symbol names declared here and the context layout in package vmctx are
// the binary contract with the runtime and the linker. Changing either breaks
// every artifact compiled before the change.
package codegen

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wasmforge/forge/ir"
	"github.com/wasmforge/forge/wasm"
)

// Intrinsics is the declaration table of one compilation unit: a handle for
// every external symbol generated code may reference, plus the type handles
// the backend shares across all function compilations in the unit.
//
// The table is built once per unit by Declare and is read-only afterwards.
// Type handles must be compared by identity, so everything emitting code for
// the unit works off this one table instead of rebuilding types.
type Intrinsics struct {
	CtlzI32 ir.FuncRef
	CtlzI64 ir.FuncRef

	CttzI32 ir.FuncRef
	CttzI64 ir.FuncRef

	CtpopI32 ir.FuncRef
	CtpopI64 ir.FuncRef

	SqrtF32 ir.FuncRef
	SqrtF64 ir.FuncRef

	MinF32 ir.FuncRef
	MinF64 ir.FuncRef

	MaxF32 ir.FuncRef
	MaxF64 ir.FuncRef

	CeilF32 ir.FuncRef
	CeilF64 ir.FuncRef

	FloorF32 ir.FuncRef
	FloorF64 ir.FuncRef

	TruncF32 ir.FuncRef
	TruncF64 ir.FuncRef

	NearbyintF32 ir.FuncRef
	NearbyintF64 ir.FuncRef

	FabsF32 ir.FuncRef
	FabsF64 ir.FuncRef

	CopysignF32 ir.FuncRef
	CopysignF64 ir.FuncRef

	// ExpectI1 is a branch likelihood hint: the second argument is the value
	// the first is expected to be. It has no semantic effect, only code
	// layout.
	ExpectI1 ir.FuncRef
	// Trap terminates execution abnormally and does not return.
	Trap ir.FuncRef

	// Runtime entry points for linear memory management, one per combination
	// of {grow, size} x {dynamic, static, shared} x {local, import}. Grow
	// takes (ctx, memory index, delta in pages) and returns the previous page
	// count, or vmctx.GrowFailed when the runtime cannot grow the memory.
	// Size takes (ctx, memory index) and returns the current page count.

	MemoryGrowDynamicLocal  ir.FuncRef
	MemoryGrowStaticLocal   ir.FuncRef
	MemoryGrowSharedLocal   ir.FuncRef
	MemoryGrowDynamicImport ir.FuncRef
	MemoryGrowStaticImport  ir.FuncRef
	MemoryGrowSharedImport  ir.FuncRef

	MemorySizeDynamicLocal  ir.FuncRef
	MemorySizeStaticLocal   ir.FuncRef
	MemorySizeSharedLocal   ir.FuncRef
	MemorySizeDynamicImport ir.FuncRef
	MemorySizeStaticImport  ir.FuncRef
	MemorySizeSharedImport  ir.FuncRef

	// Scalar type handles.
	Void *ir.Type
	I1   *ir.Type
	I8   *ir.Type
	I16  *ir.Type
	I32  *ir.Type
	I64  *ir.Type
	F32  *ir.Type
	F64  *ir.Type

	// Pointer handles to each scalar. I8Ptr doubles as the generic byte
	// pointer.
	I8Ptr  *ir.Type
	I16Ptr *ir.Type
	I32Ptr *ir.Type
	I64Ptr *ir.Type
	F32Ptr *ir.Type
	F64Ptr *ir.Type

	// CtxPtr is the type of the execution context pointer every generated
	// function takes as its first parameter. The pointee mirrors
	// vmctx.Context field for field.
	CtxPtr *ir.Type

	// MemoryDesc and TableDesc mirror vmctx.Memory and vmctx.Table.
	MemoryDesc    *ir.Type
	MemoryDescPtr *ir.Type
	TableDesc     *ir.Type
	TableDescPtr  *ir.Type

	// ImportedFuncDesc mirrors vmctx.ImportedFunc: one inline record per
	// imported function in the context's array.
	ImportedFuncDesc *ir.Type

	// Anyfunc mirrors vmctx.Anyfunc, the element type of tables.
	Anyfunc *ir.Type

	ctx *ir.Type

	// Array pointer types behind the context's fields, used by Ctx when it
	// materializes access paths.
	memoryArray       *ir.Type // MemoryDesc**
	tableArray        *ir.Type // TableDesc**
	globalArray       *ir.Type // i64**
	importedFuncArray *ir.Type // ImportedFuncDesc*, records inline
	sigIDArray        *ir.Type // i32*

	unit *ir.Unit
}

// Declare registers every intrinsic symbol into unit and returns the handle
// table. It must be called exactly once per unit: a second call collides on
// the first symbol name and panics, which is the intended failure mode for
// this programming error.
//
// The ctlz and cttz intrinsics take a trailing i1 deciding whether a zero
// input is undefined. WebAssembly requires the bit width for zero inputs, so
// call sites must pass the flag as zero.
func Declare(unit *ir.Unit) *Intrinsics {
	if unit == nil {
		panic("BUG: Declare requires a unit")
	}

	in := &Intrinsics{
		Void: ir.Void,
		I1:   ir.I1,
		I8:   ir.I8,
		I16:  ir.I16,
		I32:  ir.I32,
		I64:  ir.I64,
		F32:  ir.F32,
		F64:  ir.F64,

		I8Ptr:  ir.PointerTo(ir.I8),
		I16Ptr: ir.PointerTo(ir.I16),
		I32Ptr: ir.PointerTo(ir.I32),
		I64Ptr: ir.PointerTo(ir.I64),
		F32Ptr: ir.PointerTo(ir.F32),
		F64Ptr: ir.PointerTo(ir.F64),

		unit: unit,
	}

	// The descriptor types repeat the layouts of package vmctx:
	// base, bound, owner for memories and tables; code pointer and callee
	// context for imported functions. The context struct starts opaque
	// because its imported function records point back at it.
	in.ctx = ir.OpaqueStructOf("ctx")
	in.CtxPtr = ir.PointerTo(in.ctx)
	in.MemoryDesc = ir.StructOf("memory", in.I8Ptr, in.I64, in.I8Ptr)
	in.MemoryDescPtr = ir.PointerTo(in.MemoryDesc)
	in.TableDesc = ir.StructOf("table", in.I8Ptr, in.I64, in.I8Ptr)
	in.TableDescPtr = ir.PointerTo(in.TableDesc)
	in.ImportedFuncDesc = ir.StructOf("imported_func", in.I8Ptr, in.CtxPtr)
	in.Anyfunc = ir.StructOf("anyfunc", in.I8Ptr, in.CtxPtr, in.I32)

	in.memoryArray = ir.PointerTo(in.MemoryDescPtr)
	in.tableArray = ir.PointerTo(in.TableDescPtr)
	in.globalArray = ir.PointerTo(in.I64Ptr)
	in.importedFuncArray = ir.PointerTo(in.ImportedFuncDesc)
	in.sigIDArray = in.I32Ptr

	in.ctx.SetBody(
		in.memoryArray,
		in.tableArray,
		in.globalArray,
		in.memoryArray,
		in.tableArray,
		in.globalArray,
		in.importedFuncArray,
		in.sigIDArray,
	)

	i32FlagSig := &ir.Signature{Params: []*ir.Type{in.I32, in.I1}, Results: []*ir.Type{in.I32}}
	i64FlagSig := &ir.Signature{Params: []*ir.Type{in.I64, in.I1}, Results: []*ir.Type{in.I64}}
	i32UnarySig := &ir.Signature{Params: []*ir.Type{in.I32}, Results: []*ir.Type{in.I32}}
	i64UnarySig := &ir.Signature{Params: []*ir.Type{in.I64}, Results: []*ir.Type{in.I64}}
	f32UnarySig := &ir.Signature{Params: []*ir.Type{in.F32}, Results: []*ir.Type{in.F32}}
	f64UnarySig := &ir.Signature{Params: []*ir.Type{in.F64}, Results: []*ir.Type{in.F64}}
	f32BinarySig := &ir.Signature{Params: []*ir.Type{in.F32, in.F32}, Results: []*ir.Type{in.F32}}
	f64BinarySig := &ir.Signature{Params: []*ir.Type{in.F64, in.F64}, Results: []*ir.Type{in.F64}}
	expectSig := &ir.Signature{Params: []*ir.Type{in.I1, in.I1}, Results: []*ir.Type{in.I1}}
	trapSig := &ir.Signature{}
	growSig := &ir.Signature{Params: []*ir.Type{in.CtxPtr, in.I32, in.I32}, Results: []*ir.Type{in.I32}}
	sizeSig := &ir.Signature{Params: []*ir.Type{in.CtxPtr, in.I32}, Results: []*ir.Type{in.I32}}

	declare := func(name string, sig *ir.Signature) ir.FuncRef {
		ref := unit.DeclareFunc(name, sig)
		Logger().Debug("declared intrinsic",
			zap.String("unit", unit.Name()),
			zap.String("symbol", name),
			zap.Uint32("ref", uint32(ref)))
		return ref
	}

	in.CtlzI32 = declare("llvm.ctlz.i32", i32FlagSig)
	in.CtlzI64 = declare("llvm.ctlz.i64", i64FlagSig)
	in.CttzI32 = declare("llvm.cttz.i32", i32FlagSig)
	in.CttzI64 = declare("llvm.cttz.i64", i64FlagSig)
	in.CtpopI32 = declare("llvm.ctpop.i32", i32UnarySig)
	in.CtpopI64 = declare("llvm.ctpop.i64", i64UnarySig)

	in.SqrtF32 = declare("llvm.sqrt.f32", f32UnarySig)
	in.SqrtF64 = declare("llvm.sqrt.f64", f64UnarySig)
	in.MinF32 = declare("llvm.minnum.f32", f32BinarySig)
	in.MinF64 = declare("llvm.minnum.f64", f64BinarySig)
	in.MaxF32 = declare("llvm.maxnum.f32", f32BinarySig)
	in.MaxF64 = declare("llvm.maxnum.f64", f64BinarySig)
	in.CeilF32 = declare("llvm.ceil.f32", f32UnarySig)
	in.CeilF64 = declare("llvm.ceil.f64", f64UnarySig)
	in.FloorF32 = declare("llvm.floor.f32", f32UnarySig)
	in.FloorF64 = declare("llvm.floor.f64", f64UnarySig)
	in.TruncF32 = declare("llvm.trunc.f32", f32UnarySig)
	in.TruncF64 = declare("llvm.trunc.f64", f64UnarySig)
	in.NearbyintF32 = declare("llvm.nearbyint.f32", f32UnarySig)
	in.NearbyintF64 = declare("llvm.nearbyint.f64", f64UnarySig)
	in.FabsF32 = declare("llvm.fabs.f32", f32UnarySig)
	in.FabsF64 = declare("llvm.fabs.f64", f64UnarySig)
	in.CopysignF32 = declare("llvm.copysign.f32", f32BinarySig)
	in.CopysignF64 = declare("llvm.copysign.f64", f64BinarySig)

	in.ExpectI1 = declare("llvm.expect.i1", expectSig)
	in.Trap = declare("llvm.trap", trapSig)

	in.MemoryGrowDynamicLocal = declare("vm.memory.grow.dynamic.local", growSig)
	in.MemoryGrowStaticLocal = declare("vm.memory.grow.static.local", growSig)
	in.MemoryGrowSharedLocal = declare("vm.memory.grow.shared.local", growSig)
	in.MemoryGrowDynamicImport = declare("vm.memory.grow.dynamic.import", growSig)
	in.MemoryGrowStaticImport = declare("vm.memory.grow.static.import", growSig)
	in.MemoryGrowSharedImport = declare("vm.memory.grow.shared.import", growSig)

	in.MemorySizeDynamicLocal = declare("vm.memory.size.dynamic.local", sizeSig)
	in.MemorySizeStaticLocal = declare("vm.memory.size.static.local", sizeSig)
	in.MemorySizeSharedLocal = declare("vm.memory.size.shared.local", sizeSig)
	in.MemorySizeDynamicImport = declare("vm.memory.size.dynamic.import", sizeSig)
	in.MemorySizeStaticImport = declare("vm.memory.size.static.import", sizeSig)
	in.MemorySizeSharedImport = declare("vm.memory.size.shared.import", sizeSig)

	return in
}

// Unit returns the compilation unit this table was declared against.
func (in *Intrinsics) Unit() *ir.Unit {
	return in.unit
}

// MemoryGrowFn returns the grow entry point serving a memory of the given
// style and locality. The driver calls it when lowering memory.grow.
func (in *Intrinsics) MemoryGrowFn(style wasm.MemoryStyle, imported bool) ir.FuncRef {
	switch style {
	case wasm.MemoryStyleDynamic:
		if imported {
			return in.MemoryGrowDynamicImport
		}
		return in.MemoryGrowDynamicLocal
	case wasm.MemoryStyleStatic:
		if imported {
			return in.MemoryGrowStaticImport
		}
		return in.MemoryGrowStaticLocal
	case wasm.MemoryStyleShared:
		if imported {
			return in.MemoryGrowSharedImport
		}
		return in.MemoryGrowSharedLocal
	}
	panic(fmt.Sprintf("BUG: unknown memory style: %d", style))
}

// MemorySizeFn returns the size entry point serving a memory of the given
// style and locality. The driver calls it when lowering memory.size.
func (in *Intrinsics) MemorySizeFn(style wasm.MemoryStyle, imported bool) ir.FuncRef {
	switch style {
	case wasm.MemoryStyleDynamic:
		if imported {
			return in.MemorySizeDynamicImport
		}
		return in.MemorySizeDynamicLocal
	case wasm.MemoryStyleStatic:
		if imported {
			return in.MemorySizeStaticImport
		}
		return in.MemorySizeStaticLocal
	case wasm.MemoryStyleShared:
		if imported {
			return in.MemorySizeSharedImport
		}
		return in.MemorySizeSharedLocal
	}
	panic(fmt.Sprintf("BUG: unknown memory style: %d", style))
}

// ValueType returns the scalar type handle for a wasm value type.
func (in *Intrinsics) ValueType(t wasm.ValueType) *ir.Type {
	switch t {
	case wasm.ValueTypeI32:
		return in.I32
	case wasm.ValueTypeI64:
		return in.I64
	case wasm.ValueTypeF32:
		return in.F32
	case wasm.ValueTypeF64:
		return in.F64
	}
	panic(fmt.Sprintf("BUG: unknown value type: %#x", t))
}

// ValuePtrType returns the pointer type handle whose pointee width matches a
// wasm value type. Global accesses go through these so that loads and stores
// touch only the declared width of an 8-byte storage cell.
func (in *Intrinsics) ValuePtrType(t wasm.ValueType) *ir.Type {
	switch t {
	case wasm.ValueTypeI32:
		return in.I32Ptr
	case wasm.ValueTypeI64:
		return in.I64Ptr
	case wasm.ValueTypeF32:
		return in.F32Ptr
	case wasm.ValueTypeF64:
		return in.F64Ptr
	}
	panic(fmt.Sprintf("BUG: unknown value type: %#x", t))
}

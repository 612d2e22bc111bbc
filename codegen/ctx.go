package codegen

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wasmforge/forge/ir"
	"github.com/wasmforge/forge/vmctx"
	"github.com/wasmforge/forge/wasm"
)

// Ctx materializes access paths into the execution context for one function
// compilation. Each accessor method resolves a unified index against the
// module metadata, emits the loads that reach the entity through the context
// pointer, and memoizes the result so later references within the same
// function body reuse it.
//
// A Ctx is owned by exactly one in-flight function compilation and is
// discarded when that compilation ends. Entries are inserted at most once per
// index and never invalidated, which is sound because everything cached is
// either immutable for the instance's lifetime (static bases, constant
// globals, imported function records, signature identifiers) or is a pointer
// that stays valid while the values behind it change (descriptor pointers).
type Ctx struct {
	in     *Intrinsics
	module *wasm.Module
	fn     *ir.Func
	ctxPtr ir.Value

	memories      map[wasm.Index]*memoryCache
	tables        map[wasm.Index]ir.Value
	sigIndices    map[wasm.Index]ir.Value
	globals       map[wasm.Index]GlobalAccess
	importedFuncs map[wasm.Index]importedFuncCache
}

// memoryCache is one memoized memory access path. desc is the materialized
// pointer to the memory's descriptor; base and bound live at fixed offsets
// behind it. For static and shared memories base additionally holds the
// loaded base address, which cannot move for the instance's lifetime. The
// bound is never cached as a value: growth changes it for every style.
type memoryCache struct {
	style wasm.MemoryStyle
	desc  ir.Value
	base  ir.Value
}

type importedFuncCache struct {
	code, calleeCtx ir.Value
}

// GlobalAccess is the result of resolving a global. For a mutable global Ptr
// holds the storage pointer, typed to the declared value width, and the
// caller loads or stores through it on every reference. For an immutable
// global Value holds the loaded value, reusable as a constant operand for the
// rest of the function. The half that does not apply is ir.ValueInvalid,
// never the zero Value.
type GlobalAccess struct {
	Mutable bool
	Ptr     ir.Value
	Value   ir.Value
}

// NewCtx returns an accessor for one function compilation. fn must belong to
// the unit in was declared against and take the execution context pointer as
// its first parameter; module is the read-only metadata the function was
// declared in. Violations are programming errors and panic.
func NewCtx(in *Intrinsics, module *wasm.Module, fn *ir.Func) *Ctx {
	if module == nil {
		panic("BUG: NewCtx requires module metadata")
	}
	if fn.Unit() != in.unit {
		panic(fmt.Sprintf("BUG: function %s belongs to unit %q, intrinsics were declared against %q",
			fn.Name(), fn.Unit().Name(), in.unit.Name()))
	}
	if len(fn.Params()) == 0 || fn.Param(0).Type() != in.CtxPtr {
		panic(fmt.Sprintf("BUG: function %s does not take the execution context pointer as its first parameter", fn.Name()))
	}
	return &Ctx{
		in:     in,
		module: module,
		fn:     fn,
		ctxPtr: fn.Param(0),

		memories:      map[wasm.Index]*memoryCache{},
		tables:        map[wasm.Index]ir.Value{},
		sigIndices:    map[wasm.Index]ir.Value{},
		globals:       map[wasm.Index]GlobalAccess{},
		importedFuncs: map[wasm.Index]importedFuncCache{},
	}
}

// CtxPtr returns the raw context pointer operand, for call sites that pass
// the context along, such as the memory grow and size entry points.
func (c *Ctx) CtxPtr() ir.Value {
	return c.ctxPtr
}

// Memory returns the base address and byte bound of the memory at the given
// unified index, as operands for a bounds checked access.
//
// The first call materializes the path: resolve local or imported, load the
// descriptor array pointer out of the context, load the descriptor pointer at
// the resolved sub index. What happens afterwards depends on the memory's
// style. Dynamic memories re-load the base through the descriptor on every
// call, because growth may have moved the buffer since the previous access.
// Static and shared memories load the base once and reuse the value. The
// bound is re-loaded on every call for all styles: growth changes the bound
// even when it cannot change the base.
func (c *Ctx) Memory(index wasm.Index) (base, bound ir.Value) {
	entry, ok := c.memories[index]
	if !ok {
		typ, sub, imported := c.module.Memory(index)
		field := vmctx.ContextLocalMemoriesOffset
		if imported {
			field = vmctx.ContextImportedMemoriesOffset
		}
		arrayPtr := c.load(c.ctxPtr, field.U32(), c.in.memoryArray)
		desc := c.load(arrayPtr, vmctx.PtrElemOffset(sub).U32(), c.in.MemoryDescPtr)

		entry = &memoryCache{style: typ.Style(), desc: desc, base: ir.ValueInvalid}
		if entry.style != wasm.MemoryStyleDynamic {
			entry.base = c.load(desc, vmctx.MemoryBaseOffset.U32(), c.in.I8Ptr)
		}
		c.memories[index] = entry
		Logger().Debug("materialized memory access path",
			zap.Uint32("index", index),
			zap.Stringer("style", entry.style),
			zap.Bool("imported", imported))
	}

	if entry.style == wasm.MemoryStyleDynamic {
		base = c.load(entry.desc, vmctx.MemoryBaseOffset.U32(), c.in.I8Ptr)
	} else {
		base = entry.base
	}
	bound = c.load(entry.desc, vmctx.MemoryBoundOffset.U32(), c.in.I64)
	return base, bound
}

// Table returns the base address and element count of the table at the given
// unified index. Tables have no static variant: growth may reallocate the
// element array, so both base and count are re-loaded through the cached
// descriptor pointer on every call.
func (c *Ctx) Table(index wasm.Index) (base, count ir.Value) {
	desc, ok := c.tables[index]
	if !ok {
		_, sub, imported := c.module.Table(index)
		field := vmctx.ContextLocalTablesOffset
		if imported {
			field = vmctx.ContextImportedTablesOffset
		}
		arrayPtr := c.load(c.ctxPtr, field.U32(), c.in.tableArray)
		desc = c.load(arrayPtr, vmctx.PtrElemOffset(sub).U32(), c.in.TableDescPtr)
		c.tables[index] = desc
		Logger().Debug("materialized table access path",
			zap.Uint32("index", index),
			zap.Bool("imported", imported))
	}

	base = c.load(desc, vmctx.TableBaseOffset.U32(), c.in.I8Ptr)
	count = c.load(desc, vmctx.TableCountOffset.U32(), c.in.I64)
	return base, count
}

// SigIndex returns the runtime signature identifier for a module wide
// signature index, loaded once per distinct index. Indirect call sites
// compare it against the callee's identifier. Identifiers are assigned when
// the instance is built and never change, so the loaded value is cached.
func (c *Ctx) SigIndex(index wasm.Index) ir.Value {
	if v, ok := c.sigIndices[index]; ok {
		return v
	}
	_ = c.module.Signature(index) // panics on an out of range index

	arrayPtr := c.load(c.ctxPtr, vmctx.ContextSigIDsOffset.U32(), c.in.sigIDArray)
	v := c.load(arrayPtr, vmctx.SigIDElemOffset(index).U32(), c.in.I32)
	c.sigIndices[index] = v
	Logger().Debug("materialized signature identifier", zap.Uint32("index", index))
	return v
}

// Global resolves the global at the given unified index. The context's
// global arrays hold one pointer per global, each pointing at an 8-byte
// generic cell; the pointer is round-tripped through an integer to retype it
// to exactly the declared value width, so emitted loads and stores touch only
// the low bytes a narrower type owns.
//
// Mutable globals cache and return the typed storage pointer. Immutable
// globals load the value once and return it as a reusable constant, valid
// because the value cannot change for the instance's lifetime.
func (c *Ctx) Global(index wasm.Index) GlobalAccess {
	if g, ok := c.globals[index]; ok {
		return g
	}

	typ, sub, imported := c.module.Global(index)
	field := vmctx.ContextLocalGlobalsOffset
	if imported {
		field = vmctx.ContextImportedGlobalsOffset
	}
	arrayPtr := c.load(c.ctxPtr, field.U32(), c.in.globalArray)
	cellPtr := c.load(arrayPtr, vmctx.PtrElemOffset(sub).U32(), c.in.I64Ptr)
	typedPtr := c.retype(cellPtr, c.in.ValuePtrType(typ.ValType))

	var g GlobalAccess
	if typ.Mutable {
		g = GlobalAccess{Mutable: true, Ptr: typedPtr, Value: ir.ValueInvalid}
	} else {
		g = GlobalAccess{Ptr: ir.ValueInvalid, Value: c.load(typedPtr, 0, c.in.ValueType(typ.ValType))}
	}
	c.globals[index] = g
	Logger().Debug("materialized global access",
		zap.Uint32("index", index),
		zap.Bool("mutable", typ.Mutable),
		zap.Bool("imported", imported))
	return g
}

// ImportedFunction returns the code pointer and callee context pointer of the
// imported function at the given index, loaded once from the function's
// inline record. A call site jumps to the code pointer and passes the
// callee's own context instead of the caller's.
func (c *Ctx) ImportedFunction(index wasm.Index) (code, calleeCtx ir.Value) {
	if e, ok := c.importedFuncs[index]; ok {
		return e.code, e.calleeCtx
	}
	_ = c.module.ImportedFunction(index) // panics on an out of range index

	arrayPtr := c.load(c.ctxPtr, vmctx.ContextImportedFuncsOffset.U32(), c.in.importedFuncArray)
	rec := vmctx.ImportedFuncElemOffset(index)
	code = c.load(arrayPtr, (rec + vmctx.ImportedFuncFuncOffset).U32(), c.in.I8Ptr)
	calleeCtx = c.load(arrayPtr, (rec + vmctx.ImportedFuncCtxOffset).U32(), c.in.CtxPtr)

	c.importedFuncs[index] = importedFuncCache{code: code, calleeCtx: calleeCtx}
	Logger().Debug("materialized imported function", zap.Uint32("index", index))
	return code, calleeCtx
}

// EmitTrap emits a call to the trap entry point. The call does not return;
// the driver treats everything after it as unreachable.
func (c *Ctx) EmitTrap() {
	call := c.fn.AllocateInstruction()
	call.AsCall(c.in.Trap, c.in.unit.ExtFunc(c.in.Trap).Sig, nil)
	c.fn.InsertInstruction(call)
	Logger().Debug("emitted trap", zap.String("function", c.fn.Name()))
}

func (c *Ctx) load(ptr ir.Value, offset uint32, typ *ir.Type) ir.Value {
	load := c.fn.AllocateInstruction()
	load.AsLoad(ptr, offset, typ)
	c.fn.InsertInstruction(load)
	return load.Return()
}

// retype synthesizes a differently typed view of the same address by round
// tripping the pointer through an integer.
func (c *Ctx) retype(ptr ir.Value, typ *ir.Type) ir.Value {
	toInt := c.fn.AllocateInstruction()
	toInt.AsPtrToInt(ptr)
	c.fn.InsertInstruction(toInt)

	toPtr := c.fn.AllocateInstruction()
	toPtr.AsIntToPtr(toInt.Return(), typ)
	c.fn.InsertInstruction(toPtr)
	return toPtr.Return()
}

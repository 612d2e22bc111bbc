package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmforge/forge/ir"
	"github.com/wasmforge/forge/vmctx"
	"github.com/wasmforge/forge/wasm"
)

// TestDeclare_manifest pins the complete symbol surface: 24 numeric
// primitives, 2 control symbols, and 12 runtime entry points, in registration
// order, with the exact names and signatures the runtime and linker bind
// against.
func TestDeclare_manifest(t *testing.T) {
	unit := ir.NewUnit("manifest")
	Declare(unit)

	exp := []struct {
		name, sig string
	}{
		{name: "llvm.ctlz.i32", sig: "(i32, i1) -> i32"},
		{name: "llvm.ctlz.i64", sig: "(i64, i1) -> i64"},
		{name: "llvm.cttz.i32", sig: "(i32, i1) -> i32"},
		{name: "llvm.cttz.i64", sig: "(i64, i1) -> i64"},
		{name: "llvm.ctpop.i32", sig: "(i32) -> i32"},
		{name: "llvm.ctpop.i64", sig: "(i64) -> i64"},
		{name: "llvm.sqrt.f32", sig: "(f32) -> f32"},
		{name: "llvm.sqrt.f64", sig: "(f64) -> f64"},
		{name: "llvm.minnum.f32", sig: "(f32, f32) -> f32"},
		{name: "llvm.minnum.f64", sig: "(f64, f64) -> f64"},
		{name: "llvm.maxnum.f32", sig: "(f32, f32) -> f32"},
		{name: "llvm.maxnum.f64", sig: "(f64, f64) -> f64"},
		{name: "llvm.ceil.f32", sig: "(f32) -> f32"},
		{name: "llvm.ceil.f64", sig: "(f64) -> f64"},
		{name: "llvm.floor.f32", sig: "(f32) -> f32"},
		{name: "llvm.floor.f64", sig: "(f64) -> f64"},
		{name: "llvm.trunc.f32", sig: "(f32) -> f32"},
		{name: "llvm.trunc.f64", sig: "(f64) -> f64"},
		{name: "llvm.nearbyint.f32", sig: "(f32) -> f32"},
		{name: "llvm.nearbyint.f64", sig: "(f64) -> f64"},
		{name: "llvm.fabs.f32", sig: "(f32) -> f32"},
		{name: "llvm.fabs.f64", sig: "(f64) -> f64"},
		{name: "llvm.copysign.f32", sig: "(f32, f32) -> f32"},
		{name: "llvm.copysign.f64", sig: "(f64, f64) -> f64"},
		{name: "llvm.expect.i1", sig: "(i1, i1) -> i1"},
		{name: "llvm.trap", sig: "() -> void"},
		{name: "vm.memory.grow.dynamic.local", sig: "(ctx*, i32, i32) -> i32"},
		{name: "vm.memory.grow.static.local", sig: "(ctx*, i32, i32) -> i32"},
		{name: "vm.memory.grow.shared.local", sig: "(ctx*, i32, i32) -> i32"},
		{name: "vm.memory.grow.dynamic.import", sig: "(ctx*, i32, i32) -> i32"},
		{name: "vm.memory.grow.static.import", sig: "(ctx*, i32, i32) -> i32"},
		{name: "vm.memory.grow.shared.import", sig: "(ctx*, i32, i32) -> i32"},
		{name: "vm.memory.size.dynamic.local", sig: "(ctx*, i32) -> i32"},
		{name: "vm.memory.size.static.local", sig: "(ctx*, i32) -> i32"},
		{name: "vm.memory.size.shared.local", sig: "(ctx*, i32) -> i32"},
		{name: "vm.memory.size.dynamic.import", sig: "(ctx*, i32) -> i32"},
		{name: "vm.memory.size.static.import", sig: "(ctx*, i32) -> i32"},
		{name: "vm.memory.size.shared.import", sig: "(ctx*, i32) -> i32"},
	}

	decls := unit.ExtFuncs()
	require.Equal(t, len(exp), len(decls))
	for i, e := range exp {
		require.Equal(t, e.name, decls[i].Name, "symbol %d", i)
		require.Equal(t, e.sig, decls[i].Sig.String(), "signature of %s", e.name)
	}
}

// TestDeclare_secondDeclarePanics: declaring the table twice against one unit
// is a programming error, caught by the unit's duplicate symbol check.
func TestDeclare_secondDeclarePanics(t *testing.T) {
	unit := ir.NewUnit("twice")
	Declare(unit)
	require.Panics(t, func() { Declare(unit) })
	require.Panics(t, func() { Declare(nil) })
}

// TestDeclare_ctxLayout pins the IR level context struct against the offset
// constants package vmctx shares with the runtime.
func TestDeclare_ctxLayout(t *testing.T) {
	in := Declare(ir.NewUnit("layout"))

	ctx := in.CtxPtr.Elem()
	require.Equal(t, 8, ctx.NumFields())
	for i, exp := range []vmctx.Offset{
		vmctx.ContextLocalMemoriesOffset,
		vmctx.ContextLocalTablesOffset,
		vmctx.ContextLocalGlobalsOffset,
		vmctx.ContextImportedMemoriesOffset,
		vmctx.ContextImportedTablesOffset,
		vmctx.ContextImportedGlobalsOffset,
		vmctx.ContextImportedFuncsOffset,
		vmctx.ContextSigIDsOffset,
	} {
		require.Equal(t, exp.U32(), ctx.FieldOffset(i), "context field %d", i)
	}
	require.Equal(t, uint32(vmctx.ContextSize), ctx.Size())

	require.Equal(t, uint32(vmctx.MemorySize), in.MemoryDesc.Size())
	require.Equal(t, vmctx.MemoryBaseOffset.U32(), in.MemoryDesc.FieldOffset(0))
	require.Equal(t, vmctx.MemoryBoundOffset.U32(), in.MemoryDesc.FieldOffset(1))
	require.Equal(t, vmctx.MemoryOwnerOffset.U32(), in.MemoryDesc.FieldOffset(2))

	require.Equal(t, uint32(vmctx.TableSize), in.TableDesc.Size())
	require.Equal(t, uint32(vmctx.ImportedFuncSize), in.ImportedFuncDesc.Size())
	require.Equal(t, vmctx.ImportedFuncCtxOffset.U32(), in.ImportedFuncDesc.FieldOffset(1))

	require.Equal(t, uint32(vmctx.AnyfuncSize), in.Anyfunc.Size())
	require.Equal(t, vmctx.AnyfuncCtxOffset.U32(), in.Anyfunc.FieldOffset(1))
	require.Equal(t, vmctx.AnyfuncSigIDOffset.U32(), in.Anyfunc.FieldOffset(2))
}

func TestIntrinsics_memoryFnSelection(t *testing.T) {
	unit := ir.NewUnit("selection")
	in := Declare(unit)

	for _, tc := range []struct {
		style    wasm.MemoryStyle
		imported bool
		grow     string
		size     string
	}{
		{style: wasm.MemoryStyleDynamic, grow: "vm.memory.grow.dynamic.local", size: "vm.memory.size.dynamic.local"},
		{style: wasm.MemoryStyleStatic, grow: "vm.memory.grow.static.local", size: "vm.memory.size.static.local"},
		{style: wasm.MemoryStyleShared, grow: "vm.memory.grow.shared.local", size: "vm.memory.size.shared.local"},
		{style: wasm.MemoryStyleDynamic, imported: true, grow: "vm.memory.grow.dynamic.import", size: "vm.memory.size.dynamic.import"},
		{style: wasm.MemoryStyleStatic, imported: true, grow: "vm.memory.grow.static.import", size: "vm.memory.size.static.import"},
		{style: wasm.MemoryStyleShared, imported: true, grow: "vm.memory.grow.shared.import", size: "vm.memory.size.shared.import"},
	} {
		t.Run(tc.grow, func(t *testing.T) {
			require.Equal(t, tc.grow, unit.ExtFunc(in.MemoryGrowFn(tc.style, tc.imported)).Name)
			require.Equal(t, tc.size, unit.ExtFunc(in.MemorySizeFn(tc.style, tc.imported)).Name)
		})
	}

	require.Panics(t, func() { in.MemoryGrowFn(wasm.MemoryStyle(0xff), false) })
	require.Panics(t, func() { in.MemorySizeFn(wasm.MemoryStyle(0xff), true) })
}

func TestIntrinsics_valueTypeHandles(t *testing.T) {
	in := Declare(ir.NewUnit("types"))

	for _, tc := range []struct {
		vt     wasm.ValueType
		scalar *ir.Type
		ptr    *ir.Type
	}{
		{vt: wasm.ValueTypeI32, scalar: in.I32, ptr: in.I32Ptr},
		{vt: wasm.ValueTypeI64, scalar: in.I64, ptr: in.I64Ptr},
		{vt: wasm.ValueTypeF32, scalar: in.F32, ptr: in.F32Ptr},
		{vt: wasm.ValueTypeF64, scalar: in.F64, ptr: in.F64Ptr},
	} {
		t.Run(wasm.ValueTypeName(tc.vt), func(t *testing.T) {
			// Identity, not just structural equality: everything in the unit
			// must share these handles.
			require.True(t, tc.scalar == in.ValueType(tc.vt))
			require.True(t, tc.ptr == in.ValuePtrType(tc.vt))
			require.Equal(t, tc.scalar, tc.ptr.Elem())
		})
	}

	require.Panics(t, func() { in.ValueType(0x00) })
	require.Panics(t, func() { in.ValuePtrType(0x00) })
}

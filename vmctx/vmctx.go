// Package vmctx defines the execution context, the runtime owned structure
// passed as the implicit first argument to every generated function. The
// layout here is the ABI contract between the compiler and the runtime: the
// Go structs are the runtime side, the offset constants are what emitted code
// reaches through, and vmctx_test.go pins the two against each other.
package vmctx

import "unsafe"

// Offset represents an offset of a field of a struct.
type Offset int32

// U32 encodes an Offset as uint32 for convenience.
func (o Offset) U32() uint32 {
	return uint32(o)
}

// I64 encodes an Offset as int64 for convenience.
func (o Offset) I64() int64 {
	return int64(o)
}

// PtrSize is the size of one pointer in the context's arrays. The ABI is
// 64-bit only.
const PtrSize = 8

// Context is the execution context. One exists per active execution. All
// slices behind these pointers are allocated and owned by the runtime, sized
// by the module's metadata counts; the compiler only emits reads through
// them.
//
// The imported halves alias the exporting instances' descriptors, which is
// what makes a growth performed by the exporting module visible here.
type Context struct {
	// LocalMemories points to an array of pointers to the memory descriptors
	// of memories defined by this module.
	LocalMemories **Memory
	// LocalTables points to an array of pointers to the table descriptors of
	// tables defined by this module.
	LocalTables **Table
	// LocalGlobals points to an array of pointers to the storage cells of
	// globals defined by this module.
	LocalGlobals **Global
	// ImportedMemories points to an array of pointers to imported memory
	// descriptors.
	ImportedMemories **Memory
	// ImportedTables points to an array of pointers to imported table
	// descriptors.
	ImportedTables **Table
	// ImportedGlobals points to an array of pointers to imported global
	// storage cells.
	ImportedGlobals **Global
	// ImportedFuncs points to an array of ImportedFunc records, stored
	// inline.
	ImportedFuncs *ImportedFunc
	// SigIDs points to an array of signature identifiers indexed by the
	// module wide signature index.
	SigIDs *SigID
}

const (
	// ContextLocalMemoriesOffset is the offset of the `LocalMemories` field of Context.
	ContextLocalMemoriesOffset Offset = 0
	// ContextLocalTablesOffset is the offset of the `LocalTables` field of Context.
	ContextLocalTablesOffset Offset = 8
	// ContextLocalGlobalsOffset is the offset of the `LocalGlobals` field of Context.
	ContextLocalGlobalsOffset Offset = 16
	// ContextImportedMemoriesOffset is the offset of the `ImportedMemories` field of Context.
	ContextImportedMemoriesOffset Offset = 24
	// ContextImportedTablesOffset is the offset of the `ImportedTables` field of Context.
	ContextImportedTablesOffset Offset = 32
	// ContextImportedGlobalsOffset is the offset of the `ImportedGlobals` field of Context.
	ContextImportedGlobalsOffset Offset = 40
	// ContextImportedFuncsOffset is the offset of the `ImportedFuncs` field of Context.
	ContextImportedFuncsOffset Offset = 48
	// ContextSigIDsOffset is the offset of the `SigIDs` field of Context.
	ContextSigIDsOffset Offset = 56
	// ContextSize is the size of Context in bytes.
	ContextSize = 64
)

// Memory is the descriptor of one linear memory instance. For dynamic
// memories Base moves when growth reallocates the buffer; for static and
// shared memories Base is fixed at creation and only Bound changes.
type Memory struct {
	// Base is the start of the memory's buffer.
	Base unsafe.Pointer
	// Bound is the current size of the buffer in bytes.
	Bound uint64
	// Owner is an opaque back reference to the runtime object managing the
	// buffer. Generated code never dereferences it.
	Owner unsafe.Pointer
}

const (
	// MemoryBaseOffset is the offset of the `Base` field of Memory.
	MemoryBaseOffset Offset = 0
	// MemoryBoundOffset is the offset of the `Bound` field of Memory.
	MemoryBoundOffset Offset = 8
	// MemoryOwnerOffset is the offset of the `Owner` field of Memory.
	MemoryOwnerOffset Offset = 16
	// MemorySize is the size of Memory in bytes.
	MemorySize = 24
)

// Table is the descriptor of one table instance. Tables have no static
// variant: growth may reallocate Base, so generated code always re-loads it.
type Table struct {
	// Base is the start of the table's element array.
	Base unsafe.Pointer
	// Count is the current number of elements.
	Count uint64
	// Owner is an opaque back reference to the runtime object, as in Memory.
	Owner unsafe.Pointer
}

const (
	// TableBaseOffset is the offset of the `Base` field of Table.
	TableBaseOffset Offset = 0
	// TableCountOffset is the offset of the `Count` field of Table.
	TableCountOffset Offset = 8
	// TableOwnerOffset is the offset of the `Owner` field of Table.
	TableOwnerOffset Offset = 16
	// TableSize is the size of Table in bytes.
	TableSize = 24
)

// Global is one global's storage cell. Values narrower than 8 bytes occupy
// the low bytes; the compiler synthesizes a correctly narrowed pointer view
// when it emits accesses.
type Global struct {
	Value uint64
}

const (
	// GlobalValueOffset is the offset of the `Value` field of Global.
	GlobalValueOffset Offset = 0
	// GlobalSize is the size of Global in bytes.
	GlobalSize = 8
)

// ImportedFunc describes one imported function: the code to jump to and the
// context to pass it instead of the caller's own.
type ImportedFunc struct {
	Func unsafe.Pointer
	Ctx  *Context
}

const (
	// ImportedFuncFuncOffset is the offset of the `Func` field of ImportedFunc.
	ImportedFuncFuncOffset Offset = 0
	// ImportedFuncCtxOffset is the offset of the `Ctx` field of ImportedFunc.
	ImportedFuncCtxOffset Offset = 8
	// ImportedFuncSize is the size of ImportedFunc in bytes.
	ImportedFuncSize = 16
)

// SigID is a runtime assigned identifier of a function signature, compared at
// indirect call sites against the callee's identifier.
type SigID uint32

// SigIDSize is the size of one element of the Context.SigIDs array.
const SigIDSize = 4

// Anyfunc is one element of a table: a function reference paired with the
// context it must be called with and the signature identifier an indirect
// call checks.
type Anyfunc struct {
	Func  unsafe.Pointer
	Ctx   *Context
	SigID SigID
}

const (
	// AnyfuncFuncOffset is the offset of the `Func` field of Anyfunc.
	AnyfuncFuncOffset Offset = 0
	// AnyfuncCtxOffset is the offset of the `Ctx` field of Anyfunc.
	AnyfuncCtxOffset Offset = 8
	// AnyfuncSigIDOffset is the offset of the `SigID` field of Anyfunc.
	AnyfuncSigIDOffset Offset = 16
	// AnyfuncSize is the size of Anyfunc in bytes, including tail padding.
	AnyfuncSize = 24
)

// GrowFailed is what the vm.memory.grow entry points return when the runtime
// cannot grow the memory, either because the maximum would be exceeded or
// because allocation failed.
const GrowFailed = int32(-1)

// ImportedFuncElemOffset returns the offset of the i-th ImportedFunc record
// from the start of the Context.ImportedFuncs array.
func ImportedFuncElemOffset(i uint32) Offset {
	return Offset(i) * ImportedFuncSize
}

// PtrElemOffset returns the offset of the i-th pointer in one of the
// context's pointer arrays.
func PtrElemOffset(i uint32) Offset {
	return Offset(i) * PtrSize
}

// SigIDElemOffset returns the offset of the i-th identifier in the
// Context.SigIDs array.
func SigIDElemOffset(i uint32) Offset {
	return Offset(i) * SigIDSize
}

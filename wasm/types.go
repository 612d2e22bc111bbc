package wasm

// ValueType is the binary encoding of a type such as i32.
// See https://www.w3.org/TR/wasm-core-1/#binary-valtype
//
// Note: This is a type alias as it is easier to encode and decode in the binary format.
type ValueType = byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

// ValueTypeName returns the type name of the given ValueType as a string.
// These type names match the names used in the WebAssembly text format.
// Note that ValueTypeName returns "unknown", if an undefined ValueType value is passed.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	}
	return "unknown"
}

type FunctionType struct {
	Params, Results []ValueType
}

func (t *FunctionType) String() (ret string) {
	for _, b := range t.Params {
		ret += ValueTypeName(b)
	}
	if len(t.Params) == 0 {
		ret += "null"
	}
	ret += "_"
	for _, b := range t.Results {
		ret += ValueTypeName(b)
	}
	if len(t.Results) == 0 {
		ret += "null"
	}
	return
}

// MemoryStyle is the physical representation discipline of a linear memory.
// It decides how generated code reaches the memory's base and bound and which
// grow/size runtime entry point serves the memory.
type MemoryStyle byte

const (
	// MemoryStyleDynamic memories have no declared maximum. Growth may
	// reallocate the buffer, so a loaded base address is only valid until the
	// next growth event and generated code must re-load it on every access.
	MemoryStyleDynamic MemoryStyle = iota
	// MemoryStyleStatic memories declare a maximum and the runtime reserves
	// address space for it up front. Growth changes the bound, never the base.
	MemoryStyleStatic
	// MemoryStyleShared is a static memory accessible from multiple agents.
	// The access path is the same as MemoryStyleStatic.
	MemoryStyleShared
)

// String returns the name used in the runtime entry point symbols, e.g. the
// "dynamic" in "vm.memory.grow.dynamic.local".
func (s MemoryStyle) String() string {
	switch s {
	case MemoryStyleDynamic:
		return "dynamic"
	case MemoryStyleStatic:
		return "static"
	case MemoryStyleShared:
		return "shared"
	}
	return "unknown"
}

type MemoryType struct {
	Min    uint32
	Max    *uint32
	Shared bool
}

// Style derives the memory's physical discipline from its limits. A shared
// memory must also declare a maximum; the validator enforces that before the
// metadata reaches this package.
func (m *MemoryType) Style() MemoryStyle {
	switch {
	case m.Shared:
		return MemoryStyleShared
	case m.Max != nil:
		return MemoryStyleStatic
	default:
		return MemoryStyleDynamic
	}
}

type TableType struct {
	ElemType byte // 0x70 (funcref) in WebAssembly 1.0
	Min      uint32
	Max      *uint32
}

type GlobalType struct {
	ValType ValueType
	Mutable bool
}

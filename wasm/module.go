package wasm

import "fmt"

// ImportKind indicates which import description is present.
// See https://www.w3.org/TR/wasm-core-1/#import-section%E2%91%A0
type ImportKind = byte

const (
	ImportKindFunction ImportKind = 0x00
	ImportKindTable    ImportKind = 0x01
	ImportKindMemory   ImportKind = 0x02
	ImportKindGlobal   ImportKind = 0x03
)

// Import is one entry of the import section. Exactly one of the descriptor
// fields is set, matching Kind.
type Import struct {
	Module, Name string
	Kind         ImportKind

	DescFunc   Index
	DescTable  *TableType
	DescMem    *MemoryType
	DescGlobal *GlobalType
}

// Module is the structural metadata of one WebAssembly module, restricted to
// what code generation needs: types, imports, and the declarations of local
// entities. Code, data, element, and export contents stay with the decoder.
type Module struct {
	TypeSection     []*FunctionType
	ImportSection   []*Import
	FunctionSection []Index // type index per locally defined function
	TableSection    []*TableType
	MemorySection   []*MemoryType
	GlobalSection   []*GlobalType
}

func (m *Module) importCount(kind ImportKind) (n uint32) {
	for _, imp := range m.ImportSection {
		if imp.Kind == kind {
			n++
		}
	}
	return
}

func (m *Module) ImportedFunctionCount() uint32 {
	return m.importCount(ImportKindFunction)
}

func (m *Module) ImportedTableCount() uint32 {
	return m.importCount(ImportKindTable)
}

func (m *Module) ImportedMemoryCount() uint32 {
	return m.importCount(ImportKindMemory)
}

func (m *Module) ImportedGlobalCount() uint32 {
	return m.importCount(ImportKindGlobal)
}

// Memory resolves a unified memory index into its space and returns the
// memory's declared type. imported is true when the index falls in the low,
// imported half of the space, and sub is the index into that half.
//
// Index resolution is pure: the same index always resolves the same way for
// the same metadata. Indices were validated upstream, so an out of range
// index is a bug in the caller and panics.
func (m *Module) Memory(i Index) (typ *MemoryType, sub Index, imported bool) {
	if n := m.ImportedMemoryCount(); i < n {
		return m.importDesc(ImportKindMemory, i).DescMem, i, true
	} else if local := i - n; local < uint32(len(m.MemorySection)) {
		return m.MemorySection[local], local, false
	}
	panic(fmt.Sprintf("BUG: memory index out of range: %d", i))
}

// Table resolves a unified table index the same way Memory resolves memory
// indices.
func (m *Module) Table(i Index) (typ *TableType, sub Index, imported bool) {
	if n := m.ImportedTableCount(); i < n {
		return m.importDesc(ImportKindTable, i).DescTable, i, true
	} else if local := i - n; local < uint32(len(m.TableSection)) {
		return m.TableSection[local], local, false
	}
	panic(fmt.Sprintf("BUG: table index out of range: %d", i))
}

// Global resolves a unified global index the same way Memory resolves memory
// indices.
func (m *Module) Global(i Index) (typ *GlobalType, sub Index, imported bool) {
	if n := m.ImportedGlobalCount(); i < n {
		return m.importDesc(ImportKindGlobal, i).DescGlobal, i, true
	} else if local := i - n; local < uint32(len(m.GlobalSection)) {
		return m.GlobalSection[local], local, false
	}
	panic(fmt.Sprintf("BUG: global index out of range: %d", i))
}

// ImportedFunction returns the type of the i-th imported function. Unlike the
// other entity kinds there is no unified resolution here: the execution
// context only describes imported functions, locally defined ones are called
// directly.
func (m *Module) ImportedFunction(i Index) *FunctionType {
	imp := m.importDesc(ImportKindFunction, i)
	if imp.DescFunc >= uint32(len(m.TypeSection)) {
		panic(fmt.Sprintf("BUG: imported function %d has type index out of range: %d", i, imp.DescFunc))
	}
	return m.TypeSection[imp.DescFunc]
}

// Signature returns the function type for a module-wide signature index.
func (m *Module) Signature(i Index) *FunctionType {
	if i >= uint32(len(m.TypeSection)) {
		panic(fmt.Sprintf("BUG: signature index out of range: %d", i))
	}
	return m.TypeSection[i]
}

// importDesc returns the i-th import of the given kind.
func (m *Module) importDesc(kind ImportKind, i Index) *Import {
	n := i
	for _, imp := range m.ImportSection {
		if imp.Kind != kind {
			continue
		}
		if n == 0 {
			return imp
		}
		n--
	}
	panic(fmt.Sprintf("BUG: import of kind %d out of range: %d", kind, i))
}

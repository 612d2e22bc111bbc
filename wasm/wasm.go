// Package wasm holds the structural metadata of a WebAssembly module as the
// code generator consumes it: entity types, section contents, and resolution
// of each unified index space into its imported and locally defined halves.
//
// Decoding and validation of the binary format happen upstream; everything
// here assumes indices and types were already checked there.
package wasm

// Index is an index into one of the module's index spaces (type, function,
// table, memory, or global). Imported entities occupy the low indices of each
// space and locally defined entities follow.
//
// See https://www.w3.org/TR/wasm-core-1/#indices%E2%91%A0
type Index = uint32

// PageSize is the unit of linear memory limits and of the grow/size runtime
// entry points.
//
// See https://www.w3.org/TR/wasm-core-1/#memory-instances%E2%91%A0
const PageSize uint32 = 65536

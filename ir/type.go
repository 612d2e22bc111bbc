package ir

import "strings"

// Kind classifies a Type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindInteger
	KindFloat
	KindPointer
	KindStruct
)

// Type describes the shape of a value or of memory an instruction touches.
// Scalar types are shared package level singletons; pointer and struct types
// are built with PointerTo and StructOf. Two separately constructed
// pointer/struct types are structurally equal but not identical, so code
// that relies on handle identity must share one descriptor, the way the
// intrinsic table's handles are shared across every function of a unit.
type Type struct {
	kind   Kind
	bits   uint8
	elem   *Type // pointee, for KindPointer
	name   string
	opaque bool
	fields []*Type
	// fieldOffsets[i] is the byte offset of fields[i]; computed by StructOf.
	fieldOffsets []uint32
	size         uint32
}

// Basic types.
var (
	Void = &Type{kind: KindVoid}
	I1   = &Type{kind: KindInteger, bits: 1}
	I8   = &Type{kind: KindInteger, bits: 8}
	I16  = &Type{kind: KindInteger, bits: 16}
	I32  = &Type{kind: KindInteger, bits: 32}
	I64  = &Type{kind: KindInteger, bits: 64}
	F32  = &Type{kind: KindFloat, bits: 32}
	F64  = &Type{kind: KindFloat, bits: 64}
)

// PointerTo returns a pointer type with the given pointee.
func PointerTo(elem *Type) *Type {
	return &Type{kind: KindPointer, bits: 64, elem: elem, size: 8}
}

// StructOf returns a named struct type with the given field types laid out
// in order. Each field is aligned to its own size and the struct's size is
// padded to the largest field alignment, matching the runtime's 64-bit ABI.
func StructOf(name string, fields ...*Type) *Type {
	t := &Type{kind: KindStruct, name: name}
	t.layout(fields)
	return t
}

// OpaqueStructOf returns a named struct type whose fields are not known yet;
// SetBody completes it. Self-referential layouts need this: the execution
// context holds pointers to records that point back at the context.
func OpaqueStructOf(name string) *Type {
	return &Type{kind: KindStruct, name: name, opaque: true}
}

// SetBody sets the fields of an opaque struct type, laying them out the way
// StructOf does. Completing a struct twice, or one not created by
// OpaqueStructOf, is a bug.
func (t *Type) SetBody(fields ...*Type) {
	if t.kind != KindStruct || !t.opaque {
		panic("BUG: SetBody is only valid for opaque struct types: " + t.String())
	}
	t.opaque = false
	t.layout(fields)
}

func (t *Type) layout(fields []*Type) {
	t.fields = fields
	t.fieldOffsets = make([]uint32, len(fields))
	var offset, maxAlign uint32
	for i, f := range fields {
		align := f.Size()
		if align > 8 {
			align = 8
		}
		if align == 0 {
			panic("BUG: zero sized struct field: " + f.String())
		}
		if rem := offset % align; rem != 0 {
			offset += align - rem
		}
		t.fieldOffsets[i] = offset
		offset += f.Size()
		if align > maxAlign {
			maxAlign = align
		}
	}
	if maxAlign > 0 {
		if rem := offset % maxAlign; rem != 0 {
			offset += maxAlign - rem
		}
	}
	t.size = offset
}

// Kind returns the kind of this type.
func (t *Type) Kind() Kind {
	return t.kind
}

// IsInt returns true if the type is an integer type.
func (t *Type) IsInt() bool {
	return t.kind == KindInteger
}

// IsFloat returns true if the type is a floating point type.
func (t *Type) IsFloat() bool {
	return t.kind == KindFloat
}

// IsPointer returns true if the type is a pointer type.
func (t *Type) IsPointer() bool {
	return t.kind == KindPointer
}

// Elem returns the pointee of a pointer type.
func (t *Type) Elem() *Type {
	if t.kind != KindPointer {
		panic("BUG: Elem is only valid for pointer types")
	}
	return t.elem
}

// Bits returns the number of bits of a scalar or pointer type.
func (t *Type) Bits() uint8 {
	switch t.kind {
	case KindInteger, KindFloat, KindPointer:
		return t.bits
	}
	panic("BUG: Bits is only valid for integer, float, and pointer types: " + t.String())
}

// Size returns the number of bytes a value of this type occupies in memory.
// An i1 occupies one byte.
func (t *Type) Size() uint32 {
	switch t.kind {
	case KindVoid:
		return 0
	case KindInteger, KindFloat:
		return uint32((t.bits + 7) / 8)
	case KindPointer:
		return 8
	case KindStruct:
		if t.opaque {
			panic("BUG: size of opaque struct type: " + t.String())
		}
		return t.size
	}
	panic("BUG: size of invalid type")
}

// NumFields returns the number of fields of a struct type.
func (t *Type) NumFields() int {
	if t.kind != KindStruct {
		panic("BUG: NumFields is only valid for struct types")
	}
	return len(t.fields)
}

// Field returns the type of the i-th field of a struct type.
func (t *Type) Field(i int) *Type {
	if t.kind != KindStruct {
		panic("BUG: Field is only valid for struct types")
	}
	return t.fields[i]
}

// FieldOffset returns the byte offset of the i-th field of a struct type.
func (t *Type) FieldOffset(i int) uint32 {
	if t.kind != KindStruct {
		panic("BUG: FieldOffset is only valid for struct types")
	}
	return t.fieldOffsets[i]
}

// String implements fmt.Stringer.
func (t *Type) String() string {
	switch t.kind {
	case KindVoid:
		return "void"
	case KindInteger:
		switch t.bits {
		case 1:
			return "i1"
		case 8:
			return "i8"
		case 16:
			return "i16"
		case 32:
			return "i32"
		case 64:
			return "i64"
		}
	case KindFloat:
		if t.bits == 32 {
			return "f32"
		}
		return "f64"
	case KindPointer:
		return t.elem.String() + "*"
	case KindStruct:
		if t.name != "" {
			return t.name
		}
		var sb strings.Builder
		sb.WriteByte('{')
		for i, f := range t.fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.String())
		}
		sb.WriteByte('}')
		return sb.String()
	}
	return "invalid"
}

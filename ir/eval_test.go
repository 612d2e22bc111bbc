package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressSpace(t *testing.T) {
	s := NewAddressSpace()
	require.Equal(t, uint64(0), s.ReadUint64(0x1000))

	s.WriteUint64(0x1000, 0x1122334455667788)
	require.Equal(t, uint64(0x1122334455667788), s.ReadUint64(0x1000))
	require.Equal(t, uint32(0x55667788), s.ReadUint32(0x1000))
	require.Equal(t, uint32(0x11223344), s.ReadUint32(0x1004))

	s.WriteUint32(0x2000, 0xcafebabe)
	require.Equal(t, uint64(0xcafebabe), s.ReadUint64(0x2000))
}

func TestEvaluator_loadStore(t *testing.T) {
	u := NewUnit("test")
	f := u.NewFunc("copy8", &Signature{Params: []*Type{PointerTo(I64), PointerTo(I64)}, Results: []*Type{I64}})

	ld := f.AllocateInstruction()
	ld.AsLoad(f.Param(0), 0, I64)
	f.InsertInstruction(ld)

	st := f.AllocateInstruction()
	st.AsStore(ld.Return(), f.Param(1), 0x10)
	f.InsertInstruction(st)

	ret := f.AllocateInstruction()
	ret.AsReturn([]Value{ld.Return()})
	f.InsertInstruction(ret)

	space := NewAddressSpace()
	space.WriteUint64(0x100, 42)

	ev := NewEvaluator(space)
	results := ev.Run(f, 0x100, 0x200)
	require.Equal(t, []uint64{42}, results)
	require.Equal(t, uint64(42), space.ReadUint64(0x210))
}

func TestEvaluator_arithmeticMasks(t *testing.T) {
	u := NewUnit("test")
	f := u.NewFunc("wrap", &Signature{Params: []*Type{I32, I32}, Results: []*Type{I32}})

	add := f.AllocateInstruction()
	add.AsIadd(f.Param(0), f.Param(1))
	f.InsertInstruction(add)

	ret := f.AllocateInstruction()
	ret.AsReturn([]Value{add.Return()})
	f.InsertInstruction(ret)

	ev := NewEvaluator(NewAddressSpace())
	results := ev.Run(f, 0xffff_ffff, 1)
	require.Equal(t, []uint64{0}, results)
}

func TestEvaluator_call(t *testing.T) {
	u := NewUnit("test")
	double := u.DeclareFunc("test.double", &Signature{Params: []*Type{I64}, Results: []*Type{I64}})

	f := u.NewFunc("callout", &Signature{Params: []*Type{I64}, Results: []*Type{I64}})
	call := f.AllocateInstruction()
	call.AsCall(double, u.ExtFunc(double).Sig, []Value{f.Param(0)})
	f.InsertInstruction(call)

	ret := f.AllocateInstruction()
	ret.AsReturn([]Value{call.Return()})
	f.InsertInstruction(ret)

	ev := NewEvaluator(NewAddressSpace())
	var seen []uint64
	ev.Handle("test.double", func(args []uint64) []uint64 {
		seen = args
		return []uint64{args[0] * 2}
	})

	results := ev.Run(f, 21)
	require.Equal(t, []uint64{42}, results)
	require.Equal(t, []uint64{21}, seen)

	// Calling a symbol without a handler is a bug in the test setup.
	g := u.NewFunc("nohandler", &Signature{})
	missing := u.DeclareFunc("test.missing", &Signature{})
	call2 := g.AllocateInstruction()
	call2.AsCall(missing, u.ExtFunc(missing).Sig, nil)
	g.InsertInstruction(call2)
	require.Panics(t, func() { ev.Run(g) })
}

func TestEvaluator_ValueOf(t *testing.T) {
	u := NewUnit("test")
	f := u.NewFunc("consts", &Signature{})

	c := f.AllocateInstruction()
	c.AsIconst32(7)
	f.InsertInstruction(c)

	ev := NewEvaluator(NewAddressSpace())
	require.Nil(t, ev.Run(f))
	require.Equal(t, uint64(7), ev.ValueOf(c.Return()))
	require.Panics(t, func() { ev.ValueOf(Value{id: 99}) })
}

package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnit_DeclareFunc(t *testing.T) {
	u := NewUnit("test")
	sig := &Signature{Params: []*Type{I32}, Results: []*Type{I32}}

	f0 := u.DeclareFunc("runtime.first", sig)
	f1 := u.DeclareFunc("runtime.second", sig)
	require.Equal(t, FuncRef(0), f0)
	require.Equal(t, FuncRef(1), f1)

	require.Equal(t, "runtime.first", u.ExtFunc(f0).Name)
	require.Equal(t, sig, u.ExtFunc(f1).Sig)

	ref, ok := u.Lookup("runtime.second")
	require.True(t, ok)
	require.Equal(t, f1, ref)

	_, ok = u.Lookup("runtime.third")
	require.False(t, ok)

	decls := u.ExtFuncs()
	require.Equal(t, 2, len(decls))
	require.Equal(t, "runtime.first", decls[0].Name)
	require.Equal(t, "runtime.second", decls[1].Name)
}

func TestUnit_DeclareFunc_duplicate(t *testing.T) {
	u := NewUnit("test")
	sig := &Signature{}
	u.DeclareFunc("runtime.once", sig)
	require.Panics(t, func() { u.DeclareFunc("runtime.once", sig) })
}

func TestUnit_ExtFunc_unknownRef(t *testing.T) {
	u := NewUnit("test")
	require.Panics(t, func() { u.ExtFunc(FuncRef(42)) })
}

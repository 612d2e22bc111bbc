package ir

import "fmt"

// ExtFunc is an external function symbol declared on a Unit: generated code
// can call it, but its body lives elsewhere (the runtime or another object).
type ExtFunc struct {
	Name string
	Sig  *Signature
}

// Unit is one compilation unit: an append-only symbol table of external
// function declarations plus the functions built against it. Registration
// order is preserved and is part of the unit's observable state.
//
// A Unit is not safe for concurrent mutation; the surrounding driver
// serializes symbol registration and function creation.
type Unit struct {
	name      string
	decls     []ExtFunc
	declIndex map[string]FuncRef
	funcs     []*Func
}

// NewUnit returns an empty compilation unit. The name only appears in
// diagnostics.
func NewUnit(name string) *Unit {
	return &Unit{name: name, declIndex: map[string]FuncRef{}}
}

// Name returns the unit's diagnostic name.
func (u *Unit) Name() string {
	return u.name
}

// DeclareFunc registers an external function symbol and returns its handle.
// Declaring the same name twice is a bug in the caller, not a recoverable
// condition, and panics.
func (u *Unit) DeclareFunc(name string, sig *Signature) FuncRef {
	if _, ok := u.declIndex[name]; ok {
		panic(fmt.Sprintf("BUG: symbol already declared in unit %q: %s", u.name, name))
	}
	ref := FuncRef(len(u.decls))
	u.decls = append(u.decls, ExtFunc{Name: name, Sig: sig})
	u.declIndex[name] = ref
	return ref
}

// Lookup returns the handle of a previously declared symbol.
func (u *Unit) Lookup(name string) (FuncRef, bool) {
	ref, ok := u.declIndex[name]
	return ref, ok
}

// ExtFunc returns the declaration behind a handle.
func (u *Unit) ExtFunc(ref FuncRef) *ExtFunc {
	if int(ref) >= len(u.decls) {
		panic(fmt.Sprintf("BUG: unknown function reference: %s", ref))
	}
	return &u.decls[ref]
}

// ExtFuncs returns all declarations in registration order. The returned
// slice is the unit's own storage and must not be mutated.
func (u *Unit) ExtFuncs() []ExtFunc {
	return u.decls
}

// NewFunc starts building a function owned by this unit. Parameters are
// materialized immediately as the function's first values.
func (u *Unit) NewFunc(name string, sig *Signature) *Func {
	f := &Func{name: name, sig: sig, unit: u}
	for _, p := range sig.Params {
		f.params = append(f.params, f.allocateValue(p))
	}
	u.funcs = append(u.funcs, f)
	return f
}

// Funcs returns the functions built on this unit in creation order.
func (u *Unit) Funcs() []*Func {
	return u.funcs
}

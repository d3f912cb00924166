// Package r1cs implements the rank-1 constraint system builder: variable
// allocation, a·b=c constraint enforcement, and witness satisfaction
// checking.
package r1cs

import (
	"fmt"
	"sort"

	"gyre/internal/field"
	"gyre/internal/lc"
)

// Env is the "current assignment" a witness function reads from. The
// Builder owns one Env, CheckAll rebinds its Inputs in place, and every
// WitnessFn receives that same *Env as its argument when invoked.
type Env struct {
	Inputs map[string]field.Element
}

// WitnessFn computes a single variable's value from the current Env.
type WitnessFn func(env *Env) (field.Element, error)

// Constraint is one a*b=c gate.
type Constraint struct {
	A, B, C lc.Lc
}

type witnessEntry struct {
	idx  int
	name string
	fn   WitnessFn
}

// DuplicateVarError is raised allocating a name that already has a variable.
type DuplicateVarError struct{ Name string }

func (e *DuplicateVarError) Error() string {
	return fmt.Sprintf("r1cs: variable %q already allocated", e.Name)
}

// UnsatisfiedConstraintError is raised by CheckAll on the first failing
// constraint.
type UnsatisfiedConstraintError struct{ Index int }

func (e *UnsatisfiedConstraintError) Error() string {
	return fmt.Sprintf("r1cs: constraint %d unsatisfied", e.Index)
}

// MissingInputError is raised when a witness thunk needs an input name
// absent from Env.Inputs.
type MissingInputError struct{ Name string }

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("r1cs: missing input %q", e.Name)
}

// Builder accumulates variables and constraints for one compilation. It is
// owned exclusively by its caller; no synchronization is provided because
// spec mandates single-threaded cooperative use (no concurrent Builder
// access is supported).
type Builder struct {
	F *field.Field

	nextIdx  int
	names    map[string]int
	idxNames map[int]string
	public   map[int]bool

	witness     []witnessEntry
	constraints []Constraint

	env *Env
}

// NewBuilder creates an empty builder over field f. Variable index 0 is
// reserved for the constant 1 and is never returned by NewVar.
func NewBuilder(f *field.Field) *Builder {
	return &Builder{
		F:        f,
		nextIdx:  1,
		names:    map[string]int{},
		idxNames: map[int]string{},
		public:   map[int]bool{},
		env:      &Env{Inputs: map[string]field.Element{}},
	}
}

// NewVar allocates a fresh variable index bound to name, with witnessFn
// computing its value from the builder's Env. Allocating the same name
// twice is an error.
func (b *Builder) NewVar(name string, witnessFn WitnessFn, public bool) (int, error) {
	if _, exists := b.names[name]; exists {
		return 0, &DuplicateVarError{Name: name}
	}
	idx := b.nextIdx
	b.nextIdx++
	b.names[name] = idx
	b.idxNames[idx] = name
	if public {
		b.public[idx] = true
	}
	b.witness = append(b.witness, witnessEntry{idx: idx, name: name, fn: witnessFn})
	return idx, nil
}

func (b *Builder) VarIdx(name string) (int, bool) {
	idx, ok := b.names[name]
	return idx, ok
}

func (b *Builder) VarName(idx int) string { return b.idxNames[idx] }

// Enforce adds the constraint a*b=c.
func (b *Builder) Enforce(a, bLc, c lc.Lc) {
	b.constraints = append(b.constraints, Constraint{A: a, B: bLc, C: c})
}

// AssertEq is shorthand for Enforce(l1-l2, 1, 0).
func (b *Builder) AssertEq(l1, l2 lc.Lc) {
	one := lc.FromConst(b.F, b.F.One())
	b.Enforce(l1.Sub(l2), one, lc.Zero(b.F))
}

func (b *Builder) NumVars() int        { return b.nextIdx - 1 }
func (b *Builder) NumConstraints() int { return len(b.constraints) }

// PublicIdxs returns the sorted list of public variable indices.
func (b *Builder) PublicIdxs() []int {
	out := make([]int, 0, len(b.public))
	for idx := range b.public {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func (b *Builder) Constraints() []Constraint { return b.constraints }

// CheckAll binds inputs into the builder's Env, runs the witness plan in
// allocation order, and checks every constraint. It returns the first
// unsatisfied constraint's index, or the full variable assignment on
// success.
func (b *Builder) CheckAll(inputs map[string]field.Element) (map[int]field.Element, error) {
	b.env.Inputs = inputs
	vals := map[int]field.Element{}
	for _, e := range b.witness {
		v, err := e.fn(b.env)
		if err != nil {
			return nil, err
		}
		vals[e.idx] = v
	}
	for i, cons := range b.constraints {
		av := cons.A.Eval(vals)
		bv := cons.B.Eval(vals)
		cv := cons.C.Eval(vals)
		if !av.Mul(bv).Equal(cv) {
			return nil, &UnsatisfiedConstraintError{Index: i}
		}
	}
	return vals, nil
}

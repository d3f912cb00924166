// Package circify implements the scope/SSA machine that turns an imperative
// source program into a pure IR Computation under an implicit path
// condition: declarations, assignments (rewritten through Ite under the
// current guard), lexical scopes, conditionals, and early exits (break,
// return), each tracked on a per-function stack of state entries.
package circify

import (
	"fmt"

	"gyre/internal/ir"
	"gyre/internal/mem"
)

// Val is either a constrainable Term or a reference to another location
// (an l-value, never Ite-merged on reassignment).
type Val[T any] struct {
	Term T
	Ref  *Loc
}

func TermVal[T any](t T) Val[T] { return Val[T]{Term: t} }
func RefVal[T any](l Loc) Val[T] {
	return Val[T]{Ref: &l}
}

func (v Val[T]) IsRef() bool { return v.Ref != nil }

func (v Val[T]) String() string {
	if v.IsRef() {
		return fmt.Sprintf("&%s", v.Ref)
	}
	return fmt.Sprintf("%v", v.Term)
}

// scopeIdx names a lexical scope inside a specific function frame.
type scopeIdx struct {
	fn, lex int
}

// Loc is a location: a name in the current scope, or (once resolved via
// Circify.Ref) a name pinned to a specific function/lexical scope, with a
// nil scope index meaning the global scope.
type Loc struct {
	Name     string
	resolved bool
	idx      *scopeIdx
}

// LocalLoc builds an unresolved location: "look this name up in whatever
// scope is current when the location is used."
func LocalLoc(name string) Loc { return Loc{Name: name} }

func (l Loc) String() string {
	if l.resolved {
		return "*" + l.Name
	}
	return l.Name
}

// PrecomputeEntry names an intermediate the witness evaluation plan must be
// able to recompute: some SSA name, bound (via an Eq assertion) to the term
// that defines it.
type PrecomputeEntry struct {
	Name string
	Term *ir.Term
}

// CirCtx is the shared, language-agnostic context an Embeddable's callbacks
// receive: the memory manager for array locals, the accumulated top-level
// assertions, the witness evaluation plan built up as assignments introduce
// named intermediates, and the set of SSA names exposed as R1CS public
// inputs.
type CirCtx struct {
	Mem          *mem.Manager
	Assertions   []*ir.Term
	Precompute   []PrecomputeEntry
	PublicInputs map[string]bool
}

func NewCirCtx() *CirCtx {
	return &CirCtx{Mem: mem.NewManager(), PublicInputs: map[string]bool{}}
}

func (c *CirCtx) Assert(t *ir.Term) { c.Assertions = append(c.Assertions, t) }

// RecordPrecompute appends an entry to the witness evaluation plan. An
// Embeddable's Assign calls this for every named intermediate it introduces
// so the plan can recompute that name's value without reading it straight
// from the witness source (only Declare'd inputs may do that).
func (c *CirCtx) RecordPrecompute(name string, t *ir.Term) {
	c.Precompute = append(c.Precompute, PrecomputeEntry{Name: name, Term: t})
}

// Embeddable is a source language's binding to the circification machine:
// how it declares a fresh variable of some Ty, how it merges two values of
// its term representation T under a condition, and how it finalizes an
// assignment's Ite result into a new named term.
type Embeddable[Ty any, T any] interface {
	Declare(ctx *CirCtx, ty Ty, rawName string, userName *string, public bool) T
	Ite(ctx *CirCtx, cond *ir.Term, t, f T) T
	Assign(ctx *CirCtx, ty Ty, name string, t T) T
	Values() bool
}

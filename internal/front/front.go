// Package front holds the language-agnostic scaffolding every concrete
// front end (c, zokrates, datalog) builds on: a small value-type language
// (Type) that maps onto ir.Sort, a scalar Embeddable that gives circify a
// term-valued binding for it, and the glue that turns a finished Circify
// session into an opt.Computation ready for the pipeline.
package front

import (
	"fmt"

	"gyre/internal/circify"
	"gyre/internal/field"
	"gyre/internal/ir"
	"gyre/internal/opt"
)

// TypeKind mirrors ir.Kind at the source-language level, before a Field's
// modulus has necessarily been resolved.
type TypeKind int

const (
	TyBool TypeKind = iota
	TyBitVector
	TyField
	TyArray
)

// Type is the surface-language counterpart of ir.Sort: every front end
// resolves its own declared types down to one of these before handing them
// to circify.Declare.
type Type struct {
	Kind  TypeKind
	Width int          // BitVector(w)
	Field *field.Field // Field(p); nil means Default()
	Elem  *Type        // Array(u32, Elem, Len)
	Len   int
}

func Bool() Type                { return Type{Kind: TyBool} }
func BitVector(w int) Type      { return Type{Kind: TyBitVector, Width: w} }
func FieldTy(f *field.Field) Type {
	if f == nil {
		f = field.Default()
	}
	return Type{Kind: TyField, Field: f}
}
func Array(elem Type, n int) Type { return Type{Kind: TyArray, Elem: &elem, Len: n} }

func (t Type) String() string {
	switch t.Kind {
	case TyBool:
		return "bool"
	case TyBitVector:
		return fmt.Sprintf("bv%d", t.Width)
	case TyField:
		return "field"
	case TyArray:
		return fmt.Sprintf("[%s; %d]", t.Elem, t.Len)
	default:
		return "?"
	}
}

// ToSort lowers a surface Type to the ir.Sort it's represented by. Arrays
// are indexed by a u32-width BitVector key, matching mem.Manager's own key
// convention.
func (t Type) ToSort() *ir.Sort {
	switch t.Kind {
	case TyBool:
		return ir.BoolSort()
	case TyBitVector:
		return ir.BitVectorSort(t.Width)
	case TyField:
		f := t.Field
		if f == nil {
			f = field.Default()
		}
		return ir.FieldSort(f)
	case TyArray:
		return ir.ArraySort(ir.BitVectorSort(32), t.Elem.ToSort(), t.Len)
	default:
		panic("front: unhandled type kind")
	}
}

// LoopBoundExceededError reports a bounded for-loop whose trip count could
// not be determined to stay within the front end's unroll limit.
type LoopBoundExceededError struct {
	Bound int
}

func (e *LoopBoundExceededError) Error() string {
	return fmt.Sprintf("front: loop exceeds unroll bound of %d iterations", e.Bound)
}

// DefaultUnrollBound is the trip-count ceiling front/c unrolls bounded
// for-loops to before giving up with LoopBoundExceededError (the zokrates
// and datalog stubs have no loop construct).
const DefaultUnrollBound = 5

// TypeError reports an operator applied to operand sorts it doesn't accept,
// e.g. "*" on a Bool or "&&" on mismatched BitVector widths.
type TypeError struct {
	Op   string
	Sort string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("front: operator %q is not defined for %s", e.Op, e.Sort)
}

// Scalar is the single Embeddable every included front end instantiates
// circify with: its term representation is a bare *ir.Term, so Ite and
// Assign are exactly the one-node IR operations they're named for, and
// Declare allocates one ir.Var per declared name. front/c never declares
// its arrays here: their element cells live in the CirCtx's mem.Manager,
// tracked by the caller under the array's source name.
type Scalar struct{}

func (Scalar) Declare(ctx *circify.CirCtx, ty Type, rawName string, userName *string, public bool) *ir.Term {
	if public {
		ctx.PublicInputs[rawName] = true
	}
	return ir.NewVar(rawName, ty.ToSort())
}

func (Scalar) Ite(ctx *circify.CirCtx, cond *ir.Term, t, f *ir.Term) *ir.Term {
	return ir.MustMk(ir.Op{Tag: ir.OpIte}, cond, t, f)
}

func (Scalar) Assign(ctx *circify.CirCtx, ty Type, name string, t *ir.Term) *ir.Term {
	v := ir.NewVar(name, ty.ToSort())
	ctx.Assert(ir.MustMk(ir.Op{Tag: ir.OpEq}, v, t))
	ctx.RecordPrecompute(name, t)
	return v
}

func (Scalar) Values() bool { return true }

// NewCircifier builds a Circify session over the shared Scalar embedding,
// the one every front end in this module drives.
func NewCircifier() *circify.Circify[Type, *ir.Term] {
	return circify.New[Type, *ir.Term](Scalar{})
}

// Program accumulates the pieces a front end's build pass produces —
// explicit assertions plus the values it wants exposed as circuit outputs —
// and turns them into a Computation for the opt pipeline.
type Program struct {
	C       *circify.Circify[Type, *ir.Term]
	Outputs []*ir.Term
}

func NewProgram() *Program {
	return &Program{C: NewCircifier()}
}

// AddOutput marks t (typically a function's return value) as a circuit
// output: asserted true if Bool-sorted, otherwise exposed as a public
// output value once lowered.
func (p *Program) AddOutput(t *ir.Term) {
	p.Outputs = append(p.Outputs, t)
}

// Finish collects every assertion circification recorded, the witness
// evaluation plan Scalar.Assign built up one entry per named intermediate,
// and the program's declared outputs into a Computation.
func (p *Program) Finish() *opt.Computation {
	ctx := p.C.Ctx()
	comp := &opt.Computation{
		Outputs:  append([]*ir.Term{}, ctx.Assertions...),
		Metadata: map[string]string{},
	}
	comp.Outputs = append(comp.Outputs, p.Outputs...)
	for _, e := range ctx.Precompute {
		comp.Precompute = append(comp.Precompute, opt.WitnessEntry{Name: e.Name, Term: e.Term})
	}
	for name := range ctx.PublicInputs {
		comp.PublicInputs = append(comp.PublicInputs, name)
	}
	return comp
}

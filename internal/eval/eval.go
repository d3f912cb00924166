// Package eval implements the concrete evaluator for ir.Term DAGs: given an
// assignment name -> ir.Value, it computes each output's value, memoizing
// per node so repeated subterms are evaluated once.
package eval

import (
	"fmt"
	"math/big"

	"gyre/internal/ir"
)

// DivisionByZeroError is raised evaluating Field.Inv(0).
type DivisionByZeroError struct {
	Term *ir.Term
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("eval: division by zero evaluating %s", e.Term)
}

// MissingInputError is raised when a Var used by the computation has no
// entry in the assignment.
type MissingInputError struct {
	Name string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("eval: missing input %q", e.Name)
}

// Evaluator holds a memoization cache scoped to a single assignment sigma.
// Re-use across assignments is incorrect; construct a fresh Evaluator per
// witness computation.
type Evaluator struct {
	sigma map[string]ir.Value
	memo  map[uint64]ir.Value
}

func New(sigma map[string]ir.Value) *Evaluator {
	return &Evaluator{sigma: sigma, memo: map[uint64]ir.Value{}}
}

// Eval computes t's value under the evaluator's assignment.
func (e *Evaluator) Eval(t *ir.Term) (ir.Value, error) {
	if v, ok := e.memo[t.ID()]; ok {
		return v, nil
	}
	v, err := e.evalUncached(t)
	if err != nil {
		return ir.Value{}, err
	}
	e.memo[t.ID()] = v
	return v, nil
}

func (e *Evaluator) evalChildren(t *ir.Term) ([]ir.Value, error) {
	vals := make([]ir.Value, len(t.Children))
	for i, c := range t.Children {
		v, err := e.Eval(c)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func (e *Evaluator) evalUncached(t *ir.Term) (ir.Value, error) {
	if cv, ok := t.IsConst(); ok {
		return cv, nil
	}
	if name := t.VarName(); name != "" {
		v, ok := e.sigma[name]
		if !ok {
			return ir.Value{}, &MissingInputError{Name: name}
		}
		return v, nil
	}

	if t.Op.Tag == ir.OpIte {
		cond, err := e.Eval(t.Children[0])
		if err != nil {
			return ir.Value{}, err
		}
		if cond.Bool() {
			return e.Eval(t.Children[1])
		}
		return e.Eval(t.Children[2])
	}

	c, err := e.evalChildren(t)
	if err != nil {
		return ir.Value{}, err
	}

	switch t.Op.Tag {
	case ir.OpNot:
		return ir.BoolValue(!c[0].Bool()), nil
	case ir.OpAnd:
		return ir.BoolValue(c[0].Bool() && c[1].Bool()), nil
	case ir.OpOr:
		return ir.BoolValue(c[0].Bool() || c[1].Bool()), nil
	case ir.OpXor:
		return ir.BoolValue(c[0].Bool() != c[1].Bool()), nil
	case ir.OpImplies:
		return ir.BoolValue(!c[0].Bool() || c[1].Bool()), nil
	case ir.OpEq:
		return ir.BoolValue(valueEqual(c[0], c[1])), nil

	case ir.OpBvAdd:
		return bvArith(t, c[0], c[1], (*big.Int).Add), nil
	case ir.OpBvSub:
		return bvArith(t, c[0], c[1], (*big.Int).Sub), nil
	case ir.OpBvMul:
		return bvArith(t, c[0], c[1], (*big.Int).Mul), nil
	case ir.OpBvNeg:
		w := t.Sort().Width
		return ir.BitVectorValue(w, new(big.Int).Neg(c[0].BitVector())), nil
	case ir.OpBvUDiv:
		w := t.Sort().Width
		a, b := c[0].BitVector(), c[1].BitVector()
		if b.Sign() == 0 {
			allOnes := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(w)), big.NewInt(1))
			return ir.BitVectorValue(w, allOnes), nil
		}
		return ir.BitVectorValue(w, new(big.Int).Quo(a, b)), nil
	case ir.OpBvURem:
		w := t.Sort().Width
		a, b := c[0].BitVector(), c[1].BitVector()
		if b.Sign() == 0 {
			return ir.BitVectorValue(w, a), nil
		}
		return ir.BitVectorValue(w, new(big.Int).Rem(a, b)), nil
	case ir.OpBvAnd:
		return ir.BitVectorValue(t.Sort().Width, new(big.Int).And(c[0].BitVector(), c[1].BitVector())), nil
	case ir.OpBvOr:
		return ir.BitVectorValue(t.Sort().Width, new(big.Int).Or(c[0].BitVector(), c[1].BitVector())), nil
	case ir.OpBvXor:
		return ir.BitVectorValue(t.Sort().Width, new(big.Int).Xor(c[0].BitVector(), c[1].BitVector())), nil
	case ir.OpBvNot:
		w := t.Sort().Width
		mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(w)), big.NewInt(1))
		return ir.BitVectorValue(w, new(big.Int).Xor(c[0].BitVector(), mask)), nil
	case ir.OpBvShl:
		w := t.Sort().Width
		shift := c[1].BitVector().Uint64()
		return ir.BitVectorValue(w, new(big.Int).Lsh(c[0].BitVector(), uint(shift))), nil
	case ir.OpBvLShr:
		w := t.Sort().Width
		shift := c[1].BitVector().Uint64()
		return ir.BitVectorValue(w, new(big.Int).Rsh(c[0].BitVector(), uint(shift))), nil
	case ir.OpBvAShr:
		w := t.Sort().Width
		shift := c[1].BitVector().Uint64()
		// big.Int.Rsh on a negative value rounds toward -infinity, which is
		// exactly two's-complement arithmetic shift; BitVectorValue reduces
		// the (possibly negative) result back into [0, 2^w).
		return ir.BitVectorValue(w, new(big.Int).Rsh(signed(c[0].BitVector(), w), uint(shift))), nil
	case ir.OpBvUlt:
		return ir.BoolValue(c[0].BitVector().Cmp(c[1].BitVector()) < 0), nil
	case ir.OpBvUle:
		return ir.BoolValue(c[0].BitVector().Cmp(c[1].BitVector()) <= 0), nil
	case ir.OpBvUgt:
		return ir.BoolValue(c[0].BitVector().Cmp(c[1].BitVector()) > 0), nil
	case ir.OpBvUge:
		return ir.BoolValue(c[0].BitVector().Cmp(c[1].BitVector()) >= 0), nil
	case ir.OpBvSlt:
		w := t.Children[0].Sort().Width
		return ir.BoolValue(signed(c[0].BitVector(), w).Cmp(signed(c[1].BitVector(), w)) < 0), nil
	case ir.OpBvExtract:
		v := c[0].BitVector()
		shifted := new(big.Int).Rsh(v, uint(t.Op.Lo))
		width := t.Op.Hi - t.Op.Lo + 1
		mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(width)), big.NewInt(1))
		return ir.BitVectorValue(width, new(big.Int).And(shifted, mask)), nil
	case ir.OpBvConcat:
		wB := t.Children[1].Sort().Width
		v := new(big.Int).Lsh(c[0].BitVector(), uint(wB))
		v.Or(v, c[1].BitVector())
		return ir.BitVectorValue(t.Sort().Width, v), nil
	case ir.OpBvZeroExt:
		return ir.BitVectorValue(t.Sort().Width, c[0].BitVector()), nil
	case ir.OpBvSignExt:
		w := t.Children[0].Sort().Width
		return ir.BitVectorValue(t.Sort().Width, signed(c[0].BitVector(), w)), nil
	case ir.OpBvToField:
		f := t.Op.FieldMod
		return ir.FieldValue(f, f.FromBigInt(c[0].BitVector())), nil
	case ir.OpFieldToBv:
		return ir.BitVectorValue(t.Op.ToWidth, c[0].FieldElement().BigInt()), nil

	case ir.OpFieldAdd:
		return ir.FieldValue(t.Sort().FieldMod, c[0].FieldElement().Add(c[1].FieldElement())), nil
	case ir.OpFieldMul:
		return ir.FieldValue(t.Sort().FieldMod, c[0].FieldElement().Mul(c[1].FieldElement())), nil
	case ir.OpFieldNeg:
		return ir.FieldValue(t.Sort().FieldMod, c[0].FieldElement().Neg()), nil
	case ir.OpFieldInv:
		inv, ok := c[0].FieldElement().Inv()
		if !ok {
			return ir.Value{}, &DivisionByZeroError{Term: t}
		}
		return ir.FieldValue(t.Sort().FieldMod, inv), nil

	case ir.OpSelect:
		return c[0].Select(c[1]), nil
	case ir.OpStore:
		return c[0].Store(c[1], c[2]), nil
	case ir.OpConstArray:
		return ir.ConstArrayValue(t.Op.KeySort, c[0].Sort(), t.Op.Len, c[0]), nil

	case ir.OpTupleField:
		return c[0].TupleField(t.Op.Index), nil
	case ir.OpTupleMake:
		return ir.TupleValue(c...), nil
	}
	return ir.Value{}, fmt.Errorf("eval: unhandled operator %s", t.Op.Tag)
}

func bvArith(t *ir.Term, a, b ir.Value, op func(z, x, y *big.Int) *big.Int) ir.Value {
	w := t.Sort().Width
	r := op(new(big.Int), a.BitVector(), b.BitVector())
	return ir.BitVectorValue(w, r)
}

func signed(v *big.Int, w int) *big.Int {
	if v.Bit(w-1) == 0 {
		return new(big.Int).Set(v)
	}
	full := new(big.Int).Lsh(big.NewInt(1), uint(w))
	return new(big.Int).Sub(v, full)
}

func valueEqual(a, b ir.Value) bool {
	if !a.Sort().Equal(b.Sort()) {
		return false
	}
	switch a.Sort().Kind {
	case ir.KindBool:
		return a.Bool() == b.Bool()
	case ir.KindBitVector:
		return a.BitVector().Cmp(b.BitVector()) == 0
	case ir.KindField:
		return a.FieldElement().Equal(b.FieldElement())
	default:
		return a.String() == b.String()
	}
}

// Package lower implements C9: compiling an optimized ir.Term DAG down to an
// R1CS Builder. Lowering is a memoized, bottom-up walk (the term DAG is
// hash-consed, so lowering each distinct subterm exactly once is sufficient)
// producing, per term, a Rep: the linear combination an R1CS consumer reads
// as that term's value, plus (for BitVector sorts) the little-endian boolean
// bit decomposition later gadgets compose from.
//
// The gadgets themselves follow the constant-count invariants spec.md
// requires (one multiplication for Field.Mul/And/Ite, two for an equality
// check's is-zero hint pair, w or w+1 boolean constraints for a range check)
// and lean on internal/eval to produce concrete witness values rather than
// re-deriving arithmetic semantics a second time in this package — the one
// deliberate exception is a Var's own allocation, which must read its value
// directly from the R1CS Env unreduced, so an out-of-range external input is
// still caught by the range-check constraints rather than silently wrapped.
package lower

import (
	"fmt"
	"math/big"

	"gyre/internal/eval"
	"gyre/internal/field"
	"gyre/internal/ir"
	"gyre/internal/lc"
	"gyre/internal/opt"
	"gyre/internal/r1cs"
)

// UnlowerableError is raised when a term has no R1CS representation: an
// Array-sorted term that survived the optimizer's memory pass (a symbolic
// store key, or an array-typed Var with no front-end-realizable backing
// store), a Tuple operator other than Tuple.Make/Tuple.Field, or a
// variable-amount bit shift.
type UnlowerableError struct {
	Term   *ir.Term
	Reason string
}

func (e *UnlowerableError) Error() string {
	return fmt.Sprintf("lower: %s is unlowerable: %s", e.Term, e.Reason)
}

// Rep is a term's R1CS representation. Bool/BitVector/Field sorts carry a
// packed linear combination; BitVector additionally carries its bit
// decomposition once something has forced it (lazily filled, see bitsOf);
// Tuple carries its fields' own Reps directly, with no scalar Lc of its own.
type Rep struct {
	Sort  *ir.Sort
	Lc    lc.Lc
	Bits  []lc.Lc
	Tuple []Rep
}

// Lowerer holds one computation's R1CS build plus the caches the lowering
// switch needs: a per-term memo (sound because the term DAG is hash-consed),
// a per-term bit-decomposition memo (kept separate since not every consumer
// of a BitVector term forces its bits), and the sort registry the
// eval-based witness bridge uses to turn an R1CS Env back into an ir.Value
// assignment.
type Lowerer struct {
	B *r1cs.Builder
	F *field.Field

	cache     map[uint64]Rep
	bitsCache map[uint64][]lc.Lc
	varSorts  map[string]*ir.Sort
	public    map[string]bool

	fresh int
}

// New creates a Lowerer writing into b.
func New(b *r1cs.Builder) *Lowerer {
	return &Lowerer{
		B:         b,
		F:         b.F,
		cache:     map[uint64]Rep{},
		bitsCache: map[uint64][]lc.Lc{},
		varSorts:  map[string]*ir.Sort{},
		public:    map[string]bool{},
	}
}

func (l *Lowerer) freshName(prefix string) string {
	l.fresh++
	return fmt.Sprintf("%s$%d", prefix, l.fresh)
}

func (l *Lowerer) isPublic(name string) bool { return l.public[name] }

// Lower computes t's R1CS representation, memoized by term identity.
func (l *Lowerer) Lower(t *ir.Term) (Rep, error) {
	if rep, ok := l.cache[t.ID()]; ok {
		return rep, nil
	}
	rep, err := l.lowerUncached(t)
	if err != nil {
		return Rep{}, err
	}
	l.cache[t.ID()] = rep
	return rep, nil
}

func (l *Lowerer) lowerUncached(t *ir.Term) (Rep, error) {
	if cv, ok := t.IsConst(); ok {
		return l.lowerConst(t, cv)
	}
	if name := t.VarName(); name != "" {
		return l.lowerVar(t, name)
	}

	switch t.Op.Tag {
	case ir.OpNot, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpImplies:
		return l.lowerBoolOp(t)
	case ir.OpEq:
		return l.lowerEq(t)
	case ir.OpIte:
		return l.lowerIte(t)
	case ir.OpFieldAdd, ir.OpFieldMul, ir.OpFieldNeg, ir.OpFieldInv:
		return l.lowerFieldOp(t)
	case ir.OpBvToField:
		return l.lowerBvToField(t)
	case ir.OpFieldToBv:
		return l.lowerFieldToBv(t)
	case ir.OpBvAdd, ir.OpBvSub, ir.OpBvMul, ir.OpBvNeg, ir.OpBvUDiv, ir.OpBvURem,
		ir.OpBvAnd, ir.OpBvOr, ir.OpBvXor, ir.OpBvNot, ir.OpBvShl, ir.OpBvLShr, ir.OpBvAShr,
		ir.OpBvUlt, ir.OpBvUle, ir.OpBvUgt, ir.OpBvUge, ir.OpBvSlt,
		ir.OpBvExtract, ir.OpBvConcat, ir.OpBvZeroExt, ir.OpBvSignExt:
		return l.lowerBV(t)
	case ir.OpTupleMake, ir.OpTupleField:
		return l.lowerTuple(t)
	case ir.OpSelect, ir.OpStore, ir.OpConstArray:
		return Rep{}, &UnlowerableError{Term: t, Reason: "array terms must be fully eliminated by the optimizer's memory pass before lowering"}
	}
	return Rep{}, &UnlowerableError{Term: t, Reason: fmt.Sprintf("no lowering rule for operator %s", t.Op.Tag)}
}

func (l *Lowerer) lowerConst(t *ir.Term, v ir.Value) (Rep, error) {
	switch t.Sort().Kind {
	case ir.KindBool:
		fe := l.F.Zero()
		if v.Bool() {
			fe = l.F.One()
		}
		return Rep{Sort: t.Sort(), Lc: lc.FromConst(l.F, fe)}, nil
	case ir.KindBitVector:
		return Rep{Sort: t.Sort(), Lc: lc.FromConst(l.F, l.F.FromBigInt(v.BitVector()))}, nil
	case ir.KindField:
		return Rep{Sort: t.Sort(), Lc: lc.FromConst(l.F, v.FieldElement())}, nil
	}
	return Rep{}, &UnlowerableError{Term: t, Reason: fmt.Sprintf("a constant of sort %s has no R1CS representation", t.Sort())}
}

// lowerVar allocates t's R1CS variable. Its witness reads env.Inputs[name]
// verbatim — not through the eval bridge — so a BitVector var's own range
// check (below) is checked against the caller-supplied value exactly as
// given, not a pre-reduced stand-in that would silently paper over an
// out-of-range input.
func (l *Lowerer) lowerVar(t *ir.Term, name string) (Rep, error) {
	sort := t.Sort()
	if existing, ok := l.varSorts[name]; ok {
		if !existing.Equal(sort) {
			return Rep{}, fmt.Errorf("lower: variable %q used at two different sorts (%s and %s)", name, existing, sort)
		}
	} else {
		l.varSorts[name] = sort
	}

	switch sort.Kind {
	case ir.KindBool:
		idx, err := l.B.NewVar(name, l.witnessEnvVar(name), l.isPublic(name))
		if err != nil {
			return Rep{}, err
		}
		vLc := lc.FromVar(l.F, idx)
		one := lc.FromConst(l.F, l.F.One())
		l.B.Enforce(vLc, vLc.Sub(one), lc.Zero(l.F))
		return Rep{Sort: sort, Lc: vLc}, nil

	case ir.KindBitVector:
		idx, err := l.B.NewVar(name, l.witnessEnvVar(name), l.isPublic(name))
		if err != nil {
			return Rep{}, err
		}
		vLc := lc.FromVar(l.F, idx)
		bits, err := l.decomposeBitsOfLc(vLc, sort.Width, func(i int) r1cs.WitnessFn { return l.witnessBitOfTerm(t, i) })
		if err != nil {
			return Rep{}, err
		}
		l.bitsCache[t.ID()] = bits
		return Rep{Sort: sort, Lc: vLc, Bits: bits}, nil

	case ir.KindField:
		idx, err := l.B.NewVar(name, l.witnessEnvVar(name), l.isPublic(name))
		if err != nil {
			return Rep{}, err
		}
		return Rep{Sort: sort, Lc: lc.FromVar(l.F, idx)}, nil
	}
	return Rep{}, &UnlowerableError{Term: t, Reason: fmt.Sprintf("a variable of sort %s has no R1CS representation", sort)}
}

func (l *Lowerer) witnessEnvVar(name string) r1cs.WitnessFn {
	return func(env *r1cs.Env) (field.Element, error) {
		fe, ok := env.Inputs[name]
		if !ok {
			return field.Element{}, &r1cs.MissingInputError{Name: name}
		}
		return fe, nil
	}
}

// buildSigma reinterprets every registered variable's raw Env value as an
// ir.Value per its sort, for feeding to eval.Evaluator. This is a convenience
// bridge for computing *derived* witness values; it is never used for a
// Var's own allocation (see lowerVar), so reducing a BitVector value mod 2^w
// here cannot mask an out-of-range input — the range-check constraint
// catches that regardless of what any derived witness optimistically
// assumed.
func (l *Lowerer) buildSigma(env *r1cs.Env) map[string]ir.Value {
	sigma := make(map[string]ir.Value, len(l.varSorts))
	for name, sort := range l.varSorts {
		fe, ok := env.Inputs[name]
		if !ok {
			continue
		}
		v, err := fieldElementToValue(fe, sort)
		if err != nil {
			continue
		}
		sigma[name] = v
	}
	return sigma
}

func fieldElementToValue(fe field.Element, sort *ir.Sort) (ir.Value, error) {
	switch sort.Kind {
	case ir.KindBool:
		return ir.BoolValue(!fe.IsZero()), nil
	case ir.KindBitVector:
		return ir.BitVectorValue(sort.Width, fe.BigInt()), nil
	case ir.KindField:
		return ir.FieldValue(sort.FieldMod, fe), nil
	default:
		return ir.Value{}, fmt.Errorf("lower: cannot bridge a %s-sorted variable through the R1CS witness", sort)
	}
}

func (l *Lowerer) valueToField(v ir.Value) (field.Element, error) {
	switch v.Sort().Kind {
	case ir.KindBool:
		if v.Bool() {
			return l.F.One(), nil
		}
		return l.F.Zero(), nil
	case ir.KindBitVector:
		return l.F.FromBigInt(v.BitVector()), nil
	case ir.KindField:
		return v.FieldElement(), nil
	default:
		return field.Element{}, fmt.Errorf("lower: cannot represent a %s value as a single field element", v.Sort())
	}
}

// witnessForTerm recomputes t's value by re-evaluating it via internal/eval
// against the bridged Env, for any derived (non-Var) quantity.
func (l *Lowerer) witnessForTerm(t *ir.Term) r1cs.WitnessFn {
	return func(env *r1cs.Env) (field.Element, error) {
		v, err := eval.New(l.buildSigma(env)).Eval(t)
		if err != nil {
			return field.Element{}, err
		}
		return l.valueToField(v)
	}
}

func (l *Lowerer) witnessBitOfTerm(t *ir.Term, i int) r1cs.WitnessFn {
	return func(env *r1cs.Env) (field.Element, error) {
		v, err := eval.New(l.buildSigma(env)).Eval(t)
		if err != nil {
			return field.Element{}, err
		}
		if v.BitVector().Bit(i) == 1 {
			return l.F.One(), nil
		}
		return l.F.Zero(), nil
	}
}

// decomposeBitsOfLc allocates nbits fresh boolean-constrained variables and
// asserts their weighted sum equals val, returning the bit Lc's low-to-high.
func (l *Lowerer) decomposeBitsOfLc(val lc.Lc, nbits int, bitWitness func(i int) r1cs.WitnessFn) ([]lc.Lc, error) {
	bits := make([]lc.Lc, nbits)
	sum := lc.Zero(l.F)
	pow := l.F.One()
	one := lc.FromConst(l.F, l.F.One())
	two := l.F.FromUint64(2)
	for i := 0; i < nbits; i++ {
		idx, err := l.B.NewVar(l.freshName("bit"), bitWitness(i), false)
		if err != nil {
			return nil, err
		}
		bitLc := lc.FromVar(l.F, idx)
		l.B.Enforce(bitLc, bitLc.Sub(one), lc.Zero(l.F))
		bits[i] = bitLc
		sum = sum.Add(bitLc.MulConst(pow))
		pow = pow.Mul(two)
	}
	l.B.AssertEq(sum, val)
	return bits, nil
}

// bitsOf returns t's cached bit decomposition, computing it on first use.
func (l *Lowerer) bitsOf(t *ir.Term) ([]lc.Lc, error) {
	if bits, ok := l.bitsCache[t.ID()]; ok {
		return bits, nil
	}
	rep, err := l.Lower(t)
	if err != nil {
		return nil, err
	}
	if rep.Bits != nil {
		l.bitsCache[t.ID()] = rep.Bits
		return rep.Bits, nil
	}
	w := t.Sort().Width
	bits, err := l.decomposeBitsOfLc(rep.Lc, w, func(i int) r1cs.WitnessFn { return l.witnessBitOfTerm(t, i) })
	if err != nil {
		return nil, err
	}
	l.bitsCache[t.ID()] = bits
	return bits, nil
}

// packBits reconstructs the low n bits' weighted sum, a pure linear
// combination over already-allocated bit variables with no new constraint.
func (l *Lowerer) packBits(bits []lc.Lc, n int) lc.Lc {
	sum := lc.Zero(l.F)
	pow := l.F.One()
	two := l.F.FromUint64(2)
	for i := 0; i < n; i++ {
		sum = sum.Add(bits[i].MulConst(pow))
		pow = pow.Mul(two)
	}
	return sum
}

// witnessCombine evaluates terms via eval and folds their BitVector values
// through combine, for witness quantities (overflow sums, range-check
// differences) that have no ir.Term of their own.
func (l *Lowerer) witnessCombine(terms []*ir.Term, combine func(vals []*big.Int) *big.Int) r1cs.WitnessFn {
	return func(env *r1cs.Env) (field.Element, error) {
		ev := eval.New(l.buildSigma(env))
		vals := make([]*big.Int, len(terms))
		for i, t := range terms {
			v, err := ev.Eval(t)
			if err != nil {
				return field.Element{}, err
			}
			vals[i] = v.BitVector()
		}
		return l.F.FromBigInt(combine(vals)), nil
	}
}

func (l *Lowerer) witnessCombineBit(terms []*ir.Term, combine func(vals []*big.Int) *big.Int, i int) r1cs.WitnessFn {
	return func(env *r1cs.Env) (field.Element, error) {
		ev := eval.New(l.buildSigma(env))
		vals := make([]*big.Int, len(terms))
		for j, t := range terms {
			v, err := ev.Eval(t)
			if err != nil {
				return field.Element{}, err
			}
			vals[j] = v.BitVector()
		}
		if combine(vals).Bit(i) == 1 {
			return l.F.One(), nil
		}
		return l.F.Zero(), nil
	}
}

// lowerBoolOp lowers Not/And/Or/Xor/Implies, each using at most the single
// a*b multiplication its Boolean-algebra identity requires.
func (l *Lowerer) lowerBoolOp(t *ir.Term) (Rep, error) {
	children := make([]Rep, len(t.Children))
	for i, c := range t.Children {
		rep, err := l.Lower(c)
		if err != nil {
			return Rep{}, err
		}
		children[i] = rep
	}
	one := lc.FromConst(l.F, l.F.One())

	if t.Op.Tag == ir.OpNot {
		return Rep{Sort: t.Sort(), Lc: one.Sub(children[0].Lc)}, nil
	}

	// And/Or/Xor/Implies all reduce to the product a*b plus a linear
	// combination of a, b, and that product.
	andTerm := ir.MustMk(ir.Op{Tag: ir.OpAnd}, t.Children[0], t.Children[1])
	abIdx, err := l.B.NewVar(l.freshName("and"), l.witnessForTerm(andTerm), false)
	if err != nil {
		return Rep{}, err
	}
	abLc := lc.FromVar(l.F, abIdx)
	l.B.Enforce(children[0].Lc, children[1].Lc, abLc)

	switch t.Op.Tag {
	case ir.OpAnd:
		return Rep{Sort: t.Sort(), Lc: abLc}, nil
	case ir.OpOr:
		return Rep{Sort: t.Sort(), Lc: children[0].Lc.Add(children[1].Lc).Sub(abLc)}, nil
	case ir.OpXor:
		two := l.F.FromUint64(2)
		return Rep{Sort: t.Sort(), Lc: children[0].Lc.Add(children[1].Lc).Sub(abLc.MulConst(two))}, nil
	case ir.OpImplies:
		return Rep{Sort: t.Sort(), Lc: one.Sub(children[0].Lc).Add(abLc)}, nil
	}
	return Rep{}, &UnlowerableError{Term: t, Reason: "unreachable boolean operator"}
}

// lowerEq lowers equality via the standard is-zero gadget over the operand
// difference: two multiplications (diff*inv, diff*res), regardless of sort,
// as long as the sort has a scalar Lc representation.
func (l *Lowerer) lowerEq(t *ir.Term) (Rep, error) {
	aSort := t.Children[0].Sort()
	if aSort.Kind == ir.KindArray {
		return Rep{}, &UnlowerableError{Term: t, Reason: "array equality has no R1CS representation"}
	}
	if aSort.Kind == ir.KindTuple {
		return Rep{}, &UnlowerableError{Term: t, Reason: "tuple equality is out of scope; only Tuple.Make/Tuple.Field are lowered"}
	}
	aRep, err := l.Lower(t.Children[0])
	if err != nil {
		return Rep{}, err
	}
	bRep, err := l.Lower(t.Children[1])
	if err != nil {
		return Rep{}, err
	}
	diff := aRep.Lc.Sub(bRep.Lc)
	isZero, err := l.isZero(diff, l.witnessDiff(t.Children[0], t.Children[1]))
	if err != nil {
		return Rep{}, err
	}
	return Rep{Sort: ir.BoolSort(), Lc: isZero}, nil
}

func (l *Lowerer) witnessDiff(a, b *ir.Term) r1cs.WitnessFn {
	return func(env *r1cs.Env) (field.Element, error) {
		ev := eval.New(l.buildSigma(env))
		av, err := ev.Eval(a)
		if err != nil {
			return field.Element{}, err
		}
		bv, err := ev.Eval(b)
		if err != nil {
			return field.Element{}, err
		}
		afe, err := l.valueToField(av)
		if err != nil {
			return field.Element{}, err
		}
		bfe, err := l.valueToField(bv)
		if err != nil {
			return field.Element{}, err
		}
		return afe.Sub(bfe), nil
	}
}

// isZero builds the standard two-constraint gadget for "is valLc zero",
// given a witness function for valLc's own concrete value.
func (l *Lowerer) isZero(valLc lc.Lc, rawWitness r1cs.WitnessFn) (lc.Lc, error) {
	invIdx, err := l.B.NewVar(l.freshName("iszero_inv"), func(env *r1cs.Env) (field.Element, error) {
		v, err := rawWitness(env)
		if err != nil {
			return field.Element{}, err
		}
		if v.IsZero() {
			return l.F.Zero(), nil
		}
		inv, ok := v.Inv()
		if !ok {
			return l.F.Zero(), nil
		}
		return inv, nil
	}, false)
	if err != nil {
		return lc.Lc{}, err
	}
	resIdx, err := l.B.NewVar(l.freshName("iszero"), func(env *r1cs.Env) (field.Element, error) {
		v, err := rawWitness(env)
		if err != nil {
			return field.Element{}, err
		}
		if v.IsZero() {
			return l.F.One(), nil
		}
		return l.F.Zero(), nil
	}, false)
	if err != nil {
		return lc.Lc{}, err
	}
	invLc := lc.FromVar(l.F, invIdx)
	resLc := lc.FromVar(l.F, resIdx)
	one := lc.FromConst(l.F, l.F.One())
	l.B.Enforce(valLc, invLc, one.Sub(resLc))
	l.B.Enforce(valLc, resLc, lc.Zero(l.F))
	return resLc, nil
}

// lowerIte lowers Ite(cond,a,b) as b + cond*(a-b): one multiplication,
// regardless of a/b's sort, as long as that sort has a scalar Lc.
func (l *Lowerer) lowerIte(t *ir.Term) (Rep, error) {
	if t.Sort().Kind == ir.KindTuple {
		return l.lowerTupleIte(t)
	}
	condRep, err := l.Lower(t.Children[0])
	if err != nil {
		return Rep{}, err
	}
	aRep, err := l.Lower(t.Children[1])
	if err != nil {
		return Rep{}, err
	}
	bRep, err := l.Lower(t.Children[2])
	if err != nil {
		return Rep{}, err
	}
	diff := aRep.Lc.Sub(bRep.Lc)
	prodIdx, err := l.B.NewVar(l.freshName("ite"), l.witnessIteProd(t.Children[0], t.Children[1], t.Children[2]), false)
	if err != nil {
		return Rep{}, err
	}
	prodLc := lc.FromVar(l.F, prodIdx)
	l.B.Enforce(condRep.Lc, diff, prodLc)
	return Rep{Sort: t.Sort(), Lc: bRep.Lc.Add(prodLc)}, nil
}

func (l *Lowerer) witnessIteProd(condT, aT, bT *ir.Term) r1cs.WitnessFn {
	return func(env *r1cs.Env) (field.Element, error) {
		ev := eval.New(l.buildSigma(env))
		cv, err := ev.Eval(condT)
		if err != nil {
			return field.Element{}, err
		}
		av, err := ev.Eval(aT)
		if err != nil {
			return field.Element{}, err
		}
		bv, err := ev.Eval(bT)
		if err != nil {
			return field.Element{}, err
		}
		cfe, err := l.valueToField(cv)
		if err != nil {
			return field.Element{}, err
		}
		afe, err := l.valueToField(av)
		if err != nil {
			return field.Element{}, err
		}
		bfe, err := l.valueToField(bv)
		if err != nil {
			return field.Element{}, err
		}
		return cfe.Mul(afe.Sub(bfe)), nil
	}
}

// lowerTupleIte is out of scope: Tuple.Make/Tuple.Field are the only
// lowered Tuple operators (see DESIGN.md's internal/lower scope cuts).
func (l *Lowerer) lowerTupleIte(t *ir.Term) (Rep, error) {
	return Rep{}, &UnlowerableError{Term: t, Reason: "conditional selection over Tuple-sorted values is out of scope; only Tuple.Make/Tuple.Field are lowered"}
}

func (l *Lowerer) lowerFieldOp(t *ir.Term) (Rep, error) {
	switch t.Op.Tag {
	case ir.OpFieldAdd:
		aRep, err := l.Lower(t.Children[0])
		if err != nil {
			return Rep{}, err
		}
		bRep, err := l.Lower(t.Children[1])
		if err != nil {
			return Rep{}, err
		}
		return Rep{Sort: t.Sort(), Lc: aRep.Lc.Add(bRep.Lc)}, nil
	case ir.OpFieldNeg:
		aRep, err := l.Lower(t.Children[0])
		if err != nil {
			return Rep{}, err
		}
		return Rep{Sort: t.Sort(), Lc: aRep.Lc.Neg()}, nil
	case ir.OpFieldMul:
		aRep, err := l.Lower(t.Children[0])
		if err != nil {
			return Rep{}, err
		}
		bRep, err := l.Lower(t.Children[1])
		if err != nil {
			return Rep{}, err
		}
		idx, err := l.B.NewVar(l.freshName("fmul"), l.witnessForTerm(t), false)
		if err != nil {
			return Rep{}, err
		}
		cLc := lc.FromVar(l.F, idx)
		l.B.Enforce(aRep.Lc, bRep.Lc, cLc)
		return Rep{Sort: t.Sort(), Lc: cLc}, nil
	case ir.OpFieldInv:
		aRep, err := l.Lower(t.Children[0])
		if err != nil {
			return Rep{}, err
		}
		// witnessForTerm(t) evaluates t itself (Field.Inv of the child) via
		// eval, which already raises eval.DivisionByZeroError on a zero
		// denominator; the a*inv=1 constraint below is unsatisfiable for
		// a=0 regardless, giving the same outcome through CheckAll.
		idx, err := l.B.NewVar(l.freshName("finv"), l.witnessForTerm(t), false)
		if err != nil {
			return Rep{}, err
		}
		invLc := lc.FromVar(l.F, idx)
		one := lc.FromConst(l.F, l.F.One())
		l.B.Enforce(aRep.Lc, invLc, one)
		return Rep{Sort: t.Sort(), Lc: invLc}, nil
	}
	return Rep{}, &UnlowerableError{Term: t, Reason: "unreachable field operator"}
}

// lowerBvToField is a zero-cost sort reinterpretation: a BitVector's packed
// Lc is already the same field element a Field(p) sort would hold, as long
// as the target field matches the circuit's configured field.
func (l *Lowerer) lowerBvToField(t *ir.Term) (Rep, error) {
	if t.Op.FieldMod.Modulus().Cmp(l.F.Modulus()) != 0 {
		return Rep{}, fmt.Errorf("lower: BV.ToField targets a field different from the circuit's configured field")
	}
	childRep, err := l.Lower(t.Children[0])
	if err != nil {
		return Rep{}, err
	}
	return Rep{Sort: t.Sort(), Lc: childRep.Lc}, nil
}

// lowerFieldToBv range-checks the field value into toWidth bits; a field
// value that does not fit leaves the decomposition's sum constraint
// unsatisfiable.
func (l *Lowerer) lowerFieldToBv(t *ir.Term) (Rep, error) {
	childRep, err := l.Lower(t.Children[0])
	if err != nil {
		return Rep{}, err
	}
	w := t.Op.ToWidth
	bits, err := l.decomposeBitsOfLc(childRep.Lc, w, func(i int) r1cs.WitnessFn { return l.witnessBitOfTerm(t, i) })
	if err != nil {
		return Rep{}, err
	}
	l.bitsCache[t.ID()] = bits
	return Rep{Sort: t.Sort(), Lc: childRep.Lc, Bits: bits}, nil
}

func (l *Lowerer) lowerTuple(t *ir.Term) (Rep, error) {
	switch t.Op.Tag {
	case ir.OpTupleMake:
		elems := make([]Rep, len(t.Children))
		for i, c := range t.Children {
			rep, err := l.Lower(c)
			if err != nil {
				return Rep{}, err
			}
			elems[i] = rep
		}
		return Rep{Sort: t.Sort(), Tuple: elems}, nil
	case ir.OpTupleField:
		childRep, err := l.Lower(t.Children[0])
		if err != nil {
			return Rep{}, err
		}
		if childRep.Tuple == nil {
			return Rep{}, &UnlowerableError{Term: t, Reason: "tuple field projection requires a directly constructed Tuple.Make"}
		}
		return childRep.Tuple[t.Op.Index], nil
	}
	return Rep{}, &UnlowerableError{Term: t, Reason: "this operator has no R1CS representation over Tuple-sorted operands"}
}

// LowerComputation lowers every precompute entry (linking a named witness
// variable to it) and every output (asserting it true when Bool-sorted,
// otherwise exposing it as a named public circuit output), in the order
// given — matching spec's determinism requirement that variable and
// constraint order follow lowering's traversal order exactly.
func LowerComputation(f *field.Field, comp *opt.Computation) (*r1cs.Builder, error) {
	b := r1cs.NewBuilder(f)
	l := New(b)
	for _, name := range comp.PublicInputs {
		l.public[name] = true
	}

	for _, entry := range comp.Precompute {
		rep, err := l.Lower(entry.Term)
		if err != nil {
			return nil, err
		}
		if _, exists := b.VarIdx(entry.Name); exists {
			continue
		}
		idx, err := b.NewVar(entry.Name, l.witnessForTerm(entry.Term), l.isPublic(entry.Name))
		if err != nil {
			return nil, err
		}
		b.AssertEq(lc.FromVar(f, idx), rep.Lc)
	}

	for i, out := range comp.Outputs {
		rep, err := l.Lower(out)
		if err != nil {
			return nil, err
		}
		if out.Sort().Kind == ir.KindBool {
			b.AssertEq(rep.Lc, lc.FromConst(f, f.One()))
			continue
		}
		name := fmt.Sprintf("output$%d", i)
		idx, err := b.NewVar(name, l.witnessForTerm(out), true)
		if err != nil {
			return nil, err
		}
		b.AssertEq(lc.FromVar(f, idx), rep.Lc)
	}

	return b, nil
}

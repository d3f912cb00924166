package lower

import (
	"math/big"

	"gyre/internal/field"
	"gyre/internal/ir"
	"gyre/internal/lc"
	"gyre/internal/r1cs"
)

// lowerBV dispatches every BitVector-sorted (or BitVector-operand) operator
// not already handled in lower.go's core switch.
func (l *Lowerer) lowerBV(t *ir.Term) (Rep, error) {
	switch t.Op.Tag {
	case ir.OpBvAdd:
		return l.lowerBvAdd(t)
	case ir.OpBvSub:
		return l.lowerBvSub(t)
	case ir.OpBvMul:
		return l.lowerBvMul(t)
	case ir.OpBvNeg:
		return l.lowerBvNeg(t)
	case ir.OpBvUDiv, ir.OpBvURem:
		return l.lowerBvDivRem(t)
	case ir.OpBvAnd, ir.OpBvOr, ir.OpBvXor:
		return l.lowerBvBitwise(t)
	case ir.OpBvNot:
		return l.lowerBvNot(t)
	case ir.OpBvShl, ir.OpBvLShr, ir.OpBvAShr:
		return l.lowerBvShift(t)
	case ir.OpBvUlt, ir.OpBvUle, ir.OpBvUgt, ir.OpBvUge, ir.OpBvSlt:
		return l.lowerBvCompare(t)
	case ir.OpBvExtract:
		return l.lowerBvExtract(t)
	case ir.OpBvConcat:
		return l.lowerBvConcat(t)
	case ir.OpBvZeroExt:
		return l.lowerBvZeroExt(t)
	case ir.OpBvSignExt:
		return l.lowerBvSignExt(t)
	}
	return Rep{}, &UnlowerableError{Term: t, Reason: "no BitVector lowering rule for this operator"}
}

// lowerBvAdd decomposes the unreduced sum into w+1 bits and keeps only the
// low w as the result's packed Lc — the carry bit is simply discarded, with
// no extra "truncated result" variable or linking constraint needed, since
// the bit decomposition already pins the low bits uniquely.
func (l *Lowerer) lowerBvAdd(t *ir.Term) (Rep, error) {
	a, b := t.Children[0], t.Children[1]
	aRep, err := l.Lower(a)
	if err != nil {
		return Rep{}, err
	}
	bRep, err := l.Lower(b)
	if err != nil {
		return Rep{}, err
	}
	w := t.Sort().Width
	full := aRep.Lc.Add(bRep.Lc)
	bits, err := l.decomposeBitsOfLc(full, w+1, func(i int) r1cs.WitnessFn {
		return l.witnessCombineBit([]*ir.Term{a, b}, func(vals []*big.Int) *big.Int {
			return new(big.Int).Add(vals[0], vals[1])
		}, i)
	})
	if err != nil {
		return Rep{}, err
	}
	return Rep{Sort: t.Sort(), Lc: l.packBits(bits, w), Bits: bits[:w]}, nil
}

// lowerBvSub computes a-b+2^w (always in [0, 2^(w+1)) given a,b in [0,2^w)),
// decomposes into w+1 bits, and keeps the low w — the standard two's
// complement trick.
func (l *Lowerer) lowerBvSub(t *ir.Term) (Rep, error) {
	a, b := t.Children[0], t.Children[1]
	aRep, err := l.Lower(a)
	if err != nil {
		return Rep{}, err
	}
	bRep, err := l.Lower(b)
	if err != nil {
		return Rep{}, err
	}
	w := t.Sort().Width
	twoW := new(big.Int).Lsh(big.NewInt(1), uint(w))
	twoWFe := l.F.FromBigInt(twoW)
	full := aRep.Lc.Sub(bRep.Lc).AddConst(twoWFe)
	bits, err := l.decomposeBitsOfLc(full, w+1, func(i int) r1cs.WitnessFn {
		return l.witnessCombineBit([]*ir.Term{a, b}, func(vals []*big.Int) *big.Int {
			d := new(big.Int).Sub(vals[0], vals[1])
			return d.Add(d, twoW)
		}, i)
	})
	if err != nil {
		return Rep{}, err
	}
	return Rep{Sort: t.Sort(), Lc: l.packBits(bits, w), Bits: bits[:w]}, nil
}

// lowerBvMul allocates the full (unreduced) product via one multiplication,
// then decomposes it into 2w bits and keeps the low w.
func (l *Lowerer) lowerBvMul(t *ir.Term) (Rep, error) {
	a, b := t.Children[0], t.Children[1]
	aRep, err := l.Lower(a)
	if err != nil {
		return Rep{}, err
	}
	bRep, err := l.Lower(b)
	if err != nil {
		return Rep{}, err
	}
	w := t.Sort().Width
	combine := func(vals []*big.Int) *big.Int { return new(big.Int).Mul(vals[0], vals[1]) }
	prodIdx, err := l.B.NewVar(l.freshName("bvmul"), l.witnessCombine([]*ir.Term{a, b}, combine), false)
	if err != nil {
		return Rep{}, err
	}
	prodLc := lc.FromVar(l.F, prodIdx)
	l.B.Enforce(aRep.Lc, bRep.Lc, prodLc)

	bits, err := l.decomposeBitsOfLc(prodLc, 2*w, func(i int) r1cs.WitnessFn {
		return l.witnessCombineBit([]*ir.Term{a, b}, combine, i)
	})
	if err != nil {
		return Rep{}, err
	}
	return Rep{Sort: t.Sort(), Lc: l.packBits(bits, w), Bits: bits[:w]}, nil
}

// lowerBvNeg computes 2^w-a, decomposed the same way as Sub; at a=0 the
// quantity is exactly 2^w, whose low w bits are all zero, matching -0=0.
func (l *Lowerer) lowerBvNeg(t *ir.Term) (Rep, error) {
	a := t.Children[0]
	aRep, err := l.Lower(a)
	if err != nil {
		return Rep{}, err
	}
	w := t.Sort().Width
	twoW := new(big.Int).Lsh(big.NewInt(1), uint(w))
	twoWFe := l.F.FromBigInt(twoW)
	full := lc.FromConst(l.F, twoWFe).Sub(aRep.Lc)
	bits, err := l.decomposeBitsOfLc(full, w+1, func(i int) r1cs.WitnessFn {
		return l.witnessCombineBit([]*ir.Term{a}, func(vals []*big.Int) *big.Int {
			return new(big.Int).Sub(twoW, vals[0])
		}, i)
	})
	if err != nil {
		return Rep{}, err
	}
	return Rep{Sort: t.Sort(), Lc: l.packBits(bits, w), Bits: bits[:w]}, nil
}

// lowerBvDivRem builds the standard quotient/remainder gadget shared by
// UDiv and URem: a = q*b + r, with q and r both range-checked to w bits and
// r additionally constrained below b via the Ult gadget. Division by a
// provably-zero divisor is out of scope: unlike internal/eval's fallback
// value (all-ones for UDiv, a for URem), the r<b constraint here simply
// becomes unsatisfiable, which is the right behavior for a constraint
// system that should reject programs dividing by a value it can prove is
// zero rather than define a value for them.
func (l *Lowerer) lowerBvDivRem(t *ir.Term) (Rep, error) {
	a, b := t.Children[0], t.Children[1]
	w := t.Sort().Width
	aRep, err := l.Lower(a)
	if err != nil {
		return Rep{}, err
	}
	bRep, err := l.Lower(b)
	if err != nil {
		return Rep{}, err
	}

	quot := func(vals []*big.Int) *big.Int {
		if vals[1].Sign() == 0 {
			return big.NewInt(0)
		}
		return new(big.Int).Quo(vals[0], vals[1])
	}
	rem := func(vals []*big.Int) *big.Int {
		if vals[1].Sign() == 0 {
			return new(big.Int).Set(vals[0])
		}
		return new(big.Int).Rem(vals[0], vals[1])
	}

	qIdx, err := l.B.NewVar(l.freshName("udiv_q"), l.witnessCombine([]*ir.Term{a, b}, quot), false)
	if err != nil {
		return Rep{}, err
	}
	rIdx, err := l.B.NewVar(l.freshName("udiv_r"), l.witnessCombine([]*ir.Term{a, b}, rem), false)
	if err != nil {
		return Rep{}, err
	}
	qLc := lc.FromVar(l.F, qIdx)
	rLc := lc.FromVar(l.F, rIdx)
	l.B.Enforce(qLc, bRep.Lc, aRep.Lc.Sub(rLc))

	qBits, err := l.decomposeBitsOfLc(qLc, w, func(i int) r1cs.WitnessFn {
		return l.witnessCombineBit([]*ir.Term{a, b}, quot, i)
	})
	if err != nil {
		return Rep{}, err
	}
	rBits, err := l.decomposeBitsOfLc(rLc, w, func(i int) r1cs.WitnessFn {
		return l.witnessCombineBit([]*ir.Term{a, b}, rem, i)
	})
	if err != nil {
		return Rep{}, err
	}

	rWitness := l.witnessCombine([]*ir.Term{a, b}, rem)
	ult, err := l.ultGadgetLc(rLc, bRep.Lc, w, rWitness, l.witnessForTerm(b))
	if err != nil {
		return Rep{}, err
	}
	l.B.AssertEq(ult, lc.FromConst(l.F, l.F.One()))

	switch t.Op.Tag {
	case ir.OpBvUDiv:
		return Rep{Sort: t.Sort(), Lc: qLc, Bits: qBits}, nil
	case ir.OpBvURem:
		return Rep{Sort: t.Sort(), Lc: rLc, Bits: rBits}, nil
	}
	return Rep{}, &UnlowerableError{Term: t, Reason: "unreachable division operator"}
}

// witnessBitAnd computes bit i of a AND bit i of b as a scalar product of
// the two boolean bit witnesses.
func (l *Lowerer) witnessBitAnd(a, b *ir.Term, i int) r1cs.WitnessFn {
	return func(env *r1cs.Env) (field.Element, error) {
		av, err := l.witnessBitOfTerm(a, i)(env)
		if err != nil {
			return field.Element{}, err
		}
		bv, err := l.witnessBitOfTerm(b, i)(env)
		if err != nil {
			return field.Element{}, err
		}
		return av.Mul(bv), nil
	}
}

// lowerBvBitwise lowers And/Or/Xor bit-by-bit: one multiplication per bit
// (the AND of that bit pair), with Or/Xor's result expressed as a pure
// linear combination of the operand bits and that product.
func (l *Lowerer) lowerBvBitwise(t *ir.Term) (Rep, error) {
	a, b := t.Children[0], t.Children[1]
	w := t.Sort().Width
	aBits, err := l.bitsOf(a)
	if err != nil {
		return Rep{}, err
	}
	bBits, err := l.bitsOf(b)
	if err != nil {
		return Rep{}, err
	}
	two := l.F.FromUint64(2)
	resBits := make([]lc.Lc, w)
	for i := 0; i < w; i++ {
		andIdx, err := l.B.NewVar(l.freshName("bvand_bit"), l.witnessBitAnd(a, b, i), false)
		if err != nil {
			return Rep{}, err
		}
		andLc := lc.FromVar(l.F, andIdx)
		l.B.Enforce(aBits[i], bBits[i], andLc)
		switch t.Op.Tag {
		case ir.OpBvAnd:
			resBits[i] = andLc
		case ir.OpBvOr:
			resBits[i] = aBits[i].Add(bBits[i]).Sub(andLc)
		case ir.OpBvXor:
			resBits[i] = aBits[i].Add(bBits[i]).Sub(andLc.MulConst(two))
		}
	}
	return Rep{Sort: t.Sort(), Lc: l.packBits(resBits, w), Bits: resBits}, nil
}

// lowerBvNot is a pure linear recombination (1-bit per position); the bit
// decomposition of the operand already constrains every bit boolean, so
// flipping it needs no new constraint at all.
func (l *Lowerer) lowerBvNot(t *ir.Term) (Rep, error) {
	a := t.Children[0]
	w := t.Sort().Width
	aBits, err := l.bitsOf(a)
	if err != nil {
		return Rep{}, err
	}
	one := lc.FromConst(l.F, l.F.One())
	resBits := make([]lc.Lc, w)
	for i := 0; i < w; i++ {
		resBits[i] = one.Sub(aBits[i])
	}
	return Rep{Sort: t.Sort(), Lc: l.packBits(resBits, w), Bits: resBits}, nil
}

// lowerBvShift handles only a constant shift amount, splicing the operand's
// bit decomposition into its shifted position with no new constraint.
// Variable-amount shifts are a deliberate scope cut (see DESIGN.md): doing
// them soundly needs a mux over every possible shift amount, a much larger
// gadget this compiler does not build.
func (l *Lowerer) lowerBvShift(t *ir.Term) (Rep, error) {
	a, shiftTerm := t.Children[0], t.Children[1]
	shiftVal, ok := shiftTerm.IsConst()
	if !ok {
		return Rep{}, &UnlowerableError{Term: t, Reason: "variable-amount shifts have no R1CS representation; only a constant shift amount is lowered"}
	}
	w := t.Sort().Width
	shift := int(shiftVal.BitVector().Uint64())
	aBits, err := l.bitsOf(a)
	if err != nil {
		return Rep{}, err
	}
	zero := lc.Zero(l.F)
	resBits := make([]lc.Lc, w)
	switch t.Op.Tag {
	case ir.OpBvShl:
		for i := 0; i < w; i++ {
			if i < shift {
				resBits[i] = zero
			} else {
				resBits[i] = aBits[i-shift]
			}
		}
	case ir.OpBvLShr:
		for i := 0; i < w; i++ {
			if i+shift < w {
				resBits[i] = aBits[i+shift]
			} else {
				resBits[i] = zero
			}
		}
	case ir.OpBvAShr:
		msb := aBits[w-1]
		for i := 0; i < w; i++ {
			if i+shift < w {
				resBits[i] = aBits[i+shift]
			} else {
				resBits[i] = msb
			}
		}
	}
	return Rep{Sort: t.Sort(), Lc: l.packBits(resBits, w), Bits: resBits}, nil
}

func (l *Lowerer) lowerBvExtract(t *ir.Term) (Rep, error) {
	a := t.Children[0]
	aBits, err := l.bitsOf(a)
	if err != nil {
		return Rep{}, err
	}
	resBits := append([]lc.Lc{}, aBits[t.Op.Lo:t.Op.Hi+1]...)
	w := t.Sort().Width
	return Rep{Sort: t.Sort(), Lc: l.packBits(resBits, w), Bits: resBits}, nil
}

// lowerBvConcat matches eval.go's Concat(a,b) = (a<<width(b))|b convention:
// b occupies the low bits, a the high bits.
func (l *Lowerer) lowerBvConcat(t *ir.Term) (Rep, error) {
	a, b := t.Children[0], t.Children[1]
	aBits, err := l.bitsOf(a)
	if err != nil {
		return Rep{}, err
	}
	bBits, err := l.bitsOf(b)
	if err != nil {
		return Rep{}, err
	}
	resBits := make([]lc.Lc, 0, len(aBits)+len(bBits))
	resBits = append(resBits, bBits...)
	resBits = append(resBits, aBits...)
	w := t.Sort().Width
	return Rep{Sort: t.Sort(), Lc: l.packBits(resBits, w), Bits: resBits}, nil
}

func (l *Lowerer) lowerBvZeroExt(t *ir.Term) (Rep, error) {
	a := t.Children[0]
	aBits, err := l.bitsOf(a)
	if err != nil {
		return Rep{}, err
	}
	zero := lc.Zero(l.F)
	resBits := append([]lc.Lc{}, aBits...)
	for i := 0; i < t.Op.ExtBits; i++ {
		resBits = append(resBits, zero)
	}
	w := t.Sort().Width
	return Rep{Sort: t.Sort(), Lc: l.packBits(resBits, w), Bits: resBits}, nil
}

func (l *Lowerer) lowerBvSignExt(t *ir.Term) (Rep, error) {
	a := t.Children[0]
	aBits, err := l.bitsOf(a)
	if err != nil {
		return Rep{}, err
	}
	msb := aBits[len(aBits)-1]
	resBits := append([]lc.Lc{}, aBits...)
	for i := 0; i < t.Op.ExtBits; i++ {
		resBits = append(resBits, msb)
	}
	w := t.Sort().Width
	return Rep{Sort: t.Sort(), Lc: l.packBits(resBits, w), Bits: resBits}, nil
}

// ultGadgetLc is the primitive unsigned-less-than gadget over two already
// range-checked w-bit linear combinations: d = a-b+2^w decomposes into w+1
// bits, and Ult(a,b) = 1 - bit_w(d) (the top bit is 1 iff no borrow
// occurred, i.e. iff a>=b).
func (l *Lowerer) ultGadgetLc(aLc, bLc lc.Lc, w int, rawA, rawB r1cs.WitnessFn) (lc.Lc, error) {
	twoW := new(big.Int).Lsh(big.NewInt(1), uint(w))
	twoWFe := l.F.FromBigInt(twoW)
	d := aLc.Sub(bLc).AddConst(twoWFe)
	bits, err := l.decomposeBitsOfLc(d, w+1, func(i int) r1cs.WitnessFn {
		return func(env *r1cs.Env) (field.Element, error) {
			av, err := rawA(env)
			if err != nil {
				return field.Element{}, err
			}
			bv, err := rawB(env)
			if err != nil {
				return field.Element{}, err
			}
			diff := new(big.Int).Sub(av.BigInt(), bv.BigInt())
			diff.Add(diff, twoW)
			if new(big.Int).Rsh(diff, uint(i)).Bit(0) == 1 {
				return l.F.One(), nil
			}
			return l.F.Zero(), nil
		}
	})
	if err != nil {
		return lc.Lc{}, err
	}
	one := lc.FromConst(l.F, l.F.One())
	return one.Sub(bits[w]), nil
}

func (l *Lowerer) ultGadget(a, b *ir.Term) (lc.Lc, error) {
	aRep, err := l.Lower(a)
	if err != nil {
		return lc.Lc{}, err
	}
	bRep, err := l.Lower(b)
	if err != nil {
		return lc.Lc{}, err
	}
	w := a.Sort().Width
	return l.ultGadgetLc(aRep.Lc, bRep.Lc, w, l.witnessForTerm(a), l.witnessForTerm(b))
}

// lowerBvCompare lowers Ult directly and derives Ule/Ugt/Uge/Slt from it:
// Ugt/Ule by swapping operands (and negating), Uge by negating Ult.
func (l *Lowerer) lowerBvCompare(t *ir.Term) (Rep, error) {
	a, b := t.Children[0], t.Children[1]
	one := lc.FromConst(l.F, l.F.One())
	switch t.Op.Tag {
	case ir.OpBvUlt:
		ult, err := l.ultGadget(a, b)
		if err != nil {
			return Rep{}, err
		}
		return Rep{Sort: ir.BoolSort(), Lc: ult}, nil
	case ir.OpBvUgt:
		ult, err := l.ultGadget(b, a)
		if err != nil {
			return Rep{}, err
		}
		return Rep{Sort: ir.BoolSort(), Lc: ult}, nil
	case ir.OpBvUle:
		ult, err := l.ultGadget(b, a)
		if err != nil {
			return Rep{}, err
		}
		return Rep{Sort: ir.BoolSort(), Lc: one.Sub(ult)}, nil
	case ir.OpBvUge:
		ult, err := l.ultGadget(a, b)
		if err != nil {
			return Rep{}, err
		}
		return Rep{Sort: ir.BoolSort(), Lc: one.Sub(ult)}, nil
	case ir.OpBvSlt:
		return l.lowerBvSlt(t)
	}
	return Rep{}, &UnlowerableError{Term: t, Reason: "unreachable comparison operator"}
}

// lowerBvSlt implements signed less-than by flipping each operand's MSB
// (x XOR 2^(w-1), which maps the signed range onto the unsigned range in
// order) and calling the unsigned Ult gadget on the flipped values.
func (l *Lowerer) lowerBvSlt(t *ir.Term) (Rep, error) {
	a, b := t.Children[0], t.Children[1]
	w := a.Sort().Width
	aRep, err := l.Lower(a)
	if err != nil {
		return Rep{}, err
	}
	bRep, err := l.Lower(b)
	if err != nil {
		return Rep{}, err
	}
	aBits, err := l.bitsOf(a)
	if err != nil {
		return Rep{}, err
	}
	bBits, err := l.bitsOf(b)
	if err != nil {
		return Rep{}, err
	}
	half := new(big.Int).Lsh(big.NewInt(1), uint(w-1))
	halfFe := l.F.FromBigInt(half)
	twoWFe := l.F.FromBigInt(new(big.Int).Lsh(big.NewInt(1), uint(w)))

	flippedA := aRep.Lc.AddConst(halfFe).Sub(aBits[w-1].MulConst(twoWFe))
	flippedB := bRep.Lc.AddConst(halfFe).Sub(bBits[w-1].MulConst(twoWFe))

	flipWitness := func(term *ir.Term) r1cs.WitnessFn {
		return func(env *r1cs.Env) (field.Element, error) {
			fe, err := l.witnessForTerm(term)(env)
			if err != nil {
				return field.Element{}, err
			}
			return l.F.FromBigInt(new(big.Int).Xor(fe.BigInt(), half)), nil
		}
	}

	ult, err := l.ultGadgetLc(flippedA, flippedB, w, flipWitness(a), flipWitness(b))
	if err != nil {
		return Rep{}, err
	}
	return Rep{Sort: ir.BoolSort(), Lc: ult}, nil
}

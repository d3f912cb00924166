package lc

import (
	"math/big"
	"testing"

	"gyre/internal/field"
)

func TestAddSubRoundTrip(t *testing.T) {
	f := field.New(big.NewInt(101))
	a := FromVar(f, 1).AddConst(f.FromUint64(3))
	b := FromVar(f, 2).AddConst(f.FromUint64(4))

	sum := a.Add(b)
	back := sum.Sub(b)
	if !back.Equal(a) {
		t.Fatalf("(a+b)-b should equal a; got %v vs %v", back, a)
	}
}

func TestZeroCoefficientsNormalized(t *testing.T) {
	f := field.New(big.NewInt(101))
	a := FromVar(f, 1)
	b := FromVar(f, 1)
	diff := a.Sub(b)
	if len(diff.Terms) != 0 {
		t.Fatalf("a - a should have no monomials left, got %v", diff.Terms)
	}
}

func TestEvalLinear(t *testing.T) {
	f := field.New(big.NewInt(101))
	l := FromVar(f, 1).MulConst(f.FromUint64(3)).AddConst(f.FromUint64(2))
	got := l.Eval(map[int]field.Element{1: f.FromUint64(5)})
	if got.BigInt().Int64() != 17 { // 3*5+2
		t.Fatalf("eval = %v, want 17", got)
	}
}

func TestEqualIgnoresConstructionOrder(t *testing.T) {
	f := field.New(big.NewInt(101))
	a := FromVar(f, 1).Add(FromVar(f, 2))
	b := FromVar(f, 2).Add(FromVar(f, 1))
	if !a.Equal(b) {
		t.Fatalf("Lc equality should be order independent")
	}
}

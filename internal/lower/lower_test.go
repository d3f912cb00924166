package lower

import (
	"errors"
	"math/big"
	"testing"

	"gyre/internal/field"
	"gyre/internal/ir"
	"gyre/internal/opt"
	"gyre/internal/r1cs"
)

func TestFieldMulSingleConstraintPlusEqualityGadget(t *testing.T) {
	f := field.Default()
	x := ir.NewVar("x", ir.FieldSort(f))
	mul := ir.MustMk(ir.Op{Tag: ir.OpFieldMul}, x, x)
	nine := ir.NewConst(ir.FieldValue(f, f.FromUint64(9)))
	eq := ir.MustMk(ir.Op{Tag: ir.OpEq}, mul, nine)

	comp := &opt.Computation{Outputs: []*ir.Term{eq}}
	b, err := LowerComputation(f, comp)
	if err != nil {
		t.Fatal(err)
	}
	// x (1 var), the mul result (1 var), eq's inv/res pair (2 vars) = 4 vars;
	// mul (1), eq's two multiplications (2), the final AssertEq(eq,1) (1) = 4.
	if b.NumVars() != 4 {
		t.Fatalf("expected 4 vars, got %d", b.NumVars())
	}
	if b.NumConstraints() != 4 {
		t.Fatalf("expected 4 constraints, got %d", b.NumConstraints())
	}

	if _, err := b.CheckAll(map[string]field.Element{"x": f.FromUint64(3)}); err != nil {
		t.Fatalf("x=3 should satisfy x*x=9: %v", err)
	}
	if _, err := b.CheckAll(map[string]field.Element{"x": f.FromUint64(4)}); err == nil {
		t.Fatal("x=4 should not satisfy x*x=9")
	} else {
		var unsat *r1cs.UnsatisfiedConstraintError
		if !errors.As(err, &unsat) {
			t.Fatalf("expected UnsatisfiedConstraintError, got %T: %v", err, err)
		}
	}
}

func TestIteUsesExactlyOneMultiplication(t *testing.T) {
	f := field.Default()
	b := r1cs.NewBuilder(f)
	l := New(b)

	cond := ir.NewVar("cond", ir.BoolSort())
	a := ir.NewVar("a", ir.FieldSort(f))
	bb := ir.NewVar("b", ir.FieldSort(f))
	ite := ir.MustMk(ir.Op{Tag: ir.OpIte}, cond, a, bb)

	if _, err := l.Lower(ite); err != nil {
		t.Fatal(err)
	}
	// cond's own boolean constraint (1) plus the ite product (1) = 2.
	if b.NumConstraints() != 2 {
		t.Fatalf("expected 2 constraints, got %d", b.NumConstraints())
	}

	if _, err := b.CheckAll(map[string]field.Element{
		"cond": f.One(),
		"a":    f.FromUint64(5),
		"b":    f.FromUint64(7),
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := b.CheckAll(map[string]field.Element{
		"cond": f.Zero(),
		"a":    f.FromUint64(5),
		"b":    f.FromUint64(7),
	}); err != nil {
		t.Fatal(err)
	}
}

func TestBvAddWrapsModuloWidth(t *testing.T) {
	f := field.Default()
	w := 4
	a := ir.NewVar("a", ir.BitVectorSort(w))
	bb := ir.NewVar("b", ir.BitVectorSort(w))
	sum := ir.MustMk(ir.Op{Tag: ir.OpBvAdd}, a, bb)

	comp := &opt.Computation{
		Precompute: []opt.WitnessEntry{{Name: "sum", Term: sum}},
	}
	b, err := LowerComputation(f, comp)
	if err != nil {
		t.Fatal(err)
	}
	vals, err := b.CheckAll(map[string]field.Element{
		"a": f.FromUint64(15),
		"b": f.FromUint64(2),
	})
	if err != nil {
		t.Fatal(err)
	}
	idx, ok := b.VarIdx("sum")
	if !ok {
		t.Fatal("expected sum var to exist")
	}
	got := vals[idx].BigInt().Uint64()
	if got != 1 { // 15+2=17, 17 mod 16 = 1
		t.Fatalf("expected wrapped sum 1, got %d", got)
	}
}

func TestBvAddOverflowRejectsOutOfRangeInput(t *testing.T) {
	f := field.Default()
	w := 4
	a := ir.NewVar("a", ir.BitVectorSort(w))
	bb := ir.NewVar("b", ir.BitVectorSort(w))
	sum := ir.MustMk(ir.Op{Tag: ir.OpBvAdd}, a, bb)
	comp := &opt.Computation{Precompute: []opt.WitnessEntry{{Name: "sum", Term: sum}}}
	b, err := LowerComputation(f, comp)
	if err != nil {
		t.Fatal(err)
	}
	// 20 does not fit in 4 bits: a's own range-check constraint must reject it.
	_, err = b.CheckAll(map[string]field.Element{
		"a": f.FromUint64(20),
		"b": f.FromUint64(1),
	})
	if err == nil {
		t.Fatal("expected an out-of-range input to fail a's range check")
	}
}

func TestBvComparisons(t *testing.T) {
	f := field.Default()
	w := 4
	a := ir.NewVar("a", ir.BitVectorSort(w))
	bb := ir.NewVar("b", ir.BitVectorSort(w))
	ult := ir.MustMk(ir.Op{Tag: ir.OpBvUlt}, a, bb)

	comp := &opt.Computation{Precompute: []opt.WitnessEntry{{Name: "lt", Term: ult}}}
	b, err := LowerComputation(f, comp)
	if err != nil {
		t.Fatal(err)
	}
	idx, _ := b.VarIdx("lt")

	vals, err := b.CheckAll(map[string]field.Element{"a": f.FromUint64(3), "b": f.FromUint64(9)})
	if err != nil {
		t.Fatal(err)
	}
	if !vals[idx].Equal(f.One()) {
		t.Fatalf("expected 3<9 true")
	}

	vals2, err := b.CheckAll(map[string]field.Element{"a": f.FromUint64(9), "b": f.FromUint64(3)})
	if err != nil {
		t.Fatal(err)
	}
	if !vals2[idx].Equal(f.Zero()) {
		t.Fatalf("expected 9<3 false")
	}
}

func TestBvSignedComparison(t *testing.T) {
	f := field.Default()
	w := 4
	a := ir.NewVar("a", ir.BitVectorSort(w))
	bb := ir.NewVar("b", ir.BitVectorSort(w))
	slt := ir.MustMk(ir.Op{Tag: ir.OpBvSlt}, a, bb)
	comp := &opt.Computation{Precompute: []opt.WitnessEntry{{Name: "slt", Term: slt}}}
	b, err := LowerComputation(f, comp)
	if err != nil {
		t.Fatal(err)
	}
	idx, _ := b.VarIdx("slt")
	// a=15 (-1 signed), b=1: -1 < 1 is true.
	vals, err := b.CheckAll(map[string]field.Element{"a": f.FromUint64(15), "b": f.FromUint64(1)})
	if err != nil {
		t.Fatal(err)
	}
	if !vals[idx].Equal(f.One()) {
		t.Fatalf("expected -1 < 1 to be true")
	}
}

func TestBvShiftByConstant(t *testing.T) {
	f := field.Default()
	w := 8
	a := ir.NewVar("a", ir.BitVectorSort(w))
	two := ir.NewConst(ir.BitVectorValue(w, big.NewInt(2)))
	shl := ir.MustMk(ir.Op{Tag: ir.OpBvShl}, a, two)
	comp := &opt.Computation{Precompute: []opt.WitnessEntry{{Name: "shifted", Term: shl}}}
	b, err := LowerComputation(f, comp)
	if err != nil {
		t.Fatal(err)
	}
	idx, _ := b.VarIdx("shifted")
	vals, err := b.CheckAll(map[string]field.Element{"a": f.FromUint64(3)})
	if err != nil {
		t.Fatal(err)
	}
	if vals[idx].BigInt().Uint64() != 12 {
		t.Fatalf("expected 3<<2=12, got %d", vals[idx].BigInt().Uint64())
	}
}

func TestBvExtractAndConcat(t *testing.T) {
	f := field.Default()
	a := ir.NewVar("a", ir.BitVectorSort(8))
	// extract bits [3:0] of a
	lo := ir.MustMk(ir.Op{Tag: ir.OpBvExtract, Hi: 3, Lo: 0}, a)
	hi := ir.MustMk(ir.Op{Tag: ir.OpBvExtract, Hi: 7, Lo: 4}, a)
	cat := ir.MustMk(ir.Op{Tag: ir.OpBvConcat}, hi, lo) // should reconstruct a

	comp := &opt.Computation{Precompute: []opt.WitnessEntry{{Name: "rebuilt", Term: cat}}}
	b, err := LowerComputation(f, comp)
	if err != nil {
		t.Fatal(err)
	}
	idx, _ := b.VarIdx("rebuilt")
	vals, err := b.CheckAll(map[string]field.Element{"a": f.FromUint64(0xAB)})
	if err != nil {
		t.Fatal(err)
	}
	if vals[idx].BigInt().Uint64() != 0xAB {
		t.Fatalf("expected reconstructed 0xAB, got %x", vals[idx].BigInt().Uint64())
	}
}

func TestBvUDivURem(t *testing.T) {
	f := field.Default()
	w := 8
	a := ir.NewVar("a", ir.BitVectorSort(w))
	bb := ir.NewVar("b", ir.BitVectorSort(w))
	q := ir.MustMk(ir.Op{Tag: ir.OpBvUDiv}, a, bb)
	r := ir.MustMk(ir.Op{Tag: ir.OpBvURem}, a, bb)
	comp := &opt.Computation{Precompute: []opt.WitnessEntry{
		{Name: "quot", Term: q},
		{Name: "rem", Term: r},
	}}
	b, err := LowerComputation(f, comp)
	if err != nil {
		t.Fatal(err)
	}
	qi, _ := b.VarIdx("quot")
	ri, _ := b.VarIdx("rem")
	vals, err := b.CheckAll(map[string]field.Element{"a": f.FromUint64(13), "b": f.FromUint64(4)})
	if err != nil {
		t.Fatal(err)
	}
	if vals[qi].BigInt().Uint64() != 3 || vals[ri].BigInt().Uint64() != 1 {
		t.Fatalf("expected 13/4=3 rem 1, got q=%d r=%d", vals[qi].BigInt().Uint64(), vals[ri].BigInt().Uint64())
	}
}

func TestArraySortIsUnlowerable(t *testing.T) {
	f := field.Default()
	b := r1cs.NewBuilder(f)
	l := New(b)
	arr := ir.NewVar("arr", ir.ArraySort(ir.BitVectorSort(2), ir.BoolSort(), 4))
	_, err := l.Lower(arr)
	var unlow *UnlowerableError
	if !errors.As(err, &unlow) {
		t.Fatalf("expected UnlowerableError, got %T: %v", err, err)
	}
}

func TestMissingInputSurfacesError(t *testing.T) {
	f := field.Default()
	x := ir.NewVar("x", ir.FieldSort(f))
	comp := &opt.Computation{Precompute: []opt.WitnessEntry{{Name: "x", Term: x}}}
	b, err := LowerComputation(f, comp)
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.CheckAll(map[string]field.Element{})
	var missing *r1cs.MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingInputError, got %T: %v", err, err)
	}
}

func TestLoweringIsDeterministic(t *testing.T) {
	f := field.Default()
	build := func() *opt.Computation {
		x := ir.NewVar("x", ir.FieldSort(f))
		mul := ir.MustMk(ir.Op{Tag: ir.OpFieldMul}, x, x)
		nine := ir.NewConst(ir.FieldValue(f, f.FromUint64(9)))
		eq := ir.MustMk(ir.Op{Tag: ir.OpEq}, mul, nine)
		return &opt.Computation{Outputs: []*ir.Term{eq}, PublicInputs: []string{"x"}}
	}

	b1, err := LowerComputation(f, build())
	if err != nil {
		t.Fatal(err)
	}
	b2, err := LowerComputation(f, build())
	if err != nil {
		t.Fatal(err)
	}
	if b1.NumVars() != b2.NumVars() || b1.NumConstraints() != b2.NumConstraints() {
		t.Fatalf("expected identical var/constraint counts across runs")
	}
	for i := 1; i <= b1.NumVars(); i++ {
		if b1.VarName(i) != b2.VarName(i) {
			t.Fatalf("var %d: names diverged between runs (%q vs %q)", i, b1.VarName(i), b2.VarName(i))
		}
	}
}

func TestEarlyReturnBooleanIte(t *testing.T) {
	f := field.Default()
	cond := ir.NewVar("cond", ir.BoolSort())
	one := ir.NewConst(ir.BoolValue(true))
	zero := ir.NewConst(ir.BoolValue(false))
	ite := ir.MustMk(ir.Op{Tag: ir.OpIte}, cond, one, zero) // == cond itself

	comp := &opt.Computation{Precompute: []opt.WitnessEntry{{Name: "out", Term: ite}}}
	b, err := LowerComputation(f, comp)
	if err != nil {
		t.Fatal(err)
	}
	idx, _ := b.VarIdx("out")
	vals, err := b.CheckAll(map[string]field.Element{"cond": f.One()})
	if err != nil {
		t.Fatal(err)
	}
	if !vals[idx].Equal(f.One()) {
		t.Fatalf("expected Ite(cond,true,false) == cond == true")
	}
}

package opt

import (
	"math/big"
	"strings"
	"testing"

	"gyre/internal/field"
	"gyre/internal/ir"
)

func bvSort(w int) *ir.Sort { return ir.BitVectorSort(w) }

func TestConstantFoldIsIdempotent(t *testing.T) {
	a := ir.NewConst(ir.BitVectorValue(8, big.NewInt(3)))
	b := ir.NewConst(ir.BitVectorValue(8, big.NewInt(4)))
	sum := ir.MustMk(ir.Op{Tag: ir.OpBvAdd}, a, b)

	pass := &ConstantFold{}
	c := &Computation{Outputs: []*ir.Term{sum}}

	once, changed, err := pass.Apply(c)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatalf("expected ConstantFold to fold a constant sum")
	}
	v, ok := once.Outputs[0].IsConst()
	if !ok || v.BitVector().Int64() != 7 {
		t.Fatalf("expected folded constant 7, got %v ok=%v", v, ok)
	}

	twice, changed2, err := pass.Apply(once)
	if err != nil {
		t.Fatal(err)
	}
	if changed2 {
		t.Fatalf("re-running ConstantFold on its own output should be a no-op")
	}
	if twice.Outputs[0] != once.Outputs[0] {
		t.Fatalf("idempotent re-application should return the same term")
	}
}

func TestFlattenCanonicalizesOperandOrder(t *testing.T) {
	x := ir.NewVar("x", ir.BoolSort())
	y := ir.NewVar("y", ir.BoolSort())
	xy := ir.MustMk(ir.Op{Tag: ir.OpAnd}, x, y)
	yx := ir.MustMk(ir.Op{Tag: ir.OpAnd}, y, x)
	if xy == yx {
		t.Fatalf("And(x,y) and And(y,x) should not already be hash-consed together")
	}

	pass := &Flatten{}
	c := &Computation{Outputs: []*ir.Term{xy, yx}}
	out, changed, err := pass.Apply(c)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatalf("expected Flatten to canonicalize at least one operand order")
	}
	if out.Outputs[0] != out.Outputs[1] {
		t.Fatalf("after Flatten, And(x,y) and And(y,x) should converge to the same term")
	}
}

func TestInlineDropsSingleUseIntermediate(t *testing.T) {
	f := field.Default()
	x := ir.NewVar("x", ir.FieldSort(f))
	one := ir.NewConst(ir.FieldValue(f, f.FromUint64(1)))
	tmp := ir.MustMk(ir.Op{Tag: ir.OpFieldAdd}, x, one)
	out := ir.MustMk(ir.Op{Tag: ir.OpFieldAdd}, tmp, one)

	c := &Computation{
		Outputs:    []*ir.Term{out},
		Precompute: []WitnessEntry{{Name: "tmp", Term: tmp}},
	}
	pass := &Inline{}
	res, changed, err := pass.Apply(c)
	if err != nil {
		t.Fatal(err)
	}
	if !changed || len(res.Precompute) != 0 {
		t.Fatalf("expected single-use 'tmp' to be dropped, got %d precompute entries", len(res.Precompute))
	}
}

func TestInlineKeepsSharedIntermediate(t *testing.T) {
	f := field.Default()
	x := ir.NewVar("x", ir.FieldSort(f))
	one := ir.NewConst(ir.FieldValue(f, f.FromUint64(1)))
	shared := ir.MustMk(ir.Op{Tag: ir.OpFieldAdd}, x, one)
	outA := ir.MustMk(ir.Op{Tag: ir.OpFieldMul}, shared, shared)
	outB := shared

	c := &Computation{
		Outputs:    []*ir.Term{outA, outB},
		Precompute: []WitnessEntry{{Name: "shared", Term: shared}},
	}
	pass := &Inline{}
	res, _, err := pass.Apply(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Precompute) != 1 {
		t.Fatalf("expected shared intermediate to be kept, got %d entries", len(res.Precompute))
	}
}

// TestArrayMuxUsesExactlyThreeItes builds a 4-element constant array and
// selects it with a symbolic index, expecting the Mem pass to produce
// exactly n-1=3 Ite nodes in the resulting mux tree.
func TestArrayMuxUsesExactlyThreeItes(t *testing.T) {
	w := 8
	keySort := bvSort(w)

	dflt := ir.NewConst(ir.BitVectorValue(w, big.NewInt(0)))
	arr := ir.MustMk(ir.Op{Tag: ir.OpConstArray, KeySort: keySort, Len: 4}, dflt)

	vals := []int64{10, 20, 30, 40}
	for i, v := range vals {
		idx := ir.NewConst(ir.BitVectorValue(w, big.NewInt(int64(i))))
		val := ir.NewConst(ir.BitVectorValue(w, big.NewInt(v)))
		arr = ir.MustMk(ir.Op{Tag: ir.OpStore}, arr, idx, val)
	}

	key := ir.NewVar("i", keySort)
	sel := ir.MustMk(ir.Op{Tag: ir.OpSelect}, arr, key)

	pass := &Mem{}
	c := &Computation{Outputs: []*ir.Term{sel}}
	out, changed, err := pass.Apply(c)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatalf("expected Mem to rewrite the symbolic Select")
	}

	iteCount := 0
	seen := map[uint64]bool{}
	var count func(t *ir.Term)
	count = func(t *ir.Term) {
		if seen[t.ID()] {
			return
		}
		seen[t.ID()] = true
		if t.Op.Tag == ir.OpIte {
			iteCount++
		}
		for _, ch := range t.Children {
			count(ch)
		}
	}
	count(out.Outputs[0])
	if iteCount != 3 {
		t.Fatalf("expected exactly 3 Ites in the mux tree, got %d", iteCount)
	}
}

func TestArrayMuxConstantIndexSelectsDirectly(t *testing.T) {
	w := 8
	keySort := bvSort(w)
	dflt := ir.NewConst(ir.BitVectorValue(w, big.NewInt(0)))
	arr := ir.MustMk(ir.Op{Tag: ir.OpConstArray, KeySort: keySort, Len: 2}, dflt)
	idx0 := ir.NewConst(ir.BitVectorValue(w, big.NewInt(0)))
	val0 := ir.NewConst(ir.BitVectorValue(w, big.NewInt(99)))
	arr = ir.MustMk(ir.Op{Tag: ir.OpStore}, arr, idx0, val0)

	sel := ir.MustMk(ir.Op{Tag: ir.OpSelect}, arr, idx0)
	pass := &Mem{}
	c := &Computation{Outputs: []*ir.Term{sel}}
	out, _, err := pass.Apply(c)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := out.Outputs[0].IsConst()
	if !ok || v.BitVector().Int64() != 99 {
		t.Fatalf("expected direct constant 99, got %v", out.Outputs[0])
	}
}

func TestPipelineRunsAllPassesInOrder(t *testing.T) {
	f := field.Default()
	x := ir.NewVar("x", ir.FieldSort(f))
	two := ir.NewConst(ir.FieldValue(f, f.FromUint64(2)))
	three := ir.NewConst(ir.FieldValue(f, f.FromUint64(3)))
	five := ir.MustMk(ir.Op{Tag: ir.OpFieldAdd}, two, three)
	out := ir.MustMk(ir.Op{Tag: ir.OpFieldAdd}, x, five)

	p := NewPipeline()
	var traced []string
	p.Trace = func(msg string) { traced = append(traced, msg) }
	res, err := p.Run(&Computation{Outputs: []*ir.Term{out}})
	if err != nil {
		t.Fatal(err)
	}
	if len(traced) == 0 {
		t.Fatalf("expected pipeline to emit trace messages")
	}
	var ran []string
	for _, msg := range traced {
		if rest, ok := strings.CutPrefix(msg, "running "); ok {
			ran = append(ran, rest[:strings.Index(rest, ":")])
		}
	}
	want := []string{"ConstantFold", "Flatten", "Inline", "Mem"}
	if strings.Join(ran, ",") != strings.Join(want, ",") {
		t.Fatalf("expected passes to run in order %v, got %v", want, ran)
	}
	if res.Outputs[0] == out {
		t.Fatalf("expected ConstantFold to have folded the constant sub-sum of the output")
	}
}

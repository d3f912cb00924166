package ir

import (
	"math/big"
	"testing"

	"gyre/internal/field"
)

func TestHashConsingIdentity(t *testing.T) {
	x := NewVar("x", BoolSort())
	y := NewVar("y", BoolSort())

	a, err := Mk(Op{Tag: OpAnd}, x, y)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Mk(Op{Tag: OpAnd}, x, y)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("Mk(And,x,y) should return the identical pointer on re-construction")
	}

	c, err := Mk(Op{Tag: OpAnd}, y, x)
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Fatalf("Mk(And,y,x) must not be hash-consed with Mk(And,x,y): operand order matters")
	}
}

func TestSortDeterminism(t *testing.T) {
	f := field.New(big.NewInt(101))
	x := NewVar("x", FieldSort(f))
	y := NewVar("y", FieldSort(f))
	sum, err := Mk(Op{Tag: OpFieldAdd}, x, y)
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Sort().Equal(FieldSort(f)) {
		t.Fatalf("Field.Add sort = %v, want Field(101)", sum.Sort())
	}
}

func TestSortMismatchRejected(t *testing.T) {
	x := NewVar("x", BoolSort())
	y := NewVar("y", BitVectorSort(8))
	if _, err := Mk(Op{Tag: OpAnd}, x, y); err == nil {
		t.Fatalf("And(Bool, BitVector) should fail with SortMismatch")
	} else if _, ok := err.(*SortMismatchError); !ok {
		t.Fatalf("expected *SortMismatchError, got %T", err)
	}
}

func TestIteRequiresMatchingBranchSorts(t *testing.T) {
	c := NewVar("c", BoolSort())
	t8 := NewVar("t", BitVectorSort(8))
	f16 := NewVar("f", BitVectorSort(16))
	if _, err := Mk(Op{Tag: OpIte}, c, t8, f16); err == nil {
		t.Fatalf("Ite with mismatched branch widths should fail")
	}
}

func TestBvWidthMismatchRejected(t *testing.T) {
	a := NewVar("a", BitVectorSort(8))
	b := NewVar("b", BitVectorSort(16))
	if _, err := Mk(Op{Tag: OpBvAdd}, a, b); err == nil {
		t.Fatalf("BV.Add across widths should fail")
	}
}

func TestIterPostorderVisitsOnce(t *testing.T) {
	x := NewVar("px", BoolSort())
	notX := MustMk(Op{Tag: OpNot}, x)
	both, err := Mk(Op{Tag: OpAnd}, x, notX)
	if err != nil {
		t.Fatal(err)
	}
	order := IterPostorder(both)
	if len(order) != 3 {
		t.Fatalf("expected 3 unique nodes (x, not x, and), got %d", len(order))
	}
	if order[len(order)-1] != both {
		t.Fatalf("root must be last in postorder")
	}
}

func TestConstArraySelectDefault(t *testing.T) {
	bv8 := BitVectorSort(8)
	dflt := ConstArrayValue(bv8, bv8, 4, BitVectorValue(8, big.NewInt(0)))
	dflt = dflt.Store(BitVectorValue(8, big.NewInt(2)), BitVectorValue(8, big.NewInt(30)))
	if got := dflt.Select(BitVectorValue(8, big.NewInt(2))).BitVector().Int64(); got != 30 {
		t.Fatalf("Select(stored key) = %d, want 30", got)
	}
	if got := dflt.Select(BitVectorValue(8, big.NewInt(1))).BitVector().Int64(); got != 0 {
		t.Fatalf("Select(unstored key) = %d, want default 0", got)
	}
}

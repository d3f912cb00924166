package circify

import (
	"fmt"
	"testing"

	"gyre/internal/eval"
	"gyre/internal/ir"
)

// bpTy/bpVal/boolPair are a minimal Embeddable language over Bool and
// (Bool,Bool) pairs, used to exercise Circify's scope/SSA machinery
// independent of any real front end.

type bpTy struct {
	isPair bool
	a, b   *bpTy
}

func bpBool() bpTy           { return bpTy{} }
func bpPair(a, b bpTy) bpTy  { return bpTy{isPair: true, a: &a, b: &b} }
func (t bpTy) String() string {
	if t.isPair {
		return fmt.Sprintf("(%s, %s)", t.a, t.b)
	}
	return "bool"
}

type bpVal struct {
	isPair bool
	base   *ir.Term
	a, b   *bpVal
}

func (v bpVal) String() string {
	if v.isPair {
		return fmt.Sprintf("(%s, %s)", v.a, v.b)
	}
	return v.base.String()
}

type boolPair struct{}

func (boolPair) Declare(ctx *CirCtx, ty bpTy, rawName string, userName *string, public bool) bpVal {
	if !ty.isPair {
		if public {
			ctx.PublicInputs[rawName] = true
		}
		return bpVal{base: ir.NewVar(rawName, ir.BoolSort())}
	}
	var aUser, bUser *string
	if userName != nil {
		au, bu := *userName+".0", *userName+".1"
		aUser, bUser = &au, &bu
	}
	a := boolPair{}.Declare(ctx, *ty.a, rawName+".0", aUser, public)
	b := boolPair{}.Declare(ctx, *ty.b, rawName+".1", bUser, public)
	return bpVal{isPair: true, a: &a, b: &b}
}

func (e boolPair) Ite(ctx *CirCtx, cond *ir.Term, t, f bpVal) bpVal {
	if !t.isPair && !f.isPair {
		return bpVal{base: ir.MustMk(ir.Op{Tag: ir.OpIte}, cond, t.base, f.base)}
	}
	if t.isPair && f.isPair {
		a := e.Ite(ctx, cond, *t.a, *f.a)
		b := e.Ite(ctx, cond, *t.b, *f.b)
		return bpVal{isPair: true, a: &a, b: &b}
	}
	panic(fmt.Sprintf("cannot ITE %s, %s", t, f))
}

func (e boolPair) Assign(ctx *CirCtx, ty bpTy, name string, t bpVal) bpVal {
	if !t.isPair {
		v := ir.NewVar(name, ir.BoolSort())
		ctx.Assert(ir.MustMk(ir.Op{Tag: ir.OpEq}, v, t.base))
		return bpVal{base: v}
	}
	a := e.Assign(ctx, *ty.a, name+".0", *t.a)
	b := e.Assign(ctx, *ty.b, name+".1", *t.b)
	return bpVal{isPair: true, a: &a, b: &b}
}

func (boolPair) Values() bool { return false }

func TestDeclareBoolAndPair(t *testing.T) {
	c := New[bpTy, bpVal](boolPair{})
	c.EnterFn("main", nil)
	if err := c.Declare("a", bpBool(), true, false); err != nil {
		t.Fatal(err)
	}
	if err := c.Declare("b", bpPair(bpBool(), bpBool()), true, false); err != nil {
		t.Fatal(err)
	}
	c.ExitFn()
}

func TestRebindRejected(t *testing.T) {
	c := New[bpTy, bpVal](boolPair{})
	c.EnterFn("main", nil)
	if err := c.Declare("x", bpBool(), false, false); err != nil {
		t.Fatal(err)
	}
	err := c.Declare("x", bpBool(), false, false)
	if _, ok := err.(*RebindError); !ok {
		t.Fatalf("expected RebindError, got %v", err)
	}
}

func TestNoNameRejected(t *testing.T) {
	c := New[bpTy, bpVal](boolPair{})
	c.EnterFn("main", nil)
	_, err := c.GetValue(LocalLoc("nope"))
	if _, ok := err.(*NoNameError); !ok {
		t.Fatalf("expected NoNameError, got %v", err)
	}
}

func TestEnterConditionRejectsNonBool(t *testing.T) {
	c := New[bpTy, bpVal](boolPair{})
	c.EnterFn("main", nil)
	notBool := ir.NewVar("n", ir.BitVectorSort(8))
	err := c.EnterCondition(notBool)
	if _, ok := err.(*NotBoolError); !ok {
		t.Fatalf("expected NotBoolError, got %v", err)
	}
}

func TestUnknownBreakRejected(t *testing.T) {
	c := New[bpTy, bpVal](boolPair{})
	c.EnterFn("main", nil)
	err := c.Break("nonexistent_label")
	if _, ok := err.(*UnknownBreakError); !ok {
		t.Fatalf("expected UnknownBreakError, got %v", err)
	}
}

func TestReturnMismatchRejected(t *testing.T) {
	c := New[bpTy, bpVal](boolPair{})
	c.EnterFn("voidfn", nil)
	v := bpVal{base: ir.NewConst(ir.BoolValue(true))}
	err := c.Return(&v)
	if _, ok := err.(*ReturnMismatchError); !ok {
		t.Fatalf("expected ReturnMismatchError, got %v", err)
	}
}

func TestMisTypedAssignRejected(t *testing.T) {
	c := New[bpTy, bpVal](boolPair{})
	c.EnterFn("main", nil)
	if err := c.Declare("r", bpBool(), false, false); err != nil {
		t.Fatal(err)
	}
	ref, err := c.Ref("r")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Assign(LocalLoc("r"), ref); err != nil {
		t.Fatal(err)
	}
	// "r" now holds a Ref; assigning a Term to it is a type mismatch.
	newTerm := TermVal(bpVal{base: ir.NewConst(ir.BoolValue(true))})
	_, err = c.Assign(LocalLoc("r"), newTerm)
	if _, ok := err.(*MisTypedAssignError); !ok {
		t.Fatalf("expected MisTypedAssignError, got %v", err)
	}
}

// TestGuardedAssignmentBuildsIte exercises the guarded-SSA rule directly:
// assigning under a non-trivial condition must rewrite the new value into
// Ite(condition, new, old), and evaluating under each branch of the
// condition yields exactly the expected old or new value.
func TestGuardedAssignmentBuildsIte(t *testing.T) {
	c := New[bpTy, bpVal](boolPair{})
	c.EnterFn("main", nil)
	if err := c.Declare("x", bpBool(), false, false); err != nil {
		t.Fatal(err)
	}
	initVal := TermVal(bpVal{base: ir.NewConst(ir.BoolValue(false))})
	if _, err := c.Assign(LocalLoc("x"), initVal); err != nil {
		t.Fatal(err)
	}

	cond := ir.NewVar("cond", ir.BoolSort())
	if err := c.EnterCondition(cond); err != nil {
		t.Fatal(err)
	}
	newVal := TermVal(bpVal{base: ir.NewConst(ir.BoolValue(true))})
	updated, err := c.Assign(LocalLoc("x"), newVal)
	if err != nil {
		t.Fatal(err)
	}
	c.ExitCondition()

	e := eval.New(map[string]ir.Value{"cond": ir.BoolValue(true)})
	v, err := e.Eval(updated.Term.base)
	if err != nil {
		t.Fatal(err)
	}
	if v.Bool() != true {
		t.Fatalf("expected true when condition holds, got %v", v.Bool())
	}

	e2 := eval.New(map[string]ir.Value{"cond": ir.BoolValue(false)})
	v2, err := e2.Eval(updated.Term.base)
	if err != nil {
		t.Fatal(err)
	}
	if v2.Bool() != false {
		t.Fatalf("expected false (the old value) when condition does not hold, got %v", v2.Bool())
	}
}

func TestBreakableAccumulatesConditions(t *testing.T) {
	c := New[bpTy, bpVal](boolPair{})
	c.EnterFn("main", nil)
	c.EnterBreakable("loop")
	cond := ir.NewVar("stop", ir.BoolSort())
	if err := c.EnterCondition(cond); err != nil {
		t.Fatal(err)
	}
	if err := c.Break("loop"); err != nil {
		t.Fatal(err)
	}
	c.ExitCondition()
	// After breaking under "stop", the ambient condition must include
	// "not yet broken", i.e. be false whenever stop was true.
	ambient := c.Condition()
	c.ExitBreakable()

	e := eval.New(map[string]ir.Value{"stop": ir.BoolValue(true)})
	v, err := e.Eval(ambient)
	if err != nil {
		t.Fatal(err)
	}
	if v.Bool() != false {
		t.Fatalf("expected ambient condition false once broken, got %v", v.Bool())
	}
}

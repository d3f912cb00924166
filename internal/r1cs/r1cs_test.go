package r1cs

import (
	"math/big"
	"strings"
	"testing"

	"gyre/internal/field"
	"gyre/internal/lc"
)

// buildMultiplier builds z = x*y with x,y public inputs.
func buildMultiplier(t *testing.T, f *field.Field) *Builder {
	b := NewBuilder(f)
	x, err := b.NewVar("x", func(env *Env) (field.Element, error) {
		v, ok := env.Inputs["x"]
		if !ok {
			return field.Element{}, &MissingInputError{Name: "x"}
		}
		return v, nil
	}, true)
	if err != nil {
		t.Fatal(err)
	}
	y, err := b.NewVar("y", func(env *Env) (field.Element, error) {
		return env.Inputs["y"], nil
	}, true)
	if err != nil {
		t.Fatal(err)
	}
	z, err := b.NewVar("z", func(env *Env) (field.Element, error) {
		return env.Inputs["x"].Mul(env.Inputs["y"]), nil
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	b.Enforce(lc.FromVar(f, x), lc.FromVar(f, y), lc.FromVar(f, z))
	return b
}

func TestCheckAllSatisfied(t *testing.T) {
	f := field.New(big.NewInt(101))
	b := buildMultiplier(t, f)
	_, err := b.CheckAll(map[string]field.Element{
		"x": f.FromUint64(3),
		"y": f.FromUint64(4),
	})
	if err != nil {
		t.Fatalf("expected satisfied constraint, got %v", err)
	}
}

func TestCheckAllUnsatisfied(t *testing.T) {
	f := field.New(big.NewInt(101))
	b := NewBuilder(f)
	x, _ := b.NewVar("x", func(env *Env) (field.Element, error) { return env.Inputs["x"], nil }, true)
	y, _ := b.NewVar("y", func(env *Env) (field.Element, error) { return env.Inputs["y"], nil }, true)
	// z is forced to a wrong constant, independent of x*y.
	z, _ := b.NewVar("z", func(env *Env) (field.Element, error) { return f.FromUint64(999), nil }, false)
	b.Enforce(lc.FromVar(f, x), lc.FromVar(f, y), lc.FromVar(f, z))

	_, err := b.CheckAll(map[string]field.Element{"x": f.FromUint64(3), "y": f.FromUint64(4)})
	if err == nil {
		t.Fatalf("expected UnsatisfiedConstraintError")
	}
	if uce, ok := err.(*UnsatisfiedConstraintError); !ok || uce.Index != 0 {
		t.Fatalf("expected UnsatisfiedConstraintError{Index:0}, got %v", err)
	}
}

func TestDuplicateVarRejected(t *testing.T) {
	f := field.New(big.NewInt(101))
	b := NewBuilder(f)
	if _, err := b.NewVar("x", nil, true); err != nil {
		t.Fatal(err)
	}
	if _, err := b.NewVar("x", nil, true); err == nil {
		t.Fatalf("expected DuplicateVarError")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := field.New(big.NewInt(101))
	b := buildMultiplier(t, f)
	data, err := b.Encode()
	if err != nil {
		t.Fatal(err)
	}
	inst, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if inst.F.Modulus().Cmp(f.Modulus()) != 0 {
		t.Fatalf("modulus mismatch after round trip")
	}
	if len(inst.Constraints) != 1 {
		t.Fatalf("expected 1 constraint after round trip, got %d", len(inst.Constraints))
	}
}

func TestFlatFormIncludesModulus(t *testing.T) {
	f := field.New(big.NewInt(101))
	b := buildMultiplier(t, f)
	out := b.Flat()
	if len(out) == 0 {
		t.Fatalf("Flat() should not be empty")
	}
	if !strings.HasPrefix(out, "modulus 101\n") {
		t.Fatalf("Flat() should start with the modulus line, got %q", out)
	}
}

package field

import (
	"math/big"
	"testing"
)

func TestAddMulGeneric(t *testing.T) {
	f := New(big.NewInt(17))
	a := f.FromUint64(10)
	b := f.FromUint64(12)
	if got := a.Add(b); got.BigInt().Int64() != 5 { // 22 mod 17 = 5
		t.Fatalf("Add = %v, want 5", got)
	}
	if got := a.Mul(b); got.BigInt().Int64() != 1 { // 120 mod 17 = 1
		t.Fatalf("Mul = %v, want 1", got)
	}
}

func TestInvZeroFails(t *testing.T) {
	f := New(big.NewInt(17))
	if _, ok := f.Zero().Inv(); ok {
		t.Fatalf("Inv(0) should fail")
	}
	a := f.FromUint64(5)
	inv, ok := a.Inv()
	if !ok {
		t.Fatalf("Inv(5) should succeed")
	}
	if got := a.Mul(inv); got.BigInt().Int64() != 1 {
		t.Fatalf("a * a^-1 = %v, want 1", got)
	}
}

func TestAcceleratedMatchesGeneric(t *testing.T) {
	accelerated := New(bn254Modulus())
	if accelerated.accel == nil {
		t.Fatalf("expected bn254 modulus to select an accelerator")
	}
	generic := &Field{p: accelerated.p, byteLen: accelerated.byteLen}

	x := big.NewInt(123456789)
	y := big.NewInt(987654321)

	ax := accelerated.FromBigInt(x)
	ay := accelerated.FromBigInt(y)
	gx := generic.FromBigInt(x)
	gy := generic.FromBigInt(y)

	if ax.Add(ay).BigInt().Cmp(gx.Add(gy).BigInt()) != 0 {
		t.Fatalf("accelerated Add disagrees with generic Add")
	}
	if ax.Mul(ay).BigInt().Cmp(gx.Mul(gy).BigInt()) != 0 {
		t.Fatalf("accelerated Mul disagrees with generic Mul")
	}
}

func TestBytesRoundTripLength(t *testing.T) {
	f := Default()
	e := f.FromUint64(42)
	b := e.Bytes()
	if len(b) != f.ByteLen() {
		t.Fatalf("Bytes length = %d, want %d", len(b), f.ByteLen())
	}
	if b[0] != 42 {
		t.Fatalf("expected little-endian encoding, byte[0] = %d", b[0])
	}
}

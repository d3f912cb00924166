// Package field implements modular arithmetic over a configured prime, the
// base for every Field(p)-sorted term and every R1CS linear combination.
package field

import (
	"fmt"
	"math/big"
)

// Field is a prime modulus. Elements created from one Field must never be
// mixed with elements from another.
type Field struct {
	p        *big.Int
	byteLen  int
	accel    accelerator // nil unless p matches a curve gnark-crypto knows
}

// accelerator lets a Field delegate arithmetic to a gnark-crypto backend
// when the modulus matches a known curve's scalar field order.
type accelerator interface {
	add(x, y *big.Int) *big.Int
	mul(x, y *big.Int) *big.Int
	inv(x *big.Int) (*big.Int, bool)
}

// New returns a Field for modulus p, selecting a gnark-crypto-accelerated
// backend automatically when p matches a recognized curve's scalar field.
func New(p *big.Int) *Field {
	f := &Field{p: new(big.Int).Set(p)}
	f.byteLen = (f.p.BitLen() + 7) / 8
	f.accel = lookupAccelerator(f.p)
	return f
}

// Default returns the bn254 scalar field, this project's default when no
// modulus is explicitly configured, matching the source compiler's own
// default build configuration.
func Default() *Field {
	return New(bn254Modulus())
}

func (f *Field) Modulus() *big.Int { return new(big.Int).Set(f.p) }

// ByteLen is the little-endian serialization length, ceil(bitlen(p)/8).
func (f *Field) ByteLen() int { return f.byteLen }

func (f *Field) reduce(v *big.Int) *big.Int {
	r := new(big.Int).Mod(v, f.p)
	if r.Sign() < 0 {
		r.Add(r, f.p)
	}
	return r
}

// Element is a value in [0, p).
type Element struct {
	f *Field
	v *big.Int
}

// Zero returns the additive identity of f.
func (f *Field) Zero() Element { return Element{f: f, v: big.NewInt(0)} }

// One returns the multiplicative identity of f.
func (f *Field) One() Element { return Element{f: f, v: big.NewInt(1)} }

// FromUint64 lifts a small unsigned integer into the field.
func (f *Field) FromUint64(u uint64) Element {
	return Element{f: f, v: f.reduce(new(big.Int).SetUint64(u))}
}

// FromBigInt reduces an arbitrary integer into [0, p).
func (f *Field) FromBigInt(v *big.Int) Element {
	return Element{f: f, v: f.reduce(v)}
}

func (e Element) Field() *Field { return e.f }

// BigInt returns the canonical representative in [0, p).
func (e Element) BigInt() *big.Int { return new(big.Int).Set(e.v) }

func (e Element) mustSameField(o Element) {
	if e.f != o.f {
		panic("field: elements from different fields combined")
	}
}

func (e Element) Add(o Element) Element {
	e.mustSameField(o)
	if e.f.accel != nil {
		return Element{f: e.f, v: e.f.accel.add(e.v, o.v)}
	}
	return Element{f: e.f, v: e.f.reduce(new(big.Int).Add(e.v, o.v))}
}

func (e Element) Sub(o Element) Element {
	e.mustSameField(o)
	return Element{f: e.f, v: e.f.reduce(new(big.Int).Sub(e.v, o.v))}
}

func (e Element) Neg() Element {
	return Element{f: e.f, v: e.f.reduce(new(big.Int).Neg(e.v))}
}

func (e Element) Mul(o Element) Element {
	e.mustSameField(o)
	if e.f.accel != nil {
		return Element{f: e.f, v: e.f.accel.mul(e.v, o.v)}
	}
	return Element{f: e.f, v: e.f.reduce(new(big.Int).Mul(e.v, o.v))}
}

// Inv returns the multiplicative inverse. The bool is false for the zero
// element (the caller is expected to surface DivisionByZero).
func (e Element) Inv() (Element, bool) {
	if e.v.Sign() == 0 {
		return Element{}, false
	}
	if e.f.accel != nil {
		v, ok := e.f.accel.inv(e.v)
		if !ok {
			return Element{}, false
		}
		return Element{f: e.f, v: v}, true
	}
	inv := new(big.Int).ModInverse(e.v, e.f.p)
	if inv == nil {
		return Element{}, false
	}
	return Element{f: e.f, v: inv}, true
}

func (e Element) IsZero() bool { return e.v.Sign() == 0 }

func (e Element) Equal(o Element) bool {
	return e.f == o.f && e.v.Cmp(o.v) == 0
}

// Bytes serializes the element little-endian, zero-padded to Field.ByteLen.
func (e Element) Bytes() []byte {
	be := e.v.Bytes() // big-endian, no leading zeros
	out := make([]byte, e.f.byteLen)
	for i, j := 0, len(be)-1; j >= 0; i, j = i+1, j-1 {
		out[i] = be[j]
	}
	return out
}

func (e Element) String() string { return e.v.String() }

func (e Element) GoString() string { return fmt.Sprintf("field.Element(%s)", e.v.String()) }

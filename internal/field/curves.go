package field

import (
	"math/big"

	bls12381fr "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	bn254fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// lookupAccelerator returns a gnark-crypto-backed accelerator when p matches
// a scalar field order gnark-crypto ships generated arithmetic for, nil
// otherwise (the generic math/big path is always correct, just slower).
func lookupAccelerator(p *big.Int) accelerator {
	switch {
	case p.Cmp(bn254Modulus()) == 0:
		return bn254Accel{}
	case p.Cmp(bls12381Modulus()) == 0:
		return bls12381Accel{}
	default:
		return nil
	}
}

func bn254Modulus() *big.Int {
	m := bn254fr.Modulus()
	return new(big.Int).Set(m)
}

func bls12381Modulus() *big.Int {
	m := bls12381fr.Modulus()
	return new(big.Int).Set(m)
}

type bn254Accel struct{}

func (bn254Accel) add(x, y *big.Int) *big.Int {
	var a, b, c bn254fr.Element
	a.SetBigInt(x)
	b.SetBigInt(y)
	c.Add(&a, &b)
	return c.BigInt(new(big.Int))
}

func (bn254Accel) mul(x, y *big.Int) *big.Int {
	var a, b, c bn254fr.Element
	a.SetBigInt(x)
	b.SetBigInt(y)
	c.Mul(&a, &b)
	return c.BigInt(new(big.Int))
}

func (bn254Accel) inv(x *big.Int) (*big.Int, bool) {
	var a, c bn254fr.Element
	a.SetBigInt(x)
	if a.IsZero() {
		return nil, false
	}
	c.Inverse(&a)
	return c.BigInt(new(big.Int)), true
}

type bls12381Accel struct{}

func (bls12381Accel) add(x, y *big.Int) *big.Int {
	var a, b, c bls12381fr.Element
	a.SetBigInt(x)
	b.SetBigInt(y)
	c.Add(&a, &b)
	return c.BigInt(new(big.Int))
}

func (bls12381Accel) mul(x, y *big.Int) *big.Int {
	var a, b, c bls12381fr.Element
	a.SetBigInt(x)
	b.SetBigInt(y)
	c.Mul(&a, &b)
	return c.BigInt(new(big.Int))
}

func (bls12381Accel) inv(x *big.Int) (*big.Int, bool) {
	var a, c bls12381fr.Element
	a.SetBigInt(x)
	if a.IsZero() {
		return nil, false
	}
	c.Inverse(&a)
	return c.BigInt(new(big.Int)), true
}

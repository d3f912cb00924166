package ir

import (
	"fmt"
	"math/big"

	"gyre/internal/field"
)

// Value is a concrete element of a Sort: produced by the evaluator, fed in
// as an input, or carried by a Const term.
type Value struct {
	sort *Sort

	b bool
	u *big.Int // BitVector, reduced to [0, 2^w)
	e field.Element

	arr     map[string]Value // Array: key serialized via keyString
	arrDflt *Value
	arrLen  int
	arrKey  *Sort

	tup []Value
}

func (v Value) Sort() *Sort { return v.sort }

func BoolValue(b bool) Value { return Value{sort: BoolSort(), b: b} }

func (v Value) Bool() bool {
	if v.sort == nil || v.sort.Kind != KindBool {
		panic("ir: Bool() on non-bool value")
	}
	return v.b
}

func BitVectorValue(w int, u *big.Int) Value {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(w))
	r := new(big.Int).Mod(u, mod)
	if r.Sign() < 0 {
		r.Add(r, mod)
	}
	return Value{sort: BitVectorSort(w), u: r}
}

func (v Value) BitVector() *big.Int {
	if v.sort == nil || v.sort.Kind != KindBitVector {
		panic("ir: BitVector() on non-bitvector value")
	}
	return new(big.Int).Set(v.u)
}

func FieldValue(f *field.Field, e field.Element) Value {
	return Value{sort: FieldSort(f), e: e}
}

func (v Value) FieldElement() field.Element {
	if v.sort == nil || v.sort.Kind != KindField {
		panic("ir: FieldElement() on non-field value")
	}
	return v.e
}

// ConstArrayValue builds an array value where every key maps to dflt except
// those explicitly overridden, matching the ConstArray(v,n) operator.
func ConstArrayValue(key, val *Sort, n int, dflt Value) Value {
	return Value{
		sort:    ArraySort(key, val, n),
		arr:     map[string]Value{},
		arrDflt: &dflt,
		arrLen:  n,
		arrKey:  key,
	}
}

func keyString(v Value) string {
	switch v.sort.Kind {
	case KindBool:
		return fmt.Sprintf("b:%v", v.b)
	case KindBitVector:
		return fmt.Sprintf("u:%s", v.u.String())
	case KindField:
		return fmt.Sprintf("f:%s", v.e.BigInt().String())
	default:
		panic("ir: unsupported array key sort")
	}
}

// Select reads the value at key, returning the array's default when key is
// out of the explicitly-stored set, per spec's Select semantics.
func (v Value) Select(key Value) Value {
	if v.sort == nil || v.sort.Kind != KindArray {
		panic("ir: Select() on non-array value")
	}
	if stored, ok := v.arr[keyString(key)]; ok {
		return stored
	}
	return *v.arrDflt
}

// Store returns a new array value with key bound to val.
func (v Value) Store(key, val Value) Value {
	if v.sort == nil || v.sort.Kind != KindArray {
		panic("ir: Store() on non-array value")
	}
	next := map[string]Value{}
	for k, vv := range v.arr {
		next[k] = vv
	}
	next[keyString(key)] = val
	return Value{sort: v.sort, arr: next, arrDflt: v.arrDflt, arrLen: v.arrLen, arrKey: v.arrKey}
}

func TupleValue(elems ...Value) Value {
	sorts := make([]*Sort, len(elems))
	cp := make([]Value, len(elems))
	for i, e := range elems {
		sorts[i] = e.sort
		cp[i] = e
	}
	return Value{sort: TupleSort(sorts...), tup: cp}
}

func (v Value) TupleField(i int) Value {
	if v.sort == nil || v.sort.Kind != KindTuple {
		panic("ir: TupleField() on non-tuple value")
	}
	return v.tup[i]
}

func (v Value) String() string {
	switch v.sort.Kind {
	case KindBool:
		return fmt.Sprintf("%v", v.b)
	case KindBitVector:
		return v.u.String()
	case KindField:
		return v.e.String()
	case KindTuple:
		return fmt.Sprintf("%v", v.tup)
	case KindArray:
		return fmt.Sprintf("array[%d]", v.arrLen)
	}
	return "?"
}

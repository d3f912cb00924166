// Package ir implements the hash-consed typed term DAG: sorts, values,
// operators and the Term intern table that canonicalizes structurally
// identical nodes to a single pointer.
package ir

import (
	"fmt"

	"gyre/internal/field"
)

// Kind tags the shape of a Sort.
type Kind int

const (
	KindBool Kind = iota
	KindBitVector
	KindField
	KindArray
	KindTuple
)

// Sort is compared structurally; two Sorts describing the same shape are
// considered equal regardless of allocation.
type Sort struct {
	Kind Kind

	Width int // BitVector(w)

	FieldMod *field.Field // Field(p)

	Key  *Sort // Array(K,V,n)
	Elem *Sort
	Len  int

	Elems []*Sort // Tuple(Sort*)
}

func BoolSort() *Sort { return &Sort{Kind: KindBool} }

func BitVectorSort(w int) *Sort {
	if w <= 0 {
		panic("ir: bitvector width must be positive")
	}
	return &Sort{Kind: KindBitVector, Width: w}
}

func FieldSort(f *field.Field) *Sort { return &Sort{Kind: KindField, FieldMod: f} }

func ArraySort(key, val *Sort, n int) *Sort {
	if n <= 0 {
		panic("ir: array length must be positive")
	}
	return &Sort{Kind: KindArray, Key: key, Elem: val, Len: n}
}

func TupleSort(elems ...*Sort) *Sort {
	cp := make([]*Sort, len(elems))
	copy(cp, elems)
	return &Sort{Kind: KindTuple, Elems: cp}
}

// Equal compares two sorts structurally.
func (s *Sort) Equal(o *Sort) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case KindBool:
		return true
	case KindBitVector:
		return s.Width == o.Width
	case KindField:
		return s.FieldMod == o.FieldMod || (s.FieldMod != nil && o.FieldMod != nil && s.FieldMod.Modulus().Cmp(o.FieldMod.Modulus()) == 0)
	case KindArray:
		return s.Len == o.Len && s.Key.Equal(o.Key) && s.Elem.Equal(o.Elem)
	case KindTuple:
		if len(s.Elems) != len(o.Elems) {
			return false
		}
		for i := range s.Elems {
			if !s.Elems[i].Equal(o.Elems[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (s *Sort) String() string {
	switch s.Kind {
	case KindBool:
		return "Bool"
	case KindBitVector:
		return fmt.Sprintf("BitVector(%d)", s.Width)
	case KindField:
		return fmt.Sprintf("Field(%s)", s.FieldMod.Modulus().String())
	case KindArray:
		return fmt.Sprintf("Array(%s,%s,%d)", s.Key, s.Elem, s.Len)
	case KindTuple:
		parts := make([]string, len(s.Elems))
		for i, e := range s.Elems {
			parts[i] = e.String()
		}
		return fmt.Sprintf("Tuple(%v)", parts)
	}
	return "?"
}

// cacheKey is a string good enough to distinguish sorts for use as an
// interning key component; String() already captures full structure.
func (s *Sort) cacheKey() string { return s.String() }

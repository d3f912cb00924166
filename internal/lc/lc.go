// Package lc implements sparse linear combinations over a prime field: the
// representation R1CS constraints are built from.
package lc

import (
	"fmt"
	"sort"
	"strings"

	"gyre/internal/field"
)

// Lc is constant + sum(coeff_i * var_i). Variable indices are R1CS variable
// indices (see internal/r1cs); index 0 is reserved for the constant 1 and
// never appears in Terms.
type Lc struct {
	F       *field.Field
	Const   field.Element
	Terms   map[int]field.Element
}

// Zero returns the zero linear combination over f.
func Zero(f *field.Field) Lc {
	return Lc{F: f, Const: f.Zero(), Terms: map[int]field.Element{}}
}

// FromConst returns the constant linear combination c.
func FromConst(f *field.Field, c field.Element) Lc {
	return Lc{F: f, Const: c, Terms: map[int]field.Element{}}
}

// FromVar returns the linear combination 1*var.
func FromVar(f *field.Field, v int) Lc {
	l := Zero(f)
	l.Terms[v] = f.One()
	return l
}

func (l Lc) clone() Lc {
	cp := make(map[int]field.Element, len(l.Terms))
	for k, v := range l.Terms {
		cp[k] = v
	}
	return Lc{F: l.F, Const: l.Const, Terms: cp}
}

func (l Lc) set(v int, coeff field.Element) Lc {
	out := l.clone()
	if coeff.IsZero() {
		delete(out.Terms, v)
	} else {
		out.Terms[v] = coeff
	}
	return out
}

// Add returns l + o.
func (l Lc) Add(o Lc) Lc {
	out := l.clone()
	out.Const = out.Const.Add(o.Const)
	for v, coeff := range o.Terms {
		cur, ok := out.Terms[v]
		if !ok {
			cur = l.F.Zero()
		}
		out = out.set(v, cur.Add(coeff))
	}
	return out
}

// Neg returns -l.
func (l Lc) Neg() Lc {
	out := Lc{F: l.F, Const: l.Const.Neg(), Terms: map[int]field.Element{}}
	for v, coeff := range l.Terms {
		out.Terms[v] = coeff.Neg()
	}
	return out
}

// Sub returns l - o.
func (l Lc) Sub(o Lc) Lc {
	return l.Add(o.Neg())
}

// MulConst returns l scaled by a constant.
func (l Lc) MulConst(k field.Element) Lc {
	out := Lc{F: l.F, Const: l.Const.Mul(k), Terms: map[int]field.Element{}}
	for v, coeff := range l.Terms {
		scaled := coeff.Mul(k)
		if !scaled.IsZero() {
			out.Terms[v] = scaled
		}
	}
	return out
}

// AddConst returns l + k.
func (l Lc) AddConst(k field.Element) Lc {
	out := l.clone()
	out.Const = out.Const.Add(k)
	return out
}

// Eval evaluates the linear combination given a variable assignment.
func (l Lc) Eval(assign map[int]field.Element) field.Element {
	acc := l.Const
	for v, coeff := range l.Terms {
		val, ok := assign[v]
		if !ok {
			val = l.F.Zero()
		}
		acc = acc.Add(coeff.Mul(val))
	}
	return acc
}

// Equal compares two linear combinations for equal constant and monomials.
func (l Lc) Equal(o Lc) bool {
	if !l.Const.Equal(o.Const) {
		return false
	}
	if len(l.Terms) != len(o.Terms) {
		return false
	}
	for v, coeff := range l.Terms {
		oc, ok := o.Terms[v]
		if !ok || !oc.Equal(coeff) {
			return false
		}
	}
	return true
}

// sortedVars returns the variable indices in Terms, ascending, for
// deterministic printing/encoding.
func (l Lc) sortedVars() []int {
	vars := make([]int, 0, len(l.Terms))
	for v := range l.Terms {
		vars = append(vars, v)
	}
	sort.Ints(vars)
	return vars
}

func (l Lc) String() string {
	var b strings.Builder
	first := true
	if !l.Const.IsZero() || len(l.Terms) == 0 {
		b.WriteString(l.Const.String())
		first = false
	}
	for _, v := range l.sortedVars() {
		if !first {
			b.WriteString(" + ")
		}
		fmt.Fprintf(&b, "%s*v%d", l.Terms[v].String(), v)
		first = false
	}
	return b.String()
}

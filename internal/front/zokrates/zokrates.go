// Package zokrates is a stub front-end instantiation: it exists to show
// that front.Scalar and the circify/opt/lower pipeline are reusable across
// source languages, the way the project this module is descended from
// split its front ends into c/zokrates/datalog over one shared Embeddable.
// It carries no parser of its own (ZoKrates' expression and constraint
// language is out of scope here); the capability wiring below is what a
// real ZoKrates reader would hand its statements to.
package zokrates

import (
	"gyre/internal/circify"
	"gyre/internal/front"
	"gyre/internal/ir"
)

// NewCircifier returns a fresh circification session bound to the shared
// scalar embedding, exactly as front/c does.
func NewCircifier() *circify.Circify[front.Type, *ir.Term] {
	return front.NewCircifier()
}

// U32 is the width ZoKrates' only native unsigned integer type lowers to.
func U32() front.Type { return front.BitVector(32) }

// Package datalog is the second stub front-end instantiation, demonstrating
// the shared circification capability set against a rule-based language
// rather than an imperative one. A real reader would translate each ground
// fact into a Declare'd input and each rule body into a conjunction of
// Assign/assert calls; neither is implemented here, since nothing in this
// module needs to parse Datalog itself.
package datalog

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

// Fact is a single ground atom: a named relation applied to field-sorted
// argument terms, the unit a Datalog front end would circify one clause
// into a conjunction of.
type Fact struct {
	Relation string
	Args     []*ir.Term
}

package opt

import "gyre/internal/ir"

// commutative lists operator tags whose two children may be reordered
// without changing meaning.
var commutative = map[ir.OpTag]bool{
	ir.OpAnd: true, ir.OpOr: true, ir.OpXor: true, ir.OpEq: true,
	ir.OpFieldAdd: true, ir.OpFieldMul: true,
	ir.OpBvAdd: true, ir.OpBvMul: true, ir.OpBvAnd: true, ir.OpBvOr: true, ir.OpBvXor: true,
}

// Flatten canonicalizes the child order of commutative binary operators by
// term identity, so that e.g. And(x,y) and And(y,x) built independently by
// a front end converge onto the same hash-consed term and share downstream
// work. The term IR here has no variadic associative operators to re-tree,
// so flattening reduces to this canonical-ordering step.
type Flatten struct{}

func (p *Flatten) Name() string { return "Flatten" }
func (p *Flatten) Description() string {
	return "canonicalize commutative operand order to maximize structural sharing"
}

func (p *Flatten) Apply(c *Computation) (*Computation, bool, error) {
	memo := map[uint64]*ir.Term{}
	changed := false

	var rewrite func(t *ir.Term) (*ir.Term, error)
	rewrite = func(t *ir.Term) (*ir.Term, error) {
		if cached, ok := memo[t.ID()]; ok {
			return cached, nil
		}
		if _, isConst := t.IsConst(); isConst || t.VarName() != "" {
			memo[t.ID()] = t
			return t, nil
		}

		newChildren := make([]*ir.Term, len(t.Children))
		for i, ch := range t.Children {
			r, err := rewrite(ch)
			if err != nil {
				return nil, err
			}
			newChildren[i] = r
		}

		if commutative[t.Op.Tag] && len(newChildren) == 2 && newChildren[0].ID() > newChildren[1].ID() {
			newChildren[0], newChildren[1] = newChildren[1], newChildren[0]
		}

		rebuilt, err := ir.Mk(t.Op, newChildren...)
		if err != nil {
			return nil, err
		}
		memo[t.ID()] = rebuilt
		if rebuilt != t {
			changed = true
		}
		return rebuilt, nil
	}

	out := c.clone()
	for i, o := range c.Outputs {
		r, err := rewrite(o)
		if err != nil {
			return nil, false, err
		}
		out.Outputs[i] = r
	}
	for i, w := range c.Precompute {
		r, err := rewrite(w.Term)
		if err != nil {
			return nil, false, err
		}
		out.Precompute[i] = WitnessEntry{Name: w.Name, Term: r}
	}
	return out, changed, nil
}

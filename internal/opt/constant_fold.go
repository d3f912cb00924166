package opt

import (
	"gyre/internal/eval"
	"gyre/internal/ir"
)

// ConstantFold replaces any term whose children are all Const with the
// evaluated constant, post-order. Re-running it on its own output is a
// no-op (every foldable subterm is already folded).
type ConstantFold struct{}

func (p *ConstantFold) Name() string { return "ConstantFold" }
func (p *ConstantFold) Description() string {
	return "replace terms whose children are all constants with their evaluated value"
}

func (p *ConstantFold) Apply(c *Computation) (*Computation, bool, error) {
	memo := map[uint64]*ir.Term{}
	changed := false

	var fold func(t *ir.Term) (*ir.Term, error)
	fold = func(t *ir.Term) (*ir.Term, error) {
		if cached, ok := memo[t.ID()]; ok {
			return cached, nil
		}
		if _, isConst := t.IsConst(); isConst {
			memo[t.ID()] = t
			return t, nil
		}
		if t.VarName() != "" {
			memo[t.ID()] = t
			return t, nil
		}

		newChildren := make([]*ir.Term, len(t.Children))
		allConst := true
		for i, ch := range t.Children {
			folded, err := fold(ch)
			if err != nil {
				return nil, err
			}
			newChildren[i] = folded
			if _, ok := folded.IsConst(); !ok {
				allConst = false
			}
		}

		rebuilt, err := ir.Mk(t.Op, newChildren...)
		if err != nil {
			return nil, err
		}

		if allConst {
			v, err := eval.New(nil).Eval(rebuilt)
			if err != nil {
				// Not every all-const term can be folded (e.g. Field.Inv(0)
				// fails at evaluation, not construction) - leave it symbolic
				// per spec §4.2/§4.3, the offending error surfaces only if
				// this path is actually exercised at prove time.
				memo[t.ID()] = rebuilt
				if rebuilt != t {
					changed = true
				}
				return rebuilt, nil
			}
			folded := ir.NewConst(v)
			memo[t.ID()] = folded
			changed = true
			return folded, nil
		}

		memo[t.ID()] = rebuilt
		if rebuilt != t {
			changed = true
		}
		return rebuilt, nil
	}

	out := c.clone()
	for i, o := range c.Outputs {
		folded, err := fold(o)
		if err != nil {
			return nil, false, err
		}
		out.Outputs[i] = folded
	}
	for i, w := range c.Precompute {
		folded, err := fold(w.Term)
		if err != nil {
			return nil, false, err
		}
		out.Precompute[i] = WitnessEntry{Name: w.Name, Term: folded}
	}
	return out, changed, nil
}

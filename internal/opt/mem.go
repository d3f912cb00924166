package opt

import (
	"math/big"

	"gyre/internal/ir"
)

// Mem eliminates Array-sorted terms by resolving each Select against the
// concrete Store/ConstArray chain that produced its array operand and
// rewriting it into a mux tree over the chain's resolved elements: a Select
// with a constant key becomes that element directly, a Select with a
// symbolic key becomes an (n-1)-deep Ite chain comparing the key against
// each concrete index. Downstream packages (internal/lower) only accept
// Bool/BitVector/Field terms, so any Array term Mem cannot resolve this way
// is left in place and will surface as Unlowerable there.
type Mem struct{}

func (p *Mem) Name() string { return "Mem" }
func (p *Mem) Description() string {
	return "lower concrete-index array operations into Ite/Select mux trees"
}

func (p *Mem) Apply(c *Computation) (*Computation, bool, error) {
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

		if t.Op.Tag == ir.OpSelect {
			arr, key := newChildren[0], newChildren[1]
			n := arr.Sort().Len
			keySort := arr.Sort().Key
			if elems, ok := resolveElems(arr, n); ok {
				result, err := buildMux(elems, key, keySort)
				if err == nil {
					memo[t.ID()] = result
					changed = true
					return result, nil
				}
			}
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

// resolveElems walks a Store/ConstArray chain rooted at arr, returning the
// term occupying each of the n concrete indices. It fails (ok=false) as soon
// as it meets a Store with a non-constant key, or any other array-producing
// operator it does not understand (a Var of array sort, an Ite of arrays,
// a Select yielding a nested array...).
func resolveElems(arr *ir.Term, n int) ([]*ir.Term, bool) {
	elems := make([]*ir.Term, n)
	resolved := make([]bool, n)
	remaining := n
	cur := arr
	for remaining > 0 {
		if cur == nil {
			return nil, false
		}
		switch cur.Op.Tag {
		case ir.OpStore:
			keyConst, isConst := cur.Children[1].IsConst()
			if !isConst {
				return nil, false
			}
			idx, ok := constIndex(keyConst)
			if !ok {
				return nil, false
			}
			if idx >= 0 && idx < n && !resolved[idx] {
				elems[idx] = cur.Children[2]
				resolved[idx] = true
				remaining--
			}
			cur = cur.Children[0]
		case ir.OpConstArray:
			def := cur.Children[0]
			for i := 0; i < n; i++ {
				if !resolved[i] {
					elems[i] = def
					resolved[i] = true
					remaining--
				}
			}
		default:
			return nil, false
		}
	}
	return elems, true
}

func constIndex(v ir.Value) (int, bool) {
	switch v.Sort().Kind {
	case ir.KindBitVector:
		return int(v.BitVector().Int64()), true
	case ir.KindField:
		return int(v.FieldElement().BigInt().Int64()), true
	default:
		return 0, false
	}
}

// buildMux folds elems[0..n) into a single term: elems[idx] if key is the
// constant index idx, otherwise a right-leaning Ite chain
// comparing key against each index from n-2 down to 0 (n-1 Ites total).
func buildMux(elems []*ir.Term, key *ir.Term, keySort *ir.Sort) (*ir.Term, error) {
	n := len(elems)
	if keyConst, ok := key.IsConst(); ok {
		idx, ok := constIndex(keyConst)
		if !ok || idx < 0 || idx >= n {
			return nil, errUnresolvedMux
		}
		return elems[idx], nil
	}

	result := elems[n-1]
	for i := n - 2; i >= 0; i-- {
		idxTerm, err := constKey(keySort, i)
		if err != nil {
			return nil, err
		}
		cond, err := ir.Mk(ir.Op{Tag: ir.OpEq}, key, idxTerm)
		if err != nil {
			return nil, err
		}
		result, err = ir.Mk(ir.Op{Tag: ir.OpIte}, cond, elems[i], result)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func constKey(keySort *ir.Sort, i int) (*ir.Term, error) {
	switch keySort.Kind {
	case ir.KindBitVector:
		return ir.NewConst(ir.BitVectorValue(keySort.Width, big.NewInt(int64(i)))), nil
	case ir.KindField:
		return ir.NewConst(ir.FieldValue(keySort.FieldMod, keySort.FieldMod.FromUint64(uint64(i)))), nil
	default:
		return nil, errUnresolvedMux
	}
}

var errUnresolvedMux = muxError{}

type muxError struct{}

func (muxError) Error() string { return "opt: mux key sort not supported" }

package opt

import "gyre/internal/ir"

// Inline drops named Precompute entries that are referenced from at most one
// place in the computation's term DAG: evaluating that one consumer (if any)
// already re-derives the value, so keeping a separate named witness slot for it only
// duplicates evaluation work. Entries reachable from more than one parent
// (shared via hash-consing) keep their named slot, since naming them lets a
// witness plan compute the shared value once instead of per use site.
type Inline struct{}

func (p *Inline) Name() string { return "Inline" }
func (p *Inline) Description() string {
	return "drop named intermediates that have only a single consumer"
}

func (p *Inline) Apply(c *Computation) (*Computation, bool, error) {
	refCount := map[uint64]int{}

	var roots []*ir.Term
	roots = append(roots, c.Outputs...)
	for _, w := range c.Precompute {
		roots = append(roots, w.Term)
	}

	visited := map[uint64]bool{}
	var walk func(t *ir.Term)
	walk = func(t *ir.Term) {
		for _, ch := range t.Children {
			refCount[ch.ID()]++
		}
		if visited[t.ID()] {
			return
		}
		visited[t.ID()] = true
		for _, ch := range t.Children {
			walk(ch)
		}
	}
	for _, r := range roots {
		walk(r)
	}

	public := map[string]bool{}
	for _, n := range c.PublicInputs {
		public[n] = true
	}

	out := c.clone()
	out.Precompute = out.Precompute[:0]
	changed := false
	for _, w := range c.Precompute {
		if public[w.Name] || refCount[w.Term.ID()] > 1 {
			out.Precompute = append(out.Precompute, w)
			continue
		}
		changed = true
	}
	return out, changed, nil
}

// Package opt implements the IR optimization pipeline: named, individually
// idempotent passes over a Computation, run in sequence. The pass interface
// and pipeline driver follow the source project's OptimizationPass /
// OptimizationPipeline pattern (internal/ir/optimizations.go), generalized
// from basic-block SSA instructions to hash-consed ir.Term DAGs.
package opt

import (
	"fmt"

	"gyre/internal/ir"
)

// Computation is the pipeline's unit of work: a set of output terms plus an
// ordered evaluation (witness) plan and the names circification marked as
// public inputs.
type Computation struct {
	Outputs      []*ir.Term
	Precompute   []WitnessEntry
	PublicInputs []string
	Metadata     map[string]string
}

// WitnessEntry names an intermediate the witness plan must be able to
// recompute, in topological order.
type WitnessEntry struct {
	Name string
	Term *ir.Term
}

func (c *Computation) clone() *Computation {
	out := &Computation{
		Outputs:      append([]*ir.Term{}, c.Outputs...),
		Precompute:   append([]WitnessEntry{}, c.Precompute...),
		PublicInputs: append([]string{}, c.PublicInputs...),
		Metadata:     map[string]string{},
	}
	for k, v := range c.Metadata {
		out.Metadata[k] = v
	}
	return out
}

// Pass is a single named rewrite over a Computation. Apply returns the
// rewritten Computation and whether it changed anything.
type Pass interface {
	Name() string
	Description() string
	Apply(c *Computation) (*Computation, bool, error)
}

// Pipeline runs an ordered sequence of passes once each. Unlike the source
// project's OptimizationPipeline, which loops until a pass reports no
// change, this pipeline's composition is not required to reach a fixed
// point (per spec: passes are individually idempotent, the pipeline is not).
type Pipeline struct {
	passes []Pass
	Trace  func(msg string) // optional progress sink; nil discards
}

// NewPipeline builds the default pipeline: ConstantFold, Flatten, Inline,
// Mem, in that order, mirroring the source project's
// ConstantFolding->CheckedArithmeticOptimization->DeadCodeElimination->CSE
// wiring shape (fixed named stages run once in sequence).
func NewPipeline() *Pipeline {
	return &Pipeline{
		passes: []Pass{
			&ConstantFold{},
			&Flatten{},
			&Inline{},
			&Mem{},
		},
	}
}

func (p *Pipeline) AddPass(pass Pass) { p.passes = append(p.passes, pass) }

func (p *Pipeline) trace(format string, args ...interface{}) {
	if p.Trace != nil {
		p.Trace(fmt.Sprintf(format, args...))
	}
}

// Run applies every pass in order, returning the final Computation.
func (p *Pipeline) Run(c *Computation) (*Computation, error) {
	cur := c
	for _, pass := range p.passes {
		p.trace("running %s: %s", pass.Name(), pass.Description())
		next, changed, err := pass.Apply(cur)
		if err != nil {
			return nil, fmt.Errorf("opt: pass %s failed: %w", pass.Name(), err)
		}
		cur = next
		if changed {
			p.trace("%s changed the computation", pass.Name())
		}
	}
	return cur, nil
}

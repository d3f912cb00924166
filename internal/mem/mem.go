// Package mem implements the scoped logical-array manager: zero-allocated
// arrays whose load/store operations produce pure IR terms, with store
// guarded by the caller's current path condition so that writes made under
// an untaken branch never affect the array's value.
package mem

import (
	"fmt"
	"math/big"

	"gyre/internal/ir"
)

// AllocId names one logical array allocated by a Manager.
type AllocId int

// UnknownAllocError is raised by Load/Store/Current against an id the
// Manager never allocated.
type UnknownAllocError struct{ ID AllocId }

func (e *UnknownAllocError) Error() string {
	return fmt.Sprintf("mem: unknown allocation id %d", e.ID)
}

// Manager tracks, per AllocId, the current symbolic array term A_id. It has
// no notion of path condition itself; callers (front/c's build pass) pass
// the guard in effect at each store.
type Manager struct {
	next    AllocId
	current map[AllocId]*ir.Term
}

func NewManager() *Manager {
	return &Manager{current: map[AllocId]*ir.Term{}}
}

// ZeroAllocate creates a fresh logical array of n entries, keyed by
// BitVector(keyWidth), valued by BitVector(valWidth), with every entry
// initialized to 0.
func (m *Manager) ZeroAllocate(n, keyWidth, valWidth int) AllocId {
	keySort := ir.BitVectorSort(keyWidth)
	zero := ir.NewConst(ir.BitVectorValue(valWidth, big.NewInt(0)))
	arr := ir.MustMk(ir.Op{Tag: ir.OpConstArray, KeySort: keySort, Len: n}, zero)

	id := m.next
	m.next++
	m.current[id] = arr
	return id
}

// Load returns the value term equivalent to Select(A_id, key).
func (m *Manager) Load(id AllocId, key *ir.Term) (*ir.Term, error) {
	arr, ok := m.current[id]
	if !ok {
		return nil, &UnknownAllocError{ID: id}
	}
	return ir.Mk(ir.Op{Tag: ir.OpSelect}, arr, key)
}

// Store updates A_id <- Ite(guard, Store(A_id, key, val), A_id), so that a
// store made under a guard that later turns out false leaves the array
// value unchanged. guard may be nil to mean "unconditional" (the top-level
// path condition, trivially true), in which case the Ite is skipped.
func (m *Manager) Store(id AllocId, key, val, guard *ir.Term) error {
	arr, ok := m.current[id]
	if !ok {
		return &UnknownAllocError{ID: id}
	}
	written, err := ir.Mk(ir.Op{Tag: ir.OpStore}, arr, key, val)
	if err != nil {
		return err
	}
	if guard == nil {
		m.current[id] = written
		return nil
	}
	if c, isConst := guard.IsConst(); isConst && c.Sort().Kind == ir.KindBool && c.Bool() {
		m.current[id] = written
		return nil
	}
	guarded, err := ir.Mk(ir.Op{Tag: ir.OpIte}, guard, written, arr)
	if err != nil {
		return err
	}
	m.current[id] = guarded
	return nil
}

// Current returns the array's current symbolic term, e.g. for embedding in
// a Computation's outputs or precompute plan.
func (m *Manager) Current(id AllocId) (*ir.Term, error) {
	arr, ok := m.current[id]
	if !ok {
		return nil, &UnknownAllocError{ID: id}
	}
	return arr, nil
}

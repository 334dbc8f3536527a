package fsm

import (
	"github.com/coregx/japefsm/internal/conv"
	"github.com/coregx/japefsm/internal/sparse"
)

// Closure returns the epsilon closure of states: the smallest superset
// closed under epsilon transitions, sorted ascending. Out-of-range ids are
// ignored.
func (a *Automaton) Closure(states []StateID) []StateID {
	set := sparse.NewSparseSet(conv.IntToUint32(len(a.states)))
	valid := make([]StateID, 0, len(states))
	for _, s := range states {
		if int(s) < len(a.states) {
			valid = append(valid, s)
		}
	}
	return a.closure(set, valid)
}

// closure computes the epsilon closure of seed using set as scratch space.
// The result is a fresh sorted slice.
func (a *Automaton) closure(set *sparse.SparseSet, seed []StateID) []StateID {
	set.Clear()
	stack := make([]StateID, 0, len(seed))
	for _, s := range seed {
		if set.Insert(uint32(s)) {
			stack = append(stack, s)
		}
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, t := range a.states[s].transitions {
			if t.Label == Epsilon && set.Insert(uint32(t.Target)) {
				stack = append(stack, t.Target)
			}
		}
	}

	sorted := set.Sorted()
	out := make([]StateID, len(sorted))
	for i, v := range sorted {
		out[i] = StateID(v)
	}
	return out
}

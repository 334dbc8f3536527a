package fsm

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/coregx/japefsm/internal/conv"
	"github.com/coregx/japefsm/internal/sparse"
)

// Determinize converts a into an equivalent deterministic automaton by
// subset construction. Every result state stands for one epsilon-closed set
// of input states and carries the union of their actions.
//
// Result numbering is reproducible: the start set is state 0 and sets are
// numbered in discovery order while labels are scanned in ascending order.
func Determinize(a *Automaton) *Automaton {
	d, err := DeterminizeLimit(a, 0)
	if err != nil {
		// Only the state limit can fail and it is disabled.
		panic(fmt.Sprintf("fsm: determinize: %v", err))
	}
	return d
}

// DeterminizeLimit is Determinize with a budget on result states.
// Returns ErrStateLimit when more than maxStates states would be needed.
// maxStates <= 0 disables the limit.
func DeterminizeLimit(a *Automaton, maxStates int) (*Automaton, error) {
	return subsetConstruction(a, maxStates, true)
}

// EpsilonFree removes epsilon transitions without merging transitions that
// share a label. Each result state is the closure of an input state reached
// by one labeled transition, so the result may still be nondeterministic.
func EpsilonFree(a *Automaton) *Automaton {
	e, err := subsetConstruction(a, 0, false)
	if err != nil {
		panic(fmt.Sprintf("fsm: epsilon elimination: %v", err))
	}
	return e
}

type move struct {
	label  Label
	target StateID
}

// subsetConstruction is the worklist shared by Determinize and EpsilonFree.
// With mergeLabels every label leads to the closure of all its targets;
// without it every labeled transition leads to the closure of its own target.
func subsetConstruction(a *Automaton, maxStates int, mergeLabels bool) (*Automaton, error) {
	b := NewBuilderWithCapacity(a.NumStates())
	set := sparse.NewSparseSet(conv.IntToUint32(len(a.states)))

	memo := make(map[string]StateID)
	var queue [][]StateID

	intern := func(states []StateID) (StateID, error) {
		key := stateSetKey(states)
		if id, ok := memo[key]; ok {
			return id, nil
		}
		if maxStates > 0 && b.NumStates() >= maxStates {
			return InvalidState, fmt.Errorf("%w: more than %d states", ErrStateLimit, maxStates)
		}
		id := b.AddState()
		memo[key] = id
		queue = append(queue, states)
		for _, s := range states {
			b.AddActions(id, a.states[s].actions...)
		}
		return id, nil
	}

	start, err := intern(a.closure(set, []StateID{a.start}))
	if err != nil {
		return nil, err
	}
	b.SetStart(start)

	var moves []move
	var targets []StateID
	// Without label merging, distinct targets may close over the same set.
	added := make(map[move]struct{})
	for head := 0; head < len(queue); head++ {
		src := StateID(head)
		moves = moves[:0]
		for _, s := range queue[head] {
			for _, t := range a.states[s].transitions {
				if t.Label != Epsilon {
					moves = append(moves, move{t.Label, t.Target})
				}
			}
		}
		slices.SortFunc(moves, func(x, y move) int {
			if c := cmp.Compare(x.label, y.label); c != 0 {
				return c
			}
			return cmp.Compare(x.target, y.target)
		})
		moves = slices.Compact(moves)
		clear(added)

		for i := 0; i < len(moves); {
			j := i + 1
			if mergeLabels {
				for j < len(moves) && moves[j].label == moves[i].label {
					j++
				}
			}
			targets = targets[:0]
			for _, m := range moves[i:j] {
				targets = append(targets, m.target)
			}
			dst, err := intern(a.closure(set, targets))
			if err != nil {
				return nil, err
			}
			edge := move{moves[i].label, dst}
			if _, dup := added[edge]; !dup {
				added[edge] = struct{}{}
				b.AddTransition(src, edge.label, dst)
			}
			i = j
		}
	}

	return b.Build()
}

// stateSetKey encodes a sorted state set as a map key.
func stateSetKey(states []StateID) string {
	buf := make([]byte, 0, 4*len(states))
	for _, s := range states {
		buf = append(buf, byte(s), byte(s>>8), byte(s>>16), byte(s>>24))
	}
	return string(buf)
}

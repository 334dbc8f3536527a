package fsm

import (
	"fmt"
	"slices"

	"github.com/coregx/japefsm/internal/conv"
	"github.com/coregx/japefsm/internal/sparse"
	"github.com/coregx/japefsm/pattern"
)

// StateID uniquely identifies a state within one Automaton.
// Ids are dense indexes and are reassigned by every transform.
type StateID uint32

// InvalidState represents an invalid/uninitialized state ID
const InvalidState StateID = 0xFFFFFFFF

// Transition is an outgoing edge owned by its source state.
type Transition struct {
	Label  Label   `json:"label"`
	Target StateID `json:"target"`
}

// State is a node of an Automaton. A state is final iff it carries actions.
type State struct {
	id          StateID
	transitions []Transition
	actions     []*pattern.Rule
}

// ID returns the state's identifier
func (s *State) ID() StateID {
	return s.id
}

// Transitions returns a copy of the outgoing transitions in insertion order.
func (s *State) Transitions() []Transition {
	return slices.Clone(s.transitions)
}

// NumTransitions returns the number of outgoing transitions
func (s *State) NumTransitions() int {
	return len(s.transitions)
}

// Actions returns a copy of the rules attached to this state, ordered by
// rule index.
func (s *State) Actions() []*pattern.Rule {
	return slices.Clone(s.actions)
}

// IsFinal returns true if the state carries at least one action
func (s *State) IsFinal() bool {
	return len(s.actions) > 0
}

// String returns a human-readable representation of the state
func (s *State) String() string {
	if s.IsFinal() {
		return fmt.Sprintf("State(%d, %d transitions, final %v)", s.id, len(s.transitions), s.actions)
	}
	return fmt.Sprintf("State(%d, %d transitions)", s.id, len(s.transitions))
}

// Automaton is an immutable finite automaton with a single start state.
// Create one with a Builder or a Compiler.
type Automaton struct {
	states []State
	start  StateID

	numTransitions int
	hasEpsilon     bool
	deterministic  bool
}

// Start returns the start state
func (a *Automaton) Start() StateID {
	return a.start
}

// NumStates returns the number of states
func (a *Automaton) NumStates() int {
	return len(a.states)
}

// NumTransitions returns the total number of transitions
func (a *Automaton) NumTransitions() int {
	return a.numTransitions
}

// State returns the state with the given ID.
// Returns nil if the ID is out of range.
func (a *Automaton) State(id StateID) *State {
	if int(id) >= len(a.states) {
		return nil
	}
	return &a.states[id]
}

// HasEpsilon reports whether any transition is labeled epsilon.
func (a *Automaton) HasEpsilon() bool {
	return a.hasEpsilon
}

// IsDeterministic reports whether the automaton has no epsilon transitions
// and at most one transition per (state, label) pair.
func (a *Automaton) IsDeterministic() bool {
	return a.deterministic
}

// Finals returns the ids of all final states in ascending order.
func (a *Automaton) Finals() []StateID {
	var out []StateID
	for i := range a.states {
		if a.states[i].IsFinal() {
			out = append(out, StateID(i))
		}
	}
	return out
}

// Step returns the target of the first transition from id labeled l.
// On a deterministic automaton that is the only such transition.
func (a *Automaton) Step(id StateID, l Label) (StateID, bool) {
	if int(id) >= len(a.states) {
		return InvalidState, false
	}
	for _, t := range a.states[id].transitions {
		if t.Label == l {
			return t.Target, true
		}
	}
	return InvalidState, false
}

// Walk follows labels from the start state one transition at a time and
// returns the state reached. It is meant for deterministic automata.
func (a *Automaton) Walk(labels []Label) (StateID, bool) {
	cur := a.start
	for _, l := range labels {
		next, ok := a.Step(cur, l)
		if !ok {
			return InvalidState, false
		}
		cur = next
	}
	return cur, true
}

// Accepts simulates the automaton on labels, following epsilon transitions
// between steps, and returns the union of the actions of every final state
// reached after the last label. Works on any automaton.
func (a *Automaton) Accepts(labels []Label) ([]*pattern.Rule, bool) {
	set := sparse.NewSparseSet(conv.IntToUint32(len(a.states)))
	cur := a.closure(set, []StateID{a.start})
	for _, l := range labels {
		var next []StateID
		for _, s := range cur {
			for _, t := range a.states[s].transitions {
				if t.Label == l {
					next = append(next, t.Target)
				}
			}
		}
		if len(next) == 0 {
			return nil, false
		}
		cur = a.closure(set, next)
	}

	var acts actionSet
	for _, s := range cur {
		acts.add(a.states[s].actions...)
	}
	if len(acts) == 0 {
		return nil, false
	}
	return acts.sorted(), true
}

// String returns a summary of the automaton
func (a *Automaton) String() string {
	kind := "NFA"
	if a.deterministic {
		kind = "DFA"
	}
	return fmt.Sprintf("%s{states: %d, transitions: %d, start: %d}", kind, len(a.states), a.numTransitions, a.start)
}

// actionSet is a set of rules keyed by pointer identity, kept in insertion
// order. Sets are small, so membership is a linear scan.
type actionSet []*pattern.Rule

func (s *actionSet) add(rules ...*pattern.Rule) {
	for _, r := range rules {
		if r != nil && !slices.Contains(*s, r) {
			*s = append(*s, r)
		}
	}
}

// sorted returns the rules ordered by index; ties keep insertion order.
func (s actionSet) sorted() []*pattern.Rule {
	out := slices.Clone([]*pattern.Rule(s))
	slices.SortStableFunc(out, func(x, y *pattern.Rule) int {
		return x.Index - y.Index
	})
	return out
}

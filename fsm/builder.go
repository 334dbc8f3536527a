package fsm

import (
	"fmt"

	"github.com/coregx/japefsm/internal/conv"
	"github.com/coregx/japefsm/pattern"
)

// Builder constructs automata incrementally using a low-level API.
// It is the only way to create or change states; the Compiler and every
// transform use it. A Builder hands its states over on Build and must not
// be used afterwards.
type Builder struct {
	states []builderState
	start  StateID
	err    *BuildError
	built  bool
}

type builderState struct {
	transitions []Transition
	actions     actionSet
}

// NewBuilder creates a new automaton builder with default capacity
func NewBuilder() *Builder {
	return NewBuilderWithCapacity(16)
}

// NewBuilderWithCapacity creates a new builder with specified initial capacity
func NewBuilderWithCapacity(capacity int) *Builder {
	return &Builder{
		states: make([]builderState, 0, capacity),
		start:  InvalidState,
	}
}

// AddState adds a state with no transitions and returns its ID
func (b *Builder) AddState() StateID {
	b.checkUsable()
	id := StateID(conv.IntToUint32(len(b.states)))
	b.states = append(b.states, builderState{})
	return id
}

// AddTransition adds a transition from -> to labeled l.
// Invalid state references are reported by Build.
func (b *Builder) AddTransition(from StateID, l Label, to StateID) {
	b.checkUsable()
	if int(from) >= len(b.states) {
		b.fail(from, "transition from unknown state")
		return
	}
	b.states[from].transitions = append(b.states[from].transitions, Transition{Label: l, Target: to})
}

// AddActions attaches rules to a state, ignoring rules it already carries.
func (b *Builder) AddActions(id StateID, rules ...*pattern.Rule) {
	b.checkUsable()
	if int(id) >= len(b.states) {
		b.fail(id, "actions on unknown state")
		return
	}
	b.states[id].actions.add(rules...)
}

// SetStart sets the start state
func (b *Builder) SetStart(id StateID) {
	b.checkUsable()
	b.start = id
}

// NumStates returns the number of states added so far
func (b *Builder) NumStates() int {
	return len(b.states)
}

// Build validates the states and returns the finished automaton.
func (b *Builder) Build() (*Automaton, error) {
	b.checkUsable()
	b.built = true
	if b.err != nil {
		return nil, b.err
	}
	if int(b.start) >= len(b.states) {
		return nil, &BuildError{Message: "start state not set or out of range", StateID: b.start}
	}

	a := &Automaton{
		states:        make([]State, len(b.states)),
		start:         b.start,
		deterministic: true,
	}
	seen := make(map[Label]struct{})
	for i := range b.states {
		bs := &b.states[i]
		clear(seen)
		for _, t := range bs.transitions {
			if int(t.Target) >= len(b.states) {
				return nil, &BuildError{
					Message: fmt.Sprintf("transition %s targets unknown state %d", t.Label, t.Target),
					StateID: StateID(i),
				}
			}
			if t.Label == Epsilon {
				a.hasEpsilon = true
				a.deterministic = false
			}
			if _, dup := seen[t.Label]; dup {
				a.deterministic = false
			}
			seen[t.Label] = struct{}{}
		}
		a.numTransitions += len(bs.transitions)
		a.states[i] = State{
			id:          StateID(i),
			transitions: bs.transitions,
			actions:     bs.actions.sorted(),
		}
	}
	b.states = nil
	return a, nil
}

func (b *Builder) fail(id StateID, msg string) {
	if b.err == nil {
		b.err = &BuildError{Message: msg, StateID: id}
	}
}

func (b *Builder) checkUsable() {
	if b.built {
		panic("fsm: Builder used after Build")
	}
}

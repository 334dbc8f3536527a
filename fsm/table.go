package fsm

import (
	"fmt"

	"github.com/coregx/japefsm/internal/conv"
	"github.com/coregx/japefsm/pattern"
)

// Table is the serializable form of an automaton handed to matchers and
// caches. Actions are rule indexes, so a table is resolved against the rule
// list it was compiled from.
type Table struct {
	Start  StateID    `json:"start"`
	States []TableRow `json:"states"`
}

// TableRow is one state of a Table.
type TableRow struct {
	Transitions []Transition `json:"transitions,omitempty"`
	Actions     []int        `json:"actions,omitempty"`
}

// Table exports the automaton.
func (a *Automaton) Table() Table {
	t := Table{
		Start:  a.start,
		States: make([]TableRow, len(a.states)),
	}
	for i := range a.states {
		st := &a.states[i]
		row := TableRow{Transitions: st.Transitions()}
		for _, r := range st.actions {
			row.Actions = append(row.Actions, r.Index)
		}
		t.States[i] = row
	}
	return t
}

// FromTable rebuilds an automaton from a table, resolving action indexes
// against rules by Rule.Index. Tables hold deterministic automata only; a
// row with an epsilon transition or a repeated label is rejected.
func FromTable(t Table, rules []*pattern.Rule) (*Automaton, error) {
	byIndex := make(map[int]*pattern.Rule, len(rules))
	for _, r := range rules {
		byIndex[r.Index] = r
	}

	b := NewBuilderWithCapacity(len(t.States))
	for range t.States {
		b.AddState()
	}
	b.SetStart(t.Start)
	for i, row := range t.States {
		id := StateID(conv.IntToUint32(i))
		seen := make(map[Label]bool, len(row.Transitions))
		for _, tr := range row.Transitions {
			if tr.Label.IsEpsilon() {
				return nil, &BuildError{Message: "epsilon transition in table", StateID: id}
			}
			if seen[tr.Label] {
				return nil, &BuildError{Message: fmt.Sprintf("two transitions on label %s", tr.Label), StateID: id}
			}
			seen[tr.Label] = true
			b.AddTransition(id, tr.Label, tr.Target)
		}
		for _, idx := range row.Actions {
			r, ok := byIndex[idx]
			if !ok {
				return nil, &BuildError{Message: fmt.Sprintf("action refers to unknown rule index %d", idx), StateID: id}
			}
			b.AddActions(id, r)
		}
	}
	return b.Build()
}

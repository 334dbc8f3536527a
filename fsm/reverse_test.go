package fsm

import (
	"slices"
	"testing"

	"github.com/coregx/japefsm/pattern"
)

// reach returns the states reachable from the start by following labels,
// with epsilon closure between steps.
func reach(a *Automaton, labels []Label) []StateID {
	cur := a.Closure([]StateID{a.Start()})
	for _, l := range labels {
		var next []StateID
		for _, s := range cur {
			for _, t := range a.State(s).Transitions() {
				if t.Label == l {
					next = append(next, t.Target)
				}
			}
		}
		cur = a.Closure(next)
	}
	return cur
}

func TestReverse_Simple(t *testing.T) {
	r := rule("R", 0, leaf("A"), leaf("B"))
	c := compileRules(t, r)
	fwd := Minimize(c.nfa)
	rev := Reverse(fwd)

	if rev.NumStates() != fwd.NumStates()+1 {
		t.Errorf("reverse states = %d, want %d", rev.NumStates(), fwd.NumStates()+1)
	}
	if rev.Start() != 0 || !rev.HasEpsilon() {
		t.Error("reverse should start at a fresh state with epsilon edges")
	}

	// Finals keep their actions at id+1.
	for _, f := range fwd.Finals() {
		if !sameRules(rev.State(f+1).Actions(), fwd.State(f).Actions()) {
			t.Errorf("final %d lost its actions", f)
		}
	}

	// B A read backwards from the final reaches the mirror of the start.
	got := reach(rev, c.labels("B", "A"))
	if !slices.Contains(got, fwd.Start()+1) {
		t.Errorf("reverse path B A reaches %v, want %d among them", got, fwd.Start()+1)
	}
	if got := reach(rev, c.labels("A", "B")); len(got) != 0 {
		t.Errorf("forward order should not be readable in reverse, reached %v", got)
	}
}

func TestReverse_TransitionsMirrored(t *testing.T) {
	c := compileRules(t, phaseRules()...)
	fwd := Determinize(c.nfa)
	rev := Reverse(fwd)

	finals := 0
	for i := 0; i < fwd.NumStates(); i++ {
		for _, tr := range fwd.State(StateID(i)).Transitions() {
			back := Transition{Label: tr.Label, Target: StateID(i) + 1}
			if !slices.Contains(rev.State(tr.Target+1).Transitions(), back) {
				t.Errorf("missing reversed edge %d -%s-> %d", tr.Target+1, tr.Label, i+1)
			}
		}
		if fwd.State(StateID(i)).IsFinal() {
			finals++
		}
	}
	if n := len(rev.State(rev.Start()).Transitions()); n != finals {
		t.Errorf("fresh start has %d epsilon edges, want %d", n, finals)
	}
	if rev.NumTransitions() != fwd.NumTransitions()+finals {
		t.Errorf("transition count %d, want %d", rev.NumTransitions(), fwd.NumTransitions()+finals)
	}
}

func TestReverse_Twice(t *testing.T) {
	c := compileRules(t, rule("R", 0, leaf("A"), pattern.Plus(leaf("B"))))
	fwd := Minimize(c.nfa)
	back := Reverse(Reverse(fwd))
	// Mirror of the original start sits at Start()+2 after two reversals.
	start := fwd.Start() + 2
	for _, seq := range [][]string{{"A", "B"}, {"A", "B", "B"}} {
		cur := []StateID{start}
		for _, l := range c.labels(seq...) {
			var next []StateID
			for _, s := range cur {
				for _, tr := range back.State(s).Transitions() {
					if tr.Label == l {
						next = append(next, tr.Target)
					}
				}
			}
			cur = next
		}
		final := false
		for _, s := range cur {
			final = final || back.State(s).IsFinal()
		}
		if !final {
			t.Errorf("%v not accepted from the doubly mirrored start", seq)
		}
	}
}

package fsm

import (
	"testing"

	"github.com/coregx/japefsm/alphabet"
	"github.com/coregx/japefsm/pattern"
)

func leaf(typ string) *pattern.MatcherElement {
	return pattern.Leaf(pattern.TypeMatcher{Type: typ})
}

func rule(name string, index int, lhs ...pattern.Element) *pattern.Rule {
	return &pattern.Rule{Name: name, Index: index, LHS: lhs}
}

// compiled bundles an NFA with the alphabets its labels came from.
type compiled struct {
	nfa      *Automaton
	matchers *alphabet.Alphabet[pattern.Matcher]
	groups   *alphabet.Alphabet[string]
}

func compileRules(t *testing.T, rules ...*pattern.Rule) compiled {
	t.Helper()
	c := NewCompiler(DefaultCompilerConfig(), nil, nil)
	a, err := c.Compile(rules)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return compiled{nfa: a, matchers: c.Matchers(), groups: c.Groups()}
}

// labels maps type names to their matcher labels. Names never interned get
// a label past the alphabet so that they match nothing.
func (c compiled) labels(types ...string) []Label {
	out := make([]Label, len(types))
	for i, typ := range types {
		id, ok := c.matchers.ID(pattern.TypeMatcher{Type: typ})
		if !ok {
			id = c.matchers.Len() + 1 + i
		}
		out[i] = MatcherLabel(id)
	}
	return out
}

func repeat(typ string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = typ
	}
	return out
}

// assertDeterministic checks determinism and the absence of epsilon
// transitions state by state instead of trusting the cached flags.
func assertDeterministic(t *testing.T, a *Automaton) {
	t.Helper()
	for i := 0; i < a.NumStates(); i++ {
		seen := map[Label]bool{}
		for _, tr := range a.State(StateID(i)).Transitions() {
			if tr.Label == Epsilon {
				t.Errorf("state %d has an epsilon transition", i)
			}
			if seen[tr.Label] {
				t.Errorf("state %d has two transitions on %s", i, tr.Label)
			}
			seen[tr.Label] = true
		}
	}
	if !a.IsDeterministic() || a.HasEpsilon() {
		t.Errorf("flags: deterministic=%v epsilon=%v", a.IsDeterministic(), a.HasEpsilon())
	}
}

// walkAccepts runs a deterministic walk and reports whether it ends in a
// final state.
func walkAccepts(a *Automaton, labels []Label) bool {
	id, ok := a.Walk(labels)
	return ok && a.State(id).IsFinal()
}

func ruleNames(rules []*pattern.Rule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Name
	}
	return out
}

func sameRules(a, b []*pattern.Rule) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sequences enumerates every label sequence over symbols up to maxLen.
func sequences(symbols []Label, maxLen int) [][]Label {
	out := [][]Label{{}}
	frontier := [][]Label{{}}
	for n := 1; n <= maxLen; n++ {
		var next [][]Label
		for _, prefix := range frontier {
			for _, l := range symbols {
				seq := append(append([]Label(nil), prefix...), l)
				next = append(next, seq)
			}
		}
		out = append(out, next...)
		frontier = next
	}
	return out
}

package japefsm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/coregx/japefsm/fsm"
	"github.com/coregx/japefsm/pattern"
)

func typ(name string) *pattern.MatcherElement {
	return pattern.Leaf(pattern.TypeMatcher{Type: name})
}

func titlePhase() *pattern.Phase {
	mr, _ := pattern.NewFeatureMatcher("Token", "string", pattern.Equal, "Mr")
	dr, _ := pattern.NewFeatureMatcher("Token", "string", pattern.Equal, "Dr")
	upper, _ := pattern.NewFeatureMatcher("Token", "orth", pattern.Equal, "upperInitial")
	return &pattern.Phase{
		Name: "Titles",
		Rules: []*pattern.Rule{
			{Name: "Title", Priority: 20, Index: 0, LHS: []pattern.Element{
				pattern.Bind("person", pattern.Seq(
					pattern.Or(pattern.Leaf(mr), pattern.Leaf(dr)),
					pattern.Plus(pattern.Leaf(upper)),
				)),
			}},
			{Name: "Location", Priority: 10, Index: 1, LHS: []pattern.Element{typ("Lookup")}},
		},
	}
}

func TestCompile(t *testing.T) {
	g, err := Compile(titlePhase(), DefaultConfig())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	a := g.Automaton()
	if !a.IsDeterministic() {
		t.Error("compiled automaton is not deterministic")
	}
	st := g.Stats()
	if st.Rules != 2 || st.Matchers != 4 || st.Groups != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.MinimizedStates > st.DFAStates || st.DFAStates == 0 || st.NFAStates == 0 {
		t.Errorf("implausible stage sizes: %s", st)
	}
	if g.NFA().IsDeterministic() {
		t.Error("NFA should keep its epsilon transitions")
	}
	if g.Phase().Name != "Titles" {
		t.Errorf("Phase() = %q", g.Phase().Name)
	}
}

func TestCompile_WithoutMinimize(t *testing.T) {
	g, err := Compile(titlePhase(), DefaultConfig().WithMinimize(false))
	if err != nil {
		t.Fatal(err)
	}
	if g.Stats().MinimizedStates != g.Stats().DFAStates {
		t.Error("without minimization the final automaton is the DFA")
	}
}

func TestGrammar_Labels(t *testing.T) {
	g := MustCompile(titlePhase(), DefaultConfig())

	seen := map[string]bool{}
	for i := 0; i < g.Automaton().NumStates(); i++ {
		for _, tr := range g.Automaton().State(fsm.StateID(i)).Transitions() {
			seen[g.LabelString(tr.Label)] = true
		}
	}
	for _, want := range []string{`{Token.string == "Mr"}`, `{Lookup}`, `(`, `)person`} {
		if !seen[want] {
			t.Errorf("label %q not found among %v", want, seen)
		}
	}

	if _, ok := g.Matcher(fsm.GroupStart); ok {
		t.Error("group start resolved as a matcher")
	}
	if name, ok := g.Group(fsm.GroupEnd(1)); !ok || name != "person" {
		t.Errorf("Group(GroupEnd(1)) = %q, %v", name, ok)
	}
	if _, ok := g.Group(fsm.MatcherLabel(1)); ok {
		t.Error("matcher label resolved as a group")
	}
	if got := g.LabelString(fsm.MatcherLabel(999)); got != "m#999" {
		t.Errorf("unknown label rendered as %q", got)
	}
}

func TestGrammar_WriteDot(t *testing.T) {
	g := MustCompile(titlePhase(), DefaultConfig())
	var buf bytes.Buffer
	if err := g.WriteDot(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `[label="{Token.string == \"Dr\"}"]`) {
		t.Errorf("dot output lacks escaped matcher label:\n%s", buf.String())
	}
}

func TestCompile_Errors(t *testing.T) {
	bad := &pattern.Phase{Name: "Bad", Rules: []*pattern.Rule{
		{Name: "Empty", LHS: []pattern.Element{pattern.Or()}},
	}}
	if _, err := Compile(bad, DefaultConfig()); !errors.Is(err, fsm.ErrEmptyPattern) {
		t.Errorf("expected ErrEmptyPattern, got %v", err)
	}

	if _, err := Compile(nil, DefaultConfig()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil phase, got %v", err)
	}

	ab := func() pattern.Element { return pattern.Or(typ("A"), typ("B")) }
	explosive := &pattern.Phase{Name: "Blowup", Rules: []*pattern.Rule{
		{Name: "R", LHS: []pattern.Element{pattern.Star(ab()), typ("A"), pattern.Repeat(ab(), 8, 8)}},
	}}
	if _, err := Compile(explosive, DefaultConfig().WithMaxStates(200)); !errors.Is(err, fsm.ErrStateLimit) {
		t.Errorf("expected ErrStateLimit, got %v", err)
	}
}

func TestMustCompile_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCompile should panic on an invalid phase")
		}
	}()
	MustCompile(&pattern.Phase{Rules: []*pattern.Rule{{Name: "Empty"}}}, DefaultConfig())
}

func TestCompile_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	if _, err := Compile(titlePhase(), DefaultConfig().WithLogger(logger)); err != nil {
		t.Fatal(err)
	}
	for _, msg := range []string{"built NFA", "determinized", "minimized"} {
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("log lacks %q:\n%s", msg, buf.String())
		}
	}
}

func TestRestore(t *testing.T) {
	phase := titlePhase()
	g := MustCompile(phase, DefaultConfig())

	r, err := Restore(phase, DefaultConfig(), g.Automaton().Table())
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if r.Automaton().NumStates() != g.Automaton().NumStates() {
		t.Errorf("restored %d states, want %d", r.Automaton().NumStates(), g.Automaton().NumStates())
	}
	if r.LabelString(fsm.MatcherLabel(1)) != g.LabelString(fsm.MatcherLabel(1)) {
		t.Error("restored grammar resolves labels differently")
	}
}

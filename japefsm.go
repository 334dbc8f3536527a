// Package japefsm compiles phases of prioritized annotation-pattern rules
// into minimized deterministic automata.
//
// A phase is a list of rules whose left-hand sides are pattern element
// trees over annotation matchers. Compile turns the whole phase into one
// automaton: every matcher and named group is interned into a small integer
// label, the rules are built into an epsilon-NFA sharing a start state,
// the NFA is determinized by subset construction and minimized by Hopcroft
// partition refinement. Final states carry the set of rules that fire there.
//
// Basic usage:
//
//	phase := &pattern.Phase{Name: "Titles", Rules: rules}
//	g, err := japefsm.Compile(phase, japefsm.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(g.Stats())
//	g.WriteDot(os.Stdout)
//
// The compiled Grammar is read-only and safe for concurrent use. Resolving
// several rules on one final state to a fired action is left to the
// runtime package.
package japefsm

import (
	"fmt"
	"io"
	"time"

	"github.com/coregx/japefsm/alphabet"
	"github.com/coregx/japefsm/fsm"
	"github.com/coregx/japefsm/pattern"
)

// Grammar is a compiled phase.
type Grammar struct {
	phase    *pattern.Phase
	nfa      *fsm.Automaton
	dfa      *fsm.Automaton
	matchers *alphabet.Alphabet[pattern.Matcher]
	groups   *alphabet.Alphabet[string]
	stats    Stats
}

// Stats describes the size of each compilation stage.
type Stats struct {
	Rules    int `json:"rules"`
	Matchers int `json:"matchers"`
	Groups   int `json:"groups"`

	NFAStates            int `json:"nfa_states"`
	NFATransitions       int `json:"nfa_transitions"`
	DFAStates            int `json:"dfa_states"`
	DFATransitions       int `json:"dfa_transitions"`
	MinimizedStates      int `json:"minimized_states"`
	MinimizedTransitions int `json:"minimized_transitions"`

	Elapsed time.Duration `json:"elapsed"`
}

// String returns a one-line summary
func (s Stats) String() string {
	return fmt.Sprintf("rules=%d matchers=%d nfa=%d/%d dfa=%d/%d min=%d/%d in %s",
		s.Rules, s.Matchers,
		s.NFAStates, s.NFATransitions,
		s.DFAStates, s.DFATransitions,
		s.MinimizedStates, s.MinimizedTransitions,
		s.Elapsed)
}

// Compile compiles a phase.
//
// Returns an error if the configuration is invalid, a rule cannot be
// compiled (see fsm.CompileError) or an automaton exceeds cfg.MaxStates.
func Compile(phase *pattern.Phase, cfg Config) (*Grammar, error) {
	total := time.Now()
	g, err := compileNFA(phase, cfg)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger.With().Str("phase", phase.Name).Logger()
	began := time.Now()

	dfa, err := fsm.DeterminizeLimit(g.nfa, cfg.MaxStates)
	if err != nil {
		return nil, fmt.Errorf("phase %s: %w", phase.Name, err)
	}
	g.stats.DFAStates = dfa.NumStates()
	g.stats.DFATransitions = dfa.NumTransitions()
	log.Debug().
		Int("states", dfa.NumStates()).
		Int("transitions", dfa.NumTransitions()).
		Dur("took", time.Since(began)).
		Msg("determinized")

	g.dfa = dfa
	if cfg.Minimize {
		began = time.Now()
		g.dfa = fsm.Minimize(dfa)
		log.Debug().
			Int("states", g.dfa.NumStates()).
			Int("transitions", g.dfa.NumTransitions()).
			Dur("took", time.Since(began)).
			Msg("minimized")
	}
	g.stats.MinimizedStates = g.dfa.NumStates()
	g.stats.MinimizedTransitions = g.dfa.NumTransitions()
	g.stats.Elapsed = time.Since(total)
	return g, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(phase *pattern.Phase, cfg Config) *Grammar {
	g, err := Compile(phase, cfg)
	if err != nil {
		panic(`japefsm: Compile(` + phase.Name + `): ` + err.Error())
	}
	return g
}

// Restore rebuilds a Grammar from a previously exported table, skipping
// determinization and minimization. The phase is still compiled to an NFA
// so that labels resolve against freshly interned alphabets; interning is
// deterministic, so the table's labels agree as long as the phase is
// unchanged.
func Restore(phase *pattern.Phase, cfg Config, table fsm.Table) (*Grammar, error) {
	g, err := compileNFA(phase, cfg)
	if err != nil {
		return nil, err
	}
	a, err := fsm.FromTable(table, phase.Rules)
	if err != nil {
		return nil, fmt.Errorf("phase %s: restore: %w", phase.Name, err)
	}
	g.dfa = a
	g.stats.MinimizedStates = a.NumStates()
	g.stats.MinimizedTransitions = a.NumTransitions()
	cfg.Logger.Debug().Str("phase", phase.Name).Int("states", a.NumStates()).Msg("restored from table")
	return g, nil
}

func compileNFA(phase *pattern.Phase, cfg Config) (*Grammar, error) {
	if phase == nil {
		return nil, fmt.Errorf("%w: nil phase", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	began := time.Now()

	g := &Grammar{
		phase:    phase,
		matchers: alphabet.New[pattern.Matcher](),
		groups:   alphabet.New[string](),
	}
	c := fsm.NewCompiler(fsm.CompilerConfig{
		MaxRecursionDepth: cfg.MaxRecursionDepth,
		MaxStates:         cfg.MaxStates,
	}, g.matchers, g.groups)

	nfa, err := c.Compile(phase.Rules)
	if err != nil {
		return nil, fmt.Errorf("phase %s: %w", phase.Name, err)
	}
	g.nfa = nfa
	g.stats = Stats{
		Rules:          len(phase.Rules),
		Matchers:       g.matchers.Len(),
		Groups:         g.groups.Len(),
		NFAStates:      nfa.NumStates(),
		NFATransitions: nfa.NumTransitions(),
		Elapsed:        time.Since(began),
	}
	cfg.Logger.Debug().
		Str("phase", phase.Name).
		Int("rules", len(phase.Rules)).
		Int("matchers", g.matchers.Len()).
		Int("states", nfa.NumStates()).
		Int("transitions", nfa.NumTransitions()).
		Msg("built NFA")
	return g, nil
}

// Phase returns the compiled phase
func (g *Grammar) Phase() *pattern.Phase {
	return g.phase
}

// Automaton returns the final automaton: minimized unless disabled in the
// Config, always deterministic.
func (g *Grammar) Automaton() *fsm.Automaton {
	return g.dfa
}

// NFA returns the epsilon-NFA the phase was built into
func (g *Grammar) NFA() *fsm.Automaton {
	return g.nfa
}

// Stats returns stage sizes
func (g *Grammar) Stats() Stats {
	return g.stats
}

// Matcher resolves a consuming label to its matcher.
func (g *Grammar) Matcher(l fsm.Label) (pattern.Matcher, bool) {
	if !l.IsMatcher() {
		return nil, false
	}
	return g.matchers.Value(l.MatcherID())
}

// Group resolves a group end label to its binding name.
func (g *Grammar) Group(l fsm.Label) (string, bool) {
	if !l.IsGroupEnd() {
		return "", false
	}
	return g.groups.Value(l.GroupID())
}

// LabelString renders a label in rule-file terms: the matcher source for
// consuming labels, "(" and ")name" for group markers.
func (g *Grammar) LabelString(l fsm.Label) string {
	if m, ok := g.Matcher(l); ok {
		return m.String()
	}
	if name, ok := g.Group(l); ok {
		return ")" + name
	}
	return l.String()
}

// WriteDot writes the final automaton as a Graphviz graph with readable
// labels.
func (g *Grammar) WriteDot(w io.Writer) error {
	return fsm.WriteDot(w, g.dfa, fsm.WithLabeler(g.LabelString))
}

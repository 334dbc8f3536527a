// Package runtime applies a compiled phase to an annotated document.
//
// The input annotations of a document are read in document order. From
// each start offset the phase automaton is searched depth first: group
// markers are followed without consuming anything and record bindings,
// matcher labels consume the next annotation. The annotation following a
// match ending at offset e is any input annotation starting at the first
// start offset at or after e. The phase's control style then decides which
// of the matches found fire.
package runtime

import (
	"slices"
	"sort"

	"github.com/rs/zerolog"

	"github.com/coregx/japefsm"
	"github.com/coregx/japefsm/annot"
	"github.com/coregx/japefsm/fsm"
	"github.com/coregx/japefsm/pattern"
)

// SpaceTokenType is skipped unless a phase lists it in its input.
const SpaceTokenType = "SpaceToken"

// Option configures a Transducer.
type Option func(*Transducer)

// WithInput overrides the phase's input annotation types.
func WithInput(types ...string) Option {
	return func(t *Transducer) {
		if len(types) > 0 {
			t.input = types
		}
	}
}

// WithControl overrides the phase's control style.
func WithControl(c pattern.Control) Option {
	return func(t *Transducer) {
		t.control = c
	}
}

// WithLogger sets the logger receiving per-document statistics.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Transducer) {
		t.log = l
	}
}

// Transducer runs one compiled phase over documents.
// It is safe for concurrent use on distinct documents.
type Transducer struct {
	g       *japefsm.Grammar
	dfa     *fsm.Automaton
	input   []string
	control pattern.Control
	log     zerolog.Logger
}

// New returns a Transducer for g using the phase's input and control style
// unless overridden.
func New(g *japefsm.Grammar, opts ...Option) *Transducer {
	p := g.Phase()
	t := &Transducer{
		g:       g,
		dfa:     g.Automaton(),
		input:   p.Input,
		control: p.Control,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Control returns the effective control style.
func (t *Transducer) Control() pattern.Control {
	return t.control
}

// Match is one firing of a rule.
type Match struct {
	Rule       *pattern.Rule
	Start, End int
	// Annotations are the consumed input annotations in order.
	Annotations []*annot.Annotation
	// Bindings maps group names to the annotations consumed inside them.
	Bindings map[string][]*annot.Annotation
}

// Span returns the offsets covered by a binding.
func (m Match) Span(binding string) (start, end int, ok bool) {
	anns := m.Bindings[binding]
	if len(anns) == 0 {
		return 0, 0, false
	}
	start, end = anns[0].Start, anns[0].End
	for _, a := range anns[1:] {
		start = min(start, a.Start)
		end = max(end, a.End)
	}
	return start, end, true
}

// Feature returns the feature of the first annotation of type typ bound to
// binding that has it.
func (m Match) Feature(binding, typ, feature string) (any, bool) {
	for _, a := range m.Bindings[binding] {
		if a.Type != typ {
			continue
		}
		if v, ok := a.Feature(feature); ok {
			return v, true
		}
	}
	return nil, false
}

// inputAnnotations returns the annotations the phase reads, in document
// order. Empty annotations are never input.
func (t *Transducer) inputAnnotations(doc *annot.Document) []*annot.Annotation {
	all := doc.ByType(t.input...)
	out := all[:0]
	for _, a := range all {
		if a.Start == a.End {
			continue
		}
		if len(t.input) == 0 && a.Type == SpaceTokenType {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Matches returns the matches that fire on doc, in document order,
// without changing the document.
func (t *Transducer) Matches(doc *annot.Document) []Match {
	anns := t.inputAnnotations(doc)
	var out []Match

	for i := 0; i < len(anns); {
		pos := anns[i].Start
		s := &search{t: t, doc: doc, anns: anns, seen: make(map[matchKey]bool)}
		s.visit(t.dfa.Start(), pos, 0)

		fired, end := t.choose(s.found)
		out = append(out, fired...)
		if len(fired) > 0 && t.control == pattern.Once {
			break
		}
		if len(fired) > 0 && t.control != pattern.All {
			i = firstAtOrAfter(anns, end)
			continue
		}
		i = firstAtOrAfter(anns, pos+1)
	}
	return out
}

// Apply fires the matching rules on doc, adding one annotation per action,
// and returns the added annotations. Matching completes before any
// annotation is added, so a phase never reads its own output.
func (t *Transducer) Apply(doc *annot.Document) ([]*annot.Annotation, error) {
	matches := t.Matches(doc)

	var added []*annot.Annotation
	for _, m := range matches {
		if t.g.Phase().Debug {
			t.log.Info().
				Str("phase", t.g.Phase().Name).
				Str("rule", m.Rule.Name).
				Int("start", m.Start).
				Int("end", m.End).
				Str("text", doc.Span(m.Start, m.End)).
				Msg("rule fired")
		}
		anns, err := fire(doc, m)
		if err != nil {
			return added, err
		}
		added = append(added, anns...)
	}

	t.log.Debug().
		Str("phase", t.g.Phase().Name).
		Str("document", doc.Name).
		Stringer("control", t.control).
		Int("matches", len(matches)).
		Int("annotations", len(added)).
		Msg("applied phase")
	return added, nil
}

// fire creates the annotations of m's actions. Actions on a binding that
// did not take part in the match are skipped, as are references to
// missing features.
func fire(doc *annot.Document, m Match) ([]*annot.Annotation, error) {
	var out []*annot.Annotation
	for _, rhs := range m.Rule.RHS {
		start, end := m.Start, m.End
		if rhs.Binding != "" {
			var ok bool
			if start, end, ok = m.Span(rhs.Binding); !ok {
				continue
			}
		}

		features := make(map[string]any, len(rhs.Features))
		for _, fv := range rhs.Features {
			if fv.Ref == nil {
				features[fv.Name] = fv.Literal
				continue
			}
			if v, ok := m.Feature(fv.Ref.Binding, fv.Ref.Type, fv.Ref.Feature); ok {
				features[fv.Name] = v
			}
		}

		a, err := doc.Add(rhs.Type, start, end, features)
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}

// choose applies the control style to the matches found from one start
// offset and returns the fired matches and the offset to resume from.
func (t *Transducer) choose(found []Match) ([]Match, int) {
	if len(found) == 0 {
		return nil, 0
	}

	switch t.control {
	case pattern.All:
		sort.SliceStable(found, func(i, j int) bool {
			if found[i].End != found[j].End {
				return found[i].End > found[j].End
			}
			return found[i].Rule.Index < found[j].Rule.Index
		})
		return found, found[0].End

	case pattern.Brill:
		longest := 0
		for _, m := range found {
			longest = max(longest, m.End)
		}
		var out []Match
		for _, m := range found {
			if m.End == longest {
				out = append(out, m)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rule.Index < out[j].Rule.Index })
		return out, longest

	case pattern.First:
		best := found[0]
		for _, m := range found[1:] {
			if m.End < best.End || (m.End == best.End && better(m, best)) {
				best = m
			}
		}
		return []Match{best}, best.End

	default:
		best := found[0]
		for _, m := range found[1:] {
			if better(m, best) {
				best = m
			}
		}
		return []Match{best}, best.End
	}
}

// better orders appelt candidates: longer, then higher priority, then
// declared earlier.
func better(a, b Match) bool {
	if a.End != b.End {
		return a.End > b.End
	}
	if a.Rule.Priority != b.Rule.Priority {
		return a.Rule.Priority > b.Rule.Priority
	}
	return a.Rule.Index < b.Rule.Index
}

// firstAtOrAfter returns the index of the first annotation starting at or
// after pos.
func firstAtOrAfter(anns []*annot.Annotation, pos int) int {
	return sort.Search(len(anns), func(i int) bool { return anns[i].Start >= pos })
}

type matchKey struct {
	rule *pattern.Rule
	end  int
}

type binding struct {
	name     string
	from, to int
}

// search is the depth-first walk from one start offset.
type search struct {
	t    *Transducer
	doc  *annot.Document
	anns []*annot.Annotation

	path  []*annot.Annotation
	open  []int // path lengths at unclosed group starts
	binds []binding

	found []Match
	seen  map[matchKey]bool
}

// visit explores state with the next annotation starting at or after pos.
// idle counts marker steps since the last consumed annotation; a longer
// run than the automaton has states can only be a marker cycle.
func (s *search) visit(id fsm.StateID, pos, idle int) {
	st := s.t.dfa.State(id)
	if st.IsFinal() && len(s.path) > 0 {
		s.accept(st)
	}
	if idle > s.t.dfa.NumStates() {
		return
	}

	var next []*annot.Annotation
	if i := firstAtOrAfter(s.anns, pos); i < len(s.anns) {
		j := i
		for j < len(s.anns) && s.anns[j].Start == s.anns[i].Start {
			j++
		}
		next = s.anns[i:j]
	}

	for _, tr := range st.Transitions() {
		switch {
		case tr.Label.IsGroupStart():
			s.open = append(s.open, len(s.path))
			s.visit(tr.Target, pos, idle+1)
			s.open = s.open[:len(s.open)-1]

		case tr.Label.IsGroupEnd():
			if len(s.open) == 0 {
				continue
			}
			from := s.open[len(s.open)-1]
			s.open = s.open[:len(s.open)-1]
			name, _ := s.t.g.Group(tr.Label)
			s.binds = append(s.binds, binding{name: name, from: from, to: len(s.path)})
			s.visit(tr.Target, pos, idle+1)
			s.binds = s.binds[:len(s.binds)-1]
			s.open = append(s.open, from)

		case tr.Label.IsMatcher():
			m, ok := s.t.g.Matcher(tr.Label)
			if !ok {
				continue
			}
			for _, a := range next {
				if !m.Match(a, s.doc) {
					continue
				}
				s.path = append(s.path, a)
				s.visit(tr.Target, a.End, 0)
				s.path = s.path[:len(s.path)-1]
			}
		}
	}
}

// accept records one match per rule on st; the first path to reach a
// given (rule, end) pair wins.
func (s *search) accept(st *fsm.State) {
	start, end := s.path[0].Start, s.path[len(s.path)-1].End
	var bindings map[string][]*annot.Annotation
	for _, b := range s.binds {
		if b.from == b.to {
			continue
		}
		if bindings == nil {
			bindings = make(map[string][]*annot.Annotation)
		}
		bindings[b.name] = append(bindings[b.name], s.path[b.from:b.to]...)
	}

	for _, r := range st.Actions() {
		key := matchKey{rule: r, end: end}
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.found = append(s.found, Match{
			Rule:        r,
			Start:       start,
			End:         end,
			Annotations: slices.Clone(s.path),
			Bindings:    bindings,
		})
	}
}

// Package jape parses rule files into pattern phases.
//
// A rule file declares one phase:
//
//	Phase: Names
//	Input: Token Lookup
//	Options: control = appelt
//
//	Rule: PersonTitle
//	Priority: 20
//	(
//	  ({Token.string == "Mr"} | {Token.string == "Dr"})
//	  ({Token.orth == upperInitial})+
//	):person
//	-->
//	:person.Person = {rule = "PersonTitle", title = :person.Token.string}
//
// Constraints are written {Type}, {Type.feature op value} or {!...}; a
// comma-separated list inside one pair of braces must hold together.
// Elements repeat with ?, *, +, [n], [n,] and [n,m].
package jape

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/coregx/japefsm/pattern"
)

// DefaultPriority is assigned to rules without a Priority: line.
const DefaultPriority = -1

var (
	// ErrSyntax is wrapped by errors reported by the grammar.
	ErrSyntax = errors.New("syntax error")
	// ErrSemantic is wrapped by well-formed input that cannot be turned into
	// a phase, such as an unknown binding or option.
	ErrSemantic = errors.New("invalid rule file")
)

// Error is a parse error at a position of the rule file.
type Error struct {
	Pos lexer.Position
	Msg string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ParseFile reads and parses the rule file at path.
func ParseFile(path string) (*pattern.Phase, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	return Parse(path, src)
}

// ParseString parses src; filename is used in error positions only.
func ParseString(filename, src string) (*pattern.Phase, error) {
	return Parse(filename, []byte(src))
}

// Parse parses src; filename is used in error positions only.
func Parse(filename string, src []byte) (*pattern.Phase, error) {
	ast, err := parser.ParseBytes(filename, src)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			return nil, &Error{Pos: perr.Position(), Msg: perr.Message(), Err: ErrSyntax}
		}
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	c := &converter{matchers: make(map[string]pattern.Matcher)}
	return c.phase(ast)
}

// converter turns the syntax tree into the pattern model. Constraints with
// the same source form share one Matcher value so they compile to a single
// label.
type converter struct {
	matchers map[string]pattern.Matcher
	bindings map[string]bool
}

func semanticError(pos lexer.Position, format string, args ...any) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...), Err: ErrSemantic}
}

func (c *converter) phase(f *fileAST) (*pattern.Phase, error) {
	p := &pattern.Phase{Name: f.Phase, Input: f.Input, Control: pattern.Appelt}

	for _, opt := range f.Options {
		switch opt.Key {
		case "control":
			ctl, err := pattern.ParseControl(opt.Value)
			if err != nil {
				return nil, &Error{Pos: opt.Pos, Msg: err.Error(), Err: ErrSemantic}
			}
			p.Control = ctl
		case "debug":
			debug, err := strconv.ParseBool(opt.Value)
			if err != nil {
				return nil, semanticError(opt.Pos, "option debug wants true or false, got %q", opt.Value)
			}
			p.Debug = debug
		default:
			return nil, semanticError(opt.Pos, "unknown option %q", opt.Key)
		}
	}

	seen := make(map[string]bool, len(f.Rules))
	for i, r := range f.Rules {
		if seen[r.Name] {
			return nil, semanticError(r.Pos, "duplicate rule %q", r.Name)
		}
		seen[r.Name] = true

		rule, err := c.rule(r, i)
		if err != nil {
			return nil, err
		}
		p.Rules = append(p.Rules, rule)
	}
	return p, nil
}

func (c *converter) rule(r *ruleAST, index int) (*pattern.Rule, error) {
	c.bindings = make(map[string]bool)
	rule := &pattern.Rule{Name: r.Name, Priority: DefaultPriority, Index: index}
	if r.Priority != nil {
		rule.Priority = *r.Priority
	}

	if len(r.LHS.Alts) == 1 {
		for _, t := range r.LHS.Alts[0].Terms {
			e, err := c.term(t)
			if err != nil {
				return nil, err
			}
			rule.LHS = append(rule.LHS, e)
		}
	} else {
		e, err := c.alternation(r.LHS, "")
		if err != nil {
			return nil, err
		}
		rule.LHS = []pattern.Element{e}
	}

	for _, a := range r.RHS {
		rhs, err := c.action(a)
		if err != nil {
			return nil, err
		}
		rule.RHS = append(rule.RHS, rhs)
	}
	return rule, nil
}

// alternation converts a group body. A single unnamed child is returned
// as is.
func (c *converter) alternation(g *altAST, name string) (pattern.Element, error) {
	if name != "" {
		if c.bindings[name] {
			return nil, semanticError(g.Pos, "duplicate binding %q", name)
		}
		c.bindings[name] = true
	}

	if len(g.Alts) == 1 {
		return c.sequence(g.Alts[0], name)
	}
	elems := make([]pattern.Element, 0, len(g.Alts))
	for _, s := range g.Alts {
		e, err := c.sequence(s, "")
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	return &pattern.GroupElement{Name: name, Op: pattern.OpOr, Elements: elems}, nil
}

func (c *converter) sequence(s *seqAST, name string) (pattern.Element, error) {
	elems := make([]pattern.Element, 0, len(s.Terms))
	for _, t := range s.Terms {
		e, err := c.term(t)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if len(elems) == 1 && name == "" {
		return elems[0], nil
	}
	return &pattern.GroupElement{Name: name, Op: pattern.OpSeq, Elements: elems}, nil
}

func (c *converter) term(t *termAST) (pattern.Element, error) {
	e, err := c.atom(t.Atom)
	if err != nil || t.Quant == nil {
		return e, err
	}

	q := t.Quant
	switch q.Op {
	case "?":
		return pattern.Optional(e), nil
	case "*":
		return pattern.Star(e), nil
	case "+":
		return pattern.Plus(e), nil
	}

	lo, hi := *q.Min, *q.Min
	switch {
	case q.Comma && q.Max == nil:
		hi = pattern.Unbounded
	case q.Comma:
		hi = *q.Max
	case q.Max != nil:
		return nil, semanticError(q.Pos, "expected ',' between repetition bounds")
	}
	if lo < 0 {
		return nil, semanticError(q.Pos, "negative repetition count %d", lo)
	}
	if hi != pattern.Unbounded && hi < lo {
		return nil, semanticError(q.Pos, "repetition maximum %d below minimum %d", hi, lo)
	}
	return pattern.Repeat(e, lo, hi), nil
}

func (c *converter) atom(a *atomAST) (pattern.Element, error) {
	if a.Group != nil {
		return c.alternation(a.Group, a.Binding)
	}

	tests := make([]pattern.Matcher, 0, len(a.Constraint))
	for _, t := range a.Constraint {
		m, err := c.test(t)
		if err != nil {
			return nil, err
		}
		tests = append(tests, m)
	}
	if len(tests) == 1 {
		return pattern.Leaf(tests[0]), nil
	}
	return pattern.Leaf(c.intern(&pattern.AllOf{Matchers: tests})), nil
}

func (c *converter) test(t *testAST) (pattern.Matcher, error) {
	var m pattern.Matcher = pattern.TypeMatcher{Type: t.Type}
	if t.Feature != "" {
		op, err := pattern.ParseComparison(t.Op)
		if err != nil {
			return nil, &Error{Pos: t.Pos, Msg: err.Error(), Err: ErrSemantic}
		}
		fm, err := pattern.NewFeatureMatcher(t.Type, t.Feature, op, t.Value)
		if err != nil {
			return nil, &Error{Pos: t.Pos, Msg: err.Error(), Err: err}
		}
		m = fm
	}
	if t.Not {
		m = pattern.NotMatcher{Inner: m}
	}
	return c.intern(m), nil
}

func (c *converter) intern(m pattern.Matcher) pattern.Matcher {
	key := m.String()
	if prev, ok := c.matchers[key]; ok {
		return prev
	}
	c.matchers[key] = m
	return m
}

func (c *converter) action(a *actionAST) (pattern.SimpleRHS, error) {
	if a.Binding != "" && !c.bindings[a.Binding] {
		return pattern.SimpleRHS{}, semanticError(a.Pos, "unknown binding %q", a.Binding)
	}

	rhs := pattern.SimpleRHS{Binding: a.Binding, Type: a.Type}
	for _, fv := range a.Features {
		v := pattern.FeatureValue{Name: fv.Name, Literal: fv.Value}
		if fv.Ref != nil {
			if !c.bindings[fv.Ref.Binding] {
				return pattern.SimpleRHS{}, semanticError(fv.Ref.Pos, "unknown binding %q", fv.Ref.Binding)
			}
			v.Ref = &pattern.FeatureRef{Binding: fv.Ref.Binding, Type: fv.Ref.Type, Feature: fv.Ref.Feature}
		}
		rhs.Features = append(rhs.Features, v)
	}
	return rhs, nil
}

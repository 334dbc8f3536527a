// Package pattern defines the rule model that phases are compiled from.
//
// A Rule's left-hand side is a sequence of Elements. Elements form a tree of
// three variants: a MatcherElement leaf that consumes one annotation, a
// GroupElement that sequences or alternates its children (optionally under
// a binding name), and a RangeElement that repeats a child between Min and
// Max times.
package pattern

import (
	"fmt"
	"strings"
)

// Unbounded as a RangeElement's Max means no upper repetition limit.
const Unbounded = -1

// Element is a node of a rule's pattern tree.
type Element interface {
	String() string
}

// Operator combines the children of a GroupElement.
type Operator uint8

const (
	// OpSeq matches the children one after another.
	OpSeq Operator = iota
	// OpOr matches exactly one of the children.
	OpOr
)

// String returns the operator name.
func (o Operator) String() string {
	switch o {
	case OpSeq:
		return "SEQ"
	case OpOr:
		return "OR"
	default:
		return fmt.Sprintf("Operator(%d)", o)
	}
}

// MatcherElement consumes a single annotation accepted by Matcher.
type MatcherElement struct {
	Matcher Matcher
}

// String returns the matcher's source form.
func (e *MatcherElement) String() string {
	if e.Matcher == nil {
		return "{<nil>}"
	}
	return e.Matcher.String()
}

// GroupElement sequences or alternates its children.
// A non-empty Name binds the annotations matched by the group.
type GroupElement struct {
	Name     string
	Op       Operator
	Elements []Element
}

// String renders the group in rule-file syntax.
func (e *GroupElement) String() string {
	sep := " "
	if e.Op == OpOr {
		sep = " | "
	}
	parts := make([]string, len(e.Elements))
	for i, c := range e.Elements {
		if c == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = c.String()
	}
	s := "(" + strings.Join(parts, sep) + ")"
	if e.Name != "" {
		s += ":" + e.Name
	}
	return s
}

// RangeElement repeats Element at least Min and at most Max times.
type RangeElement struct {
	Min, Max int
	Element  Element
}

// String renders the repetition using the shortest quantifier syntax.
func (e *RangeElement) String() string {
	inner := "<nil>"
	if e.Element != nil {
		inner = e.Element.String()
	}
	switch {
	case e.Min == 0 && e.Max == 1:
		return inner + "?"
	case e.Min == 0 && e.Max == Unbounded:
		return inner + "*"
	case e.Min == 1 && e.Max == Unbounded:
		return inner + "+"
	case e.Max == Unbounded:
		return fmt.Sprintf("%s[%d,]", inner, e.Min)
	case e.Min == e.Max:
		return fmt.Sprintf("%s[%d]", inner, e.Min)
	default:
		return fmt.Sprintf("%s[%d,%d]", inner, e.Min, e.Max)
	}
}

// Leaf wraps a matcher as an element.
func Leaf(m Matcher) *MatcherElement {
	return &MatcherElement{Matcher: m}
}

// Seq returns an unnamed sequence.
func Seq(elems ...Element) *GroupElement {
	return &GroupElement{Op: OpSeq, Elements: elems}
}

// Or returns an unnamed alternation.
func Or(elems ...Element) *GroupElement {
	return &GroupElement{Op: OpOr, Elements: elems}
}

// Bind names a group so its matched span can be referenced from actions.
func Bind(name string, g *GroupElement) *GroupElement {
	g.Name = name
	return g
}

// Repeat returns e repeated between min and max times.
func Repeat(e Element, min, max int) *RangeElement {
	return &RangeElement{Min: min, Max: max, Element: e}
}

// Optional is e?.
func Optional(e Element) *RangeElement { return Repeat(e, 0, 1) }

// Star is e*.
func Star(e Element) *RangeElement { return Repeat(e, 0, Unbounded) }

// Plus is e+.
func Plus(e Element) *RangeElement { return Repeat(e, 1, Unbounded) }

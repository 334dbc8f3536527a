package pattern

import (
	"fmt"
	"strings"
)

// Rule is one prioritized pattern with its actions.
//
// The *Rule pointer is the rule's identity: compiled automata carry sets of
// rule pointers on their final states, and two distinct rules with equal
// fields are still two rules.
type Rule struct {
	Name     string
	Priority int
	// Index is the rule's declaration order within its phase.
	Index int
	// LHS is matched as a sequence.
	LHS []Element
	RHS []SimpleRHS
}

// String returns "Name(priority)".
func (r *Rule) String() string {
	return fmt.Sprintf("%s(%d)", r.Name, r.Priority)
}

// Pattern renders the left-hand side in rule-file syntax.
func (r *Rule) Pattern() string {
	parts := make([]string, len(r.LHS))
	for i, e := range r.LHS {
		if e == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

// SimpleRHS creates one annotation when its rule fires.
// An empty Binding spans the whole match.
type SimpleRHS struct {
	Binding  string
	Type     string
	Features []FeatureValue
}

// FeatureValue is a feature assignment of an action. Exactly one of Literal
// or Ref is meaningful: a non-nil Ref copies a feature from a bound annotation.
type FeatureValue struct {
	Name    string
	Literal string
	Ref     *FeatureRef
}

// FeatureRef names a feature of an annotation inside a binding,
// written :binding.Type.feature.
type FeatureRef struct {
	Binding string
	Type    string
	Feature string
}

func (r FeatureRef) String() string {
	return ":" + r.Binding + "." + r.Type + "." + r.Feature
}

// Control selects how a phase resolves competing matches.
type Control uint8

const (
	// Appelt fires one rule per match: longest, then highest priority, then
	// earliest declared.
	Appelt Control = iota
	// Brill fires every rule matching the longest span at a position.
	Brill
	// All fires every match at every position.
	All
	// First fires the shortest match at a position, breaking ties like
	// Appelt.
	First
	// Once stops after the first match in a document.
	Once
)

var controlNames = [...]string{"appelt", "brill", "all", "first", "once"}

func (c Control) String() string {
	if int(c) < len(controlNames) {
		return controlNames[c]
	}
	return fmt.Sprintf("Control(%d)", c)
}

// ParseControl parses a control style name, case-insensitively.
func ParseControl(s string) (Control, error) {
	for i, name := range controlNames {
		if strings.EqualFold(name, s) {
			return Control(i), nil
		}
	}
	return 0, fmt.Errorf("unknown control style %q", s)
}

// Phase is a named set of rules compiled together.
type Phase struct {
	Name string
	// Input lists the annotation types the phase reads. Empty means all.
	Input   []string
	Control Control
	// Debug makes the runtime log every match it fires.
	Debug   bool
	Rules   []*Rule
}

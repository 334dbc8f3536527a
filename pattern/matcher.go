package pattern

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/coregx/coregex"

	"github.com/coregx/japefsm/annot"
)

// ErrInvalidConstraint is returned when a feature constraint cannot be built,
// for example a regular expression that does not compile.
var ErrInvalidConstraint = errors.New("invalid feature constraint")

// Matcher is a predicate over one annotation.
//
// Compilation interns matchers by value, so implementations must be
// comparable and two matchers that test the same thing should compare equal.
type Matcher interface {
	Match(a *annot.Annotation, doc *annot.Document) bool
	String() string
}

// TypeMatcher accepts annotations of one type, e.g. {Token}.
type TypeMatcher struct {
	Type string
}

// Match implements Matcher.
func (m TypeMatcher) Match(a *annot.Annotation, _ *annot.Document) bool {
	return a.Type == m.Type
}

func (m TypeMatcher) String() string {
	return "{" + m.Type + "}"
}

// Comparison is a feature constraint operator.
type Comparison uint8

const (
	Equal Comparison = iota
	NotEqual
	Matches
	NotMatches
	Less
	LessEqual
	Greater
	GreaterEqual
)

var comparisonNames = [...]string{"==", "!=", "=~", "!~", "<", "<=", ">", ">="}

// String returns the operator's source form.
func (c Comparison) String() string {
	if int(c) < len(comparisonNames) {
		return comparisonNames[c]
	}
	return fmt.Sprintf("Comparison(%d)", c)
}

// ParseComparison parses an operator such as "==" or "=~".
func ParseComparison(s string) (Comparison, error) {
	for i, name := range comparisonNames {
		if name == s {
			return Comparison(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown operator %q", ErrInvalidConstraint, s)
}

// FeatureMatcher accepts annotations of Type whose Feature compares to Value,
// e.g. {Token.orth == "upperInitial"}.
//
// Ordering operators compare numerically when both sides parse as numbers
// and lexically otherwise. A missing feature satisfies only the negative
// operators.
type FeatureMatcher struct {
	Type    string
	Feature string
	Op      Comparison
	Value   string

	re *coregex.Regex
}

// NewFeatureMatcher builds a feature constraint, compiling Value when the
// operator is a regular expression match.
func NewFeatureMatcher(typ, feature string, op Comparison, value string) (FeatureMatcher, error) {
	m := FeatureMatcher{Type: typ, Feature: feature, Op: op, Value: value}
	if op == Matches || op == NotMatches {
		re, err := coregex.Compile(value)
		if err != nil {
			return FeatureMatcher{}, fmt.Errorf("%w: %s.%s %s %q: %v", ErrInvalidConstraint, typ, feature, op, value, err)
		}
		m.re = re
	}
	return m, nil
}

// Match implements Matcher.
func (m FeatureMatcher) Match(a *annot.Annotation, _ *annot.Document) bool {
	if a.Type != m.Type {
		return false
	}
	v, ok := a.Feature(m.Feature)
	if !ok {
		return m.Op == NotEqual || m.Op == NotMatches
	}
	s := fmt.Sprint(v)

	switch m.Op {
	case Equal:
		return s == m.Value
	case NotEqual:
		return s != m.Value
	case Matches, NotMatches:
		matched := m.re != nil && m.re.MatchString(s)
		return matched == (m.Op == Matches)
	default:
		return m.order(s)
	}
}

func (m FeatureMatcher) order(s string) bool {
	cmp := strings.Compare(s, m.Value)
	if x, err := strconv.ParseFloat(s, 64); err == nil {
		if y, err := strconv.ParseFloat(m.Value, 64); err == nil {
			switch {
			case x < y:
				cmp = -1
			case x > y:
				cmp = 1
			default:
				cmp = 0
			}
		}
	}
	switch m.Op {
	case Less:
		return cmp < 0
	case LessEqual:
		return cmp <= 0
	case Greater:
		return cmp > 0
	case GreaterEqual:
		return cmp >= 0
	}
	return false
}

func (m FeatureMatcher) String() string {
	return fmt.Sprintf("{%s.%s %s %q}", m.Type, m.Feature, m.Op, m.Value)
}

// NotMatcher inverts another matcher, e.g. {!Token.kind == "punct"}.
type NotMatcher struct {
	Inner Matcher
}

// Match implements Matcher.
func (m NotMatcher) Match(a *annot.Annotation, doc *annot.Document) bool {
	return !m.Inner.Match(a, doc)
}

func (m NotMatcher) String() string {
	return "{!" + strings.Trim(m.Inner.String(), "{}") + "}"
}

// AllOf accepts an annotation that every member accepts. It is the form of
// a comma-separated constraint list such as {Token.kind == word, Token.length > 3}.
//
// AllOf is used by pointer; callers that want structurally equal lists to
// share a label must reuse the same *AllOf.
type AllOf struct {
	Matchers []Matcher
}

// Match implements Matcher.
func (m *AllOf) Match(a *annot.Annotation, doc *annot.Document) bool {
	for _, sub := range m.Matchers {
		if !sub.Match(a, doc) {
			return false
		}
	}
	return true
}

func (m *AllOf) String() string {
	parts := make([]string, len(m.Matchers))
	for i, sub := range m.Matchers {
		parts[i] = strings.Trim(sub.String(), "{}")
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

package fsm

import (
	"strconv"

	"github.com/coregx/japefsm/internal/conv"
)

// Label is a transition label. All label kinds share one int32 space:
//
//	 0      epsilon, consumes nothing; never present after determinization
//	-1      group start marker
//	< -1    named group end marker; GroupID recovers the group-name id
//	> 0     interned matcher id
//
// Group-name and matcher ids come from the compile's alphabets and start at
// 1, which keeps the encodings disjoint.
type Label int32

const (
	// Epsilon is the empty-input label.
	Epsilon Label = 0

	// GroupStart marks entry into a named group.
	GroupStart Label = -1
)

// MatcherLabel returns the label for interned matcher id. Panics if id < 1.
func MatcherLabel(id int) Label {
	return Label(conv.PositiveToInt32(id))
}

// GroupEnd returns the end marker for interned group-name id. Panics if id < 1.
func GroupEnd(id int) Label {
	return Label(-conv.PositiveToInt32(id) - 1)
}

// IsEpsilon reports whether l is the epsilon label.
func (l Label) IsEpsilon() bool { return l == Epsilon }

// IsGroupStart reports whether l is the group start marker.
func (l Label) IsGroupStart() bool { return l == GroupStart }

// IsGroupEnd reports whether l is a named group end marker.
func (l Label) IsGroupEnd() bool { return l < GroupStart }

// IsMatcher reports whether l consumes an annotation.
func (l Label) IsMatcher() bool { return l > 0 }

// IsMarker reports whether l is a group marker, i.e. a labeled transition
// that consumes no input.
func (l Label) IsMarker() bool { return l < 0 }

// GroupID returns the group-name id of an end marker, or 0.
func (l Label) GroupID() int {
	if !l.IsGroupEnd() {
		return 0
	}
	return int(-l - 1)
}

// MatcherID returns the matcher id of a consuming label, or 0.
func (l Label) MatcherID() int {
	if !l.IsMatcher() {
		return 0
	}
	return int(l)
}

// String renders the raw encoding: "eps", "(", ")#id" or "m#id".
func (l Label) String() string {
	switch {
	case l.IsEpsilon():
		return "eps"
	case l.IsGroupStart():
		return "("
	case l.IsGroupEnd():
		return ")#" + strconv.Itoa(l.GroupID())
	default:
		return "m#" + strconv.Itoa(int(l))
	}
}

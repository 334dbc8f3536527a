// Package fsm compiles pattern rules into finite automata over annotation
// labels and transforms them.
//
// The pipeline is Compiler (Thompson-style construction of an epsilon-NFA),
// Determinize (subset construction) and Minimize (Hopcroft partition
// refinement that keeps per-state action sets apart). Every transform is a
// pure function returning a new Automaton; a published Automaton has no
// mutators and is safe for concurrent reads.
package fsm

import (
	"errors"
	"fmt"

	"github.com/coregx/japefsm/pattern"
)

// Common compile errors
var (
	// ErrUnknownElement indicates a pattern element variant the compiler does not handle
	ErrUnknownElement = errors.New("unknown pattern element")

	// ErrNilElement indicates a nil element or nil matcher in a pattern tree
	ErrNilElement = errors.New("nil pattern element")

	// ErrInvalidRange indicates repetition bounds that cannot be compiled
	ErrInvalidRange = errors.New("invalid repetition range")

	// ErrEmptyPattern indicates a rule or alternation with nothing to match
	ErrEmptyPattern = errors.New("empty pattern")

	// ErrTooComplex indicates the pattern tree is nested deeper than allowed
	ErrTooComplex = errors.New("pattern too complex")

	// ErrStateLimit indicates an automaton outgrew its state budget
	ErrStateLimit = errors.New("automaton state limit exceeded")

	// ErrUncomparableMatcher indicates a matcher that cannot be interned
	// because its dynamic value is not comparable
	ErrUncomparableMatcher = errors.New("matcher is not comparable")
)

// CompileError wraps compilation errors with the rule being compiled
type CompileError struct {
	Rule *pattern.Rule
	Err  error
}

// Error implements the error interface
func (e *CompileError) Error() string {
	if e.Rule != nil {
		return fmt.Sprintf("compile rule %s: %v", e.Rule.Name, e.Err)
	}
	return fmt.Sprintf("compile: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *CompileError) Unwrap() error {
	return e.Err
}

// BuildError represents an error during automaton construction via the Builder API
type BuildError struct {
	Message string
	StateID StateID
}

// Error implements the error interface
func (e *BuildError) Error() string {
	if e.StateID != InvalidState {
		return fmt.Sprintf("automaton build error at state %d: %s", e.StateID, e.Message)
	}
	return fmt.Sprintf("automaton build error: %s", e.Message)
}

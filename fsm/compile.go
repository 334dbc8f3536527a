package fsm

import (
	"fmt"
	"reflect"

	"github.com/coregx/japefsm/alphabet"
	"github.com/coregx/japefsm/pattern"
)

// CompilerConfig configures NFA compilation behavior
type CompilerConfig struct {
	// MaxRecursionDepth limits pattern tree nesting to prevent stack overflow
	// Default: 100
	MaxRecursionDepth int

	// MaxStates bounds the number of NFA states. Large bounded repetitions
	// copy their element once per repetition and can grow the NFA quickly.
	// Zero means no limit.
	MaxStates int
}

// DefaultCompilerConfig returns a compiler configuration with sensible defaults
func DefaultCompilerConfig() CompilerConfig {
	return CompilerConfig{
		MaxRecursionDepth: 100,
		MaxStates:         1_000_000,
	}
}

// Compiler compiles rule lists into one epsilon-NFA with a shared start state.
//
// Matchers and group names are interned into the alphabets given to
// NewCompiler, so labels of the resulting automaton can be resolved through
// them. A Compiler is not safe for concurrent use.
type Compiler struct {
	config   CompilerConfig
	matchers *alphabet.Alphabet[pattern.Matcher]
	groups   *alphabet.Alphabet[string]
	builder  *Builder
	depth    int // current recursion depth
}

// NewCompiler creates a compiler that interns labels into the given
// alphabets. Nil alphabets are replaced with fresh ones.
func NewCompiler(config CompilerConfig, matchers *alphabet.Alphabet[pattern.Matcher], groups *alphabet.Alphabet[string]) *Compiler {
	if config.MaxRecursionDepth == 0 {
		config.MaxRecursionDepth = 100
	}
	if matchers == nil {
		matchers = alphabet.New[pattern.Matcher]()
	}
	if groups == nil {
		groups = alphabet.New[string]()
	}
	return &Compiler{
		config:   config,
		matchers: matchers,
		groups:   groups,
	}
}

// Matchers returns the matcher alphabet.
func (c *Compiler) Matchers() *alphabet.Alphabet[pattern.Matcher] {
	return c.matchers
}

// Groups returns the group-name alphabet.
func (c *Compiler) Groups() *alphabet.Alphabet[string] {
	return c.groups
}

// Compile builds one automaton for all rules. State 0 is the shared start;
// for each rule the start has a path labeled by the rule's pattern ending
// in a state that carries the rule as an action.
func (c *Compiler) Compile(rules []*pattern.Rule) (*Automaton, error) {
	c.builder = NewBuilder()
	c.depth = 0
	start := c.builder.AddState()
	c.builder.SetStart(start)

	for _, r := range rules {
		if r == nil {
			return nil, &CompileError{Err: fmt.Errorf("%w: nil rule", ErrNilElement)}
		}
		if len(r.LHS) == 0 {
			return nil, &CompileError{Rule: r, Err: ErrEmptyPattern}
		}
		end := start
		for _, e := range r.LHS {
			var err error
			end, err = c.compileElement(end, e)
			if err != nil {
				return nil, &CompileError{Rule: r, Err: err}
			}
		}
		c.builder.AddActions(end, r)
	}

	a, err := c.builder.Build()
	if err != nil {
		return nil, &CompileError{Err: err}
	}
	return a, nil
}

// compileElement recursively compiles e starting at start.
// Returns the state where e's fragment ends.
func (c *Compiler) compileElement(start StateID, e pattern.Element) (StateID, error) {
	// Check recursion depth
	c.depth++
	if c.depth > c.config.MaxRecursionDepth {
		return InvalidState, ErrTooComplex
	}
	defer func() { c.depth-- }()

	if c.config.MaxStates > 0 && c.builder.NumStates() > c.config.MaxStates {
		return InvalidState, fmt.Errorf("%w: more than %d NFA states", ErrStateLimit, c.config.MaxStates)
	}

	switch e := e.(type) {
	case *pattern.MatcherElement:
		return c.compileMatcher(start, e)
	case *pattern.GroupElement:
		if e == nil {
			return InvalidState, ErrNilElement
		}
		if e.Name == "" {
			return c.compileGroupBody(start, e)
		}
		return c.compileNamed(start, e)
	case *pattern.RangeElement:
		return c.compileRange(start, e)
	case nil:
		return InvalidState, ErrNilElement
	default:
		return InvalidState, fmt.Errorf("%w: %T", ErrUnknownElement, e)
	}
}

func (c *Compiler) compileMatcher(start StateID, e *pattern.MatcherElement) (StateID, error) {
	if e == nil || e.Matcher == nil {
		return InvalidState, ErrNilElement
	}
	if !reflect.ValueOf(e.Matcher).Comparable() {
		return InvalidState, fmt.Errorf("%w: %s (%T)", ErrUncomparableMatcher, e.Matcher, e.Matcher)
	}
	end := c.builder.AddState()
	c.builder.AddTransition(start, MatcherLabel(c.matchers.Get(e.Matcher)), end)
	return end, nil
}

// compileNamed wraps a group between a start marker and the end marker of
// its name, so the matched span can be recovered from a path.
func (c *Compiler) compileNamed(start StateID, e *pattern.GroupElement) (StateID, error) {
	open := c.builder.AddState()
	c.builder.AddTransition(start, GroupStart, open)

	inner, err := c.compileGroupBody(open, e)
	if err != nil {
		return InvalidState, err
	}

	end := c.builder.AddState()
	c.builder.AddTransition(inner, GroupEnd(c.groups.Get(e.Name)), end)
	return end, nil
}

func (c *Compiler) compileGroupBody(start StateID, e *pattern.GroupElement) (StateID, error) {
	switch e.Op {
	case pattern.OpSeq:
		return c.compileSeq(start, e.Elements)
	case pattern.OpOr:
		return c.compileOr(start, e.Elements)
	default:
		return InvalidState, fmt.Errorf("%w: group operator %s", ErrUnknownElement, e.Op)
	}
}

func (c *Compiler) compileSeq(start StateID, elems []pattern.Element) (StateID, error) {
	for _, sub := range elems {
		var err error
		start, err = c.compileElement(start, sub)
		if err != nil {
			return InvalidState, err
		}
	}
	return start, nil
}

// compileOr branches off start through a fresh state per alternative and
// joins every alternative's end into one shared end.
func (c *Compiler) compileOr(start StateID, alts []pattern.Element) (StateID, error) {
	if len(alts) == 0 {
		return InvalidState, fmt.Errorf("%w: alternation without alternatives", ErrEmptyPattern)
	}
	end := c.builder.AddState()
	for _, alt := range alts {
		branch := c.builder.AddState()
		c.builder.AddTransition(start, Epsilon, branch)
		altEnd, err := c.compileElement(branch, alt)
		if err != nil {
			return InvalidState, err
		}
		c.builder.AddTransition(altEnd, Epsilon, end)
	}
	return end, nil
}

// compileRange chains Min mandatory copies, then an epsilon skip to the
// shared end, then either a single looping copy (unbounded) or Max-Min
// optional copies each of which may exit to the end.
func (c *Compiler) compileRange(start StateID, e *pattern.RangeElement) (StateID, error) {
	if e == nil || e.Element == nil {
		return InvalidState, ErrNilElement
	}
	if e.Min < 0 {
		return InvalidState, fmt.Errorf("%w: negative minimum %d", ErrInvalidRange, e.Min)
	}
	if e.Max != pattern.Unbounded && e.Max < e.Min {
		return InvalidState, fmt.Errorf("%w: maximum %d below minimum %d", ErrInvalidRange, e.Max, e.Min)
	}

	cur := start
	for i := 0; i < e.Min; i++ {
		var err error
		cur, err = c.compileElement(cur, e.Element)
		if err != nil {
			return InvalidState, err
		}
	}

	end := c.builder.AddState()
	c.builder.AddTransition(cur, Epsilon, end)

	if e.Max == pattern.Unbounded {
		// The loop gets its own entry state. Looping back to cur would
		// leak into cur's other outgoing paths when Min is 0 and cur is
		// a state shared with other rules or alternatives.
		loop := c.builder.AddState()
		c.builder.AddTransition(cur, Epsilon, loop)
		loopEnd, err := c.compileElement(loop, e.Element)
		if err != nil {
			return InvalidState, err
		}
		c.builder.AddTransition(loopEnd, Epsilon, end)
		c.builder.AddTransition(loopEnd, Epsilon, loop)
		return end, nil
	}

	for i := e.Min; i < e.Max; i++ {
		var err error
		cur, err = c.compileElement(cur, e.Element)
		if err != nil {
			return InvalidState, err
		}
		c.builder.AddTransition(cur, Epsilon, end)
	}
	return end, nil
}

package japefsm

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrInvalidConfig indicates that a Config failed validation
var ErrInvalidConfig = errors.New("invalid japefsm configuration")

// Config controls phase compilation.
//
// Example:
//
//	cfg := japefsm.DefaultConfig().WithMaxStates(50_000)
//	g, err := japefsm.Compile(phase, cfg)
type Config struct {
	// Minimize runs Hopcroft minimization after determinization.
	// Default: true
	Minimize bool

	// MaxStates bounds both the NFA and the determinized automaton.
	// Subset construction can grow exponentially on patterns such as
	// ({A}|{B})* {A} ({A}|{B})[8].
	// Default: 100,000
	MaxStates int

	// MaxRecursionDepth limits pattern nesting.
	// Default: 100
	MaxRecursionDepth int

	// Logger receives per-stage statistics at debug level.
	// Default: zerolog.Nop()
	Logger zerolog.Logger
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Minimize:          true,
		MaxStates:         100_000,
		MaxRecursionDepth: 100,
		Logger:            zerolog.Nop(),
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.MaxStates <= 0 {
		return fmt.Errorf("%w: MaxStates must be > 0, got %d", ErrInvalidConfig, c.MaxStates)
	}
	if c.MaxRecursionDepth <= 0 {
		return fmt.Errorf("%w: MaxRecursionDepth must be > 0, got %d", ErrInvalidConfig, c.MaxRecursionDepth)
	}
	return nil
}

// WithMinimize returns a new config with minimization enabled/disabled
func (c Config) WithMinimize(enabled bool) Config {
	c.Minimize = enabled
	return c
}

// WithMaxStates returns a new config with the specified state budget
func (c Config) WithMaxStates(maxStates int) Config {
	c.MaxStates = maxStates
	return c
}

// WithMaxRecursionDepth returns a new config with the specified nesting limit
func (c Config) WithMaxRecursionDepth(depth int) Config {
	c.MaxRecursionDepth = depth
	return c
}

// WithLogger returns a new config that logs to l
func (c Config) WithLogger(l zerolog.Logger) Config {
	c.Logger = l
	return c
}

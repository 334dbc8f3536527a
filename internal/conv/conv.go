// Package conv provides checked integer conversions for automaton state ids
// and transition labels.
//
// Arena indexes are plain ints while state ids are uint32 and labels are
// int32. Overflow means an automaton outgrew its representation, which is a
// programming error rather than an input error, so these helpers panic.
package conv

import "math"

// IntToUint32 safely converts an int to uint32.
// Panics if n < 0 or n > math.MaxUint32.
//
//go:inline
func IntToUint32(n int) uint32 {
	// Use uint for comparison to avoid overflow on 32-bit platforms
	// where int cannot represent math.MaxUint32
	if n < 0 || uint(n) > math.MaxUint32 {
		panic("integer overflow: int value out of uint32 range")
	}
	return uint32(n)
}

// IntToInt32 safely converts an int to int32.
// Panics if n is outside [math.MinInt32, math.MaxInt32].
//
//go:inline
func IntToInt32(n int) int32 {
	if n < math.MinInt32 || n > math.MaxInt32 {
		panic("integer overflow: int value out of int32 range")
	}
	return int32(n)
}

// PositiveToInt32 converts an interned alphabet id to int32.
// Ids start at 1; zero and negative values are reserved by the label encoding.
//
//go:inline
func PositiveToInt32(n int) int32 {
	if n <= 0 {
		panic("alphabet id must be positive")
	}
	return IntToInt32(n)
}

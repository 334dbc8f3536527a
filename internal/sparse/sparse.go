// Package sparse provides a sparse set of small integers.
//
// A sparse set supports O(1) insertion, membership testing and clearing while
// keeping a dense list of its members in insertion order. The automaton
// transforms use it for closure worklists and for tracking the states and
// classes touched by one refinement step.
package sparse

import "slices"

// SparseSet is a set of uint32 values drawn from [0, capacity).
//
// The sparse array maps a value to its position in the dense array. Stale
// entries in sparse are harmless because membership is cross-checked
// against dense.
type SparseSet struct {
	sparse []uint32
	dense  []uint32
}

// NewSparseSet creates an empty set able to hold values below capacity.
func NewSparseSet(capacity uint32) *SparseSet {
	return &SparseSet{
		sparse: make([]uint32, capacity),
		dense:  make([]uint32, 0, capacity),
	}
}

// Insert adds value to the set and reports whether it was newly added.
// Panics if value >= Capacity().
func (s *SparseSet) Insert(value uint32) bool {
	if s.Contains(value) {
		return false
	}
	s.sparse[value] = uint32(len(s.dense))
	s.dense = append(s.dense, value)
	return true
}

// Contains reports whether value is in the set.
func (s *SparseSet) Contains(value uint32) bool {
	if int(value) >= len(s.sparse) {
		return false
	}
	idx := s.sparse[value]
	return int(idx) < len(s.dense) && s.dense[idx] == value
}

// Clear removes all values in O(1).
func (s *SparseSet) Clear() {
	s.dense = s.dense[:0]
}

// Len returns the number of values in the set.
func (s *SparseSet) Len() int {
	return len(s.dense)
}

// IsEmpty reports whether the set has no values.
func (s *SparseSet) IsEmpty() bool {
	return len(s.dense) == 0
}

// Capacity returns the exclusive upper bound on storable values.
func (s *SparseSet) Capacity() int {
	return len(s.sparse)
}

// Values returns the members in insertion order.
// The slice is only valid until the next mutation.
func (s *SparseSet) Values() []uint32 {
	return s.dense
}

// Sorted returns a freshly allocated ascending copy of the members.
func (s *SparseSet) Sorted() []uint32 {
	out := slices.Clone(s.dense)
	slices.Sort(out)
	return out
}

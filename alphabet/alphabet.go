// Package alphabet interns values into dense integer ids.
//
// Compilation uses two alphabets: one for the matcher predicates that label
// consuming transitions and one for named groups. Ids start at 1 so that the
// value 0 stays free for the epsilon label, and so that group ids can be
// encoded as negative labels without colliding with the group-start marker.
package alphabet

// Alphabet is a bidirectional mapping between values and dense ids.
//
// An Alphabet lives for one compilation. It is not safe for concurrent
// mutation; concurrent lookups after interning has finished are fine.
type Alphabet[T comparable] struct {
	ids    map[T]int
	values []T
}

// New creates an empty alphabet.
func New[T comparable]() *Alphabet[T] {
	return &Alphabet[T]{ids: make(map[T]int)}
}

// Get returns the id of v, assigning the next free id if v is new.
// Repeated calls with equal values always return the same id.
func (a *Alphabet[T]) Get(v T) int {
	if id, ok := a.ids[v]; ok {
		return id
	}
	a.values = append(a.values, v)
	id := len(a.values)
	a.ids[v] = id
	return id
}

// ID returns the id of v without interning it.
func (a *Alphabet[T]) ID(v T) (int, bool) {
	id, ok := a.ids[v]
	return id, ok
}

// Value returns the value interned under id.
func (a *Alphabet[T]) Value(id int) (T, bool) {
	if id < 1 || id > len(a.values) {
		var zero T
		return zero, false
	}
	return a.values[id-1], true
}

// Len returns the number of interned values.
func (a *Alphabet[T]) Len() int {
	return len(a.values)
}

// Values returns the interned values in id order. Values()[i] has id i+1.
func (a *Alphabet[T]) Values() []T {
	out := make([]T, len(a.values))
	copy(out, a.values)
	return out
}

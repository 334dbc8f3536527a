package alphabet

import "testing"

func TestAlphabet_Get(t *testing.T) {
	a := New[string]()

	if got := a.Get("Token"); got != 1 {
		t.Errorf("first id = %d, want 1", got)
	}
	if got := a.Get("Lookup"); got != 2 {
		t.Errorf("second id = %d, want 2", got)
	}
	if got := a.Get("Token"); got != 1 {
		t.Errorf("repeated Get = %d, want 1", got)
	}
	if a.Len() != 2 {
		t.Errorf("Len = %d, want 2", a.Len())
	}
}

func TestAlphabet_RoundTrip(t *testing.T) {
	a := New[string]()
	words := []string{"a", "b", "c", "b", "a", "d"}
	for _, w := range words {
		id := a.Get(w)
		v, ok := a.Value(id)
		if !ok || v != w {
			t.Errorf("Value(Get(%q)) = %q, %v", w, v, ok)
		}
	}

	want := []string{"a", "b", "c", "d"}
	got := a.Values()
	if len(got) != len(want) {
		t.Fatalf("Values len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAlphabet_Lookup(t *testing.T) {
	a := New[int]()
	a.Get(42)

	if _, ok := a.ID(7); ok {
		t.Error("ID should not intern unknown values")
	}
	if a.Len() != 1 {
		t.Errorf("Len = %d after lookup, want 1", a.Len())
	}
	if id, ok := a.ID(42); !ok || id != 1 {
		t.Errorf("ID(42) = %d, %v", id, ok)
	}

	tests := []int{0, -1, 2, 100}
	for _, id := range tests {
		if _, ok := a.Value(id); ok {
			t.Errorf("Value(%d) should miss", id)
		}
	}
}

type matcherKey struct {
	typ, feature string
}

func TestAlphabet_StructValues(t *testing.T) {
	a := New[matcherKey]()
	x := a.Get(matcherKey{"Token", "orth"})
	y := a.Get(matcherKey{"Token", "orth"})
	z := a.Get(matcherKey{"Token", "kind"})
	if x != y {
		t.Errorf("equal struct values got ids %d and %d", x, y)
	}
	if x == z {
		t.Error("distinct struct values share an id")
	}
}

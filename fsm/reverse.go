package fsm

// Reverse builds an automaton with every transition of a turned around.
//
// Input state i becomes state i+1 of the result and keeps its actions.
// State 0 is a fresh start with an epsilon transition to every input final
// state. Paths from the new start therefore spell input paths backwards from
// a final state; the mirror of the input start is a.Start()+1.
//
// The result is generally nondeterministic.
//
// Example:
//
//	Input for "A B":
//	  0 -A-> 1 -B-> 2 (final)
//
//	Reversed:
//	  0 -eps-> 3 -B-> 2 -A-> 1
func Reverse(a *Automaton) *Automaton {
	b := NewBuilderWithCapacity(len(a.states) + 1)
	start := b.AddState()
	b.SetStart(start)
	for i := range a.states {
		id := b.AddState()
		b.AddActions(id, a.states[i].actions...)
	}

	for i := range a.states {
		for _, t := range a.states[i].transitions {
			b.AddTransition(t.Target+1, t.Label, StateID(i)+1)
		}
	}
	for i := range a.states {
		if a.states[i].IsFinal() {
			b.AddTransition(start, Epsilon, StateID(i)+1)
		}
	}

	r, err := b.Build()
	if err != nil {
		// Every referenced id was allocated above.
		panic("fsm: reverse: " + err.Error())
	}
	return r
}

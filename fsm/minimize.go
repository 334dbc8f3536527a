package fsm

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/coregx/japefsm/internal/conv"
	"github.com/coregx/japefsm/internal/sparse"
	"github.com/coregx/japefsm/pattern"
)

// Minimize returns the minimal deterministic automaton accepting the same
// labeled paths as a with the same actions at their ends. A nondeterministic
// input is determinized first.
//
// The partition is refined with Hopcroft's algorithm. Final states start in
// one class per distinct action set, so states firing different rules are
// never merged. States that cannot reach a final state are dropped, and the
// result is numbered breadth-first from the start with labels in ascending
// order, which makes the output canonical: equivalent inputs minimize to
// identical automata.
func Minimize(a *Automaton) *Automaton {
	if !a.IsDeterministic() {
		a = Determinize(a)
	}
	r := newRefiner(a)
	r.initPartition()
	r.refine()
	return r.build()
}

type splitter struct {
	class, label int32
}

// refiner holds the bookkeeping of one minimization. Labels are remapped to
// the dense range 1..K; lists are threaded through parallel index arrays
// with -1 as nil.
type refiner struct {
	a *Automaton
	n int

	labels []Label // labels[k-1] has dense id k
	dense  map[Label]int32

	// forward transitions with dense labels, CSR by source
	fwdStart  []int32
	fwdLabel  []int32
	fwdTarget []int32

	// reversed transitions sorted by (target, label, source), CSR by target
	revStart  []int32
	revLabel  []int32
	revSource []int32

	// per-class doubly-linked state lists
	classOf    []int32
	stateNext  []int32
	statePrev  []int32
	classFirst []int32
	classSize  []int32

	// per-class singly-linked lists of labels still to split on
	pendHead  []int32
	pendLabel []int32
	pendNext  []int32
	pending   map[splitter]struct{}
	active    []int32
	inActive  []bool

	// scratch for one split step
	marked  *sparse.SparseSet
	preds   []int32
	count   []int32
	splitTo []int32
	touched []int32
}

func newRefiner(a *Automaton) *refiner {
	n := len(a.states)
	r := &refiner{
		a:       a,
		n:       n,
		dense:   make(map[Label]int32),
		pending: make(map[splitter]struct{}),
		marked:  sparse.NewSparseSet(conv.IntToUint32(n)),
	}

	for i := range a.states {
		for _, t := range a.states[i].transitions {
			r.labels = append(r.labels, t.Label)
		}
	}
	slices.Sort(r.labels)
	r.labels = slices.Compact(r.labels)
	for i, l := range r.labels {
		r.dense[l] = conv.IntToInt32(i + 1)
	}

	type edge struct{ target, label, source int32 }
	edges := make([]edge, 0, a.numTransitions)
	r.fwdStart = make([]int32, n+1)
	for i := range a.states {
		for _, t := range a.states[i].transitions {
			k := r.remap(t.Label)
			r.fwdLabel = append(r.fwdLabel, k)
			r.fwdTarget = append(r.fwdTarget, int32(t.Target))
			edges = append(edges, edge{int32(t.Target), k, int32(i)})
		}
		r.fwdStart[i+1] = conv.IntToInt32(len(r.fwdLabel))
	}

	slices.SortFunc(edges, func(x, y edge) int {
		if c := cmp.Compare(x.target, y.target); c != 0 {
			return c
		}
		if c := cmp.Compare(x.label, y.label); c != 0 {
			return c
		}
		return cmp.Compare(x.source, y.source)
	})
	r.revStart = make([]int32, n+1)
	r.revLabel = make([]int32, len(edges))
	r.revSource = make([]int32, len(edges))
	for i, e := range edges {
		r.revStart[e.target+1]++
		r.revLabel[i] = e.label
		r.revSource[i] = e.source
	}
	for i := 0; i < n; i++ {
		r.revStart[i+1] += r.revStart[i]
	}

	r.classOf = make([]int32, n)
	r.stateNext = make([]int32, n)
	r.statePrev = make([]int32, n)
	return r
}

// remap returns the dense id of l. A miss means the label tables are out of
// sync with the automaton.
func (r *refiner) remap(l Label) int32 {
	k, ok := r.dense[l]
	if !ok {
		panic(fmt.Sprintf("fsm: minimize: label %s missing from remap table", l))
	}
	return k
}

// unmap returns the original label of dense id k.
func (r *refiner) unmap(k int32) Label {
	if k < 1 || int(k) > len(r.labels) {
		panic(fmt.Sprintf("fsm: minimize: dense label %d outside 1..%d", k, len(r.labels)))
	}
	return r.labels[k-1]
}

// initPartition puts non-final states in one class and final states in one
// class per distinct action set, then registers every (class, in-label)
// pair as a splitter. Registering all pairs, not all but one class, keeps
// refinement correct when transitions are missing.
func (r *refiner) initPartition() {
	ruleIDs := make(map[*pattern.Rule]int)
	byKey := make(map[string]int32)
	nonFinal := int32(-1)

	for s := 0; s < r.n; s++ {
		acts := r.a.states[s].actions
		var c int32
		if len(acts) == 0 {
			if nonFinal < 0 {
				nonFinal = r.newClass()
			}
			c = nonFinal
		} else {
			key := actionKey(acts, ruleIDs)
			var ok bool
			if c, ok = byKey[key]; !ok {
				c = r.newClass()
				byKey[key] = c
			}
		}
		r.push(int32(s), c)
	}

	for c := range r.classFirst {
		for s := r.classFirst[c]; s >= 0; s = r.stateNext[s] {
			r.forInLabels(s, func(k int32) {
				r.addSplitter(int32(c), k)
			})
		}
	}
}

// actionKey canonicalizes an action set by rule identity.
func actionKey(acts []*pattern.Rule, ids map[*pattern.Rule]int) string {
	nums := make([]int, len(acts))
	for i, rule := range acts {
		id, ok := ids[rule]
		if !ok {
			id = len(ids)
			ids[rule] = id
		}
		nums[i] = id
	}
	sort.Ints(nums)
	var sb strings.Builder
	for i, v := range nums {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}

func (r *refiner) newClass() int32 {
	c := conv.IntToInt32(len(r.classFirst))
	r.classFirst = append(r.classFirst, -1)
	r.classSize = append(r.classSize, 0)
	r.pendHead = append(r.pendHead, -1)
	r.inActive = append(r.inActive, false)
	r.count = append(r.count, 0)
	r.splitTo = append(r.splitTo, -1)
	return c
}

func (r *refiner) push(s, c int32) {
	first := r.classFirst[c]
	r.stateNext[s] = first
	r.statePrev[s] = -1
	if first >= 0 {
		r.statePrev[first] = s
	}
	r.classFirst[c] = s
	r.classOf[s] = c
	r.classSize[c]++
}

func (r *refiner) remove(s int32) {
	c := r.classOf[s]
	prev, next := r.statePrev[s], r.stateNext[s]
	if prev >= 0 {
		r.stateNext[prev] = next
	} else {
		r.classFirst[c] = next
	}
	if next >= 0 {
		r.statePrev[next] = prev
	}
	r.classSize[c]--
}

func (r *refiner) addSplitter(c, k int32) {
	key := splitter{c, k}
	if _, ok := r.pending[key]; ok {
		return
	}
	r.pending[key] = struct{}{}
	r.pendLabel = append(r.pendLabel, k)
	r.pendNext = append(r.pendNext, r.pendHead[c])
	r.pendHead[c] = conv.IntToInt32(len(r.pendLabel) - 1)
	if !r.inActive[c] {
		r.inActive[c] = true
		r.active = append(r.active, c)
	}
}

// forInLabels calls fn once for every distinct label entering state s.
func (r *refiner) forInLabels(s int32, fn func(k int32)) {
	prev := int32(0)
	for i := r.revStart[s]; i < r.revStart[s+1]; i++ {
		if k := r.revLabel[i]; k != prev {
			fn(k)
			prev = k
		}
	}
}

// predRange returns the slice bounds of the reversed transitions entering
// s under dense label k.
func (r *refiner) predRange(s, k int32) (lo, hi int32) {
	base := r.revStart[s]
	labels := r.revLabel[base:r.revStart[s+1]]
	lo = base + int32(sort.Search(len(labels), func(i int) bool { return labels[i] >= k }))
	hi = base + int32(sort.Search(len(labels), func(i int) bool { return labels[i] > k }))
	return lo, hi
}

func (r *refiner) refine() {
	for len(r.active) > 0 {
		c := r.active[len(r.active)-1]
		node := r.pendHead[c]
		if node < 0 {
			r.active = r.active[:len(r.active)-1]
			r.inActive[c] = false
			continue
		}
		r.pendHead[c] = r.pendNext[node]
		k := r.pendLabel[node]
		delete(r.pending, splitter{c, k})
		r.split(c, k)
	}
}

// split refines every class against the states entering class c under k.
func (r *refiner) split(c, k int32) {
	r.marked.Clear()
	r.preds = r.preds[:0]
	for s := r.classFirst[c]; s >= 0; s = r.stateNext[s] {
		lo, hi := r.predRange(s, k)
		for i := lo; i < hi; i++ {
			if p := r.revSource[i]; r.marked.Insert(uint32(p)) {
				r.preds = append(r.preds, p)
			}
		}
	}
	if len(r.preds) == 0 {
		return
	}

	r.touched = r.touched[:0]
	for _, p := range r.preds {
		d := r.classOf[p]
		if r.count[d] == 0 {
			r.touched = append(r.touched, d)
		}
		r.count[d]++
	}
	for _, d := range r.touched {
		if r.count[d] < r.classSize[d] {
			r.splitTo[d] = r.newClass()
		}
	}
	for _, p := range r.preds {
		if nd := r.splitTo[r.classOf[p]]; nd >= 0 {
			r.remove(p)
			r.push(p, nd)
		}
	}
	for _, d := range r.touched {
		nd := r.splitTo[d]
		r.count[d] = 0
		r.splitTo[d] = -1
		if nd >= 0 {
			r.requeue(d, nd)
		}
	}
}

// requeue registers splitters after d lost some states to nd: labels
// pending on d become pending on nd too, and otherwise the smaller half
// is enough.
func (r *refiner) requeue(d, nd int32) {
	for node := r.pendHead[d]; node >= 0; node = r.pendNext[node] {
		r.addSplitter(nd, r.pendLabel[node])
	}
	small := d
	if r.classSize[nd] < r.classSize[d] {
		small = nd
	}
	for s := r.classFirst[small]; s >= 0; s = r.stateNext[s] {
		r.forInLabels(s, func(k int32) {
			if _, ok := r.pending[splitter{d, k}]; !ok {
				r.addSplitter(small, k)
			}
		})
	}
}

// build emits one state per live class, breadth-first from the start class.
func (r *refiner) build() *Automaton {
	live := r.coReachable()

	numClasses := len(r.classFirst)
	newID := make([]int32, numClasses)
	for i := range newID {
		newID[i] = -1
	}
	startClass := r.classOf[r.a.start]
	newID[startClass] = 0
	order := []int32{startClass}

	type out struct {
		label  int32
		target int32
	}
	var edges []out

	b := NewBuilderWithCapacity(numClasses)
	b.SetStart(0)
	for i := 0; i < len(order); i++ {
		c := order[i]
		id := b.AddState()
		for s := r.classFirst[c]; s >= 0; s = r.stateNext[s] {
			b.AddActions(id, r.a.states[s].actions...)
		}

		rep := r.classFirst[c]
		edges = edges[:0]
		for j := r.fwdStart[rep]; j < r.fwdStart[rep+1]; j++ {
			if live[r.fwdTarget[j]] {
				edges = append(edges, out{r.fwdLabel[j], r.fwdTarget[j]})
			}
		}
		slices.SortFunc(edges, func(x, y out) int { return cmp.Compare(x.label, y.label) })

		for _, e := range edges {
			tc := r.classOf[e.target]
			if newID[tc] < 0 {
				newID[tc] = conv.IntToInt32(len(order))
				order = append(order, tc)
			}
			b.AddTransition(id, r.unmap(e.label), StateID(newID[tc]))
		}
	}

	m, err := b.Build()
	if err != nil {
		panic("fsm: minimize: " + err.Error())
	}
	return m
}

// coReachable marks the states from which some final state is reachable.
func (r *refiner) coReachable() []bool {
	live := make([]bool, r.n)
	var stack []int32
	for s := 0; s < r.n; s++ {
		if r.a.states[s].IsFinal() {
			live[s] = true
			stack = append(stack, int32(s))
		}
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i := r.revStart[s]; i < r.revStart[s+1]; i++ {
			if p := r.revSource[i]; !live[p] {
				live[p] = true
				stack = append(stack, p)
			}
		}
	}
	return live
}

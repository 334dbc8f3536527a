package store

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/japefsm"
	"github.com/coregx/japefsm/fsm"
	"github.com/coregx/japefsm/jape"
	"github.com/coregx/japefsm/pattern"
)

const source = `
Phase: Titles
Rule: Title
({Token.string == "Dr"} {Token.orth == upperInitial}+):p
--> :p.Person = {}
Rule: Word
{Token.kind == word} --> :.W = {}
`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func parse(t *testing.T) *pattern.Phase {
	t.Helper()
	p, err := jape.ParseString("titles.jape", source)
	require.NoError(t, err)
	return p
}

func TestKey(t *testing.T) {
	cfg := japefsm.DefaultConfig()
	k := Key([]byte(source), cfg)
	assert.Len(t, k, 64)
	assert.Equal(t, k, Key([]byte(source), cfg.WithMaxStates(10)), "limits do not change the table")
	assert.NotEqual(t, k, Key([]byte(source), cfg.WithMinimize(false)))
	assert.NotEqual(t, k, Key([]byte(source+" "), cfg))
}

func TestPutGetListDelete(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)

	g, err := japefsm.Compile(parse(t), japefsm.DefaultConfig())
	require.NoError(t, err)
	e := Entry{
		Phase:     "Titles",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Stats:     g.Stats(),
		Table:     g.Automaton().Table(),
	}
	require.NoError(t, s.Put("b", e))
	require.NoError(t, s.Put("a", e))

	got, ok, err := s.Get("b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", got.Key)
	assert.Equal(t, e.Phase, got.Phase)
	assert.True(t, e.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, e.Stats, got.Stats)
	assert.Equal(t, e.Table, got.Table)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Key)
	assert.Equal(t, "b", list[1].Key)

	require.NoError(t, s.Delete("a"))
	require.NoError(t, s.Delete("a"))
	list, err = s.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	n, err := s.Clear()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	list, err = s.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCompileCaches(t *testing.T) {
	s := newTestStore(t)
	var buf bytes.Buffer
	cfg := japefsm.DefaultConfig().WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	first, cached, err := s.Compile(parse(t), []byte(source), cfg)
	require.NoError(t, err)
	assert.False(t, cached)

	second, cached, err := s.Compile(parse(t), []byte(source), cfg)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Contains(t, buf.String(), "cache hit")

	assert.Equal(t, first.Automaton().Table(), second.Automaton().Table())

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Titles", list[0].Phase)
	assert.Equal(t, first.Stats().MinimizedStates, list[0].Stats.MinimizedStates)
}

func TestCompileRecoversFromStaleEntry(t *testing.T) {
	s := newTestStore(t)
	cfg := japefsm.DefaultConfig()
	key := Key([]byte(source), cfg)

	stale := fsm.Table{States: []fsm.TableRow{{Actions: []int{99}}}}
	require.NoError(t, s.Put(key, Entry{Phase: "Titles", Table: stale}))

	g, cached, err := s.Compile(parse(t), []byte(source), cfg)
	require.NoError(t, err)
	assert.False(t, cached)

	e, ok, err := s.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, g.Automaton().Table(), e.Table)
}

func TestOpenTwiceTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())

	_, err = Open(path)
	assert.Error(t, err)
}

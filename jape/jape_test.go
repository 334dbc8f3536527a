package jape

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/japefsm"
	"github.com/coregx/japefsm/pattern"
)

const titles = `
// Person names introduced by a title.
Phase: Names
Input: Token Lookup
Options: control = appelt

Rule: PersonTitle
Priority: 20
(
  ({Token.string == "Mr"} | {Token.string == "Dr"})
  ({Token.orth == upperInitial})+
):person
-->
:person.Person = {rule = "PersonTitle", title = :person.Token.string}

/* Gazetteer hits become locations. */
Rule: Place
({Lookup.majorType == location}):loc
-->
:loc.Location = {kind = city}
`

func TestParsePhase(t *testing.T) {
	p, err := ParseString("titles.jape", titles)
	require.NoError(t, err)

	assert.Equal(t, "Names", p.Name)
	assert.Equal(t, []string{"Token", "Lookup"}, p.Input)
	assert.Equal(t, pattern.Appelt, p.Control)
	require.Len(t, p.Rules, 2)

	title := p.Rules[0]
	assert.Equal(t, "PersonTitle", title.Name)
	assert.Equal(t, 20, title.Priority)
	assert.Equal(t, 0, title.Index)
	assert.Equal(t,
		`(({Token.string == "Mr"} | {Token.string == "Dr"}) {Token.orth == "upperInitial"}+):person`,
		title.Pattern())

	require.Len(t, title.RHS, 1)
	rhs := title.RHS[0]
	assert.Equal(t, "person", rhs.Binding)
	assert.Equal(t, "Person", rhs.Type)
	require.Len(t, rhs.Features, 2)
	assert.Equal(t, pattern.FeatureValue{Name: "rule", Literal: "PersonTitle"}, rhs.Features[0])
	assert.Equal(t, "title", rhs.Features[1].Name)
	require.NotNil(t, rhs.Features[1].Ref)
	assert.Equal(t, ":person.Token.string", rhs.Features[1].Ref.String())

	place := p.Rules[1]
	assert.Equal(t, DefaultPriority, place.Priority)
	assert.Equal(t, 1, place.Index)
	assert.Equal(t, `({Lookup.majorType == "location"}):loc`, place.Pattern())
}

func TestParseCompiles(t *testing.T) {
	p, err := ParseString("titles.jape", titles)
	require.NoError(t, err)

	g, err := japefsm.Compile(p, japefsm.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 2, g.Stats().Rules)
	assert.Equal(t, 2, g.Stats().Groups)
}

func TestQuantifiers(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"{A}?", "{A}?"},
		{"{A}*", "{A}*"},
		{"{A}+", "{A}+"},
		{"{A}[3]", "{A}[3]"},
		{"{A}[2,]", "{A}[2,]"},
		{"{A}[2,4]", "{A}[2,4]"},
		{"({A} {B})[0,1]", "({A} {B})?"},
		{"({A})+", "{A}+"},
		{"(({A}))", "{A}"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			p, err := ParseString("q.jape", "Phase: Q\nRule: R\n"+tt.src+"\n--> :.X = {}")
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Rules[0].Pattern())
		})
	}
}

func TestConstraints(t *testing.T) {
	src := `Phase: C
Rule: R
{Token.kind == word, Token.length >= 3} {!Token.kind == punct} {Token.string =~ "^[A-Z]"}
{Token.kind == word, Token.length >= 3}
--> :.X = {}`

	p, err := ParseString("c.jape", src)
	require.NoError(t, err)
	lhs := p.Rules[0].LHS
	require.Len(t, lhs, 4)

	all, ok := lhs[0].(*pattern.MatcherElement).Matcher.(*pattern.AllOf)
	require.True(t, ok)
	assert.Len(t, all.Matchers, 2)
	assert.Same(t, all, lhs[3].(*pattern.MatcherElement).Matcher, "identical constraint lists share a matcher")

	_, ok = lhs[1].(*pattern.MatcherElement).Matcher.(pattern.NotMatcher)
	assert.True(t, ok)

	re := lhs[2].(*pattern.MatcherElement).Matcher.(pattern.FeatureMatcher)
	assert.Equal(t, pattern.Matches, re.Op)
	assert.Equal(t, "^[A-Z]", re.Value)
}

func TestTopLevelAlternation(t *testing.T) {
	p, err := ParseString("alt.jape", "Phase: A\nRule: R\n{A} {B} | {C}\n--> :.X = {}")
	require.NoError(t, err)
	require.Len(t, p.Rules[0].LHS, 1)
	g, ok := p.Rules[0].LHS[0].(*pattern.GroupElement)
	require.True(t, ok)
	assert.Equal(t, pattern.OpOr, g.Op)
	assert.Equal(t, "(({A} {B}) | {C})", g.String())
}

func TestControlOption(t *testing.T) {
	for _, name := range []string{"appelt", "brill", "all", "first", "once", "Brill"} {
		p, err := ParseString("o.jape", "Phase: O\nOptions: control = "+name+", debug = true\n")
		require.NoError(t, err, name)
		want, _ := pattern.ParseControl(name)
		assert.Equal(t, want, p.Control)
		assert.True(t, p.Debug)
		assert.Empty(t, p.Rules)
	}

	p, err := ParseString("o.jape", "Phase: O\nOptions: debug = false\n")
	require.NoError(t, err)
	assert.False(t, p.Debug)
}

func TestMultipleActions(t *testing.T) {
	src := `Phase: M
Rule: R
({A}):a ({B}):b
-->
:a.First = {n = 1}, :b.Second = {from = :a.A.string}, :.Whole = {}`

	p, err := ParseString("m.jape", src)
	require.NoError(t, err)
	rhs := p.Rules[0].RHS
	require.Len(t, rhs, 3)
	assert.Equal(t, "First", rhs[0].Type)
	assert.Equal(t, "1", rhs[0].Features[0].Literal)
	assert.Equal(t, "b", rhs[1].Binding)
	assert.Equal(t, "a", rhs[1].Features[0].Ref.Binding)
	assert.Empty(t, rhs[2].Binding)
	assert.Empty(t, rhs[2].Features)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		want error
	}{
		{"missing phase", "Rule: R\n{A} --> :.X = {}", 1, ErrSyntax},
		{"missing arrow", "Phase: P\nRule: R\n{A} :.X = {}", 3, ErrSyntax},
		{"unknown option", "Phase: P\nOptions: speed = fast", 2, ErrSemantic},
		{"bad control", "Phase: P\nOptions: control = sometimes", 2, ErrSemantic},
		{"bad debug", "Phase: P\nOptions: debug = maybe", 2, ErrSemantic},
		{"duplicate rule", "Phase: P\nRule: R\n{A} --> :.X = {}\nRule: R\n{B} --> :.X = {}", 4, ErrSemantic},
		{"unknown binding", "Phase: P\nRule: R\n{A}\n--> :who.X = {}", 4, ErrSemantic},
		{"unknown ref binding", "Phase: P\nRule: R\n({A}):a\n--> :a.X = {f = :b.A.f}", 4, ErrSemantic},
		{"duplicate binding", "Phase: P\nRule: R\n({A}):a ({B}):a\n--> :a.X = {}", 3, ErrSemantic},
		{"inverted range", "Phase: P\nRule: R\n{A}[3,1]\n--> :.X = {}", 3, ErrSemantic},
		{"bad regex", "Phase: P\nRule: R\n{A.f =~ \"(\"}\n--> :.X = {}", 3, pattern.ErrInvalidConstraint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString("bad.jape", tt.src)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var perr *Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "bad.jape", perr.Pos.Filename)
			assert.Equal(t, tt.line, perr.Pos.Line)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.jape")
	require.NoError(t, os.WriteFile(path, []byte(titles), 0o644))

	p, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Names", p.Name)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.jape"))
	assert.Error(t, err)
}

package jape

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Token order matters: the first pattern that matches at a position wins,
// so headers come before identifiers and two-character operators before
// punctuation.
var japeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|/\*(?s:.*?)\*/`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Header", Pattern: `(?:Phase|Input|Options|Rule|Priority):`},
	{Name: "Arrow", Pattern: `-->`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "Op", Pattern: `==|!=|=~|!~|<=|>=|<|>`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[{}()\[\]|,.:?*+!=]`},
})

var parser = participle.MustBuild[fileAST](
	participle.Lexer(japeLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
)

type fileAST struct {
	Pos     lexer.Position
	Phase   string       `parser:"'Phase:' @Ident"`
	Input   []string     `parser:"( 'Input:' @Ident* )?"`
	Options []*optionAST `parser:"( 'Options:' @@ ( ',' @@ )* )?"`
	Rules   []*ruleAST   `parser:"@@*"`
}

type optionAST struct {
	Pos   lexer.Position
	Key   string `parser:"@Ident '='"`
	Value string `parser:"@(Ident | Number | String)"`
}

type ruleAST struct {
	Pos      lexer.Position
	Name     string       `parser:"'Rule:' @Ident"`
	Priority *int         `parser:"( 'Priority:' @Number )?"`
	LHS      *altAST      `parser:"@@ '-->'"`
	RHS      []*actionAST `parser:"@@ ( ',' @@ )*"`
}

// altAST is a '|'-separated list of sequences.
type altAST struct {
	Pos  lexer.Position
	Alts []*seqAST `parser:"@@ ( '|' @@ )*"`
}

type seqAST struct {
	Terms []*termAST `parser:"@@+"`
}

type termAST struct {
	Atom  *atomAST  `parser:"@@"`
	Quant *quantAST `parser:"@@?"`
}

type atomAST struct {
	Pos        lexer.Position
	Constraint []*testAST `parser:"  '{' @@ ( ',' @@ )* '}'"`
	Group      *altAST    `parser:"| '(' @@ ')'"`
	Binding    string     `parser:"  ( ':' @Ident )?"`
}

type testAST struct {
	Pos     lexer.Position
	Not     bool   `parser:"@'!'?"`
	Type    string `parser:"@Ident"`
	Feature string `parser:"( '.' @Ident"`
	Op      string `parser:"  @Op"`
	Value   string `parser:"  @(String | Number | Ident) )?"`
}

type quantAST struct {
	Pos   lexer.Position
	Op    string `parser:"  @('?' | '*' | '+')"`
	Min   *int   `parser:"| '[' @Number"`
	Comma bool   `parser:"  @','?"`
	Max   *int   `parser:"  @Number? ']'"`
}

// actionAST is ":binding.Type = {feature = value, ...}". An empty binding
// (":.Type") annotates the whole match.
type actionAST struct {
	Pos      lexer.Position
	Binding  string             `parser:"':' @Ident?"`
	Type     string             `parser:"'.' @Ident '='"`
	Features []*featureValueAST `parser:"'{' ( @@ ( ',' @@ )* )? '}'"`
}

type featureValueAST struct {
	Pos   lexer.Position
	Name  string  `parser:"@Ident '='"`
	Ref   *refAST `parser:"( @@"`
	Value string  `parser:"| @(String | Number | Ident) )"`
}

type refAST struct {
	Pos     lexer.Position
	Binding string `parser:"':' @Ident"`
	Type    string `parser:"'.' @Ident"`
	Feature string `parser:"'.' @Ident"`
}

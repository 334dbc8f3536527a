// Package tokenize splits document text into Token and SpaceToken
// annotations.
package tokenize

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"

	"github.com/coregx/japefsm/annot"
)

// Annotation types created by Annotate.
const (
	TokenType      = "Token"
	SpaceTokenType = "SpaceToken"
)

// Kind classifies a token.
type Kind uint8

const (
	Word Kind = iota
	Number
	Punct
	Symbol
	Space
	Control
)

var kindNames = [...]string{"word", "number", "punct", "symbol", "space", "control"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsSpace reports whether tokens of this kind become SpaceToken annotations.
func (k Kind) IsSpace() bool {
	return k == Space || k == Control
}

// Token is one lexical unit with byte offsets into the text.
type Token struct {
	Kind       Kind
	Start, End int
	Text       string
}

// Orth returns the capitalization class of a word: upperInitial, allCaps,
// lowercase or mixedCaps. It is empty for other kinds.
func (t Token) Orth() string {
	if t.Kind != Word {
		return ""
	}
	return orth(t.Text)
}

func orth(s string) string {
	upper, lower, first := 0, 0, true
	firstUpper := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper++
			if first {
				firstUpper = true
			}
		case unicode.IsLower(r):
			lower++
		}
		first = false
	}
	switch {
	case upper > 1 && lower == 0:
		return "allCaps"
	case firstUpper && upper == 1:
		return "upperInitial"
	case upper == 0:
		return "lowercase"
	default:
		return "mixedCaps"
	}
}

// Tokenizer is a compiled lexer. It is safe for concurrent use.
type Tokenizer struct {
	lexer *lexmachine.Lexer
}

// New compiles the lexer.
func New() (*Tokenizer, error) {
	lx := lexmachine.NewLexer()
	lx.Add([]byte(`[ \t]+`), tokAction(Space))
	lx.Add([]byte(`[\r][\n]|[\r\n]`), tokAction(Control))
	lx.Add([]byte(`[0-9]+([.,][0-9]+)*`), tokAction(Number))
	lx.Add([]byte(`[a-zA-Z]+`), tokAction(Word))
	lx.Add([]byte(`[.,;:!?'"()]|-`), tokAction(Punct))

	if err := lx.Compile(); err != nil {
		return nil, fmt.Errorf("compile tokenizer: %w", err)
	}
	return &Tokenizer{lexer: lx}, nil
}

func tokAction(kind Kind) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return Token{
			Kind:  kind,
			Start: m.TC,
			End:   m.TC + len(m.Bytes),
			Text:  string(m.Bytes),
		}, nil
	}
}

// Tokenize splits text into tokens covering every byte. Input the lexer
// does not cover (non-ASCII text, rarer symbols) is classified rune by
// rune, with adjacent letters kept in one word.
func (t *Tokenizer) Tokenize(text string) ([]Token, error) {
	s, err := t.lexer.Scanner([]byte(text))
	if err != nil {
		return nil, err
	}

	var toks []Token
	for tok, err, eof := s.Next(); !eof; tok, err, eof = s.Next() {
		var ui *machines.UnconsumedInput
		if errors.As(err, &ui) {
			fallback := fallbackToken(text, ui.StartTC)
			toks = append(toks, fallback)
			s.TC = fallback.End
			continue
		}
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok.(Token))
	}
	return mergeWords(toks), nil
}

func fallbackToken(text string, at int) Token {
	r, size := utf8.DecodeRuneInString(text[at:])
	kind := classify(r)
	end := at + size
	if kind == Word || kind == Number {
		for end < len(text) {
			next, n := utf8.DecodeRuneInString(text[end:])
			if next < utf8.RuneSelf || classify(next) != kind {
				break
			}
			end += n
		}
	}
	return Token{Kind: kind, Start: at, End: end, Text: text[at:end]}
}

// asciiSymbols are ASCII characters that Unicode files under punctuation or
// symbols but that read as symbols in text.
const asciiSymbols = "#$%&*+/<=>@\\^_`|~"

func classify(r rune) Kind {
	switch {
	case unicode.IsLetter(r) || unicode.IsMark(r):
		return Word
	case unicode.IsDigit(r):
		return Number
	case unicode.IsSpace(r):
		return Space
	case strings.ContainsRune(asciiSymbols, r):
		return Symbol
	case unicode.IsPunct(r):
		return Punct
	case unicode.IsControl(r):
		return Control
	default:
		return Symbol
	}
}

// mergeWords joins adjacent word pieces, such as ASCII and non-ASCII
// letters of one word.
func mergeWords(toks []Token) []Token {
	out := toks[:0]
	for _, tok := range toks {
		if n := len(out); n > 0 && tok.Kind == Word && out[n-1].Kind == Word && out[n-1].End == tok.Start {
			out[n-1].End = tok.End
			out[n-1].Text += tok.Text
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Annotate tokenizes the document text and adds one annotation per token.
// It returns the number of annotations added.
func (t *Tokenizer) Annotate(doc *annot.Document) (int, error) {
	toks, err := t.Tokenize(doc.Text)
	if err != nil {
		return 0, err
	}
	for _, tok := range toks {
		typ := TokenType
		features := map[string]any{"kind": tok.Kind.String()}
		if tok.Kind.IsSpace() {
			typ = SpaceTokenType
		} else {
			features["string"] = tok.Text
			features["length"] = utf8.RuneCountInString(tok.Text)
			if o := tok.Orth(); o != "" {
				features["orth"] = o
			}
		}
		if _, err := doc.Add(typ, tok.Start, tok.End, features); err != nil {
			return 0, err
		}
	}
	return len(toks), nil
}

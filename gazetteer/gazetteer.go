// Package gazetteer annotates occurrences of listed phrases.
//
// All entries of all lists are searched in one pass with an Aho-Corasick
// automaton. Hits must start and end on word boundaries; at a given
// position the longest entry wins and hits never overlap.
package gazetteer

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
	"gopkg.in/yaml.v3"

	"github.com/coregx/japefsm/annot"
)

// LookupType is the annotation type created for hits.
const LookupType = "Lookup"

// ErrNoLists is returned by LoadLists for a file without lists.
var ErrNoLists = errors.New("gazetteer file has no lists")

// List is a set of phrases sharing a classification.
type List struct {
	MajorType string   `yaml:"majorType"`
	MinorType string   `yaml:"minorType,omitempty"`
	Entries   []string `yaml:"entries"`
}

type listFile struct {
	Lists []List `yaml:"lists"`
}

// LoadLists reads lists from a YAML file of the form
//
//	lists:
//	  - majorType: location
//	    minorType: city
//	    entries: [London, Paris]
func LoadLists(path string) ([]List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gazetteer file: %w", err)
	}
	var f listFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse gazetteer file %s: %w", path, err)
	}
	if len(f.Lists) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoLists, path)
	}
	return f.Lists, nil
}

// Options configures a Gazetteer.
type Options struct {
	// CaseInsensitive folds ASCII letters before matching.
	CaseInsensitive bool
}

// Gazetteer finds list entries in text.
type Gazetteer struct {
	opts    Options
	auto    *ahocorasick.Automaton
	entries map[string][]int // folded entry -> list indexes
	lengths []int            // distinct entry lengths, longest first
	lists   []List
}

// New builds a Gazetteer over lists. Empty entries are ignored.
func New(lists []List, opts Options) (*Gazetteer, error) {
	g := &Gazetteer{
		opts:    opts,
		entries: make(map[string][]int),
		lists:   lists,
	}

	seenLen := make(map[int]bool)
	var patterns []string
	for li, l := range lists {
		for _, e := range l.Entries {
			if e == "" {
				continue
			}
			key := g.fold(e)
			if _, ok := g.entries[key]; !ok {
				patterns = append(patterns, key)
			}
			if idx := g.entries[key]; len(idx) == 0 || idx[len(idx)-1] != li {
				g.entries[key] = append(idx, li)
			}
			if !seenLen[len(key)] {
				seenLen[len(key)] = true
				g.lengths = append(g.lengths, len(key))
			}
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(g.lengths)))
	if len(patterns) == 0 {
		return g, nil
	}

	// Longer entries first so that the leftmost match is also the longest.
	sort.SliceStable(patterns, func(i, j int) bool { return len(patterns[i]) > len(patterns[j]) })
	builder := ahocorasick.NewBuilder()
	for _, p := range patterns {
		builder.AddPattern([]byte(p))
	}
	auto, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build gazetteer automaton: %w", err)
	}
	g.auto = auto
	return g, nil
}

// Len returns the number of distinct entries.
func (g *Gazetteer) Len() int {
	return len(g.entries)
}

func (g *Gazetteer) fold(s string) string {
	if !g.opts.CaseInsensitive {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

// Hit is one match of an entry.
type Hit struct {
	Start, End int
	// Lists indexes the lists containing the entry.
	Lists []int
}

// Find returns the non-overlapping whole-word hits in text.
func (g *Gazetteer) Find(text string) []Hit {
	if g.auto == nil {
		return nil
	}
	folded := g.fold(text)
	haystack := []byte(folded)

	var hits []Hit
	for at := 0; at < len(haystack); {
		m := g.auto.Find(haystack, at)
		if m == nil {
			break
		}
		end := g.longestAt(folded, text, m.Start)
		if end < 0 {
			at = m.Start + 1
			continue
		}
		hits = append(hits, Hit{Start: m.Start, End: end, Lists: g.entries[folded[m.Start:end]]})
		at = end
	}
	return hits
}

// longestAt returns the end of the longest entry starting at start that
// ends on a word boundary, or -1.
func (g *Gazetteer) longestAt(folded, text string, start int) int {
	if !wordBoundary(text, start) {
		return -1
	}
	for _, l := range g.lengths {
		if start+l > len(folded) {
			continue
		}
		if _, ok := g.entries[folded[start:start+l]]; ok && wordBoundary(text, start+l) {
			return start + l
		}
	}
	return -1
}

// wordBoundary reports whether offset i of s does not split a word.
func wordBoundary(s string, i int) bool {
	if i <= 0 || i >= len(s) {
		return true
	}
	before, _ := utf8.DecodeLastRuneInString(s[:i])
	after, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(before) || !isWordRune(after)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// Annotate adds one Lookup annotation per hit and containing list, with
// majorType and, when set, minorType features. It returns the number of
// annotations added.
func (g *Gazetteer) Annotate(doc *annot.Document) (int, error) {
	n := 0
	for _, h := range g.Find(doc.Text) {
		for _, li := range h.Lists {
			l := g.lists[li]
			features := map[string]any{"majorType": l.MajorType}
			if l.MinorType != "" {
				features["minorType"] = l.MinorType
			}
			if _, err := doc.Add(LookupType, h.Start, h.End, features); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

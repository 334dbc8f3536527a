// Package annot is the annotation data model the pattern runtime works on.
//
// A Document holds text and a set of typed, feature-carrying annotations
// over byte offsets of that text. Tokenizers and gazetteers add
// annotations; compiled phases read them and add more.
package annot

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidSpan is returned when an annotation span falls outside the text
// or ends before it starts.
var ErrInvalidSpan = errors.New("invalid annotation span")

// Annotation is a typed span over a document's text.
// Start and End are byte offsets, End exclusive.
type Annotation struct {
	ID       int
	Type     string
	Start    int
	End      int
	Features map[string]any
}

// Feature returns the named feature value.
func (a *Annotation) Feature(name string) (any, bool) {
	if a.Features == nil {
		return nil, false
	}
	v, ok := a.Features[name]
	return v, ok
}

// Len returns the span length in bytes.
func (a *Annotation) Len() int {
	return a.End - a.Start
}

// String returns a compact description such as Token[0,5)#1{kind=word}.
func (a *Annotation) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[%d,%d)#%d", a.Type, a.Start, a.End, a.ID)
	if len(a.Features) > 0 {
		sb.WriteByte('{')
		for i, k := range sortedKeys(a.Features) {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, a.Features[k])
		}
		sb.WriteByte('}')
	}
	return sb.String()
}

// Document is a text with its annotations.
// Documents are not safe for concurrent mutation.
type Document struct {
	Name string
	Text string

	anns   []*Annotation
	nextID int
}

// NewDocument creates an empty annotated document.
func NewDocument(name, text string) *Document {
	return &Document{Name: name, Text: text, nextID: 1}
}

// Add creates an annotation and returns it. The features map is retained.
func (d *Document) Add(typ string, start, end int, features map[string]any) (*Annotation, error) {
	if start < 0 || end < start || end > len(d.Text) {
		return nil, fmt.Errorf("%w: %s [%d,%d) in text of length %d", ErrInvalidSpan, typ, start, end, len(d.Text))
	}
	if d.nextID == 0 {
		d.nextID = 1
	}
	a := &Annotation{
		ID:       d.nextID,
		Type:     typ,
		Start:    start,
		End:      end,
		Features: features,
	}
	d.nextID++
	d.anns = append(d.anns, a)
	return a, nil
}

// Len returns the number of annotations.
func (d *Document) Len() int {
	return len(d.anns)
}

// All returns every annotation in document order.
func (d *Document) All() []*Annotation {
	return d.ByType()
}

// ByType returns the annotations of the given types in document order:
// by start offset, then longest first, then creation order.
// With no types every annotation is returned.
func (d *Document) ByType(types ...string) []*Annotation {
	var want map[string]bool
	if len(types) > 0 {
		want = make(map[string]bool, len(types))
		for _, t := range types {
			want[t] = true
		}
	}

	out := make([]*Annotation, 0, len(d.anns))
	for _, a := range d.anns {
		if want == nil || want[a.Type] {
			out = append(out, a)
		}
	}
	SortAnnotations(out)
	return out
}

// TextOf returns the text covered by a.
func (d *Document) TextOf(a *Annotation) string {
	return d.Text[a.Start:a.End]
}

// Span returns the text between two byte offsets.
func (d *Document) Span(start, end int) string {
	return d.Text[start:end]
}

// SortAnnotations orders annotations by start, then by descending end,
// then by id.
func SortAnnotations(anns []*Annotation) {
	sort.SliceStable(anns, func(i, j int) bool {
		a, b := anns[i], anns[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End > b.End
		}
		return a.ID < b.ID
	})
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

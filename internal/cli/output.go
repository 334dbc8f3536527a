package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"

	"github.com/coregx/japefsm"
	"github.com/coregx/japefsm/annot"
	"github.com/coregx/japefsm/internal/logging"
)

// styles renders headings for one output stream. Colors are only used on
// terminals.
type styles struct {
	title lipgloss.Style
	muted lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	if !logging.IsTerminal(w) {
		pterm.DisableStyling()
	}
	return styles{
		title: r.NewStyle().Bold(true),
		muted: r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func renderTable(w io.Writer, data pterm.TableData) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// writeStats prints a heading line and the per-stage size table.
func writeStats(w io.Writer, l *loaded) error {
	st := newStyles(w)
	s := l.grammar.Stats()

	heading := fmt.Sprintf("Phase %s: %d rules, %d matchers, %d groups", l.phase.Name, s.Rules, s.Matchers, s.Groups)
	note := fmt.Sprintf("compiled in %s", s.Elapsed)
	if l.cached {
		note = "restored from cache"
	}
	fmt.Fprintln(w, st.title.Render(heading), st.muted.Render("("+note+")"))

	data := pterm.TableData{
		{"Stage", "States", "Transitions"},
		{"NFA", strconv.Itoa(s.NFAStates), strconv.Itoa(s.NFATransitions)},
	}
	if s.DFAStates > 0 {
		data = append(data, []string{"DFA", strconv.Itoa(s.DFAStates), strconv.Itoa(s.DFATransitions)})
	}
	final := "Minimized"
	if !l.minimized {
		final = "Final"
	}
	data = append(data, []string{final, strconv.Itoa(s.MinimizedStates), strconv.Itoa(s.MinimizedTransitions)})
	return renderTable(w, data)
}

// writeAnnotations prints one row per annotation.
func writeAnnotations(w io.Writer, doc *annot.Document, anns []*annot.Annotation) error {
	st := newStyles(w)
	fmt.Fprintln(w, st.title.Render(fmt.Sprintf("%d annotations added to %s", len(anns), doc.Name)))
	if len(anns) == 0 {
		return nil
	}

	data := pterm.TableData{{"Type", "Start", "End", "Text", "Features"}}
	for _, a := range anns {
		data = append(data, []string{
			a.Type,
			strconv.Itoa(a.Start),
			strconv.Itoa(a.End),
			strconv.Quote(doc.TextOf(a)),
			formatFeatures(a.Features),
		})
	}
	return renderTable(w, data)
}

func formatFeatures(features map[string]any) string {
	keys := make([]string, 0, len(features))
	for k := range features {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, features[k])
	}
	return strings.Join(parts, ", ")
}

// statsLine is the single-line summary used by watch.
func statsLine(name string, s japefsm.Stats) string {
	return fmt.Sprintf("%s: %s", name, s)
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coregx/japefsm/fsm"
)

func (a *app) compileCmd() *cobra.Command {
	var (
		dotPath    string
		tablePath  string
		noMinimize bool
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "compile RULES",
		Short: "Compile a rule file and print stage statistics",
		Long: `Compile parses a rule file, builds the phase automaton and prints the
size of each stage. The final automaton can be written as a Graphviz graph
or a JSON transition table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.load(args[0], !noMinimize, !noCache)
			if err != nil {
				return err
			}
			if err := writeStats(cmd.OutOrStdout(), l); err != nil {
				return err
			}

			if dotPath != "" {
				err := writeFile(dotPath, func(w io.Writer) error {
					return writeDot(w, l, false)
				})
				if err != nil {
					return err
				}
				log.Info().Str("path", dotPath).Msg("Wrote dot graph")
			}
			if tablePath != "" {
				err := writeFile(tablePath, func(w io.Writer) error {
					return writeTable(w, l.grammar.Automaton().Table())
				})
				if err != nil {
					return err
				}
				log.Info().Str("path", tablePath).Msg("Wrote transition table")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dotPath, "dot", "", "write the final automaton as a Graphviz graph to `FILE`")
	cmd.Flags().StringVar(&tablePath, "table", "", "write the final automaton as a JSON table to `FILE`")
	cmd.Flags().BoolVar(&noMinimize, "no-minimize", false, "skip minimization")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the compile cache")
	return cmd
}

func (a *app) dotCmd() *cobra.Command {
	var (
		nfa        bool
		noMinimize bool
	)

	cmd := &cobra.Command{
		Use:   "dot RULES",
		Short: "Print the phase automaton as a Graphviz graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.load(args[0], !noMinimize, !nfa)
			if err != nil {
				return err
			}
			return writeDot(cmd.OutOrStdout(), l, nfa)
		},
	}

	cmd.Flags().BoolVar(&nfa, "nfa", false, "print the epsilon-NFA instead of the final automaton")
	cmd.Flags().BoolVar(&noMinimize, "no-minimize", false, "skip minimization")
	return cmd
}

func writeDot(w io.Writer, l *loaded, nfa bool) error {
	a := l.grammar.Automaton()
	if nfa {
		a = l.grammar.NFA()
	}
	return fsm.WriteDot(w, a,
		fsm.WithLabeler(l.grammar.LabelString),
		fsm.WithGraphName(l.phase.Name))
}

func writeTable(w io.Writer, t fsm.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// writeFile creates path and hands it to fn, reporting the first error of
// writing or closing.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

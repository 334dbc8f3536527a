package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coregx/japefsm/annot"
	"github.com/coregx/japefsm/gazetteer"
	"github.com/coregx/japefsm/internal/logging"
	"github.com/coregx/japefsm/pattern"
	"github.com/coregx/japefsm/runtime"
	"github.com/coregx/japefsm/tokenize"
)

func (a *app) applyCmd() *cobra.Command {
	var (
		lists           []string
		caseInsensitive bool
		input           []string
		control         string
		asXML           bool
		xmlTypes        []string
	)

	cmd := &cobra.Command{
		Use:   "apply RULES TEXTFILE",
		Short: "Annotate a text file with a compiled phase",
		Long: `Apply tokenizes a text file, marks gazetteer list entries as Lookup
annotations, runs the phase and prints the annotations it created, either
as a table or as inline XML.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.load(args[0], a.cfg.Compile.Minimize, true)
			if err != nil {
				return err
			}
			text, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read text file: %w", err)
			}
			doc := annot.NewDocument(filepath.Base(args[1]), string(text))

			if err := a.preprocess(doc, lists, caseInsensitive); err != nil {
				return err
			}

			opts := []runtime.Option{runtime.WithLogger(logging.Get("runtime"))}
			if len(input) == 0 {
				input = a.cfg.Runtime.Input
			}
			opts = append(opts, runtime.WithInput(input...))
			if control == "" {
				control = a.cfg.Runtime.Control
			}
			if control != "" {
				ctl, err := pattern.ParseControl(control)
				if err != nil {
					return err
				}
				opts = append(opts, runtime.WithControl(ctl))
			}

			added, err := runtime.New(l.grammar, opts...).Apply(doc)
			if err != nil {
				return err
			}

			if asXML {
				if len(xmlTypes) == 0 {
					xmlTypes = outputTypes(l.phase)
				}
				out, err := annot.RenderXML(doc, xmlTypes...)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
				return err
			}
			return writeAnnotations(cmd.OutOrStdout(), doc, added)
		},
	}

	cmd.Flags().StringSliceVar(&lists, "lists", nil, "gazetteer list `FILE`s (default from config)")
	cmd.Flags().BoolVar(&caseInsensitive, "ignore-case", false, "match gazetteer entries case-insensitively")
	cmd.Flags().StringSliceVar(&input, "input", nil, "override the phase's input annotation `TYPES`")
	cmd.Flags().StringVar(&control, "control", "", "override the phase's control style (appelt, brill, all, first, once)")
	cmd.Flags().BoolVar(&asXML, "xml", false, "print the document as inline XML")
	cmd.Flags().StringSliceVar(&xmlTypes, "xml-types", nil, "annotation `TYPES` rendered by --xml (default: the phase's output types)")
	return cmd
}

// preprocess adds Token, SpaceToken and Lookup annotations.
func (a *app) preprocess(doc *annot.Document, lists []string, caseInsensitive bool) error {
	logger := logging.Get("apply")

	tk, err := tokenize.New()
	if err != nil {
		return err
	}
	n, err := tk.Annotate(doc)
	if err != nil {
		return err
	}
	logger.Debug().Int("tokens", n).Msg("Tokenized")

	if len(lists) == 0 {
		lists = a.cfg.Gazetteer.Lists
	}
	if len(lists) == 0 {
		return nil
	}
	var all []gazetteer.List
	for _, path := range lists {
		ls, err := gazetteer.LoadLists(path)
		if err != nil {
			return err
		}
		all = append(all, ls...)
	}
	gz, err := gazetteer.New(all, gazetteer.Options{
		CaseInsensitive: caseInsensitive || a.cfg.Gazetteer.CaseInsensitive,
	})
	if err != nil {
		return err
	}
	n, err = gz.Annotate(doc)
	if err != nil {
		return err
	}
	log.Info().Int("lookups", n).Int("entries", gz.Len()).Msg("Gazetteer applied")
	return nil
}

// outputTypes lists the annotation types the phase's actions create, in
// rule order.
func outputTypes(p *pattern.Phase) []string {
	seen := make(map[string]bool)
	var types []string
	for _, r := range p.Rules {
		for _, rhs := range r.RHS {
			if !seen[rhs.Type] {
				seen[rhs.Type] = true
				types = append(types, rhs.Type)
			}
		}
	}
	return types
}

package cli

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/coregx/japefsm/store"
)

func (a *app) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the compile cache",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List cached tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(a.cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			st := newStyles(out)
			fmt.Fprintln(out, st.title.Render(fmt.Sprintf("%d cached tables", len(entries))), st.muted.Render(s.Path()))
			if len(entries) == 0 {
				return nil
			}

			data := pterm.TableData{{"Key", "Phase", "Created", "Rules", "States", "Transitions"}}
			for _, e := range entries {
				data = append(data, []string{
					e.Key[:min(12, len(e.Key))],
					e.Phase,
					e.CreatedAt.Local().Format("2006-01-02 15:04"),
					strconv.Itoa(e.Stats.Rules),
					strconv.Itoa(len(e.Table.States)),
					strconv.Itoa(e.Stats.MinimizedTransitions),
				})
			}
			return renderTable(out, data)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(a.cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached tables\n", n)
			return nil
		},
	}

	cmd.AddCommand(list, clearCmd)
	return cmd
}

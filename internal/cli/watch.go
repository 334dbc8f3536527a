package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// debounceInterval absorbs the burst of events editors produce per save.
const debounceInterval = 100 * time.Millisecond

func (a *app) watchCmd() *cobra.Command {
	var noMinimize bool

	cmd := &cobra.Command{
		Use:   "watch RULES",
		Short: "Recompile a rule file whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			out := cmd.OutOrStdout()

			recompile := func() {
				l, err := a.load(path, !noMinimize, true)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", path, err)
					return
				}
				fmt.Fprintln(out, statsLine(path, l.grammar.Stats()))
			}
			recompile()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watchFile(ctx, path, debounceInterval, recompile)
		},
	}

	cmd.Flags().BoolVar(&noMinimize, "no-minimize", false, "skip minimization")
	return cmd
}

// watchFile calls onChange once per burst of writes to path until ctx is
// done. The parent directory is watched so that editors replacing the file
// are noticed too.
func watchFile(ctx context.Context, path string, interval time.Duration, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	log.Info().Str("path", abs).Msg("Watching for changes")

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.Debug().Str("event", event.Op.String()).Msg("Rule file changed")
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(interval, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")

		case <-fire:
			onChange()
		}
	}
}

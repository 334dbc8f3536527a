// Package cli implements the japec command line.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coregx/japefsm"
	"github.com/coregx/japefsm/config"
	"github.com/coregx/japefsm/internal/logging"
	"github.com/coregx/japefsm/jape"
	"github.com/coregx/japefsm/pattern"
	"github.com/coregx/japefsm/store"
)

// app holds state shared by all commands of one invocation.
type app struct {
	verbosity  int
	configPath string
	cfg        config.Config
}

// NewRootCmd creates the japec command tree.
func NewRootCmd() *cobra.Command {
	a := &app{cfg: config.Default()}

	root := &cobra.Command{
		Use:   "japec",
		Short: "Compile and apply annotation pattern grammars",
		Long: `japec compiles rule files of prioritized annotation patterns into
minimized deterministic automata, exports them as Graphviz or JSON tables,
and applies them to text.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Logging depends on the config, so the load itself is silent.
			cfg, err := config.Load(a.configPath, zerolog.Nop())
			if err != nil {
				return err
			}
			a.cfg = cfg

			verbosity := a.verbosity
			if verbosity == 0 {
				verbosity = cfg.Log.Verbosity
			}
			logging.Setup(verbosity, cmd.ErrOrStderr(), cfg.Log.File)
			log.Debug().Str("command", cmd.Name()).Str("config", a.configPath).Msg("Command started")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/japefsm/config.toml)")

	root.AddCommand(
		a.compileCmd(),
		a.dotCmd(),
		a.applyCmd(),
		a.watchCmd(),
		a.cacheCmd(),
		a.configCmd(),
	)
	return root
}

// loaded is a parsed and compiled rule file.
type loaded struct {
	phase     *pattern.Phase
	grammar   *japefsm.Grammar
	cached    bool
	minimized bool
}

// load parses and compiles the rule file at path, going through the cache
// when it is enabled and useCache is set. A cache that cannot be opened is
// logged and bypassed.
func (a *app) load(path string, minimize, useCache bool) (*loaded, error) {
	logger := logging.Get("compile")
	done := logging.LogOperationStart(logger, "load "+path)
	defer done()

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	phase, err := jape.Parse(path, src)
	if err != nil {
		return nil, err
	}
	cfg := a.cfg.CompileConfig(logger).WithMinimize(minimize)

	if useCache && a.cfg.Cache.Enabled {
		s, err := store.Open(a.cfg.Cache.Path)
		if err == nil {
			defer s.Close()
			g, cached, err := s.Compile(phase, src, cfg)
			if err != nil {
				return nil, err
			}
			return &loaded{phase: phase, grammar: g, cached: cached, minimized: minimize}, nil
		}
		logger.Warn().Err(err).Str("path", a.cfg.Cache.Path).Msg("Cache unavailable, compiling directly")
	}

	g, err := japefsm.Compile(phase, cfg)
	if err != nil {
		return nil, err
	}
	return &loaded{phase: phase, grammar: g, minimized: minimize}, nil
}

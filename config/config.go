// Package config loads the japec configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/japefsm/config.toml by
// default. Missing keys keep their defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/coregx/japefsm"
	"github.com/coregx/japefsm/pattern"
)

const (
	// AppName names the XDG subdirectory used for config, cache and state.
	AppName = "japefsm"
	// FileName is the config file name inside the XDG config directory.
	FileName = "config.toml"
	// CacheFileName is the default bbolt cache file name.
	CacheFileName = "cache.db"
)

// Config is the on-disk configuration.
type Config struct {
	Compile   Compile   `toml:"compile"`
	Runtime   Runtime   `toml:"runtime"`
	Gazetteer Gazetteer `toml:"gazetteer"`
	Cache     Cache     `toml:"cache"`
	Log       Log       `toml:"log"`
}

// Compile holds grammar compilation limits.
type Compile struct {
	Minimize          bool `toml:"minimize"`
	MaxStates         int  `toml:"max_states"`
	MaxRecursionDepth int  `toml:"max_recursion_depth"`
}

// Runtime overrides phase settings when applying a grammar.
type Runtime struct {
	// Input replaces the phase's Input list when non-empty.
	Input []string `toml:"input"`
	// Control replaces the phase's control style when non-empty.
	Control string `toml:"control"`
}

// Gazetteer configures list lookup.
type Gazetteer struct {
	Lists           []string `toml:"lists"`
	CaseInsensitive bool     `toml:"case_insensitive"`
}

// Cache configures the compiled-table cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Log configures logging.
type Log struct {
	Verbosity int  `toml:"verbosity"`
	File      bool `toml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	c := japefsm.DefaultConfig()
	return Config{
		Compile: Compile{
			Minimize:          c.Minimize,
			MaxStates:         c.MaxStates,
			MaxRecursionDepth: c.MaxRecursionDepth,
		},
		Cache: Cache{
			Enabled: true,
			Path:    filepath.Join(xdg.CacheHome, AppName, CacheFileName),
		},
	}
}

// DefaultPath returns the config file location under XDG_CONFIG_HOME.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, FileName)
}

// Load reads the file at path over the defaults. A missing file is not an
// error; an empty path means DefaultPath.
func Load(path string, logger zerolog.Logger) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	logger = logger.With().Str("configPath", path).Logger()

	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug().Msg("No config file, using defaults")
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logger.Debug().
		Bool("minimize", cfg.Compile.Minimize).
		Int("max_states", cfg.Compile.MaxStates).
		Int("lists", len(cfg.Gazetteer.Lists)).
		Msg("Config loaded")
	return cfg, nil
}

// Validate checks limits and the control override.
func (c Config) Validate() error {
	if err := c.CompileConfig(zerolog.Nop()).Validate(); err != nil {
		return err
	}
	if c.Runtime.Control != "" {
		if _, err := pattern.ParseControl(c.Runtime.Control); err != nil {
			return fmt.Errorf("%w: runtime.control: %v", japefsm.ErrInvalidConfig, err)
		}
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("%w: log.verbosity must be >= 0, got %d", japefsm.ErrInvalidConfig, c.Log.Verbosity)
	}
	return nil
}

// CompileConfig converts the compile section into a japefsm.Config.
func (c Config) CompileConfig(logger zerolog.Logger) japefsm.Config {
	return japefsm.DefaultConfig().
		WithMinimize(c.Compile.Minimize).
		WithMaxStates(c.Compile.MaxStates).
		WithMaxRecursionDepth(c.Compile.MaxRecursionDepth).
		WithLogger(logger)
}

// Save writes c to path as TOML, creating parent directories.
func Save(path string, c Config) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode TOML: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/japefsm"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	def := japefsm.DefaultConfig()

	assert.Equal(t, def.Minimize, c.Compile.Minimize)
	assert.Equal(t, def.MaxStates, c.Compile.MaxStates)
	assert.Equal(t, def.MaxRecursionDepth, c.Compile.MaxRecursionDepth)
	assert.True(t, c.Cache.Enabled)
	assert.True(t, strings.HasSuffix(c.Cache.Path, filepath.Join(AppName, CacheFileName)))
	assert.NoError(t, c.Validate())
}

func TestDefaultPath(t *testing.T) {
	assert.True(t, strings.HasSuffix(DefaultPath(), filepath.Join(AppName, FileName)))
}

func TestLoadMissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.toml"), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
[compile]
minimize = false
max_states = 500

[runtime]
input = ["Token", "Lookup"]
control = "all"

[gazetteer]
lists = ["cities.yaml"]
case_insensitive = true

[cache]
enabled = false

[log]
verbosity = 2
`)

	c, err := Load(path, zerolog.Nop())
	require.NoError(t, err)

	assert.False(t, c.Compile.Minimize)
	assert.Equal(t, 500, c.Compile.MaxStates)
	assert.Equal(t, Default().Compile.MaxRecursionDepth, c.Compile.MaxRecursionDepth, "unset key keeps default")
	assert.Equal(t, []string{"Token", "Lookup"}, c.Runtime.Input)
	assert.Equal(t, "all", c.Runtime.Control)
	assert.Equal(t, []string{"cities.yaml"}, c.Gazetteer.Lists)
	assert.True(t, c.Gazetteer.CaseInsensitive)
	assert.False(t, c.Cache.Enabled)
	assert.Equal(t, Default().Cache.Path, c.Cache.Path)
	assert.Equal(t, 2, c.Log.Verbosity)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		invalid bool
	}{
		{"syntax", "[compile\nminimize = true", false},
		{"wrong type", "[compile]\nmax_states = \"many\"", false},
		{"zero states", "[compile]\nmax_states = 0", true},
		{"bad control", "[runtime]\ncontrol = \"sometimes\"", true},
		{"negative verbosity", "[log]\nverbosity = -1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content), zerolog.Nop())
			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, japefsm.ErrInvalidConfig)
			}
		})
	}
}

func TestCompileConfig(t *testing.T) {
	c := Default()
	c.Compile.Minimize = false
	c.Compile.MaxStates = 42
	c.Compile.MaxRecursionDepth = 7

	jc := c.CompileConfig(zerolog.Nop())
	assert.False(t, jc.Minimize)
	assert.Equal(t, 42, jc.MaxStates)
	assert.Equal(t, 7, jc.MaxRecursionDepth)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	c := Default()
	c.Runtime.Control = "brill"
	c.Runtime.Input = []string{"Token"}
	c.Gazetteer.Lists = []string{"a.yaml", "b.yaml"}

	require.NoError(t, Save(path, c))
	got, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadLogsToGivenLogger(t *testing.T) {
	path := writeFile(t, "[compile]\nmax_states = 10\n")

	var buf bytes.Buffer
	_, err := Load(path, zerolog.New(&buf).Level(zerolog.DebugLevel))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"message":"Config loaded"`)
	assert.Contains(t, buf.String(), `"max_states":10`)

	buf.Reset()
	_, err = Load(filepath.Join(t.TempDir(), "nope.toml"), zerolog.New(&buf).Level(zerolog.DebugLevel))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No config file")
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultSchema, cfg.DefaultSchema)
	assert.Equal(t, DefaultDialect, cfg.Dialect)
	assert.Equal(t, DefaultStatePath, cfg.StatePath)
	assert.Equal(t, DefaultTraversalDepth, cfg.MaxDepth)
	assert.True(t, cfg.IncludeColumnLineage)
	assert.Equal(t, 5432, cfg.Source.Port)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lineagraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  name: warehouse
  host: pg.internal
  database: wh
  schemas: [public, analytics]
default_schema: analytics
max_depth: 8
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "warehouse", cfg.Source.Name)
	assert.Equal(t, "pg.internal", cfg.Source.Host)
	assert.Equal(t, []string{"public", "analytics"}, cfg.Source.Schemas)
	assert.Equal(t, "analytics", cfg.DefaultSchema)
	assert.Equal(t, 8, cfg.MaxDepth)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultStatePath, cfg.StatePath)
}

func TestLoad_ExplicitMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LINEAGRAPH_SOURCE__HOST", "env-host")
	t.Setenv("LINEAGRAPH_MAX_DEPTH", "3")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.Source.Host)
	assert.Equal(t, 3, cfg.MaxDepth)
}

func TestLoad_FlagsWinOverEnv(t *testing.T) {
	t.Setenv("LINEAGRAPH_STATE_PATH", "from-env.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("state", "", "")
	flags.Int("depth", 0, "")
	require.NoError(t, flags.Parse([]string{"--state=from-flag.db", "--depth=2"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "from-flag.db", cfg.StatePath)
	assert.Equal(t, 2, cfg.MaxDepth)
}

func TestLoad_UnchangedFlagsIgnored(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("state", "flag-default.db", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, DefaultStatePath, cfg.StatePath)
}

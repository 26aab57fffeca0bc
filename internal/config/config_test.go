package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Listen)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "start", cfg.EntryNode)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Log.Debug)
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WORKFLOW_DATABASE_URL", "postgres://localhost/wf")
	t.Setenv("WORKFLOW_LOG_DEBUG", "true")
	t.Setenv("WORKFLOW_ENTRY_NODE", "begin")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "postgres://localhost/wf", cfg.DatabaseURL)
	assert.Equal(t, "begin", cfg.EntryNode)
	assert.True(t, cfg.Log.Debug)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":8080\"\nlog:\n  format: human\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "human", cfg.Log.Format)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("postgres without url", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("WORKFLOW_STORE", "postgres")
		_, err := Load("")
		assert.ErrorContains(t, err, "database_url")
	})

	t.Run("unknown store", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("WORKFLOW_STORE", "redis")
		_, err := Load("")
		assert.ErrorContains(t, err, "unknown store")
	})

	t.Run("unknown log format", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("WORKFLOW_LOG_FORMAT", "xml")
		_, err := Load("")
		assert.ErrorContains(t, err, "log format")
	})
}

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	logger, err := New(Config{Format: "json", OutputPaths: []string{path}})
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("compiled", zap.Int("steps", 3))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "compiled", entry["msg"])
	assert.Equal(t, float64(3), entry["steps"])
}

func TestNew_DebugLevel(t *testing.T) {
	logger, err := New(Config{Format: "human", Debug: true, OutputPaths: []string{filepath.Join(t.TempDir(), "d.log")}})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = New(Config{Format: "json", OutputPaths: []string{filepath.Join(t.TempDir(), "i.log")}})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

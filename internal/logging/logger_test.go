package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DEBUG,
		" INFO ":  INFO,
		"warning": WARN,
		"warn":    WARN,
		"error":   ERROR,
		"verbose": INFO,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: WARN, Output: &buf})
	require.NoError(t, err)

	logger.Slog().Info("hidden")
	logger.With("component", "importer").Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "component=importer")
}

func TestJSONFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "featurekg.log")
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: INFO, OutputFile: path, JSONFormat: true, Output: &buf})
	require.NoError(t, err)

	logger.Slog().Info("import finished", "nodes_created", 3)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nodes_created":3`)
	assert.Equal(t, buf.String(), string(data))
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "featurekg.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0644))
	require.NoError(t, os.WriteFile(path+".1", []byte("older"), 0644))

	logger, err := NewLogger(Config{OutputFile: path, MaxSize: 32, MaxBackups: 3, Output: &bytes.Buffer{}})
	require.NoError(t, err)
	defer logger.Close()

	rotated, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Len(t, rotated, 64)

	older, err := os.ReadFile(path + ".2")
	require.NoError(t, err)
	assert.Equal(t, "older", string(older))
}

func TestInitializeInstallsDefault(t *testing.T) {
	var buf bytes.Buffer
	_, err := Initialize(Config{Level: DEBUG, Output: &buf})
	require.NoError(t, err)
	t.Cleanup(func() { Close() })

	Default().Debug("via default")
	assert.Contains(t, buf.String(), "via default")
	assert.Empty(t, LogFilePath())
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: ERROR, Output: &buf})
	require.NoError(t, err)
	derived := logger.With("component", "api")

	derived.Info("before")
	logger.SetLevel(DEBUG)
	derived.Debug("after")

	assert.NotContains(t, buf.String(), "before")
	assert.Contains(t, buf.String(), "after")
}

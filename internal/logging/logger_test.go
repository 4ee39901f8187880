package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesRotatingFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(dir, false)
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("logger ready")
	logger.Sync() //nolint:errcheck // best-effort flush

	data, err := os.ReadFile(filepath.Join(dir, "warnmap.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "logger ready")
}

func TestNewDevelopmentMode(t *testing.T) {
	logger, err := New(t.TempDir(), true)
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Debug("development logger ready")
	logger.Sync() //nolint:errcheck // best-effort flush
}

func TestNewBadDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := New(filepath.Join(file, "logs"), false)
	assert.Error(t, err)
}

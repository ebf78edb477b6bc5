package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetLogLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"DEBUG": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"":      zapcore.InfoLevel,
		"bogus": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, getLogLevel(in).Level(), in)
	}
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	log, err := New(Config{Level: "debug", File: path})
	require.NoError(t, err)
	log.Info("hello")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i := 0; i < 4; i++ {
		require.NoError(t, os.WriteFile(path, []byte("run"), 0o644))
		require.NoError(t, Rotate(path, 2, start.Add(time.Duration(i)*time.Minute)))
	}

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	rotated, err := filepath.Glob(filepath.Join(dir, "app-*.log"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "app-20260102-030605.000.log"),
		filepath.Join(dir, "app-20260102-030705.000.log"),
	}, rotated)
}

func TestRotateWithoutExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new", "app.log")
	require.NoError(t, Rotate(path, 0, time.Now()))
	assert.DirExists(t, filepath.Dir(path))
}

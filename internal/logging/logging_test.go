package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceLevelNames(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level:       LevelTrace,
		ReplaceAttr: replaceLevelNames,
	}))

	logger.Log(context.Background(), LevelTrace, "tracing")
	logger.Log(context.Background(), LevelFatal, "dying")
	logger.Info("plain")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)

	levels := make([]string, 0, len(lines))
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		levels = append(levels, entry["level"].(string))
	}
	assert.Equal(t, []string{"TRACE", "FATAL", "INFO"}, levels)
}

func TestNewFileLogger(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "logs", "service.log")
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelDebug)

	logger, closeFn, err := NewFileLogger(logPath, "testsvc", levelVar)
	require.NoError(t, err)

	logger.Info("hello", "key", "value")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "testsvc", entry["service"])
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestNewFileLoggerRespectsLevel(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "service.log")
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)

	logger, closeFn, err := NewFileLogger(logPath, "testsvc", levelVar)
	require.NoError(t, err)

	logger.Debug("suppressed")
	logger.Warn("kept")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "suppressed")
	assert.Contains(t, string(data), "kept")
}

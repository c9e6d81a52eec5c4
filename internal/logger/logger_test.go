package logger

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureStderr(t *testing.T, fn func()) string {
	origErr := os.Stderr
	defer func() { os.Stderr = origErr }()

	r, w, err := os.Pipe()
	require.NoError(t, err, "failed to create stderr pipe")

	os.Stderr = w

	fn()

	err = w.Close()
	require.NoError(t, err, "failed to close stderr pipe")

	errBytes, err := io.ReadAll(r)
	require.NoError(t, err, "failed to read stderr pipe")

	return string(errBytes)
}

func TestLogger_parseLevel(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		tests := []struct {
			input    string
			expected slog.Level
		}{
			{"DEBUG", slog.LevelDebug},
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tt := range tests {
			t.Run(tt.input, func(t *testing.T) {
				got, err := parseLevel(tt.input)

				require.NoError(t, err)
				require.Equal(t, tt.expected, got)
			})
		}
	})

	t.Run("not valid", func(t *testing.T) {
		for _, value := range []string{"", "unknown"} {
			_, err := parseLevel(value)

			require.Error(t, err)
		}
	})
}

func TestLogger_NewTextLogger(t *testing.T) {
	stderr := captureStderr(t, func() {
		logger, err := NewTextLogger(LevelInfo)
		require.NoError(t, err)

		logger.Info("test message", "key", "value")
	})

	require.NotEmpty(t, stderr, "Text logger should write to stderr")
	require.Contains(t, stderr, "test message")
	require.Contains(t, stderr, "key=value")
	require.Contains(t, stderr, "INFO")
}

func TestLogger_NewJSONLogger(t *testing.T) {
	stderr := captureStderr(t, func() {
		logger, err := NewJSONLogger(LevelInfo)
		require.NoError(t, err, "NewJSONLogger should not return an error")

		logger.Info("test message", "key", "value")
	})

	var entry map[string]any
	err := json.Unmarshal([]byte(stderr), &entry)
	require.NoError(t, err, "JSON log should be valid")
	require.Equal(t, "test message", entry["msg"], "JSON log should contain the message")
	require.Equal(t, "INFO", entry["level"], "JSON log should contain the level")
	require.Equal(t, "value", entry["key"], "JSON log should contain key-value pairs")
}

func TestLogger_NewNoOpLogger(t *testing.T) {
	stderr := captureStderr(t, func() {
		logger := NewNoOpLogger()
		logger.Debug("debug message")
		logger.Info("info message")
		logger.Warn("warn message")
		logger.Error("error message")
	})

	require.Empty(t, stderr, "NoOp logger should not write anywhere")
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func(Logger)
		isLogged bool
	}{
		{"Debug logger logs debug", LevelDebug, func(l Logger) { l.Debug("test") }, true},
		{"Info logger skips debug", LevelInfo, func(l Logger) { l.Debug("test") }, false},
		{"Info logger logs info", LevelInfo, func(l Logger) { l.Info("test") }, true},
		{"Warn logger skips info", LevelWarn, func(l Logger) { l.Info("test") }, false},
		{"Warn logger logs warn", LevelWarn, func(l Logger) { l.Warn("test") }, true},
		{"Error logger skips warn", LevelError, func(l Logger) { l.Warn("test") }, false},
		{"Error logger logs error", LevelError, func(l Logger) { l.Error("test") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stderr := captureStderr(t, func() {
				logger, err := NewTextLogger(tt.level)
				require.NoError(t, err, "NewTextLogger should not return an error")

				tt.logFn(logger)
			})

			require.Equal(t, tt.isLogged, len(stderr) > 0, "Logger level %s: expected isLogged=%v", tt.level, tt.isLogged)
		})
	}
}

func TestLogger_With(t *testing.T) {
	stderr := captureStderr(t, func() {
		logger, err := NewTextLogger(LevelInfo)
		require.NoError(t, err, "NewTextLogger should not return an error")

		withLogger := logger.With("component", "escrow", "version", "1.0")

		withLogger.Info("test message")
	})

	require.Contains(t, stderr, "component=escrow")
	require.Contains(t, stderr, "version=1.0")
	require.Contains(t, stderr, "test message")
}

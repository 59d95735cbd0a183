// Package logger provides the process-wide structured logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	perrors "github.com/glorpus-work/passd/pkg/errors"
)

var (
	logger *slog.Logger

	testOutput   io.Writer
	testOutputMu sync.Mutex
)

// Fields are structured key-value pairs attached to a log record.
type Fields map[string]any

// SetTestOutput redirects loggers created by later InitLogger calls to w.
func SetTestOutput(w io.Writer) {
	testOutputMu.Lock()
	defer testOutputMu.Unlock()
	testOutput = w
}

// UnsetTestOutput restores the default output.
func UnsetTestOutput() {
	testOutputMu.Lock()
	defer testOutputMu.Unlock()
	testOutput = nil
}

func getOutput() io.Writer {
	testOutputMu.Lock()
	defer testOutputMu.Unlock()
	if testOutput != nil {
		return testOutput
	}
	// stdout carries decrypted secrets
	return os.Stderr
}

// ParseLevel converts a level name into a slog level.
func ParseLevel(logLevel string) (slog.Level, error) {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, perrors.ErrInvalidLogLevelWithDetails(logLevel)
	}
}

// InitLogger initializes the global logger for CLI operations.
// Unknown levels fall back to info.
func InitLogger(logLevel string) {
	level, _ := ParseLevel(logLevel)

	handler := slog.NewTextHandler(getOutput(), &slog.HandlerOptions{
		Level: level,
	})

	logger = slog.New(handler)
}

// GetLogger returns the configured logger instance.
func GetLogger() *slog.Logger {
	if logger == nil {
		InitLogger("info")
	}
	return logger
}

// Component returns the global logger tagged with a component name.
func Component(name string) *slog.Logger {
	return GetLogger().With("component", name)
}

// Info logs an info message.
func Info(msg string, fields ...Fields) {
	log(slog.LevelInfo, msg, fields)
}

// Debug logs a message shown only at debug level.
func Debug(msg string, fields ...Fields) {
	log(slog.LevelDebug, msg, fields)
}

// Warn logs a warning.
func Warn(msg string, fields ...Fields) {
	log(slog.LevelWarn, msg, fields)
}

// Error logs an error message.
func Error(msg string, fields ...Fields) {
	log(slog.LevelError, msg, fields)
}

// Success logs msg at info level tagged status=success.
func Success(msg string, fields ...Fields) {
	log(slog.LevelInfo, msg, append(fields, Fields{"status": "success"}))
}

func log(level slog.Level, msg string, fields []Fields) {
	GetLogger().Log(context.Background(), level, msg, mergeFields(fields...)...)
}

// mergeFields flattens field maps into slog key-value pairs. Keys are sorted
// so output is stable; a later map overrides an earlier one.
func mergeFields(fields ...Fields) []any {
	merged := Fields{}
	for _, field := range fields {
		maps.Copy(merged, field)
	}
	keys := slices.Sorted(maps.Keys(merged))

	result := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		result = append(result, k, merged[k])
	}
	return result
}

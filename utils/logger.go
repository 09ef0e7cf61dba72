package utils

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// Logger provides structured, leveled logging throughout the application.
// It keeps a printf-style surface and renders through slog with the tint
// handler so levels are colorized and timestamps stay consistent.
type Logger struct {
	sl *slog.Logger
}

// NewLogger creates a new Logger writing to stderr. The minimum level is
// taken from LOG_LEVEL (debug|info|warn|error), defaulting to info.
func NewLogger() *Logger {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      levelFromEnv(),
		TimeFormat: "2006-01-02 15:04:05",
	})
	return &Logger{sl: slog.New(handler)}
}

// NewTestLogger creates a debug-level Logger for use in tests.
func NewTestLogger() *Logger {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "15:04:05",
	})
	return &Logger{sl: slog.New(handler)}
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Info(format string, args ...any) {
	l.sl.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.sl.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.sl.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	l.sl.Debug(fmt.Sprintf(format, args...))
}

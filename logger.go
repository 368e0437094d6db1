package roarguard

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with roarguard-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithOp adds an op field to the logger.
func (l *Logger) WithOp(op string) *Logger {
	return &Logger{
		Logger: l.Logger.With("op", op),
	}
}

// WithFormat adds a serialization format field to the logger.
func (l *Logger) WithFormat(format string) *Logger {
	return &Logger{
		Logger: l.Logger.With("format", format),
	}
}

// WithPath adds a file or blob path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogOp logs the outcome of an offloaded operation.
func (l *Logger) LogOp(ctx context.Context, op, format string, bytes int64, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "operation failed",
			"op", op,
			"format", format,
			"bytes", bytes,
			"duration", d,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "operation completed",
			"op", op,
			"format", format,
			"bytes", bytes,
			"duration", d,
		)
	}
}

package ebitmap

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with ebitmap-specific context.
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

// LogOperation logs a completed operation.
func (l *Logger) LogOperation(ctx context.Context, op string, turns int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "operation failed",
			"op", op,
			"turns", turns,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "operation completed",
			"op", op,
			"turns", turns,
			"elapsed", elapsed,
		)
	}
}

// LogBatch logs a batch of operations driven together.
func (l *Logger) LogBatch(ctx context.Context, count, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "batch completed with failures",
			"total", count,
			"failed", failed,
			"success", count-failed,
		)
	} else {
		l.DebugContext(ctx, "batch completed",
			"count", count,
		)
	}
}

// LogSnapshot logs a snapshot save.
func (l *Logger) LogSnapshot(ctx context.Context, name string, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"name", name,
			"bytes", bytes,
		)
	}
}

// LogLoad logs a snapshot load.
func (l *Logger) LogLoad(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot load failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot loaded",
			"name", name,
		)
	}
}

package bowgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with bowgo-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithKey adds a document key field to the logger.
func (l *Logger) WithKey(key string) *Logger {
	return &Logger{
		Logger: l.Logger.With("key", key),
	}
}

// WithModality adds a modality name field to the logger.
func (l *Logger) WithModality(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("modality", name),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogAdd logs a document insert operation.
func (l *Logger) LogAdd(ctx context.Context, key string, descriptors int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"key", key,
			"descriptors", descriptors,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"key", key,
			"descriptors", descriptors,
		)
	}
}

// LogBatchAdd logs a batch add operation.
func (l *Logger) LogBatchAdd(ctx context.Context, count, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "batch add completed with failures",
			"total", count,
			"failed", failed,
			"success", count-failed,
		)
	} else {
		l.InfoContext(ctx, "batch add completed",
			"count", count,
		)
	}
}

// LogQuery logs a query operation.
func (l *Logger) LogQuery(ctx context.Context, metric string, limit, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"metric", metric,
			"limit", limit,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"metric", metric,
			"limit", limit,
			"results", results,
		)
	}
}

// LogRemove logs a document remove operation.
func (l *Logger) LogRemove(ctx context.Context, key string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed",
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "remove completed",
			"key", key,
		)
	}
}

// LogSnapshot logs a snapshot save or load operation.
func (l *Logger) LogSnapshot(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot completed",
			"name", name,
		)
	}
}

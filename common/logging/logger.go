package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/telhawk-systems/hecrelay/common/middleware"
)

// Logger wraps slog.Logger and adds the request ID carried by a context.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to stdout. format is "json" (default) or "text".
func New(level slog.Level, format string) *Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter creates a Logger writing to w.
func NewWithWriter(w io.Writer, level slog.Level, format string) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a Logger that drops every record.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Default returns a Logger backed by slog.Default.
func Default() *Logger {
	return &Logger{Logger: slog.Default()}
}

// WithContext returns the underlying logger enriched with the request ID from ctx.
func (l *Logger) WithContext(ctx context.Context) *slog.Logger {
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		return l.Logger.With(slog.String("request_id", reqID))
	}
	return l.Logger
}

// InfoContext logs at Info with the request ID from ctx.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).InfoContext(ctx, msg, args...)
}

// WarnContext logs at Warn with the request ID from ctx.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).WarnContext(ctx, msg, args...)
}

// ErrorContext logs at Error with the request ID from ctx.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).ErrorContext(ctx, msg, args...)
}

// DebugContext logs at Debug with the request ID from ctx.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).DebugContext(ctx, msg, args...)
}

// With returns a new Logger with the given attributes added.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// ParseLevel converts "debug", "info", "warn"/"warning" or "error" (any case)
// to a slog.Level. Unknown values map to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefault installs l as the process-wide slog default.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}

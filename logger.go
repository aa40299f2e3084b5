package entwine

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps log/slog. No fields are bound by default; use With to
// attach fields (such as a tree id or component) to every record.
type Logger struct {
	base *slog.Logger
}

// NewLogger returns a Logger writing text-formatted records to stderr at
// level.
func NewLogger(level slog.Level) *Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{base: slog.New(h)}
}

// NewNopLogger returns a Logger that discards everything, for tests and
// library use where the caller hasn't configured anything.
func NewNopLogger() *Logger {
	return &Logger{base: slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// With returns a Logger with additional fields bound to every record it
// emits.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{base: l.base.With(args...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.base.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.base.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.base.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.base.Error(msg, args...) }

// DebugCtx, InfoCtx, WarnCtx, ErrorCtx are the context-carrying
// variants, used on the hot build/query paths where a caller's trace
// context should propagate into the record.
func (l *Logger) DebugCtx(ctx context.Context, msg string, args ...any) { l.base.DebugContext(ctx, msg, args...) }
func (l *Logger) InfoCtx(ctx context.Context, msg string, args ...any)  { l.base.InfoContext(ctx, msg, args...) }
func (l *Logger) WarnCtx(ctx context.Context, msg string, args ...any)  { l.base.WarnContext(ctx, msg, args...) }
func (l *Logger) ErrorCtx(ctx context.Context, msg string, args ...any) { l.base.ErrorContext(ctx, msg, args...) }

package session

import (
	"context"
	"log/slog"
)

// Logger receives every statement sent to the driver.
type Logger interface {
	LogQuery(ctx context.Context, query string, params []any)
}

// NoopLogger discards all statements. It is the default logger of a Session.
type NoopLogger struct{}

// LogQuery implements Logger.
func (NoopLogger) LogQuery(context.Context, string, []any) {}

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger returns a Logger that writes statements to l at debug level.
// A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

func (s slogLogger) LogQuery(ctx context.Context, query string, params []any) {
	s.l.DebugContext(ctx, "query", "query", query, "params", params)
}

// LoggerFunc adapts a function to the Logger interface.
type LoggerFunc func(ctx context.Context, query string, params []any)

// LogQuery implements Logger.
func (f LoggerFunc) LogQuery(ctx context.Context, query string, params []any) {
	f(ctx, query, params)
}

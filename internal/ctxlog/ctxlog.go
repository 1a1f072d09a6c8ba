// Package ctxlog lets request-scoped code find its logger without threading
// a *slog.Logger through every signature.
package ctxlog

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithLogger attaches l to ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger attached by WithLogger, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, _ := ctx.Value(loggerKey{}).(*slog.Logger); l != nil {
		return l
	}
	return slog.Default()
}

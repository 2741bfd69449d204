package ctxlogger

import (
	"context"
	"log/slog"
)

type key string

const loggerKey key = "logger"

// SetLogger returns a new context that carries the provided slog.Logger
func SetLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// GetLogger retrieves the request-scoped logger, falling back to slog.Default()
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// With stores a child of the context logger enriched with attrs,
// e.g. the authenticated user id once the auth middleware resolved it
func With(ctx context.Context, attrs ...any) context.Context {
	return SetLogger(ctx, GetLogger(ctx).With(attrs...))
}

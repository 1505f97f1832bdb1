// Package reqctx carries request scoped values through context.Context so
// that packages outside the HTTP layer can read them without importing it.
package reqctx

import (
	"context"
	"log/slog"
)

// CorrelationIDHeader carries the id between the site, the API and the mail
// function.
const CorrelationIDHeader = "X-Correlation-ID"

type (
	correlationKey struct{}
	loggerKey      struct{}
)

// WithCorrelationID returns ctx carrying id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// WithLogger returns ctx carrying the request logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger returns the logger stored by WithLogger. Without one it falls back
// to fallback, then to slog.Default.
func Logger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	if fallback == nil {
		return slog.Default()
	}
	return fallback
}

package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	return FromContextOr(ctx, zap.NewNop())
}

// FromContextOr extracts the request logger from the context, falling back
// to fallback. Request loggers carry the request_id field.
func FromContextOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return fallback
}

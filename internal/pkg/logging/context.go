package logging

import (
	"context"

	"go.uber.org/zap"
)

// ctxKey is unexported so only this package can attach or read the logger.
type ctxKey struct{}

// ContextWithLogger returns a context carrying the request-scoped logger.
// A nil logger leaves the context untouched.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger attached to ctx, or the process-wide
// logger when none was attached. Never returns nil.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return zap.L()
	}
	if logger, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.L()
}

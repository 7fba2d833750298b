// Package logging builds the zap logger and carries request-scoped loggers
// through a context.
package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// New returns a development logger when debug is set, a JSON production
// logger otherwise.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// WithLogger returns a copy of ctx that carries log.
func WithLogger(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && log != nil {
		return log
	}
	return zap.NewNop()
}

package common

import (
	"context"

	"go.uber.org/zap"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyRunID     contextKey = "run_id"
	ContextKeyLogger    contextKey = "logger"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithRunID tags the context with the batch run it belongs to.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithLogger stores a request-scoped logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ContextKeyLogger, logger)
}

// LoggerFromContext returns the request-scoped logger, or fallback when none is set.
func LoggerFromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if logger, ok := ctx.Value(ContextKeyLogger).(*zap.Logger); ok && logger != nil {
		return logger
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}

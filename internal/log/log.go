// Package log wraps zap with a context-aware API so call sites never touch
// the global logger directly and scan/request correlation fields are
// attached automatically.
package log

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/msoedov/agentic-security/internal/tracing"
)

var (
	mu     sync.RWMutex
	base   = mustDefault()
	hooks  = []Hook{HookFunc(traceFields)}
)

func mustDefault() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}

	return logger
}

// SetLogger replaces the global logger, e.g. to switch to a development
// config or redirect output in tests.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()

	base = l
}

// Hook derives extra fields from a context for every log call.
type Hook interface {
	Apply(ctx context.Context, msg string) []zap.Field
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc func(ctx context.Context, msg string) []zap.Field

func (f HookFunc) Apply(ctx context.Context, msg string) []zap.Field {
	return f(ctx, msg)
}

func traceFields(ctx context.Context, _ string) []zap.Field {
	if ctx == nil {
		return nil
	}

	var fields []zap.Field

	if id, ok := tracing.TraceID(ctx); ok {
		fields = append(fields, zap.String("trace_id", id))
	}

	if name, ok := tracing.OperationName(ctx); ok {
		fields = append(fields, zap.String("operation_name", name))
	}

	return fields
}

func logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()

	return base
}

func withHooks(ctx context.Context, msg string, fields []zap.Field) []zap.Field {
	for _, h := range hooks {
		fields = append(fields, h.Apply(ctx, msg)...)
	}

	return fields
}

func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	logger().Debug(msg, withHooks(ctx, msg, fields)...)
}

func Info(ctx context.Context, msg string, fields ...zap.Field) {
	logger().Info(msg, withHooks(ctx, msg, fields)...)
}

func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	logger().Warn(msg, withHooks(ctx, msg, fields)...)
}

func Error(ctx context.Context, msg string, fields ...zap.Field) {
	logger().Error(msg, withHooks(ctx, msg, fields)...)
}

// Package tracing carries lightweight correlation identifiers through a
// scan's context without pulling in a full tracing SDK.
package tracing

import "context"

type traceIDKey struct{}

type operationNameKey struct{}

// WithTraceID attaches a trace identifier to ctx.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

// TraceID returns the trace identifier carried by ctx, if any.
func TraceID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}

	id, ok := ctx.Value(traceIDKey{}).(string)

	return id, ok
}

// WithOperationName attaches the name of the operation currently executing
// to ctx, e.g. "scan", "verify", "materialize".
func WithOperationName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationNameKey{}, name)
}

// OperationName returns the operation name carried by ctx, if any.
func OperationName(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}

	name, ok := ctx.Value(operationNameKey{}).(string)

	return name, ok
}

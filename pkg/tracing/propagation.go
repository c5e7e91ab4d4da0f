package tracing

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
)

const TraceparentHeader = "traceparent"

// traceContext is used directly so outbox rows carry trace context even in
// code paths that run before the global propagator is installed.
var traceContext = propagation.TraceContext{}

// Traceparent renders the current span context as a W3C traceparent string,
// suitable for persisting alongside outbox events.
func Traceparent(ctx context.Context) string {
	carrier := propagation.MapCarrier{}
	traceContext.Inject(ctx, carrier)
	return carrier[TraceparentHeader]
}

// Extract rebuilds a context from a stored traceparent string.
func Extract(ctx context.Context, traceparent string) context.Context {
	if traceparent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{TraceparentHeader: traceparent}
	return traceContext.Extract(ctx, carrier)
}

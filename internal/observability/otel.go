package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "signalbox"

// StartDispatchSpan creates the span covering one event dispatch.
// The caller is responsible for calling span.End().
func StartDispatchSpan(ctx context.Context, machine, state, event string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "machine.dispatch")
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("state", state),
		attribute.String("event", event),
	)
	return ctx, span
}

// StartActionSpan creates a child span for a single action execution.
// The caller is responsible for calling span.End().
func StartActionSpan(ctx context.Context, action, state string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "action."+action)
	span.SetAttributes(
		attribute.String("action", action),
		attribute.String("state", state),
	)
	return ctx, span
}

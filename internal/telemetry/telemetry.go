// Package telemetry wraps go.opentelemetry.io/otel span creation for the
// plan executor (C6) and AI provider calls (C4), grounded in
// goadesign-goa-ai's runtime/agents/telemetry.Tracer abstraction: a thin
// wrapper over trace.Tracer so callers never import the SDK directly,
// only this package's StartStep, StartProviderCall and EndWithError helpers.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/riverfold/querymind"

// Tracer returns the global tracer registered under this module's name.
// A no-op tracer is returned until a real SDK TracerProvider is
// registered via otel.SetTracerProvider at startup, matching the
// teacher's pattern of instrumenting unconditionally and letting the
// configured exporter (or its absence) decide whether spans go anywhere.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartStep starts a span around one query-plan step execution (C6),
// tagged with the step's connection and request kind.
func StartStep(ctx context.Context, connectionID, requestKind string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "planexec.step",
		trace.WithAttributes(
			attribute.String("connection_id", connectionID),
			attribute.String("request_kind", requestKind),
		),
	)
}

// StartProviderCall starts a span around one AI Provider Adapter call
// (C4), tagged with the provider name and whether it is a streaming call.
func StartProviderCall(ctx context.Context, providerName string, streaming bool) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "provider.chat",
		trace.WithAttributes(
			attribute.String("provider", providerName),
			attribute.Bool("streaming", streaming),
		),
	)
}

// EndWithError records err on span (if non-nil) and sets the span status
// accordingly, the small End-time branch every call site would otherwise
// repeat inline.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

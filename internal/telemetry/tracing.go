// Package telemetry configures OpenTelemetry tracing for the server.
//
// Custom span attributes use the `eventcollab.` prefix.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "event-collab-task-management/server"

// Tracer returns the package-level tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTraceProvider initialises the OTel trace provider with an OTLP gRPC
// exporter. If endpoint is empty, tracing is disabled (noop provider).
// Returns a shutdown function that must be called on application exit.
func InitTraceProvider(ctx context.Context, endpoint string, version string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(), // TLS configurable via env (OTEL_EXPORTER_OTLP_INSECURE)
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String("eventcollab-server"),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// --- Span helpers ---

// StartPermissionSpan creates a span around a permission check.
func StartPermissionSpan(ctx context.Context, resourceType string, resourceID int64, capability string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "auth.check",
		trace.WithAttributes(
			attribute.String("eventcollab.resource_type", resourceType),
			attribute.Int64("eventcollab.resource_id", resourceID),
			attribute.String("eventcollab.capability", capability),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartChatSpan creates a span around a chat message save + broadcast.
func StartChatSpan(ctx context.Context, eventID int64, sender string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "chat.send",
		trace.WithAttributes(
			attribute.Int64("eventcollab.event_id", eventID),
			attribute.String("eventcollab.sender", sender),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// RecordDecision annotates a permission span with the allow/deny outcome.
func RecordDecision(span trace.Span, allowed bool) {
	span.SetAttributes(attribute.Bool("eventcollab.allowed", allowed))
}

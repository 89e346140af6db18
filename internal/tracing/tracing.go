// Package tracing wires an OpenTelemetry tracer provider for plebctl's
// ambient observability, grounded on babysitter.go's pattern of
// handing otel's SDK a sink for finished spans (there it was
// Babysitter.RecvTraceSpans receiving []trace.ReadOnlySpan from a
// remote weavelet; here it is a local stdout exporter since the bus
// never leaves the process).
package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// NewProvider builds a TracerProvider that writes completed spans as
// JSON to w and installs it as the global provider. Callers must
// Shutdown the returned provider to flush the exporter.
func NewProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Tracer returns the process-wide "plebctl" tracer, a no-op tracer
// until a provider has been installed via NewProvider.
func Tracer() oteltrace.Tracer { return otel.Tracer("plebctl") }

// Span starts a span named name and returns the derived context and
// the span's End func, ready for a single defer.
func Span(ctx context.Context, name string) (context.Context, func()) {
	ctx, span := Tracer().Start(ctx, name)
	return ctx, func() { span.End() }
}

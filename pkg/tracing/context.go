package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan starts a span on the named tracer and returns the span together
// with a context carrying it. Callers must End the returned span.
func StartSpan(ctx context.Context, tracerName, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, opts...)
}

// StartSpanWithKind starts a span with an explicit span kind, typically
// trace.SpanKindServer at a transport boundary.
func StartSpanWithKind(ctx context.Context, tracerName, spanName string, kind trace.SpanKind, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	opts = append(opts, trace.WithSpanKind(kind))
	return StartSpan(ctx, tracerName, spanName, opts...)
}

// AddSpanAttributes adds attributes to the span in the context.
// A no-op when the context carries no span.
func AddSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// RecordError records the error on the span in the context and marks the
// span as failed. A nil error is ignored.
func RecordError(ctx context.Context, err error, opts ...trace.EventOption) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// TraceIDFromContext returns the active trace ID, or "" when no trace is
// recording. Used to correlate log lines with exported spans.
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// String creates a string attribute.
func String(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// Int creates an int attribute.
func Int(key string, value int) attribute.KeyValue {
	return attribute.Int(key, value)
}

// Float64 creates a float64 attribute.
func Float64(key string, value float64) attribute.KeyValue {
	return attribute.Float64(key, value)
}

// Package tracing wires the OpenTelemetry SDK: exporter selection, sampling,
// batch processing and W3C trace context propagation.
package tracing

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	options "github.com/kart-io/docchat/pkg/options/tracing"
)

// Provider manages the OpenTelemetry tracer provider lifecycle.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	opts           *options.Options
}

// NewProvider creates and installs a tracer provider. When tracing is
// disabled the returned provider produces no-op tracers.
func NewProvider(opts *options.Options) (*Provider, error) {
	if opts == nil {
		opts = options.NewOptions()
	}

	if errs := opts.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid tracing options: %w", utilerrors.NewAggregate(errs))
	}

	if !opts.Enabled {
		return &Provider{
			tracerProvider: sdktrace.NewTracerProvider(),
			opts:           opts,
		}, nil
	}

	res, err := newResource(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := newExporter(context.Background(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(
		exporter,
		sdktrace.WithBatchTimeout(opts.BatchTimeout),
		sdktrace.WithMaxExportBatchSize(opts.BatchMaxSize),
		sdktrace.WithExportTimeout(opts.ExportTimeout),
		sdktrace.WithMaxQueueSize(opts.MaxQueueSize),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(opts)),
		sdktrace.WithSpanProcessor(bsp),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tracerProvider: tp, opts: opts}, nil
}

// Tracer returns a tracer with the given name.
func (p *Provider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.tracerProvider == nil {
		return otel.Tracer(name, opts...)
	}
	return p.tracerProvider.Tracer(name, opts...)
}

// Shutdown flushes pending spans and releases exporter resources.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	return p.tracerProvider.Shutdown(ctx)
}

// ForceFlush flushes any pending spans.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	return p.tracerProvider.ForceFlush(ctx)
}

func newResource(opts *options.Options) (*resource.Resource, error) {
	return resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithProcess(),
	)
}

func newExporter(ctx context.Context, opts *options.Options) (sdktrace.SpanExporter, error) {
	switch opts.Exporter {
	case options.ExporterOTLPGRPC:
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(grpcOpts...))
	case options.ExporterOTLPHTTP:
		httpOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		return otlptrace.New(ctx, otlptracehttp.NewClient(httpOpts...))
	case options.ExporterStdout:
		return stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
			stdouttrace.WithWriter(os.Stdout),
		)
	case options.ExporterNoop:
		return &noopExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", opts.Exporter)
	}
}

type noopExporter struct{}

func (e *noopExporter) ExportSpans(_ context.Context, _ []sdktrace.ReadOnlySpan) error { return nil }
func (e *noopExporter) Shutdown(_ context.Context) error                               { return nil }

func newSampler(opts *options.Options) sdktrace.Sampler {
	switch opts.Sampler {
	case options.SamplerAlwaysOn:
		return sdktrace.AlwaysSample()
	case options.SamplerAlwaysOff:
		return sdktrace.NeverSample()
	case options.SamplerRatio:
		return sdktrace.TraceIDRatioBased(opts.SamplerRatio)
	case options.SamplerParentBased:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SamplerRatio))
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}

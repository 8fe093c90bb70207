// Package tracing provides OpenTelemetry tracing configuration options.
package tracing

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/docchat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// ExporterType selects the span exporter.
type ExporterType string

// Supported exporters.
const (
	ExporterOTLPGRPC ExporterType = "otlp-grpc"
	ExporterOTLPHTTP ExporterType = "otlp-http"
	ExporterStdout   ExporterType = "stdout"
	ExporterNoop     ExporterType = "noop"
)

// SamplerType selects the sampling policy.
type SamplerType string

// Supported samplers.
const (
	SamplerAlwaysOn    SamplerType = "always-on"
	SamplerAlwaysOff   SamplerType = "always-off"
	SamplerRatio       SamplerType = "ratio"
	SamplerParentBased SamplerType = "parent-based"
)

// Options contains tracing configuration.
type Options struct {
	// Enabled toggles tracing; when off a no-op provider is installed.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// ServiceName identifies this service in exported spans.
	ServiceName string `json:"service-name" mapstructure:"service-name"`

	// ServiceVersion is attached to the trace resource.
	ServiceVersion string `json:"service-version" mapstructure:"service-version"`

	// Exporter selects the span exporter (otlp-grpc|otlp-http|stdout|noop).
	Exporter ExporterType `json:"exporter" mapstructure:"exporter"`

	// Endpoint is the OTLP collector address (host:port).
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// Insecure disables TLS for OTLP connections.
	Insecure bool `json:"insecure" mapstructure:"insecure"`

	// Sampler selects the sampling policy.
	Sampler SamplerType `json:"sampler" mapstructure:"sampler"`

	// SamplerRatio is the sample ratio for the ratio sampler.
	SamplerRatio float64 `json:"sampler-ratio" mapstructure:"sampler-ratio"`

	// BatchTimeout is the max delay before a batch is exported.
	BatchTimeout time.Duration `json:"batch-timeout" mapstructure:"batch-timeout"`

	// ExportTimeout bounds a single export.
	ExportTimeout time.Duration `json:"export-timeout" mapstructure:"export-timeout"`

	// BatchMaxSize is the max number of spans per export batch.
	BatchMaxSize int `json:"batch-max-size" mapstructure:"batch-max-size"`

	// MaxQueueSize is the span buffer size before drops occur.
	MaxQueueSize int `json:"max-queue-size" mapstructure:"max-queue-size"`
}

// NewOptions creates default tracing options (disabled).
func NewOptions() *Options {
	return &Options{
		Enabled:       false,
		ServiceName:   "docchat",
		Exporter:      ExporterStdout,
		Endpoint:      "127.0.0.1:4317",
		Insecure:      true,
		Sampler:       SamplerParentBased,
		SamplerRatio:  0.1,
		BatchTimeout:  5 * time.Second,
		ExportTimeout: 30 * time.Second,
		BatchMaxSize:  512,
		MaxQueueSize:  2048,
	}
}

// AddFlags adds flags for tracing options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	join := options.Join(prefixes...)
	fs.BoolVar(&o.Enabled, join+"tracing.enabled", o.Enabled, "Enable OpenTelemetry tracing.")
	fs.StringVar(&o.ServiceName, join+"tracing.service-name", o.ServiceName, "Service name attached to spans.")
	fs.StringVar((*string)(&o.Exporter), join+"tracing.exporter", string(o.Exporter), "Span exporter (otlp-grpc|otlp-http|stdout|noop).")
	fs.StringVar(&o.Endpoint, join+"tracing.endpoint", o.Endpoint, "OTLP collector endpoint (host:port).")
	fs.BoolVar(&o.Insecure, join+"tracing.insecure", o.Insecure, "Disable TLS for OTLP connections.")
	fs.StringVar((*string)(&o.Sampler), join+"tracing.sampler", string(o.Sampler), "Sampler (always-on|always-off|ratio|parent-based).")
	fs.Float64Var(&o.SamplerRatio, join+"tracing.sampler-ratio", o.SamplerRatio, "Sample ratio for the ratio sampler.")
	fs.DurationVar(&o.BatchTimeout, join+"tracing.batch-timeout", o.BatchTimeout, "Max delay before a span batch is exported.")
	fs.DurationVar(&o.ExportTimeout, join+"tracing.export-timeout", o.ExportTimeout, "Timeout for a single span export.")
	fs.IntVar(&o.BatchMaxSize, join+"tracing.batch-max-size", o.BatchMaxSize, "Max spans per export batch.")
	fs.IntVar(&o.MaxQueueSize, join+"tracing.max-queue-size", o.MaxQueueSize, "Span queue size before drops occur.")
}

// Validate validates the tracing options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	switch o.Exporter {
	case ExporterOTLPGRPC, ExporterOTLPHTTP:
		if o.Endpoint == "" {
			errs = append(errs, fmt.Errorf("tracing.endpoint is required for exporter %q", o.Exporter))
		}
	case ExporterStdout, ExporterNoop:
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter must be one of otlp-grpc|otlp-http|stdout|noop, got %q", o.Exporter))
	}

	switch o.Sampler {
	case SamplerAlwaysOn, SamplerAlwaysOff, SamplerParentBased:
	case SamplerRatio:
		if o.SamplerRatio < 0 || o.SamplerRatio > 1 {
			errs = append(errs, fmt.Errorf("tracing.sampler-ratio must be within [0,1], got %f", o.SamplerRatio))
		}
	default:
		errs = append(errs, fmt.Errorf("tracing.sampler must be one of always-on|always-off|ratio|parent-based, got %q", o.Sampler))
	}

	if o.ServiceName == "" {
		errs = append(errs, fmt.Errorf("tracing.service-name cannot be empty"))
	}
	return errs
}

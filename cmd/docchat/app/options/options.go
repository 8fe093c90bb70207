// Package options contains flags and options for initializing the docchat server.
package options

import (
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	docchat "github.com/kart-io/docchat/internal/docchat"
	"github.com/kart-io/docchat/pkg/app/cliflag"
	cacheopts "github.com/kart-io/docchat/pkg/options/cache"
	chatopts "github.com/kart-io/docchat/pkg/options/chat"
	dbopts "github.com/kart-io/docchat/pkg/options/database"
	llmopts "github.com/kart-io/docchat/pkg/options/llm"
	logopts "github.com/kart-io/docchat/pkg/options/logger"
	redisopts "github.com/kart-io/docchat/pkg/options/redis"
	httpopts "github.com/kart-io/docchat/pkg/options/server/http"
	traceopts "github.com/kart-io/docchat/pkg/options/tracing"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// DatabaseOptions contains document and session store configuration.
	DatabaseOptions *dbopts.Options `json:"db" mapstructure:"db"`

	// RedisOptions contains Redis connection configuration.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// GenerationOptions contains generation provider configuration.
	GenerationOptions *llmopts.ProviderOptions `json:"generation" mapstructure:"generation"`

	// CacheOptions contains answer and embedding cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// ChatOptions contains document chat pipeline configuration.
	ChatOptions *chatopts.Options `json:"chat" mapstructure:"chat"`

	// TracingOptions contains OpenTelemetry tracing configuration.
	TracingOptions *traceopts.Options `json:"tracing" mapstructure:"tracing"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:       httpopts.NewOptions(),
		LogOptions:        logopts.NewOptions(),
		DatabaseOptions:   dbopts.NewOptions(),
		RedisOptions:      redisopts.NewOptions(),
		EmbeddingOptions:  llmopts.NewEmbeddingOptions(),
		GenerationOptions: llmopts.NewGenerationOptions(),
		CacheOptions:      cacheopts.NewOptions(),
		ChatOptions:       chatopts.NewOptions(),
		TracingOptions:    traceopts.NewOptions(),
		ShutdownTimeout:   30 * time.Second,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.DatabaseOptions.AddFlags(fss.FlagSet("db"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding.")
	o.GenerationOptions.AddFlags(fss.FlagSet("generation"), "generation.")
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.ChatOptions.AddFlags(fss.FlagSet("chat"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))

	// misc flags
	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options. Every section fills its own
// defaults in its constructor.
func (o *ServerOptions) Complete() error {
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.DatabaseOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.GenerationOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds a docchat.Config based on ServerOptions.
func (o *ServerOptions) Config() (*docchat.Config, error) {
	return &docchat.Config{
		HTTPOptions:       o.HTTPOptions,
		LogOptions:        o.LogOptions,
		DatabaseOptions:   o.DatabaseOptions,
		RedisOptions:      o.RedisOptions,
		EmbeddingOptions:  o.EmbeddingOptions,
		GenerationOptions: o.GenerationOptions,
		CacheOptions:      o.CacheOptions,
		ChatOptions:       o.ChatOptions,
		TracingOptions:    o.TracingOptions,
		ShutdownTimeout:   o.ShutdownTimeout,
	}, nil
}

// Package cache provides cache configuration options.
package cache

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/docchat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures the Redis-backed answer and embedding caches.
// Both caches share the connection configured in pkg/options/redis.
type Options struct {
	// Enabled toggles the answer cache.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL is the answer cache expiry.
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix namespaces answer cache keys.
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// EmbeddingEnabled toggles the embedding cache decorator.
	EmbeddingEnabled bool `json:"embedding-enabled" mapstructure:"embedding-enabled"`

	// EmbeddingTTL is the embedding cache expiry. Embeddings are stable for a
	// given model, so this is much longer than the answer TTL.
	EmbeddingTTL time.Duration `json:"embedding-ttl" mapstructure:"embedding-ttl"`

	// EmbeddingKeyPrefix namespaces embedding cache keys.
	EmbeddingKeyPrefix string `json:"embedding-key-prefix" mapstructure:"embedding-key-prefix"`
}

// NewOptions creates default cache options.
func NewOptions() *Options {
	return &Options{
		Enabled:            true,
		TTL:                1 * time.Hour,
		KeyPrefix:          "docchat:answer:",
		EmbeddingEnabled:   true,
		EmbeddingTTL:       24 * time.Hour,
		EmbeddingKeyPrefix: "docchat:emb:",
	}
}

// AddFlags adds flags for cache options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	join := options.Join(prefixes...)
	fs.BoolVar(&o.Enabled, join+"cache.enabled", o.Enabled, "Enable the answer cache.")
	fs.DurationVar(&o.TTL, join+"cache.ttl", o.TTL, "Answer cache TTL.")
	fs.StringVar(&o.KeyPrefix, join+"cache.key-prefix", o.KeyPrefix, "Answer cache key prefix.")
	fs.BoolVar(&o.EmbeddingEnabled, join+"cache.embedding-enabled", o.EmbeddingEnabled, "Enable the embedding cache.")
	fs.DurationVar(&o.EmbeddingTTL, join+"cache.embedding-ttl", o.EmbeddingTTL, "Embedding cache TTL.")
	fs.StringVar(&o.EmbeddingKeyPrefix, join+"cache.embedding-key-prefix", o.EmbeddingKeyPrefix, "Embedding cache key prefix.")
}

// Validate validates the cache options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Enabled && o.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive when the answer cache is enabled"))
	}
	if o.EmbeddingEnabled && o.EmbeddingTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.embedding-ttl must be positive when the embedding cache is enabled"))
	}
	return errs
}

package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/docchat/pkg/utils/json"
)

// EmbeddingCacheConfig configures the embedding cache decorator.
type EmbeddingCacheConfig struct {
	// Enabled toggles caching; when off every call hits the provider.
	Enabled bool

	// TTL is the cache entry lifetime. Embeddings for a given text are
	// stable, so long TTLs are safe.
	TTL time.Duration

	// KeyPrefix namespaces the cache keys.
	KeyPrefix string
}

// DefaultEmbeddingCacheConfig returns the default cache configuration.
func DefaultEmbeddingCacheConfig() *EmbeddingCacheConfig {
	return &EmbeddingCacheConfig{
		Enabled:   true,
		TTL:       24 * time.Hour,
		KeyPrefix: "docchat:emb:",
	}
}

// CachedEmbeddingProvider decorates an EmbeddingProvider with a Redis cache.
// Cache failures never fail the embedding call.
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	redis    *goredis.Client
	config   *EmbeddingCacheConfig
}

var _ EmbeddingProvider = (*CachedEmbeddingProvider)(nil)

// NewCachedEmbeddingProvider wraps provider with a cache. A nil redis client
// disables caching and passes every call through.
func NewCachedEmbeddingProvider(provider EmbeddingProvider, redis *goredis.Client, config *EmbeddingCacheConfig) *CachedEmbeddingProvider {
	if config == nil {
		config = DefaultEmbeddingCacheConfig()
	}
	return &CachedEmbeddingProvider{
		provider: provider,
		redis:    redis,
		config:   config,
	}
}

func (c *CachedEmbeddingProvider) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Embed returns the cached embedding for text or computes and caches it.
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.config.Enabled || c.redis == nil {
		return c.provider.Embed(ctx, text)
	}

	key := c.cacheKey(text)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var embedding []float32
		if err := json.Unmarshal(data, &embedding); err == nil {
			logger.Debugw("embedding cache hit", "text_length", len(text), "key", key)
			return embedding, nil
		}
		// Corrupt entry, drop it and recompute.
		logger.Warnw("failed to unmarshal cached embedding, deleting", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
	} else if err != goredis.Nil {
		logger.Warnw("redis get error, falling back to provider", "error", err.Error())
	}

	embedding, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(embedding)
	if err != nil {
		logger.Warnw("failed to marshal embedding for caching", "error", err.Error())
		return embedding, nil
	}
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to cache embedding", "error", err.Error(), "key", key)
	}

	return embedding, nil
}

// Name returns the underlying provider name with a cache marker.
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name() + "-cached"
}

// ClearCache deletes all cached embeddings under the configured prefix.
func (c *CachedEmbeddingProvider) ClearCache(ctx context.Context) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
		} else {
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warnw("error during cache scan", "error", err.Error())
		return err
	}

	logger.Infow("cleared embedding cache", "deleted_count", deleted)
	return nil
}

// CacheStats reports cache key count and configuration.
func (c *CachedEmbeddingProvider) CacheStats(ctx context.Context) (map[string]interface{}, error) {
	if !c.config.Enabled || c.redis == nil {
		return map[string]interface{}{"enabled": false}, nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	keyCount := 0
	for iter.Next(ctx) {
		keyCount++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"enabled":    true,
		"key_count":  keyCount,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
		"provider":   c.provider.Name(),
	}, nil
}

package llm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	name  string
	calls int32
	vec   []float32
}

func (c *countingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.vec, nil
}

func (c *countingEmbedder) Name() string { return c.name }

func testRedisClient(t *testing.T) *goredis.Client {
	t.Helper()

	client := goredis.NewClient(&goredis.Options{
		Addr: "127.0.0.1:6379",
		DB:   15,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not available: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedEmbedderPassthrough(t *testing.T) {
	tests := []struct {
		name   string
		config *EmbeddingCacheConfig
	}{
		{
			name:   "disabled config",
			config: &EmbeddingCacheConfig{Enabled: false},
		},
		{
			name:   "nil config defaults with nil redis",
			config: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &countingEmbedder{name: "fake", vec: []float32{0.1, 0.2, 0.3}}
			cached := NewCachedEmbeddingProvider(inner, nil, tt.config)

			for i := 0; i < 3; i++ {
				vec, err := cached.Embed(context.Background(), "hello world")
				require.NoError(t, err)
				assert.Equal(t, inner.vec, vec)
			}
			assert.Equal(t, int32(3), atomic.LoadInt32(&inner.calls))
		})
	}
}

func TestCachedEmbedderName(t *testing.T) {
	inner := &countingEmbedder{name: "huggingface"}
	cached := NewCachedEmbeddingProvider(inner, nil, nil)
	assert.Equal(t, "huggingface-cached", cached.Name())
}

func TestCacheKey(t *testing.T) {
	inner := &countingEmbedder{name: "fake"}
	cached := NewCachedEmbeddingProvider(inner, nil, &EmbeddingCacheConfig{
		Enabled:   true,
		KeyPrefix: "test:emb:",
	})

	k1 := cached.cacheKey("some text")
	k2 := cached.cacheKey("some text")
	k3 := cached.cacheKey("other text")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Contains(t, k1, "test:emb:")
	// prefix + sha256 hex digest
	assert.Len(t, k1, len("test:emb:")+64)
}

func TestCachedEmbedderRoundTrip(t *testing.T) {
	client := testRedisClient(t)
	ctx := context.Background()

	inner := &countingEmbedder{name: "fake", vec: []float32{1.5, -0.25, 0.75}}
	cached := NewCachedEmbeddingProvider(inner, client, &EmbeddingCacheConfig{
		Enabled:   true,
		TTL:       time.Minute,
		KeyPrefix: "docchat:test:emb:",
	})
	t.Cleanup(func() { _ = cached.ClearCache(context.Background()) })

	vec, err := cached.Embed(ctx, "cache me")
	require.NoError(t, err)
	assert.Equal(t, inner.vec, vec)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))

	// Second call must be served from cache.
	vec, err = cached.Embed(ctx, "cache me")
	require.NoError(t, err)
	assert.Equal(t, inner.vec, vec)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))

	stats, err := cached.CacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, stats["enabled"])
	assert.Equal(t, 1, stats["key_count"])

	require.NoError(t, cached.ClearCache(ctx))

	stats, err = cached.CacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats["key_count"])

	// After clearing, the provider is consulted again.
	_, err = cached.Embed(ctx, "cache me")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
}

func TestCachedEmbedderCorruptEntry(t *testing.T) {
	client := testRedisClient(t)
	ctx := context.Background()

	inner := &countingEmbedder{name: "fake", vec: []float32{0.5}}
	cached := NewCachedEmbeddingProvider(inner, client, &EmbeddingCacheConfig{
		Enabled:   true,
		TTL:       time.Minute,
		KeyPrefix: "docchat:test:corrupt:",
	})
	t.Cleanup(func() { _ = cached.ClearCache(context.Background()) })

	key := cached.cacheKey("poisoned")
	require.NoError(t, client.Set(ctx, key, "not json", time.Minute).Err())

	vec, err := cached.Embed(ctx, "poisoned")
	require.NoError(t, err)
	assert.Equal(t, inner.vec, vec)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))

	// The corrupt entry was replaced with a valid one.
	vec, err = cached.Embed(ctx, "poisoned")
	require.NoError(t, err)
	assert.Equal(t, inner.vec, vec)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))
}

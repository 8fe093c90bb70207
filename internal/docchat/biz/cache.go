package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/pkg/utils/json"
)

// AnswerCacheConfig configures the per-session answer cache.
type AnswerCacheConfig struct {
	// Enabled toggles caching. Disabled caches are inert and safe to call.
	Enabled bool
	// TTL bounds staleness: a repeated question inside the TTL returns the
	// earlier answer even though history has grown since.
	TTL time.Duration
	// KeyPrefix namespaces the cache keys.
	KeyPrefix string
}

// AnswerCache stores completed chat turns keyed by session and question.
type AnswerCache struct {
	redis  *goredis.Client
	config *AnswerCacheConfig
}

// NewAnswerCache creates an answer cache. A nil config disables caching.
func NewAnswerCache(redis *goredis.Client, config *AnswerCacheConfig) *AnswerCache {
	if config == nil {
		config = &AnswerCacheConfig{Enabled: false}
	}
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "docchat:answer:"
	}
	return &AnswerCache{redis: redis, config: config}
}

// cacheKey hashes the session and question together so identical questions
// in different conversations stay separate.
func (c *AnswerCache) cacheKey(sessionID, question string) string {
	sum := sha256.Sum256([]byte(sessionID + ":" + question))
	return c.config.KeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached result for the question, or nil on a miss.
func (c *AnswerCache) Get(ctx context.Context, sessionID, question string) (*model.ChatResult, error) {
	if !c.config.Enabled || c.redis == nil {
		return nil, nil
	}

	key := c.cacheKey(sessionID, question)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		logger.Warnw("answer cache read failed", "error", err.Error(), "key", key)
		return nil, err
	}

	var result model.ChatResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("corrupt answer cache entry dropped", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}
	return &result, nil
}

// Set stores a completed turn. Failures are logged and reported but never
// block the caller from returning the answer.
func (c *AnswerCache) Set(ctx context.Context, sessionID, question string, result *model.ChatResult) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warnw("failed to marshal answer for caching", "error", err.Error())
		return err
	}

	key := c.cacheKey(sessionID, question)
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("answer cache write failed", "error", err.Error(), "key", key)
		return err
	}
	return nil
}

// Clear removes every cached answer under the configured prefix.
func (c *AnswerCache) Clear(ctx context.Context) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cached answer", "error", err.Error(), "key", iter.Val())
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return err
	}

	logger.Infow("answer cache cleared", "deleted", deleted)
	return nil
}

// Stats reports cache configuration and the current key count.
func (c *AnswerCache) Stats(ctx context.Context) (map[string]interface{}, error) {
	if !c.config.Enabled || c.redis == nil {
		return map[string]interface{}{"enabled": false}, nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	keys := 0
	for iter.Next(ctx) {
		keys++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"enabled":    true,
		"key_count":  keys,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
	}, nil
}

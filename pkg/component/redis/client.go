// Package redis provides the Redis client used by the answer and embedding
// caches.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/docchat/pkg/component/storage"
	options "github.com/kart-io/docchat/pkg/options/redis"
)

var _ storage.Client = (*Client)(nil)

// Client wraps a go-redis client with the storage.Client interface.
type Client struct {
	client *goredis.Client
	opts   *options.Options
}

// New creates a new Redis client from the provided options.
func New(opts *options.Options) (*Client, error) {
	return NewWithContext(context.Background(), opts)
}

// NewWithContext creates a new Redis client and verifies connectivity with a
// ping bounded by ctx.
func NewWithContext(ctx context.Context, opts *options.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("redis options cannot be nil")
	}
	if errs := opts.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid redis options: %w", utilerrors.NewAggregate(errs))
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password:     opts.Password,
		DB:           opts.Database,
		MaxRetries:   opts.MaxRetries,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolTimeout:  opts.PoolTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Client{client: rdb, opts: opts}, nil
}

// Name returns the storage type identifier.
func (c *Client) Name() string {
	return "redis"
}

// Ping checks if the connection to Redis is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection gracefully. Safe to call more than once.
func (c *Client) Close() error {
	return c.client.Close()
}

// Health returns a HealthChecker for this client.
func (c *Client) Health() storage.HealthChecker {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return c.Ping(ctx)
	}
}

// Client returns the underlying go-redis client for cache implementations.
func (c *Client) Client() *goredis.Client {
	return c.client
}

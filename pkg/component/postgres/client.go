// Package postgres provides a PostgreSQL storage client.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kart-io/docchat/pkg/component/gormlog"
	"github.com/kart-io/docchat/pkg/component/storage"
)

var _ storage.Client = (*Client)(nil)

// Options defines configuration options for PostgreSQL.
type Options struct {
	Host                  string
	Port                  int
	Username              string
	Password              string
	Database              string
	SSLMode               string
	MaxIdleConnections    int
	MaxOpenConnections    int
	MaxConnectionLifeTime time.Duration
	MaxIdleTime           time.Duration
	LogLevel              int
}

// NewOptions creates default PostgreSQL options.
func NewOptions() *Options {
	return &Options{
		Host:                  "127.0.0.1",
		Port:                  5432,
		Username:              "postgres",
		SSLMode:               "disable",
		MaxIdleConnections:    20,
		MaxOpenConnections:    100,
		MaxConnectionLifeTime: time.Hour,
		MaxIdleTime:           10 * time.Minute,
		LogLevel:              1,
	}
}

// Client wraps gorm.DB with the storage.Client interface.
type Client struct {
	db   *gorm.DB
	opts *Options
}

// New creates a new PostgreSQL client from the provided options.
func New(opts *Options) (*Client, error) {
	return NewWithContext(context.Background(), opts)
}

// NewWithContext creates a new PostgreSQL client, configures the connection
// pool and verifies connectivity with an initial ping bounded by ctx.
func NewWithContext(ctx context.Context, opts *Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("postgres options cannot be nil")
	}
	if err := validateOptions(opts); err != nil {
		return nil, fmt.Errorf("invalid postgres options: %w", err)
	}
	if opts.SSLMode == "" {
		opts.SSLMode = "disable"
	}

	db, err := gorm.Open(pgdriver.Open(BuildDSN(opts)), &gorm.Config{
		Logger: gormlog.New(opts.LogLevel, 200*time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if opts.MaxIdleConnections > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConnections)
	}
	if opts.MaxOpenConnections > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConnections)
	}
	if opts.MaxConnectionLifeTime > 0 {
		sqlDB.SetConnMaxLifetime(opts.MaxConnectionLifeTime)
	}
	if opts.MaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(opts.MaxIdleTime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Client{db: db, opts: opts}, nil
}

// Name returns the storage type identifier.
func (c *Client) Name() string {
	return "postgres"
}

// Ping checks if the connection to PostgreSQL is alive.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the PostgreSQL connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Health returns a HealthChecker for this client.
func (c *Client) Health() storage.HealthChecker {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return c.Ping(ctx)
	}
}

// DB returns the underlying gorm.DB instance.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// SqlDB returns the underlying sql.DB instance.
func (c *Client) SqlDB() (*sql.DB, error) {
	return c.db.DB()
}

func validateOptions(opts *Options) error {
	if opts.Host == "" {
		return fmt.Errorf("host is required")
	}
	if opts.Port <= 0 || opts.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if opts.Username == "" {
		return fmt.Errorf("username is required")
	}
	if opts.Database == "" {
		return fmt.Errorf("database is required")
	}
	return nil
}

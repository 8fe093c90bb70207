// Package sqlite provides an embedded SQLite storage client backed by the
// pure-Go glebarez driver, so docchat runs with zero external services by
// default.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/kart-io/docchat/pkg/component/gormlog"
	"github.com/kart-io/docchat/pkg/component/storage"
)

var _ storage.Client = (*Client)(nil)

// MemoryPath is the special path for an in-memory database, used in tests.
const MemoryPath = ":memory:"

// Options defines configuration options for SQLite.
type Options struct {
	// Path is the database file path, or MemoryPath for an in-memory store.
	Path string

	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration

	// MaxOpenConnections bounds concurrent connections. SQLite allows a
	// single writer, so a small pool avoids lock contention.
	MaxOpenConnections int

	// LogLevel maps 1..4 to Silent/Error/Warn/Info.
	LogLevel int
}

// NewOptions creates default SQLite options.
func NewOptions() *Options {
	return &Options{
		Path:               "./data/docchat.db",
		BusyTimeout:        5 * time.Second,
		MaxOpenConnections: 4,
		LogLevel:           1,
	}
}

// Client wraps gorm.DB over an embedded SQLite database.
type Client struct {
	db   *gorm.DB
	opts *Options
}

// New creates a new SQLite client from the provided options.
func New(opts *Options) (*Client, error) {
	return NewWithContext(context.Background(), opts)
}

// NewWithContext creates a new SQLite client, creating the parent directory
// for file-backed databases and verifying the connection before returning.
func NewWithContext(ctx context.Context, opts *Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("sqlite options cannot be nil")
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	if !isMemoryPath(opts.Path) {
		if dir := filepath.Dir(opts.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory %s: %w", dir, err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(BuildDSN(opts)), &gorm.Config{
		Logger: gormlog.New(opts.LogLevel, 200*time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if isMemoryPath(opts.Path) {
		// Each pooled connection would otherwise see its own empty
		// in-memory database.
		sqlDB.SetMaxOpenConns(1)
	} else if opts.MaxOpenConnections > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConnections)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	return &Client{db: db, opts: opts}, nil
}

// BuildDSN creates the SQLite DSN with pragmas for foreign key enforcement
// and lock waiting. Cascading deletes for chunks and messages depend on
// foreign_keys being on.
func BuildDSN(opts *Options) string {
	busyMillis := opts.BusyTimeout.Milliseconds()
	if busyMillis <= 0 {
		busyMillis = 5000
	}
	return fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", opts.Path, busyMillis)
}

func isMemoryPath(path string) bool {
	return path == MemoryPath || strings.Contains(path, "mode=memory")
}

// Name returns the storage type identifier.
func (c *Client) Name() string {
	return "sqlite"
}

// Ping checks that the database file is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database.
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

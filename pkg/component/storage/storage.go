// Package storage defines the interfaces shared by all storage clients
// (SQLite, MySQL, PostgreSQL, Redis), enabling uniform health checking and
// graceful shutdown across docchat.
package storage

import (
	"context"
	"time"
)

// Client is the base interface every storage client implements.
type Client interface {
	// Name returns the storage type identifier, a lowercase name such as
	// "sqlite", "mysql", "postgres" or "redis". Used in logs and health
	// reports.
	Name() string

	// Ping checks whether the connection to the backend is alive. It must
	// be a lightweight operation and honor the context deadline.
	Ping(ctx context.Context) error

	// Close releases the connection gracefully. Safe to call more than once.
	Close() error

	// Health returns a HealthChecker bound to this client.
	Health() HealthChecker
}

// HealthChecker performs a health check without exposing the client.
type HealthChecker func() error

// HealthStatus is the result of a single health check.
type HealthStatus struct {
	// Name matches Client.Name().
	Name string `json:"name"`

	// Healthy is true when the backend responded to the check.
	Healthy bool `json:"healthy"`

	// Latency is how long the check took.
	Latency time.Duration `json:"latency"`

	// Error holds the failure detail, nil when Healthy.
	Error error `json:"error,omitempty"`
}

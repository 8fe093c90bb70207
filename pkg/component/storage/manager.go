package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Manager is a registry for storage clients. It centralizes health checking
// and shutdown so server wiring can treat heterogeneous backends uniformly.
// Safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{clients: make(map[string]Client)}
}

// Register adds a client under a unique name such as "db" or "redis-cache".
func (m *Manager) Register(name string, client Client) error {
	if name == "" {
		return fmt.Errorf("storage: client name cannot be empty")
	}
	if client == nil {
		return fmt.Errorf("storage: client cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[name]; exists {
		return fmt.Errorf("storage: client %q is already registered", name)
	}
	m.clients[name] = client
	return nil
}

// MustRegister registers a client and panics on failure. For wiring code
// where a duplicate registration is a programming error.
func (m *Manager) MustRegister(name string, client Client) {
	if err := m.Register(name, client); err != nil {
		panic(err)
	}
}

// Get returns the client registered under name.
func (m *Manager) Get(name string) (Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, ok := m.clients[name]
	return client, ok
}

// List returns the registered client names in sorted order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthCheckAll pings every registered client concurrently and returns the
// status per registration name.
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]HealthStatus {
	m.mu.RLock()
	clients := make(map[string]Client, len(m.clients))
	for name, client := range m.clients {
		clients[name] = client
	}
	m.mu.RUnlock()

	statuses := make(map[string]HealthStatus, len(clients))
	var statusMu sync.Mutex
	var wg sync.WaitGroup

	for name, client := range clients {
		wg.Add(1)
		go func(n string, c Client) {
			defer wg.Done()

			start := time.Now()
			err := c.Ping(ctx)
			latency := time.Since(start)

			statusMu.Lock()
			statuses[n] = HealthStatus{
				Name:    c.Name(),
				Healthy: err == nil,
				Latency: latency,
				Error:   err,
			}
			statusMu.Unlock()
		}(name, client)
	}

	wg.Wait()
	return statuses
}

// CloseAll closes every registered client and empties the registry. All
// clients are closed even if some fail; the first error is returned.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, client := range m.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("storage: close %q: %w", name, err)
		}
		delete(m.clients, name)
	}
	return firstErr
}

// Package llm provides a unified abstraction over embedding and text
// generation providers. Providers register themselves at init time and are
// constructed by name, so embedding and generation can use different
// upstreams.
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// EmbeddingProvider produces vector embeddings for text.
type EmbeddingProvider interface {
	// Embed returns the embedding for a single text. Batch work is done
	// upstream with independent per-text calls so one failing text cannot
	// sink a whole batch.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name returns the provider name.
	Name() string
}

// ChatProvider generates text completions.
type ChatProvider interface {
	// Generate produces a completion for prompt using the given model.
	// An empty model falls back to the provider's configured default.
	Generate(ctx context.Context, model, prompt string) (string, error)

	// Name returns the provider name.
	Name() string
}

// EmbeddingProviderFactory builds an EmbeddingProvider from a config map.
type EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)

// ChatProviderFactory builds a ChatProvider from a config map.
type ChatProviderFactory func(config map[string]any) (ChatProvider, error)

var registry = &providerRegistry{
	embeddingProviders: make(map[string]EmbeddingProviderFactory),
	chatProviders:      make(map[string]ChatProviderFactory),
}

type providerRegistry struct {
	mu                 sync.RWMutex
	embeddingProviders map[string]EmbeddingProviderFactory
	chatProviders      map[string]ChatProviderFactory
}

// RegisterEmbeddingProvider registers an embedding provider factory.
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embeddingProviders[name] = factory
}

// RegisterChatProvider registers a chat provider factory.
func RegisterChatProvider(name string, factory ChatProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.chatProviders[name] = factory
}

// NewEmbeddingProvider creates an embedding provider instance by name.
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	registry.mu.RLock()
	factory, ok := registry.embeddingProviders[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown embedding provider: %s", name)
	}
	return factory(config)
}

// NewChatProvider creates a chat provider instance by name.
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	registry.mu.RLock()
	factory, ok := registry.chatProviders[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown chat provider: %s", name)
	}
	return factory(config)
}

// ListProviders returns the names of all registered providers, sorted.
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string

	for name := range registry.embeddingProviders {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range registry.chatProviders {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names
}

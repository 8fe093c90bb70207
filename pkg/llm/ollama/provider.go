// Package ollama implements the Ollama provider for embeddings and text
// generation against a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kart-io/docchat/pkg/errors"
	"github.com/kart-io/docchat/pkg/llm"
	"github.com/kart-io/docchat/pkg/utils/httpclient"
	"github.com/kart-io/docchat/pkg/utils/json"
)

// ProviderName identifies this provider in the registry.
const ProviderName = "ollama"

func init() {
	llm.RegisterEmbeddingProvider(ProviderName, func(config map[string]any) (llm.EmbeddingProvider, error) {
		return NewProvider(config)
	})
	llm.RegisterChatProvider(ProviderName, func(config map[string]any) (llm.ChatProvider, error) {
		return NewProvider(config)
	})
}

// Config holds Ollama provider configuration.
type Config struct {
	// BaseURL is the Ollama server address.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// EmbedModel is the model used for embeddings.
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// ChatModel is the default model for generation when a call does not
	// name one.
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	// Timeout bounds a single request. Local generation can be slow, so
	// the default is generous.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries counts transport-level retries on 5xx responses.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:11434",
		EmbedModel: "nomic-embed-text",
		ChatModel:  "llama3.2",
		Timeout:    120 * time.Second,
		MaxRetries: 2,
	}
}

// Provider implements llm.EmbeddingProvider and llm.ChatProvider against a
// local Ollama server. No credential is required.
type Provider struct {
	config *Config
	client *httpclient.Client
}

var (
	_ llm.EmbeddingProvider = (*Provider)(nil)
	_ llm.ChatProvider      = (*Provider)(nil)
)

// NewProvider creates an Ollama provider from a config map.
func NewProvider(configMap map[string]any) (*Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v >= 0 {
		cfg.MaxRetries = v
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig creates an Ollama provider from a Config.
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return ProviderName
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates the embedding for a single text with the configured
// embedding model.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embedRequest{
		Model: p.config.EmbedModel,
		Input: []string{text},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var embedResp embedResponse
	if err := p.client.DoJSON(req, &embedResp); err != nil {
		return nil, errors.ErrEmbeddingUnavailable.WithCause(err)
	}

	if len(embedResp.Embeddings) == 0 || len(embedResp.Embeddings[0]) == 0 {
		return nil, errors.ErrResponseShape.WithMessage("ollama: empty embedding response")
	}
	return embedResp.Embeddings[0], nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate produces a completion for prompt using the given model, or the
// configured chat model when model is empty.
func (p *Provider) Generate(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = p.config.ChatModel
	}

	reqBody := generateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var genResp generateResponse
	if err := p.client.DoJSON(req, &genResp); err != nil {
		return "", errors.ErrGenerationUnavailable.WithCause(err)
	}

	return genResp.Response, nil
}

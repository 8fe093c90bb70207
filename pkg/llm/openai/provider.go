// Package openai implements the OpenAI provider for embeddings and text
// generation. It also works against OpenAI-compatible APIs (Azure OpenAI,
// LocalAI and similar) via the base_url setting.
package openai

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
const ProviderName = "openai"

func init() {
	llm.RegisterEmbeddingProvider(ProviderName, func(config map[string]any) (llm.EmbeddingProvider, error) {
		return NewProvider(config)
	})
	llm.RegisterChatProvider(ProviderName, func(config map[string]any) (llm.ChatProvider, error) {
		return NewProvider(config)
	})
}

// Config holds OpenAI provider configuration.
type Config struct {
	// BaseURL is the API base address. Override it to target an
	// OpenAI-compatible service.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey is the API key. Required.
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// EmbedModel is the model used for embeddings.
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// ChatModel is the default model for generation when a call does not
	// name one.
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	// Timeout bounds a single request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries counts transport-level retries on 5xx responses.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// Organization is an optional organization ID sent with each request.
	Organization string `json:"organization" mapstructure:"organization"`

	// Temperature controls sampling randomness. Zero leaves the API default.
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// TopP is the nucleus sampling parameter. Zero leaves the API default.
	TopP float64 `json:"top_p" mapstructure:"top_p"`

	// MaxTokens caps the completion length. Zero leaves the API default.
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig returns the default configuration. The sampling parameters
// match the generation settings used elsewhere in the answer pipeline.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://api.openai.com/v1",
		EmbedModel:  "text-embedding-3-small",
		ChatModel:   "gpt-4o-mini",
		Timeout:     120 * time.Second,
		MaxRetries:  2,
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   200,
	}
}

// Provider implements llm.EmbeddingProvider and llm.ChatProvider against the
// OpenAI API.
type Provider struct {
	config *Config
	client *httpclient.Client
}

var (
	_ llm.EmbeddingProvider = (*Provider)(nil)
	_ llm.ChatProvider      = (*Provider)(nil)
)

// NewProvider creates an OpenAI provider from a config map.
func NewProvider(configMap map[string]any) (*Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
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
	if v, ok := configMap["organization"].(string); ok && v != "" {
		cfg.Organization = v
	}
	if v, ok := configMap["temperature"].(float64); ok {
		cfg.Temperature = v
	}
	if v, ok := configMap["top_p"].(float64); ok {
		cfg.TopP = v
	}
	if v, ok := configMap["max_tokens"].(int); ok && v > 0 {
		cfg.MaxTokens = v
	}

	if cfg.APIKey == "" {
		return nil, errors.ErrProviderConfig.WithMessage("openai: api_key is required")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig creates an OpenAI provider from a Config.
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

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Embed generates the embedding for a single text with the configured
// embedding model.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embeddingRequest{
		Model: p.config.EmbedModel,
		Input: []string{text},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.setHeaders(req)

	var embedResp embeddingResponse
	if err := p.client.DoJSON(req, &embedResp); err != nil {
		return nil, errors.ErrEmbeddingUnavailable.WithCause(err)
	}

	if len(embedResp.Data) == 0 || len(embedResp.Data[0].Embedding) == 0 {
		return nil, errors.ErrResponseShape.WithMessage("openai: empty embedding response")
	}
	return embedResp.Data[0].Embedding, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Generate produces a completion for prompt using the given model, or the
// configured chat model when model is empty. The prompt is sent as a single
// user message.
func (p *Provider) Generate(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = p.config.ChatModel
	}

	reqBody := chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	}
	if p.config.MaxTokens > 0 {
		reqBody.MaxTokens = p.config.MaxTokens
	}
	if p.config.Temperature > 0 {
		reqBody.Temperature = p.config.Temperature
	}
	if p.config.TopP > 0 {
		reqBody.TopP = p.config.TopP
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	p.setHeaders(req)

	var chatResp chatResponse
	if err := p.client.DoJSON(req, &chatResp); err != nil {
		return "", errors.ErrGenerationUnavailable.WithCause(err)
	}

	if len(chatResp.Choices) == 0 {
		return "", errors.ErrResponseShape.WithMessage("openai: empty choices in response")
	}
	return chatResp.Choices[0].Message.Content, nil
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	if p.config.Organization != "" {
		req.Header.Set("OpenAI-Organization", p.config.Organization)
	}
}

// Package huggingface implements the HuggingFace Inference API provider for
// embeddings (feature extraction) and text generation.
package huggingface

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
const ProviderName = "huggingface"

func init() {
	llm.RegisterEmbeddingProvider(ProviderName, func(config map[string]any) (llm.EmbeddingProvider, error) {
		return NewProvider(config)
	})
	llm.RegisterChatProvider(ProviderName, func(config map[string]any) (llm.ChatProvider, error) {
		return NewProvider(config)
	})
}

// Config holds HuggingFace provider configuration.
type Config struct {
	// BaseURL is the Inference API base address.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey is the HuggingFace API token. Required.
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// Model is the model ID this instance targets: an embedding model for
	// feature extraction or the default generation model.
	Model string `json:"model" mapstructure:"model"`

	// Timeout bounds a single request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries counts transport-level retries on 5xx responses.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// WaitForModel asks the API to block while a cold model loads instead
	// of returning 503.
	WaitForModel bool `json:"wait_for_model" mapstructure:"wait_for_model"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://api-inference.huggingface.co",
		Model:        "sentence-transformers/all-MiniLM-L6-v2",
		Timeout:      30 * time.Second,
		MaxRetries:   2,
		WaitForModel: true,
	}
}

// Provider implements llm.EmbeddingProvider and llm.ChatProvider against the
// HuggingFace Inference API.
type Provider struct {
	config *Config
	client *httpclient.Client
}

var (
	_ llm.EmbeddingProvider = (*Provider)(nil)
	_ llm.ChatProvider      = (*Provider)(nil)
)

// NewProvider creates a HuggingFace provider from a config map.
func NewProvider(configMap map[string]any) (*Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := configMap["model"].(string); ok && v != "" {
		cfg.Model = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v >= 0 {
		cfg.MaxRetries = v
	}
	if v, ok := configMap["wait_for_model"].(bool); ok {
		cfg.WaitForModel = v
	}

	if cfg.APIKey == "" {
		return nil, errors.ErrProviderConfig.WithMessage("huggingface: api_key is required")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig creates a HuggingFace provider from a Config.
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
	Inputs  []string        `json:"inputs"`
	Options *requestOptions `json:"options,omitempty"`
}

type requestOptions struct {
	WaitForModel bool `json:"wait_for_model,omitempty"`
}

// Embed generates the embedding for a single text via the feature-extraction
// pipeline. The API returns either one vector per input or token-level
// vectors per input; token vectors are mean-pooled into a single vector.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embeddingRequest{Inputs: []string{text}}
	if p.config.WaitForModel {
		reqBody.Options = &requestOptions{WaitForModel: true}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", p.config.BaseURL, p.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.setHeaders(req)

	raw, err := p.client.DoRaw(req)
	if err != nil {
		return nil, errors.ErrEmbeddingUnavailable.WithCause(err)
	}

	return decodeEmbedding(raw)
}

// decodeEmbedding handles the two shapes the feature-extraction pipeline
// produces for a single input: [[...floats...]] for sentence models and
// [[[...floats...]]] for models that return one vector per token.
func decodeEmbedding(raw []byte) ([]float32, error) {
	var vectors [][]float32
	if err := json.Unmarshal(raw, &vectors); err == nil {
		if len(vectors) == 0 || len(vectors[0]) == 0 {
			return nil, errors.ErrResponseShape.WithMessage("huggingface: empty embedding response")
		}
		return vectors[0], nil
	}

	var tokenVectors [][][]float32
	if err := json.Unmarshal(raw, &tokenVectors); err != nil {
		return nil, errors.ErrResponseShape.WithCause(err)
	}
	if len(tokenVectors) == 0 || len(tokenVectors[0]) == 0 {
		return nil, errors.ErrResponseShape.WithMessage("huggingface: empty token embedding response")
	}

	tokens := tokenVectors[0]
	dim := len(tokens[0])
	pooled := make([]float32, dim)
	for _, token := range tokens {
		for j, v := range token {
			if j < dim {
				pooled[j] += v
			}
		}
	}
	for j := range pooled {
		pooled[j] /= float32(len(tokens))
	}
	return pooled, nil
}

type generateRequest struct {
	Inputs     string          `json:"inputs"`
	Parameters *generateParams `json:"parameters,omitempty"`
	Options    *requestOptions `json:"options,omitempty"`
}

type generateParams struct {
	MaxNewTokens      int     `json:"max_new_tokens"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	DoSample          bool    `json:"do_sample"`
	ReturnFullText    bool    `json:"return_full_text"`
}

// Generate produces a completion for prompt using the given model, or the
// configured default when model is empty.
func (p *Provider) Generate(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = p.config.Model
	}

	reqBody := generateRequest{
		Inputs: prompt,
		Parameters: &generateParams{
			MaxNewTokens:      200,
			Temperature:       0.7,
			TopP:              0.9,
			RepetitionPenalty: 1.1,
			DoSample:          true,
			ReturnFullText:    false,
		},
	}
	if p.config.WaitForModel {
		reqBody.Options = &requestOptions{WaitForModel: true}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", p.config.BaseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	p.setHeaders(req)

	raw, err := p.client.DoRaw(req)
	if err != nil {
		return "", errors.ErrGenerationUnavailable.WithCause(err)
	}

	return decodeGenerated(raw)
}

// decodeGenerated handles the three shapes the text-generation API produces:
// a list of objects with generated_text, a single such object, or a bare
// string.
func decodeGenerated(raw []byte) (string, error) {
	var list []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0].GeneratedText, nil
	}

	var single struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &single); err == nil && single.GeneratedText != "" {
		return single.GeneratedText, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil && text != "" {
		return text, nil
	}

	return "", errors.ErrResponseShape.WithMessagef("huggingface: unexpected generation response: %.200s", string(raw))
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
}

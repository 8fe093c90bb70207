// Package llm provides embedding and generation provider configuration options.
package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/docchat/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions defines the configuration of one upstream provider.
type ProviderOptions struct {
	// Provider is the provider name (huggingface, ollama, openai).
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL is the API base address.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey is the API credential, required by hosted providers.
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model is the model to use. For generation providers this is the first
	// entry of the attempt chain; Models extends it.
	Model string `json:"model" mapstructure:"model"`

	// Models is the fixed priority order of generation models. The first
	// model whose cleaned output passes the acceptance check wins.
	Models []string `json:"models" mapstructure:"models"`

	// Timeout bounds a single upstream call.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the transport-level retry budget for a single call.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// NewEmbeddingOptions creates default embedding provider options.
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "huggingface",
		BaseURL:    "https://api-inference.huggingface.co",
		Model:      "sentence-transformers/all-MiniLM-L6-v2",
		Timeout:    30 * time.Second,
		MaxRetries: 2,
	}
}

// NewGenerationOptions creates default generation provider options.
// Models are attempted in order until one produces an acceptable answer.
func NewGenerationOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider: "huggingface",
		BaseURL:  "https://api-inference.huggingface.co",
		Model:    "microsoft/DialoGPT-medium",
		Models: []string{
			"microsoft/DialoGPT-medium",
			"gpt2",
			"distilgpt2",
		},
		Timeout: 60 * time.Second,
		// A failed generation moves on to the next model in the chain
		// instead of re-hitting the same one.
		MaxRetries: 0,
	}
}

// ModelChain returns the generation attempt order, deduplicated, with Model
// always first.
func (o *ProviderOptions) ModelChain() []string {
	chain := make([]string, 0, len(o.Models)+1)
	seen := make(map[string]struct{}, len(o.Models)+1)
	for _, m := range append([]string{o.Model}, o.Models...) {
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		chain = append(chain, m)
	}
	return chain
}

// ToConfigMap converts the options into the map consumed by provider factories.
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":    o.BaseURL,
		"api_key":     o.APIKey,
		"model":       o.Model,
		"models":      o.ModelChain(),
		"timeout":     o.Timeout,
		"max_retries": o.MaxRetries,
	}
}

// AddFlags adds flags for provider options to the specified FlagSet.
// The prefix distinguishes the embedding and generation instances
// (e.g. "embedding.llm.provider" vs "generation.llm.provider").
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	join := options.Join(prefixes...)
	fs.StringVar(&o.Provider, join+"llm.provider", o.Provider, "Provider name (huggingface, ollama, openai).")
	fs.StringVar(&o.BaseURL, join+"llm.base-url", o.BaseURL, "Provider API base URL.")
	fs.StringVar(&o.APIKey, join+"llm.api-key", o.APIKey, "Provider API key (DEPRECATED: use HF_API_KEY / OPENAI_API_KEY env vars instead).")
	fs.StringVar(&o.Model, join+"llm.model", o.Model, "Model name.")
	fs.StringSliceVar(&o.Models, join+"llm.models", o.Models, "Generation model priority chain.")
	fs.DurationVar(&o.Timeout, join+"llm.timeout", o.Timeout, "Per-call request timeout.")
	fs.IntVar(&o.MaxRetries, join+"llm.max-retries", o.MaxRetries, "Transport-level retries per call.")
}

// Validate validates the provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	// Hosted providers read their credential from the environment when the
	// flag is empty.
	if o.APIKey == "" {
		switch o.Provider {
		case "huggingface":
			o.APIKey = os.Getenv("HF_API_KEY")
		case "openai":
			o.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("llm.provider is required"))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("llm.base-url is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("llm.model is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must be positive"))
	}
	return errs
}

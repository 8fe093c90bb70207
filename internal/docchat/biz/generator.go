package biz

import (
	"context"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/internal/docchat/metrics"
	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/pkg/errors"
	"github.com/kart-io/docchat/pkg/llm"
)

// systemInstruction is the fixed instruction prepended to every prompt.
const systemInstruction = "You are a helpful AI assistant that answers questions based on provided documents. " +
	"Use only the information from the given context to answer questions. " +
	"If the context doesn't contain enough information to answer the question, " +
	"say so politely and suggest what additional information might be needed."

const (
	// minAcceptableLength discards completions that are too short to be a
	// real answer, typically echo-only output.
	minAcceptableLength = 10
	// historyTurnsInPrompt bounds how many prior turns enter the prompt.
	historyTurnsInPrompt = 5
)

// GeneratorConfig configures the answer generator.
type GeneratorConfig struct {
	// Models are tried in priority order until one returns an acceptable
	// answer. An empty entry uses the provider's default model.
	Models []string
	// MinAnswerChars rejects cleaned completions at or below this length,
	// discarding echoes and degenerate outputs.
	MinAnswerChars int
}

// Generator builds the structured prompt and walks the model chain.
type Generator struct {
	chat     llm.ChatProvider
	models   []string
	minChars int
	metrics  *metrics.Pipeline
}

// NewGenerator creates a generator over the given chat provider.
func NewGenerator(chat llm.ChatProvider, cfg *GeneratorConfig) *Generator {
	models := []string{""}
	minChars := minAcceptableLength
	if cfg != nil {
		if len(cfg.Models) > 0 {
			models = cfg.Models
		}
		if cfg.MinAnswerChars > 0 {
			minChars = cfg.MinAnswerChars
		}
	}
	return &Generator{
		chat:     chat,
		models:   models,
		minChars: minChars,
		metrics:  metrics.Get(),
	}
}

// BuildPrompt assembles the fixed instruction, the context block, the most
// recent history turns and the current question into one prompt.
func BuildPrompt(query, contextBlock string, history []Turn) string {
	parts := []string{systemInstruction}

	if contextBlock != "" {
		parts = append(parts, "\nContext from documents:\n"+contextBlock)
	}

	if len(history) > 0 {
		turns := history
		if len(turns) > historyTurnsInPrompt {
			turns = turns[len(turns)-historyTurnsInPrompt:]
		}
		var b strings.Builder
		b.WriteString("\nConversation history:")
		for _, turn := range turns {
			speaker := "Human"
			if turn.Role == model.RoleAssistant {
				speaker = "Assistant"
			}
			b.WriteString("\n" + speaker + ": " + turn.Content)
		}
		parts = append(parts, b.String())
	}

	parts = append(parts, "\nHuman: "+query, "Assistant:")
	return strings.Join(parts, "\n")
}

// Generate runs the model chain and returns the first acceptable answer.
// When every model fails or answers too short, the error carries the last
// upstream cause so the caller can fail soft.
func (g *Generator) Generate(ctx context.Context, query, contextBlock string, history []Turn) (string, error) {
	if g.chat == nil {
		return "", errors.ErrGenerationUnavailable.WithMessage("no generation provider configured")
	}

	prompt := BuildPrompt(query, contextBlock, history)

	var lastErr error
	for _, name := range g.models {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		g.metrics.RecordGenerationAttempt(g.modelLabel(name))
		raw, err := g.chat.Generate(ctx, name, prompt)
		if err != nil {
			logger.Warnw("generation attempt failed",
				"model", g.modelLabel(name),
				"error", err.Error(),
			)
			lastErr = err
			continue
		}

		answer := cleanCompletion(raw, prompt)
		if len(answer) > g.minChars {
			return answer, nil
		}
		logger.Warnw("completion too short, trying next model",
			"model", g.modelLabel(name),
			"length", len(answer),
		)
	}

	if lastErr != nil {
		return "", errors.ErrGenerationUnavailable.WithCause(lastErr)
	}
	return "", errors.ErrGenerationUnavailable.WithMessage("no model produced an acceptable answer")
}

func (g *Generator) modelLabel(name string) string {
	if name == "" {
		return g.chat.Name() + "-default"
	}
	return name
}

// cleanCompletion strips an echoed prompt prefix and surrounding whitespace
// from a raw completion.
func cleanCompletion(raw, prompt string) string {
	return strings.TrimSpace(strings.TrimPrefix(raw, prompt))
}

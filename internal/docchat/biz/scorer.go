package biz

import (
	"context"

	"github.com/kart-io/docchat/internal/model"
)

// Scorer ranks stored chunks against a natural-language query.
type Scorer interface {
	// Rank returns chunks ordered by descending score, at most topK long.
	// Implementations may apply their own internal cap.
	Rank(ctx context.Context, query string, chunks []*model.Chunk, topK int) ([]model.ScoredChunk, error)

	// Name returns the strategy name for logging.
	Name() string
}

package biz

import (
	"context"
	"sort"

	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/internal/pkg/textutil"
	"github.com/kart-io/docchat/pkg/llm"
)

// DenseScorer ranks chunks by cosine similarity between the query embedding
// and each chunk's stored embedding. Chunks without an embedding are skipped;
// when no candidate carries one the result is empty and the caller falls
// back to the lexical strategy.
type DenseScorer struct {
	embedder llm.EmbeddingProvider
}

// NewDenseScorer creates a dense scorer over the given embedding provider.
func NewDenseScorer(embedder llm.EmbeddingProvider) *DenseScorer {
	return &DenseScorer{embedder: embedder}
}

// Name returns the strategy name.
func (s *DenseScorer) Name() string { return "dense" }

// Rank embeds the query once and scores every embedded chunk against it.
// Ties keep document order.
func (s *DenseScorer) Rank(ctx context.Context, query string, chunks []*model.Chunk, topK int) ([]model.ScoredChunk, error) {
	if query == "" || len(chunks) == 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(queryVec) == 0 {
		return nil, nil
	}

	var scored []model.ScoredChunk
	for _, chunk := range chunks {
		vec := chunk.Vector()
		if vec == nil {
			continue
		}
		scored = append(scored, model.ScoredChunk{
			Chunk: chunk,
			Score: textutil.CosineSimilarity(queryVec, vec),
		})
	}
	if len(scored) == 0 {
		return nil, nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

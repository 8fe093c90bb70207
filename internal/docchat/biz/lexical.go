package biz

import (
	"context"
	"sort"
	"strings"

	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/internal/pkg/textutil"
)

const (
	// lexicalTopK is the strategy's fixed internal cap, independent of the
	// caller's topK.
	lexicalTopK = 5

	exactMatchScore = 1.0
	// partialWeight discounts partial token matches against exact overlap.
	partialWeight = 0.7
	// lengthBonus surfaces long chunks when no stronger signal exists.
	lengthBonus       = 0.1
	lengthBonusMinLen = 100

	openingChunks = 3
)

// openingIntents are query phrases answered with the opening chunks in
// document order instead of scored retrieval.
var openingIntents = []string{"first page", "1st page", "page 1", "beginning", "start"}

// LexicalScorer ranks chunks with keyword heuristics. It needs no external
// service and guarantees a non-empty result whenever at least one chunk
// exists, so it doubles as the fallback when embeddings are unavailable.
type LexicalScorer struct{}

// NewLexicalScorer creates a lexical scorer.
func NewLexicalScorer() *LexicalScorer { return &LexicalScorer{} }

// Name returns the strategy name.
func (s *LexicalScorer) Name() string { return "lexical" }

// Rank scores every chunk with several independent heuristics and keeps the
// maximum per chunk. The topK argument is ignored in favor of the fixed
// internal cap.
func (s *LexicalScorer) Rank(_ context.Context, query string, chunks []*model.Chunk, _ int) ([]model.ScoredChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	lowerQuery := strings.ToLower(query)
	for _, intent := range openingIntents {
		if strings.Contains(lowerQuery, intent) {
			return headChunks(chunks, 1.0), nil
		}
	}

	queryTokens := textutil.MeaningfulTokens(query)
	if len(queryTokens) == 0 {
		return headChunks(chunks, 0.8), nil
	}

	var scored []model.ScoredChunk
	for _, chunk := range chunks {
		if score, ok := scoreChunk(lowerQuery, queryTokens, chunk.Content); ok {
			scored = append(scored, model.ScoredChunk{Chunk: chunk, Score: score})
		}
	}
	if len(scored) == 0 {
		return headChunks(chunks, 0.5), nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > lexicalTopK {
		scored = scored[:lexicalTopK]
	}
	return scored, nil
}

// headChunks returns the first chunks in document order with a descending
// synthetic score starting at base.
func headChunks(chunks []*model.Chunk, base float64) []model.ScoredChunk {
	n := openingChunks
	if len(chunks) < n {
		n = len(chunks)
	}
	scored := make([]model.ScoredChunk, n)
	for i := 0; i < n; i++ {
		scored[i] = model.ScoredChunk{Chunk: chunks[i], Score: base - float64(i)*0.1}
	}
	return scored
}

// scoreChunk computes the heuristic components for one chunk and returns
// their maximum. Chunks matching no component at all are excluded from the
// ranking entirely.
func scoreChunk(lowerQuery string, queryTokens map[string]struct{}, content string) (float64, bool) {
	var scores []float64

	lowerChunk := strings.ToLower(content)
	if strings.Contains(lowerChunk, lowerQuery) {
		scores = append(scores, exactMatchScore)
	}

	chunkTokens := textutil.MeaningfulTokens(content)

	overlap := 0
	for token := range queryTokens {
		if _, ok := chunkTokens[token]; ok {
			overlap++
		}
	}
	if overlap > 0 {
		scores = append(scores, float64(overlap)/float64(len(queryTokens)))
	}

	partial := 0
	for queryToken := range queryTokens {
		for chunkToken := range chunkTokens {
			if strings.Contains(chunkToken, queryToken) || strings.Contains(queryToken, chunkToken) {
				partial++
				break
			}
		}
	}
	if partial > 0 {
		scores = append(scores, float64(partial)/float64(len(queryTokens))*partialWeight)
	}

	if len(content) > lengthBonusMinLen {
		scores = append(scores, lengthBonus)
	}

	if len(scores) == 0 {
		return 0, false
	}
	best := scores[0]
	for _, score := range scores[1:] {
		if score > best {
			best = score
		}
	}
	return best, true
}

package biz

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/internal/model"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[text], nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

func embeddedChunk(t *testing.T, index int, content string, vec []float32) *model.Chunk {
	t.Helper()
	chunk := &model.Chunk{ChunkIndex: index, Content: content}
	if vec != nil {
		require.NoError(t, chunk.SetVector(vec))
	}
	return chunk
}

func textChunks(contents ...string) []*model.Chunk {
	chunks := make([]*model.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = &model.Chunk{ChunkIndex: i, Content: content}
	}
	return chunks
}

func TestDenseRankOrdersBySimilarity(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"which direction": {1, 0, 0},
	}}
	chunks := []*model.Chunk{
		embeddedChunk(t, 0, "identical", []float32{1, 0, 0}),
		embeddedChunk(t, 1, "orthogonal", []float32{0, 1, 0}),
		embeddedChunk(t, 2, "diagonal", []float32{0.5, 0.5, 0}),
	}

	scored, err := NewDenseScorer(embedder).Rank(context.Background(), "which direction", chunks, 2)
	require.NoError(t, err)
	require.Len(t, scored, 2)

	assert.Equal(t, "identical", scored[0].Chunk.Content)
	assert.Greater(t, scored[0].Score, 0.99)
	assert.Equal(t, "diagonal", scored[1].Chunk.Content)
	assert.Greater(t, scored[0].Score, scored[1].Score)
}

func TestDenseRankEmptyInputs(t *testing.T) {
	scorer := NewDenseScorer(&fakeEmbedder{vectors: map[string][]float32{}})

	scored, err := scorer.Rank(context.Background(), "", textChunks("a"), 5)
	require.NoError(t, err)
	assert.Empty(t, scored)

	scored, err = scorer.Rank(context.Background(), "anything", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, scored)

	// Embedder returning no vector for the query behaves like no result.
	scored, err = scorer.Rank(context.Background(), "unknown", textChunks("a"), 5)
	require.NoError(t, err)
	assert.Empty(t, scored)
}

func TestDenseRankEmbedFailure(t *testing.T) {
	scorer := NewDenseScorer(&fakeEmbedder{err: assert.AnError})

	scored, err := scorer.Rank(context.Background(), "q", textChunks("a"), 5)
	assert.Error(t, err)
	assert.Empty(t, scored)
}

func TestDenseRankSkipsChunksWithoutEmbeddings(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	chunks := []*model.Chunk{
		embeddedChunk(t, 0, "bare", nil),
		embeddedChunk(t, 1, "embedded", []float32{1, 0}),
		embeddedChunk(t, 2, "bare too", nil),
	}

	scored, err := NewDenseScorer(embedder).Rank(context.Background(), "q", chunks, 5)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, "embedded", scored[0].Chunk.Content)

	// All candidates bare: empty result, caller falls back.
	scored, err = NewDenseScorer(embedder).Rank(context.Background(), "q", textChunks("x", "y"), 5)
	require.NoError(t, err)
	assert.Empty(t, scored)
}

func TestDenseRankStableOnTies(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	chunks := []*model.Chunk{
		embeddedChunk(t, 0, "first", []float32{1, 0}),
		embeddedChunk(t, 1, "second", []float32{1, 0}),
		embeddedChunk(t, 2, "third", []float32{2, 0}),
	}

	scored, err := NewDenseScorer(embedder).Rank(context.Background(), "q", chunks, 5)
	require.NoError(t, err)
	require.Len(t, scored, 3)

	// All three have cosine 1.0; document order decides.
	assert.Equal(t, "first", scored[0].Chunk.Content)
	assert.Equal(t, "second", scored[1].Chunk.Content)
	assert.Equal(t, "third", scored[2].Chunk.Content)
}

func TestLexicalOpeningIntent(t *testing.T) {
	chunks := textChunks("chunk zero", "chunk one", "chunk two", "chunk three")

	tests := []string{
		"show me the first page",
		"what does the beginning say",
		"summarize page 1",
	}
	scorer := NewLexicalScorer()
	for _, query := range tests {
		t.Run(query, func(t *testing.T) {
			scored, err := scorer.Rank(context.Background(), query, chunks, 99)
			require.NoError(t, err)
			require.Len(t, scored, 3)
			assert.Equal(t, "chunk zero", scored[0].Chunk.Content)
			assert.InDelta(t, 1.0, scored[0].Score, 0.0001)
			assert.InDelta(t, 0.9, scored[1].Score, 0.0001)
			assert.InDelta(t, 0.8, scored[2].Score, 0.0001)
		})
	}
}

func TestLexicalStopWordOnlyQuery(t *testing.T) {
	chunks := textChunks("alpha", "bravo")

	scored, err := NewLexicalScorer().Rank(context.Background(), "what is this", chunks, 5)
	require.NoError(t, err)
	require.Len(t, scored, 2)
	assert.Equal(t, "alpha", scored[0].Chunk.Content)
	assert.InDelta(t, 0.8, scored[0].Score, 0.0001)
	assert.InDelta(t, 0.7, scored[1].Score, 0.0001)
}

func TestLexicalExactSubstring(t *testing.T) {
	chunks := textChunks(
		"nothing relevant in here",
		"the captain set the rendezvous point at dawn",
	)

	scored, err := NewLexicalScorer().Rank(context.Background(), "rendezvous point", chunks, 5)
	require.NoError(t, err)
	require.NotEmpty(t, scored)
	assert.Equal(t, chunks[1], scored[0].Chunk)
	assert.InDelta(t, 1.0, scored[0].Score, 0.0001)
}

func TestLexicalTokenOverlap(t *testing.T) {
	chunks := textChunks("alpha appears alone among strangers")

	// One of two meaningful query tokens appears: 1/2.
	scored, err := NewLexicalScorer().Rank(context.Background(), "alpha beta", chunks, 5)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.InDelta(t, 0.5, scored[0].Score, 0.0001)
}

func TestLexicalPartialTokenMatch(t *testing.T) {
	// "auth" is a token-substring of the query token "authentication", but
	// the chunk contains neither the full word nor the query text.
	chunks := textChunks("auth tokens rotate hourly")

	scored, err := NewLexicalScorer().Rank(context.Background(), "authentication", chunks, 5)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.InDelta(t, 0.7, scored[0].Score, 0.0001)
}

func TestLexicalLengthBonusSurfacesLongChunks(t *testing.T) {
	long := strings.Repeat("quantum mechanics lectures resume tomorrow morning ", 3)
	require.Greater(t, len(long), 100)
	chunks := textChunks("zebra sighting", long)

	scored, err := NewLexicalScorer().Rank(context.Background(), "zebra", chunks, 5)
	require.NoError(t, err)
	require.Len(t, scored, 2)
	assert.Equal(t, "zebra sighting", scored[0].Chunk.Content)
	assert.InDelta(t, 1.0, scored[0].Score, 0.0001)
	assert.Equal(t, long, scored[1].Chunk.Content)
	assert.InDelta(t, 0.1, scored[1].Score, 0.0001)
}

func TestLexicalNoSignalFallsBackToOpening(t *testing.T) {
	chunks := textChunks("cats nap", "dogs bark", "birds sing", "fish swim")

	scored, err := NewLexicalScorer().Rank(context.Background(), "xylophone", chunks, 5)
	require.NoError(t, err)
	require.Len(t, scored, 3)
	assert.Equal(t, "cats nap", scored[0].Chunk.Content)
	assert.InDelta(t, 0.5, scored[0].Score, 0.0001)
	assert.InDelta(t, 0.4, scored[1].Score, 0.0001)
	assert.InDelta(t, 0.3, scored[2].Score, 0.0001)
}

func TestLexicalCapsAtFive(t *testing.T) {
	contents := make([]string, 8)
	for i := range contents {
		contents[i] = "every chunk mentions gravity"
	}

	scored, err := NewLexicalScorer().Rank(context.Background(), "gravity", textChunks(contents...), 99)
	require.NoError(t, err)
	assert.Len(t, scored, 5)
}

func TestLexicalNeverEmptyWithChunks(t *testing.T) {
	queries := []string{"", "the a an", "completely unrelated zylophone query", "first page"}
	chunks := textChunks("only one chunk")

	scorer := NewLexicalScorer()
	for _, query := range queries {
		scored, err := scorer.Rank(context.Background(), query, chunks, 5)
		require.NoError(t, err)
		assert.NotEmpty(t, scored, "query %q must still select chunks", query)
	}

	scored, err := scorer.Rank(context.Background(), "anything", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, scored, "no chunks means nothing to select")
}

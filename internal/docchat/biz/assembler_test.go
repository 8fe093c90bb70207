package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/internal/model"
)

func scoredChunks(contents ...string) []model.ScoredChunk {
	scored := make([]model.ScoredChunk, len(contents))
	for i, content := range contents {
		scored[i] = model.ScoredChunk{
			Chunk: &model.Chunk{ChunkIndex: i, Content: content},
			Score: 1.0 - float64(i)*0.1,
		}
	}
	return scored
}

func TestBuildContext(t *testing.T) {
	assembler := NewAssembler(2)

	got := assembler.BuildContext(scoredChunks("first", "second", "third"))
	assert.Equal(t, "first\n\nsecond", got, "context keeps ranked order and honors the cap")

	assert.Equal(t, "", assembler.BuildContext(nil))
	assert.Equal(t, "solo", assembler.BuildContext(scoredChunks("solo")))
}

func TestBuildContextDefaultCap(t *testing.T) {
	assembler := NewAssembler(0)

	contents := make([]string, 8)
	for i := range contents {
		contents[i] = "chunk"
	}
	got := assembler.BuildContext(scoredChunks(contents...))
	assert.Equal(t, DefaultMaxChunksForContext, strings.Count(got, "chunk"))
}

func TestOrderHistory(t *testing.T) {
	// Storage hands back newest first.
	newestFirst := []*model.ChatMessage{
		{Role: model.RoleAssistant, Content: "third"},
		{Role: model.RoleUser, Content: "second"},
		{Role: model.RoleUser, Content: "first"},
	}

	turns := NewAssembler(5).OrderHistory(newestFirst)
	require.Len(t, turns, 3)
	assert.Equal(t, "first", turns[0].Content)
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, "second", turns[1].Content)
	assert.Equal(t, "third", turns[2].Content)
	assert.Equal(t, model.RoleAssistant, turns[2].Role)

	assert.Empty(t, NewAssembler(5).OrderHistory(nil))
}

func TestSnapshot(t *testing.T) {
	long := strings.Repeat("y", 250)
	scored := scoredChunks("short text", long, "third", "fourth")

	entries := NewAssembler(5).Snapshot(scored)
	require.Len(t, entries, 3, "snapshot keeps at most three chunks")

	assert.Equal(t, "short text", entries[0].Text)
	assert.InDelta(t, 1.0, entries[0].Similarity, 0.0001)

	assert.Equal(t, strings.Repeat("y", 200)+"...", entries[1].Text, "long text is truncated with an ellipsis")
	assert.InDelta(t, 0.9, entries[1].Similarity, 0.0001)

	assert.Empty(t, NewAssembler(5).Snapshot(nil))
}

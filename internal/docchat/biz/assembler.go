package biz

import (
	"strings"

	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/internal/pkg/textutil"
)

const (
	// DefaultMaxChunksForContext bounds how many ranked chunks enter the
	// prompt context block.
	DefaultMaxChunksForContext = 5
	// DefaultHistoryLimit is how many recent messages are fetched per turn.
	DefaultHistoryLimit = 10

	// snapshotChunks and snapshotTextLimit shape the audit snapshot stored
	// on assistant messages.
	snapshotChunks    = 3
	snapshotTextLimit = 200
)

// Turn is one prior exchange passed to the generator.
type Turn struct {
	Role    string
	Content string
}

// Assembler turns ranked chunks and stored messages into the bounded inputs
// the generator consumes. It never mutates persisted state.
type Assembler struct {
	maxChunks int
}

// NewAssembler creates an assembler keeping at most maxChunks chunks per
// context block.
func NewAssembler(maxChunks int) *Assembler {
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunksForContext
	}
	return &Assembler{maxChunks: maxChunks}
}

// BuildContext joins the top-ranked chunk texts with a blank-line separator,
// in ranked order.
func (a *Assembler) BuildContext(scored []model.ScoredChunk) string {
	n := len(scored)
	if n > a.maxChunks {
		n = a.maxChunks
	}
	parts := make([]string, 0, n)
	for _, sc := range scored[:n] {
		parts = append(parts, sc.Chunk.Content)
	}
	return strings.Join(parts, "\n\n")
}

// OrderHistory restores chronological order from a newest-first message page.
func (a *Assembler) OrderHistory(messages []*model.ChatMessage) []Turn {
	turns := make([]Turn, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		turns = append(turns, Turn{Role: messages[i].Role, Content: messages[i].Content})
	}
	return turns
}

// Snapshot builds the audit snapshot persisted on assistant messages: the
// top chunks with truncated text and their scores.
func (a *Assembler) Snapshot(scored []model.ScoredChunk) []model.SnapshotEntry {
	n := len(scored)
	if n > snapshotChunks {
		n = snapshotChunks
	}
	entries := make([]model.SnapshotEntry, 0, n)
	for _, sc := range scored[:n] {
		entries = append(entries, model.SnapshotEntry{
			Text:       textutil.TruncateWithEllipsis(sc.Chunk.Content, snapshotTextLimit),
			Similarity: sc.Score,
		})
	}
	return entries
}

package biz

import (
	"strings"

	"github.com/kart-io/docchat/internal/model"
)

// Chunking defaults, sized for sentence-transformer context windows.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
)

// Chunker splits extracted document text into overlapping word windows.
//
// Character offsets track positions in the stream of reconstructed chunk
// texts, not the source document: word splitting collapses whitespace runs
// into single spaces, so offsets drift from true source positions. This is
// an accepted approximation; no consumer depends on byte-exact source
// offsets.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker over windows of size words that share
// overlap words with their predecessor. Non-positive sizes fall back to
// the defaults, and the overlap is clamped below the window size so the
// window always advances.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split cuts text into position-tracked chunks. Empty text yields no
// chunks; text at or under the window size yields exactly one chunk
// spanning the whole input.
func (c *Chunker) Split(text string) []model.ChunkSpan {
	if text == "" {
		return nil
	}

	words := strings.Fields(text)
	if len(words) <= c.size {
		return []model.ChunkSpan{{Text: text, StartChar: 0, EndChar: len(text)}}
	}

	var spans []model.ChunkSpan
	start := 0
	charStart := 0
	for start < len(words) {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}

		chunk := strings.Join(words[start:end], " ")
		charEnd := charStart + len(chunk)
		spans = append(spans, model.ChunkSpan{
			Text:      chunk,
			StartChar: charStart,
			EndChar:   charEnd,
		})

		if end >= len(words) {
			break
		}
		start = end - c.overlap
		charStart = charEnd - len(strings.Join(words[end-c.overlap:end], " "))
	}
	return spans
}

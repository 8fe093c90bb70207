// Package model defines the persistent entities and result types of the
// docchat service.
package model

import (
	"time"

	"github.com/kart-io/docchat/pkg/utils/json"
)

// Document is an uploaded document with its extracted text. Immutable after
// ingestion; deleting a document cascades to its chunks and sessions.
type Document struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(26)"`
	Filename    string `json:"filename" gorm:"type:varchar(255);not null"`
	Content     string `json:"-" gorm:"type:text;not null"`
	Fingerprint string `json:"fingerprint" gorm:"type:varchar(64);uniqueIndex;not null"`
	// ContentLength is the extracted text length in bytes.
	ContentLength int       `json:"content_length" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Chunks   []Chunk       `json:"-" gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
	Sessions []ChatSession `json:"-" gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Document.
func (Document) TableName() string {
	return "documents"
}

// Chunk is one overlapping passage of a document, the unit of retrieval.
// Chunk rows are written once at ingestion time and never updated.
type Chunk struct {
	ID         int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	DocumentID string `json:"document_id" gorm:"type:varchar(26);index;not null"`
	// ChunkIndex is contiguous from 0 within a document.
	ChunkIndex int    `json:"chunk_index" gorm:"not null"`
	Content    string `json:"content" gorm:"type:text;not null"`
	// StartChar/EndChar are offsets into the reconstructed chunk-text
	// stream (whitespace-normalized), not the original source text.
	StartChar int `json:"start_char" gorm:"not null;default:0"`
	EndChar   int `json:"end_char" gorm:"not null;default:0"`
	// Embedding is the JSON-encoded vector, empty when the embedding
	// service was unavailable at ingestion time.
	Embedding string    `json:"-" gorm:"type:text"`
	Dim       int       `json:"dim,omitempty" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Chunk.
func (Chunk) TableName() string {
	return "document_chunks"
}

// SetVector stores vec as the chunk's embedding. A nil or empty vector clears
// the embedding, marking the chunk as lexical-only.
func (c *Chunk) SetVector(vec []float32) error {
	if len(vec) == 0 {
		c.Embedding = ""
		c.Dim = 0
		return nil
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	c.Embedding = string(data)
	c.Dim = len(vec)
	return nil
}

// Vector decodes the stored embedding. Returns nil when the chunk has no
// embedding or the stored value does not decode.
func (c *Chunk) Vector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var vec []float32
	if err := json.Unmarshal([]byte(c.Embedding), &vec); err != nil {
		return nil
	}
	return vec
}

// DocumentInfo is the listing view of a document: metadata plus the chunk
// count, without the extracted content.
type DocumentInfo struct {
	*Document
	ChunkCount int64 `json:"chunk_count"`
}

// ChunkSpan is the chunker's output: a passage with its offsets. Not
// persisted directly; the ingester turns spans into Chunk rows.
type ChunkSpan struct {
	Text      string `json:"text"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// ScoredChunk pairs a stored chunk with its retrieval score.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

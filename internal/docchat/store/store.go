// Package store provides persistent storage for documents, chunks, chat
// sessions, and messages.
package store

import (
	"context"

	"github.com/kart-io/docchat/internal/model"
)

// Factory defines the factory interface for creating stores. Tx runs fn
// against a transaction-scoped factory; any error rolls the whole unit back.
type Factory interface {
	Documents() DocumentStore
	Chunks() ChunkStore
	Sessions() SessionStore
	Messages() MessageStore
	Tx(ctx context.Context, fn func(Factory) error) error
	Close() error
}

// DocumentStore defines document storage. Documents are immutable after
// creation; Delete removes the document with all dependent rows.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	Get(ctx context.Context, id string) (*model.Document, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*model.Document, error)
	List(ctx context.Context) ([]*model.Document, error)
	Delete(ctx context.Context, id string) error
}

// ChunkStore defines chunk storage. Chunks are written once per document at
// ingestion time.
type ChunkStore interface {
	CreateBatch(ctx context.Context, chunks []*model.Chunk) error
	ListByDocument(ctx context.Context, documentID string) ([]*model.Chunk, error)
	CountsByDocument(ctx context.Context) (map[string]int64, error)
}

// SessionStore defines chat session storage.
type SessionStore interface {
	Create(ctx context.Context, session *model.ChatSession) error
	Get(ctx context.Context, id string) (*model.ChatSession, error)
	List(ctx context.Context) ([]*model.ChatSession, error)
	Delete(ctx context.Context, id string) error
}

// MessageStore defines chat message storage.
type MessageStore interface {
	Create(ctx context.Context, message *model.ChatMessage) error
	// ListRecent returns up to limit messages newest-first.
	ListRecent(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error)
	// ListBySession returns all messages in chronological order.
	ListBySession(ctx context.Context, sessionID string) ([]*model.ChatMessage, error)
}

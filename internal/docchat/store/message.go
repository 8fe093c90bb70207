package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/docchat/internal/model"
)

type messages struct {
	db *gorm.DB
}

func newMessages(db *gorm.DB) *messages {
	return &messages{db}
}

// Create persists a new chat message.
func (m *messages) Create(ctx context.Context, message *model.ChatMessage) error {
	return m.db.WithContext(ctx).Create(message).Error
}

// ListRecent returns up to limit messages newest-first. Ties on the
// timestamp fall back to insertion order.
func (m *messages) ListRecent(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error) {
	var result []*model.ChatMessage
	err := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListBySession returns all of a session's messages in chronological order.
func (m *messages) ListBySession(ctx context.Context, sessionID string) ([]*model.ChatMessage, error) {
	var result []*model.ChatMessage
	err := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/docchat/internal/model"
)

type sessions struct {
	db *gorm.DB
}

func newSessions(db *gorm.DB) *sessions {
	return &sessions{db}
}

// Create persists a new chat session.
func (s *sessions) Create(ctx context.Context, session *model.ChatSession) error {
	return s.db.WithContext(ctx).Create(session).Error
}

// Get retrieves a session by id.
func (s *sessions) Get(ctx context.Context, id string) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns all sessions, newest first.
func (s *sessions) List(ctx context.Context) ([]*model.ChatSession, error) {
	var result []*model.ChatSession
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a session and its messages. Returns gorm.ErrRecordNotFound
// for an unknown id.
func (s *sessions) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&model.ChatSession{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

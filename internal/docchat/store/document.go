package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/docchat/internal/model"
)

type documents struct {
	db *gorm.DB
}

func newDocuments(db *gorm.DB) *documents {
	return &documents{db}
}

// Create persists a new document.
func (d *documents) Create(ctx context.Context, doc *model.Document) error {
	return d.db.WithContext(ctx).Create(doc).Error
}

// Get retrieves a document by id.
func (d *documents) Get(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetByFingerprint retrieves a document by its content fingerprint.
func (d *documents) GetByFingerprint(ctx context.Context, fingerprint string) (*model.Document, error) {
	var doc model.Document
	if err := d.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns all documents, newest first, without the extracted text.
func (d *documents) List(ctx context.Context) ([]*model.Document, error) {
	var docs []*model.Document
	err := d.db.WithContext(ctx).
		Omit("content").
		Order("created_at DESC, id DESC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Delete removes a document together with its chunks, sessions, and session
// messages in one transaction. Returns gorm.ErrRecordNotFound for an unknown
// id. The explicit child deletes keep the cascade engine-independent.
func (d *documents) Delete(ctx context.Context, id string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessionIDs := tx.Model(&model.ChatSession{}).Select("id").Where("document_id = ?", id)
		if err := tx.Where("session_id IN (?)", sessionIDs).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&model.ChatSession{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&model.Document{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

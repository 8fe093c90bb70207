package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/docchat/internal/model"
)

type chunks struct {
	db *gorm.DB
}

func newChunks(db *gorm.DB) *chunks {
	return &chunks{db}
}

// CreateBatch persists a document's chunks in insertion batches.
func (c *chunks) CreateBatch(ctx context.Context, batch []*model.Chunk) error {
	if len(batch) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).CreateInBatches(batch, 100).Error
}

// ListByDocument returns a document's chunks ordered by chunk index.
func (c *chunks) ListByDocument(ctx context.Context, documentID string) ([]*model.Chunk, error) {
	var result []*model.Chunk
	err := c.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CountsByDocument returns the chunk count per document id.
func (c *chunks) CountsByDocument(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		DocumentID string
		Count      int64
	}
	err := c.db.WithContext(ctx).
		Model(&model.Chunk{}).
		Select("document_id, COUNT(*) AS count").
		Group("document_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.DocumentID] = row.Count
	}
	return counts, nil
}

package biz

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/logger"
	"gorm.io/gorm"

	"github.com/kart-io/docchat/internal/docchat/metrics"
	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/internal/pkg/docutil"
	"github.com/kart-io/docchat/internal/pkg/textutil"
	"github.com/kart-io/docchat/pkg/errors"
	"github.com/kart-io/docchat/pkg/id"
	"github.com/kart-io/docchat/pkg/llm"
	"github.com/kart-io/docchat/pkg/pool"
)

const (
	// DefaultMaxFileSize caps uploads at 10 MiB.
	DefaultMaxFileSize = 10 << 20
	// DefaultEmbedWorkers bounds concurrent embedding calls per document.
	DefaultEmbedWorkers = 4
)

// IngesterConfig configures the ingestion pipeline. Zero values fall back to
// the defaults above and the chunker defaults.
type IngesterConfig struct {
	ChunkSize    int
	ChunkOverlap int
	MaxFileSize  int64
	EmbedWorkers int
}

// Ingester turns uploaded files into persisted documents with embedded
// chunks. A nil embedder is allowed: every chunk is stored without a vector
// and retrieval degrades to lexical scoring.
type Ingester struct {
	store    store.Factory
	embedder llm.EmbeddingProvider
	chunker  *Chunker
	pool     *pool.Pool
	config   *IngesterConfig
	metrics  *metrics.Pipeline
}

// NewIngester creates an ingester backed by the given store and embedder.
func NewIngester(factory store.Factory, embedder llm.EmbeddingProvider, config *IngesterConfig) (*Ingester, error) {
	if config == nil {
		config = &IngesterConfig{}
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.ChunkOverlap <= 0 {
		config.ChunkOverlap = DefaultChunkOverlap
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	if config.EmbedWorkers <= 0 {
		config.EmbedWorkers = DefaultEmbedWorkers
	}

	p, err := pool.New("docchat-embed", &pool.Config{
		Capacity:       config.EmbedWorkers,
		ExpiryDuration: time.Minute,
	})
	if err != nil {
		return nil, err
	}

	return &Ingester{
		store:    factory,
		embedder: embedder,
		chunker:  NewChunker(config.ChunkSize, config.ChunkOverlap),
		pool:     p,
		config:   config,
		metrics:  metrics.Get(),
	}, nil
}

// Ingest extracts, deduplicates, chunks, embeds, and persists one uploaded
// file. Returns the stored document on success.
func (i *Ingester) Ingest(ctx context.Context, filename string, data []byte) (*model.Document, error) {
	start := time.Now()

	doc, chunkCount, err := i.ingest(ctx, filename, data)
	if err != nil {
		i.metrics.RecordIngest(0, 0, err)
		return nil, err
	}

	i.metrics.RecordIngest(1, chunkCount, nil)
	logger.Infow("document ingested",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"chunks", chunkCount,
		"content_length", doc.ContentLength,
		"duration", time.Since(start).String(),
	)
	return doc, nil
}

// IngestFile reads path from disk and ingests it. Used by the upload
// directory watcher.
func (i *Ingester) IngestFile(ctx context.Context, path string) (*model.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.ErrIngestFailed.WithCause(err)
	}
	if info.Size() > i.config.MaxFileSize {
		return nil, errors.ErrFileTooLarge.WithMessagef(
			"file size %d exceeds the %d byte limit", info.Size(), i.config.MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrIngestFailed.WithCause(err)
	}
	return i.Ingest(ctx, filepath.Base(path), data)
}

// Close releases the embedding worker pool.
func (i *Ingester) Close() {
	i.pool.Release()
}

func (i *Ingester) ingest(ctx context.Context, filename string, data []byte) (*model.Document, int, error) {
	if int64(len(data)) > i.config.MaxFileSize {
		return nil, 0, errors.ErrFileTooLarge.WithMessagef(
			"file size %d exceeds the %d byte limit", len(data), i.config.MaxFileSize)
	}

	text, err := docutil.Extract(filename, data)
	if err != nil {
		return nil, 0, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, 0, errors.ErrEmptyDocument
	}

	fingerprint := textutil.Fingerprint(text)
	existing, err := i.store.Documents().GetByFingerprint(ctx, fingerprint)
	if err == nil {
		return nil, 0, errors.ErrDuplicateContent.WithMessagef(
			"identical content already uploaded as %q", existing.Filename)
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, errors.ErrDatabase.WithCause(err)
	}

	spans := i.chunker.Split(text)
	vectors := i.embedBatch(ctx, spans)

	doc := &model.Document{
		ID:            id.New(),
		Filename:      filepath.Base(filename),
		Content:       text,
		Fingerprint:   fingerprint,
		ContentLength: len(text),
	}
	chunks := make([]*model.Chunk, 0, len(spans))
	for idx, span := range spans {
		chunk := &model.Chunk{
			DocumentID: doc.ID,
			ChunkIndex: idx,
			Content:    span.Text,
			StartChar:  span.StartChar,
			EndChar:    span.EndChar,
		}
		if err := chunk.SetVector(vectors[idx]); err != nil {
			logger.Warnw("failed to encode chunk embedding, storing chunk without vector",
				"chunk_index", idx, "error", err.Error())
		}
		chunks = append(chunks, chunk)
	}

	txErr := i.store.Tx(ctx, func(f store.Factory) error {
		if err := f.Documents().Create(ctx, doc); err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return f.Chunks().CreateBatch(ctx, chunks)
	})
	if txErr != nil {
		// A concurrent upload of the same content may have won the unique
		// index race after our pre-check.
		if existing, err := i.store.Documents().GetByFingerprint(ctx, fingerprint); err == nil {
			return nil, 0, errors.ErrDuplicateContent.WithMessagef(
				"identical content already uploaded as %q", existing.Filename)
		}
		return nil, 0, errors.ErrIngestFailed.WithCause(txErr)
	}

	doc.Chunks = make([]model.Chunk, len(chunks))
	for idx, chunk := range chunks {
		doc.Chunks[idx] = *chunk
	}
	return doc, len(chunks), nil
}

// embedBatch embeds every span through the worker pool. Failed or skipped
// embeddings leave a nil vector so the chunk is still stored.
func (i *Ingester) embedBatch(ctx context.Context, spans []model.ChunkSpan) [][]float32 {
	vectors := make([][]float32, len(spans))
	if i.embedder == nil || len(spans) == 0 {
		return vectors
	}

	var wg sync.WaitGroup
	for idx := range spans {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			vec, err := i.embedder.Embed(ctx, spans[idx].Text)
			if err != nil {
				logger.Warnw("chunk embedding failed, chunk stays lexical-only",
					"chunk_index", idx, "error", err.Error())
				return
			}
			vectors[idx] = vec
		}
		if err := i.pool.Submit(task); err != nil {
			// Pool rejected the task; embed inline instead of dropping it.
			task()
		}
	}
	wg.Wait()

	return vectors
}

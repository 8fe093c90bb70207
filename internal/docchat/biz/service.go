package biz

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/logger"
	"gorm.io/gorm"

	"github.com/kart-io/docchat/internal/docchat/metrics"
	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/internal/pkg/textutil"
	"github.com/kart-io/docchat/pkg/errors"
	"github.com/kart-io/docchat/pkg/id"
	"github.com/kart-io/docchat/pkg/llm"
	"github.com/kart-io/docchat/pkg/tracing"
	"github.com/kart-io/docchat/pkg/utils/json"
)

// tracerName identifies the pipeline spans.
const tracerName = "github.com/kart-io/docchat/internal/docchat/biz"

// User-facing answers for handled failure modes. Pipeline failures never
// surface as transport errors; the caller always receives plain text.
const (
	sessionNotFoundAnswer = "Session not found. Please start a new conversation."

	chatErrorAnswer = "I encountered an error while processing your question. Please try again."

	noContextFallback = "I don't have any relevant information in the uploaded documents " +
		"to answer your question. Please make sure you've uploaded documents that contain " +
		"information related to your query."

	fallbackIntro = "I found some relevant information in your documents, but I'm having " +
		"trouble generating a proper response right now. Here's what I found:\n\n"
)

const (
	// fallbackChunks and fallbackTextLimit shape the degraded answer built
	// from retrieved chunks when every model attempt fails.
	fallbackChunks    = 2
	fallbackTextLimit = 300
)

// Retrieval strategies. Auto prefers dense ranking and falls back to the
// lexical heuristic; the other two pin a single scorer.
const (
	StrategyAuto    = "auto"
	StrategyDense   = "dense"
	StrategyLexical = "lexical"
)

// DefaultTopK is how many scored chunks the ranker returns per question.
const DefaultTopK = 5

// Service is the document chat facade the transport layer talks to.
type Service interface {
	IngestDocument(ctx context.Context, filename string, data []byte) (*model.Document, error)
	ListDocuments(ctx context.Context) ([]*model.DocumentInfo, error)
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	DeleteDocument(ctx context.Context, id string) error

	StartSession(ctx context.Context, documentID string) (*model.ChatSession, error)
	ListSessions(ctx context.Context) ([]*model.SessionInfo, error)
	DeleteSession(ctx context.Context, id string) error
	History(ctx context.Context, sessionID string) ([]*model.ChatMessage, error)

	Chat(ctx context.Context, sessionID, question string) (*model.ChatResult, error)
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// ChatConfig bounds the per-turn pipeline.
type ChatConfig struct {
	// Strategy selects the chunk scorer: StrategyAuto, StrategyDense, or
	// StrategyLexical.
	Strategy string
	// TopK is how many scored chunks the ranker keeps per question.
	TopK int
	// MaxChunksForContext caps how many ranked chunks enter the prompt.
	MaxChunksForContext int
	// HistoryLimit is how many recent messages are loaded per turn.
	HistoryLimit int
}

// ServiceConfig aggregates the tunables of the whole pipeline.
type ServiceConfig struct {
	Ingester  *IngesterConfig
	Generator *GeneratorConfig
	Chat      *ChatConfig
}

// ChatService orchestrates retrieval, generation, and persistence for the
// document chat pipeline.
type ChatService struct {
	store     store.Factory
	ingester  *Ingester
	dense     *DenseScorer // nil when no embedding provider is configured
	lexical   *LexicalScorer
	assembler *Assembler
	generator *Generator
	cache     *AnswerCache
	metrics   *metrics.Pipeline
	config    *ChatConfig

	// locks serialize turns per session so concurrent questions cannot
	// interleave user/assistant pairs in the transcript.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ Service = (*ChatService)(nil)

// NewChatService wires the pipeline. A nil embedder degrades retrieval to
// lexical scoring; a nil chat provider degrades answers to the fallback text.
func NewChatService(factory store.Factory, embedder llm.EmbeddingProvider, chat llm.ChatProvider, cache *AnswerCache, config *ServiceConfig) (*ChatService, error) {
	if config == nil {
		config = &ServiceConfig{}
	}
	if config.Chat == nil {
		config.Chat = &ChatConfig{}
	}
	if config.Chat.Strategy == "" {
		config.Chat.Strategy = StrategyAuto
	}
	if config.Chat.TopK <= 0 {
		config.Chat.TopK = DefaultTopK
	}
	if config.Chat.MaxChunksForContext <= 0 {
		config.Chat.MaxChunksForContext = DefaultMaxChunksForContext
	}
	if config.Chat.HistoryLimit <= 0 {
		config.Chat.HistoryLimit = DefaultHistoryLimit
	}
	if cache == nil {
		cache = NewAnswerCache(nil, nil)
	}

	ingester, err := NewIngester(factory, embedder, config.Ingester)
	if err != nil {
		return nil, err
	}

	var dense *DenseScorer
	if embedder != nil {
		dense = NewDenseScorer(embedder)
	}
	if config.Chat.Strategy == StrategyDense && dense == nil {
		logger.Warnw("dense retrieval requested without an embedding provider, using lexical scoring")
		config.Chat.Strategy = StrategyLexical
	}

	return &ChatService{
		store:     factory,
		ingester:  ingester,
		dense:     dense,
		lexical:   NewLexicalScorer(),
		assembler: NewAssembler(config.Chat.MaxChunksForContext),
		generator: NewGenerator(chat, config.Generator),
		cache:     cache,
		metrics:   metrics.Get(),
		config:    config.Chat,
		locks:     make(map[string]*sync.Mutex),
	}, nil
}

// Ingester exposes the ingestion pipeline for the upload directory watcher.
func (s *ChatService) Ingester() *Ingester {
	return s.ingester
}

// Close releases the resources owned by the service.
func (s *ChatService) Close() {
	s.ingester.Close()
}

// IngestDocument stores one uploaded file as a document with chunks.
func (s *ChatService) IngestDocument(ctx context.Context, filename string, data []byte) (*model.Document, error) {
	return s.ingester.Ingest(ctx, filename, data)
}

// ListDocuments returns every document newest-first with its chunk count.
func (s *ChatService) ListDocuments(ctx context.Context) ([]*model.DocumentInfo, error) {
	docs, err := s.store.Documents().List(ctx)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	counts, err := s.store.Chunks().CountsByDocument(ctx)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	infos := make([]*model.DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		infos = append(infos, &model.DocumentInfo{Document: doc, ChunkCount: counts[doc.ID]})
	}
	return infos, nil
}

// GetDocument returns one document with its extracted text.
func (s *ChatService) GetDocument(ctx context.Context, docID string) (*model.Document, error) {
	doc, err := s.store.Documents().Get(ctx, docID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrDocumentNotFound
		}
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return doc, nil
}

// DeleteDocument removes a document with its chunks, sessions, and messages.
func (s *ChatService) DeleteDocument(ctx context.Context, docID string) error {
	if err := s.store.Documents().Delete(ctx, docID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrDocumentNotFound
		}
		return errors.ErrDatabase.WithCause(err)
	}
	logger.Infow("document deleted", "document_id", docID)
	return nil
}

// StartSession opens a conversation bound to one document.
func (s *ChatService) StartSession(ctx context.Context, documentID string) (*model.ChatSession, error) {
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}

	session := &model.ChatSession{ID: id.New(), DocumentID: documentID}
	if err := s.store.Sessions().Create(ctx, session); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	logger.Infow("chat session started", "session_id", session.ID, "document_id", documentID)
	return session, nil
}

// ListSessions returns every chat session with the filename of its document.
func (s *ChatService) ListSessions(ctx context.Context) ([]*model.SessionInfo, error) {
	sessions, err := s.store.Sessions().List(ctx)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	docs, err := s.store.Documents().List(ctx)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	names := make(map[string]string, len(docs))
	for _, doc := range docs {
		names[doc.ID] = doc.Filename
	}

	infos := make([]*model.SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, &model.SessionInfo{
			ChatSession:      session,
			DocumentFilename: names[session.DocumentID],
		})
	}
	return infos, nil
}

// DeleteSession removes a session and its messages.
func (s *ChatService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.store.Sessions().Delete(ctx, sessionID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrSessionNotFound
		}
		return errors.ErrDatabase.WithCause(err)
	}

	s.mu.Lock()
	delete(s.locks, sessionID)
	s.mu.Unlock()

	logger.Infow("chat session deleted", "session_id", sessionID)
	return nil
}

// History returns the full transcript of a session in chronological order.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]*model.ChatMessage, error) {
	if _, err := s.store.Sessions().Get(ctx, sessionID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrSessionNotFound
		}
		return nil, errors.ErrDatabase.WithCause(err)
	}

	messages, err := s.store.Messages().ListBySession(ctx, sessionID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return messages, nil
}

// Chat answers one question against the session's document. Retrieval,
// generation, and persistence failures degrade to user-facing text; the only
// error returned is for a blank question.
func (s *ChatService) Chat(ctx context.Context, sessionID, question string) (*model.ChatResult, error) {
	start := time.Now()

	if strings.TrimSpace(question) == "" {
		return nil, errors.ErrEmptyMessage
	}

	session, err := s.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.RecordQuery(false, nil)
			return &model.ChatResult{Answer: sessionNotFoundAnswer, Elapsed: time.Since(start)}, nil
		}
		logger.Errorw("failed to load session", "session_id", sessionID, "error", err.Error())
		s.metrics.RecordQuery(false, err)
		return &model.ChatResult{Answer: chatErrorAnswer, Elapsed: time.Since(start)}, nil
	}

	if cached, err := s.cache.Get(ctx, sessionID, question); err == nil && cached != nil {
		cached.Elapsed = time.Since(start)
		s.metrics.RecordQuery(true, nil)
		logger.Infow("answer served from cache", "session_id", sessionID)
		return cached, nil
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	scored, err := s.retrieve(ctx, question, session)
	if err != nil {
		s.metrics.RecordQuery(false, err)
		logger.Errorw("failed to load chunks for retrieval",
			"session_id", sessionID,
			"document_id", session.DocumentID,
			"error", err.Error(),
		)
		return &model.ChatResult{Answer: chatErrorAnswer, Elapsed: time.Since(start)}, nil
	}

	messages, err := s.store.Messages().ListRecent(ctx, sessionID, s.config.HistoryLimit)
	if err != nil {
		logger.Warnw("failed to load conversation history, continuing without it",
			"session_id", sessionID, "error", err.Error())
		messages = nil
	}
	history := s.assembler.OrderHistory(messages)
	contextBlock := s.assembler.BuildContext(scored)

	answer, genErr := s.generate(ctx, question, contextBlock, history)
	if genErr != nil {
		logger.Warnw("generation failed, answering from retrieved chunks",
			"session_id", sessionID, "error", genErr.Error())
		answer = s.fallbackAnswer(scored)
		s.metrics.RecordFallback()
	}

	sources := s.assembler.Snapshot(scored)
	s.persistTurn(ctx, sessionID, question, answer, sources)

	result := &model.ChatResult{Answer: answer, Sources: sources, Elapsed: time.Since(start)}
	if genErr == nil {
		// Fallback answers stay uncached so a retry reaches the models again.
		_ = s.cache.Set(ctx, sessionID, question, result)
	}

	s.metrics.RecordQuery(false, nil)
	return result, nil
}

// Stats reports pipeline metrics, cache state, and store row counts.
func (s *ChatService) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := s.metrics.Stats()

	if cacheStats, err := s.cache.Stats(ctx); err == nil {
		stats["cache"] = cacheStats
	} else {
		logger.Warnw("failed to collect cache stats", "error", err.Error())
	}

	docs, err := s.store.Documents().List(ctx)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	counts, err := s.store.Chunks().CountsByDocument(ctx)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	sessions, err := s.store.Sessions().List(ctx)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	var totalChunks int64
	for _, n := range counts {
		totalChunks += n
	}
	stats["store"] = map[string]interface{}{
		"documents": len(docs),
		"chunks":    totalChunks,
		"sessions":  len(sessions),
	}
	return stats, nil
}

// retrieve loads the session document's chunks and ranks them for the
// question.
func (s *ChatService) retrieve(ctx context.Context, question string, session *model.ChatSession) ([]model.ScoredChunk, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "chat.retrieve")
	defer span.End()

	start := time.Now()
	chunks, err := s.store.Chunks().ListByDocument(ctx, session.DocumentID)
	if err != nil {
		s.metrics.RecordRetrieval(time.Since(start), err)
		tracing.RecordError(ctx, err)
		return nil, err
	}
	scored := s.rank(ctx, question, chunks)
	s.metrics.RecordRetrieval(time.Since(start), nil)

	tracing.AddSpanAttributes(ctx,
		tracing.String("chat.strategy", s.config.Strategy),
		tracing.Int("chat.chunks.total", len(chunks)),
		tracing.Int("chat.chunks.ranked", len(scored)),
	)
	if len(scored) > 0 {
		tracing.AddSpanAttributes(ctx, tracing.Float64("chat.score.top", scored[0].Score))
	}
	return scored, nil
}

// generate runs the model chain for the question over the assembled context.
func (s *ChatService) generate(ctx context.Context, question, contextBlock string, history []Turn) (string, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "chat.generate")
	defer span.End()

	start := time.Now()
	answer, err := s.generator.Generate(ctx, question, contextBlock, history)
	s.metrics.RecordGeneration(time.Since(start), err)
	if err != nil {
		tracing.RecordError(ctx, err)
		return "", err
	}

	tracing.AddSpanAttributes(ctx,
		tracing.Int("chat.history.turns", len(history)),
		tracing.Int("chat.answer.chars", len(answer)),
	)
	return answer, nil
}

// rank scores chunks for the question according to the configured strategy.
// Auto prefers dense ranking and falls back to the lexical heuristic when
// embeddings are unavailable or return nothing.
func (s *ChatService) rank(ctx context.Context, question string, chunks []*model.Chunk) []model.ScoredChunk {
	switch s.config.Strategy {
	case StrategyLexical:
	case StrategyDense:
		scored, err := s.dense.Rank(ctx, question, chunks, s.config.TopK)
		if err != nil {
			logger.Warnw("dense ranking failed", "error", err.Error())
			return nil
		}
		return scored
	default:
		if s.dense != nil {
			scored, err := s.dense.Rank(ctx, question, chunks, s.config.TopK)
			if err != nil {
				logger.Warnw("dense ranking failed, falling back to lexical scoring", "error", err.Error())
			} else if len(scored) > 0 {
				return scored
			}
		}
	}

	scored, _ := s.lexical.Rank(ctx, question, chunks, s.config.TopK)
	return scored
}

// fallbackAnswer builds the degraded answer used when no model produced an
// acceptable completion.
func (s *ChatService) fallbackAnswer(scored []model.ScoredChunk) string {
	if len(scored) == 0 {
		return noContextFallback
	}

	n := len(scored)
	if n > fallbackChunks {
		n = fallbackChunks
	}
	parts := make([]string, 0, n)
	for _, sc := range scored[:n] {
		parts = append(parts, textutil.TruncateWithEllipsis(sc.Chunk.Content, fallbackTextLimit))
	}
	return fallbackIntro + strings.Join(parts, "\n\n")
}

// persistTurn writes the user question and assistant answer atomically.
// Persistence failures are logged and swallowed; the answer is already
// computed and still goes back to the caller.
func (s *ChatService) persistTurn(ctx context.Context, sessionID, question, answer string, sources []model.SnapshotEntry) {
	snapshot := ""
	if len(sources) > 0 {
		data, err := json.Marshal(sources)
		if err != nil {
			logger.Warnw("failed to encode context snapshot", "session_id", sessionID, "error", err.Error())
		} else {
			snapshot = string(data)
		}
	}

	err := s.store.Tx(ctx, func(f store.Factory) error {
		userMsg := &model.ChatMessage{
			SessionID: sessionID,
			Role:      model.RoleUser,
			Content:   question,
		}
		if err := f.Messages().Create(ctx, userMsg); err != nil {
			return err
		}
		assistantMsg := &model.ChatMessage{
			SessionID:       sessionID,
			Role:            model.RoleAssistant,
			Content:         answer,
			ContextSnapshot: snapshot,
		}
		return f.Messages().Create(ctx, assistantMsg)
	})
	if err != nil {
		logger.Errorw("failed to persist chat turn", "session_id", sessionID, "error", err.Error())
	}
}

func (s *ChatService) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/pkg/errors"
	"github.com/kart-io/docchat/pkg/id"
	"github.com/kart-io/docchat/pkg/llm"
)

func newTestService(t *testing.T, embedder llm.EmbeddingProvider, chat llm.ChatProvider) (*ChatService, store.Factory) {
	t.Helper()

	factory := testStore(t)
	svc, err := NewChatService(factory, embedder, chat, nil, &ServiceConfig{
		Ingester: &IngesterConfig{ChunkSize: 20, ChunkOverlap: 5},
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, factory
}

func seedConversation(t *testing.T, svc *ChatService, text string) (docID, sessionID string) {
	t.Helper()
	ctx := context.Background()

	doc, err := svc.IngestDocument(ctx, "seed.txt", []byte(text))
	require.NoError(t, err)
	session, err := svc.StartSession(ctx, doc.ID)
	require.NoError(t, err)
	return doc.ID, session.ID
}

func TestChatSessionNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	result, err := svc.Chat(context.Background(), "no-such-session", "hello there everyone")
	require.NoError(t, err, "an unknown session is answered, not errored")
	assert.Equal(t, "Session not found. Please start a new conversation.", result.Answer)
	assert.Empty(t, result.Sources)
}

func TestChatRejectsBlankQuestion(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.Chat(context.Background(), "any", "   \t ")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrEmptyMessage.Code))
}

func TestChatAnswersFromDocument(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{1, 0, 0}}
	chat := &fakeChat{responses: map[string]string{
		"": "The report tracks retrieval accuracy across several embedding models.",
	}}
	svc, _ := newTestService(t, embedder, chat)
	ctx := context.Background()

	_, sessionID := seedConversation(t, svc,
		"the quarterly report tracks retrieval accuracy across embedding models and lexical scorers")

	result, err := svc.Chat(ctx, sessionID, "what does the report cover?")
	require.NoError(t, err)
	assert.Equal(t, "The report tracks retrieval accuracy across several embedding models.", result.Answer)
	require.NotEmpty(t, result.Sources)
	assert.InDelta(t, 1.0, result.Sources[0].Similarity, 0.001)

	history, err := svc.History(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, "what does the report cover?", history[0].Content)
	assert.Equal(t, model.RoleAssistant, history[1].Role)
	assert.Equal(t, result.Answer, history[1].Content)
	assert.Contains(t, history[1].ContextSnapshot, `"similarity"`)
	assert.Empty(t, history[0].ContextSnapshot)
}

func TestChatFallbackUsesRetrievedChunks(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{1, 0, 0}}
	chat := &fakeChat{errs: map[string]error{"": assert.AnError}}
	svc, _ := newTestService(t, embedder, chat)
	ctx := context.Background()

	text := "incident review notes for the march outage and its recovery steps"
	_, sessionID := seedConversation(t, svc, text)

	result, err := svc.Chat(ctx, sessionID, "what happened during the outage?")
	require.NoError(t, err, "generation failure degrades to a fallback answer")
	assert.Equal(t, fallbackIntro+text, result.Answer)

	history, err := svc.History(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, history, 2, "fallback turns are still persisted")
	assert.Equal(t, result.Answer, history[1].Content)
}

func TestChatFallbackWithoutChunks(t *testing.T) {
	factory := testStore(t)
	chat := &fakeChat{errs: map[string]error{"": assert.AnError}}
	svc, err := NewChatService(factory, nil, chat, nil, nil)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	ctx := context.Background()

	// A document without chunks cannot come out of ingestion; seed it
	// directly to exercise the empty-retrieval branch.
	doc := &model.Document{
		ID:            id.New(),
		Filename:      "hollow.txt",
		Content:       "x",
		Fingerprint:   "fp-hollow",
		ContentLength: 1,
	}
	require.NoError(t, factory.Documents().Create(ctx, doc))
	session := &model.ChatSession{ID: id.New(), DocumentID: doc.ID}
	require.NoError(t, factory.Sessions().Create(ctx, session))

	result, err := svc.Chat(ctx, session.ID, "is anything in here?")
	require.NoError(t, err)
	assert.Equal(t, noContextFallback, result.Answer)
	assert.Empty(t, result.Sources)
}

func TestChatLexicalOnlyPipeline(t *testing.T) {
	chat := &fakeChat{responses: map[string]string{
		"": "Retrieval accuracy is tracked weekly against production traffic.",
	}}
	svc, _ := newTestService(t, nil, chat)
	ctx := context.Background()

	_, sessionID := seedConversation(t, svc,
		"the quarterly report tracks retrieval accuracy across embedding models and lexical scorers")

	result, err := svc.Chat(ctx, sessionID, "retrieval accuracy")
	require.NoError(t, err)
	assert.Equal(t, "Retrieval accuracy is tracked weekly against production traffic.", result.Answer)
	require.NotEmpty(t, result.Sources, "lexical scoring still yields sources")
}

func TestChatDenseFailureFallsBackToLexical(t *testing.T) {
	embedder := &stubEmbedder{err: fmt.Errorf("embedding service down")}
	chat := &fakeChat{responses: map[string]string{
		"": "The notes describe the deployment rollback procedure step by step.",
	}}
	svc, _ := newTestService(t, embedder, chat)
	ctx := context.Background()

	_, sessionID := seedConversation(t, svc,
		"deployment rollback procedure for the payment service explained with concrete commands")

	result, err := svc.Chat(ctx, sessionID, "rollback procedure")
	require.NoError(t, err)
	assert.Equal(t, "The notes describe the deployment rollback procedure step by step.", result.Answer)
	require.NotEmpty(t, result.Sources)
}

func TestChatLexicalStrategySkipsEmbedder(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{1, 0}}
	chat := &fakeChat{responses: map[string]string{
		"": "Alerts are routed to the on-call engineer through the paging policy.",
	}}
	factory := testStore(t)
	svc, err := NewChatService(factory, embedder, chat, nil, &ServiceConfig{
		Ingester: &IngesterConfig{ChunkSize: 20, ChunkOverlap: 5},
		Chat:     &ChatConfig{Strategy: StrategyLexical},
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	ctx := context.Background()

	_, sessionID := seedConversation(t, svc,
		"alert routing policies page the on-call engineer when thresholds trip overnight")
	embedsAfterIngest := embedder.calls()

	result, err := svc.Chat(ctx, sessionID, "alert routing")
	require.NoError(t, err)
	require.NotEmpty(t, result.Sources)
	assert.Equal(t, embedsAfterIngest, embedder.calls(), "lexical strategy never embeds the question")
}

func TestChatDenseStrategyHasNoLexicalFallback(t *testing.T) {
	embedder := &stubEmbedder{err: fmt.Errorf("embedding service down")}
	chat := &fakeChat{responses: map[string]string{
		"": "The runbook covers capacity planning for the ingest tier.",
	}}
	factory := testStore(t)
	svc, err := NewChatService(factory, embedder, chat, nil, &ServiceConfig{
		Ingester: &IngesterConfig{ChunkSize: 20, ChunkOverlap: 5},
		Chat:     &ChatConfig{Strategy: StrategyDense},
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	ctx := context.Background()

	_, sessionID := seedConversation(t, svc,
		"capacity planning for the ingest tier with projected storage growth")

	result, err := svc.Chat(ctx, sessionID, "capacity planning")
	require.NoError(t, err)
	assert.Equal(t, "The runbook covers capacity planning for the ingest tier.", result.Answer)
	assert.Empty(t, result.Sources, "pinned dense strategy does not fall back to lexical matches")
}

func TestChatSecondTurnCarriesHistory(t *testing.T) {
	chat := &fakeChat{responses: map[string]string{
		"": "The service chunks documents before embedding them for retrieval.",
	}}
	svc, _ := newTestService(t, nil, chat)
	ctx := context.Background()

	_, sessionID := seedConversation(t, svc,
		"documents are chunked with overlap and embedded before retrieval serves queries")

	_, err := svc.Chat(ctx, sessionID, "how are documents processed?")
	require.NoError(t, err)
	_, err = svc.Chat(ctx, sessionID, "and what about overlap?")
	require.NoError(t, err)

	require.Len(t, chat.prompts, 2)
	first, second := chat.prompts[0], chat.prompts[1]
	assert.NotContains(t, first, "Conversation history:")
	assert.Contains(t, second, "Conversation history:")
	assert.Contains(t, second, "Human: how are documents processed?")
	assert.Contains(t, second, "Assistant: The service chunks documents before embedding them for retrieval.")
	assert.True(t, strings.HasSuffix(second, "Human: and what about overlap?\nAssistant:"))
}

// persistFailFactory delegates everything except transactions, which fail.
type persistFailFactory struct {
	store.Factory
}

func (p *persistFailFactory) Tx(context.Context, func(store.Factory) error) error {
	return fmt.Errorf("simulated write failure")
}

func TestChatPersistFailureStillAnswers(t *testing.T) {
	inner := testStore(t)
	chat := &fakeChat{responses: map[string]string{
		"": "Here is the summary of the uploaded meeting notes.",
	}}
	svc, err := NewChatService(&persistFailFactory{Factory: inner}, nil, chat, nil, nil)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	ctx := context.Background()

	doc := &model.Document{
		ID:            id.New(),
		Filename:      "notes.txt",
		Content:       "meeting notes about roadmap decisions",
		Fingerprint:   "fp-persist",
		ContentLength: 37,
	}
	require.NoError(t, inner.Documents().Create(ctx, doc))
	require.NoError(t, inner.Chunks().CreateBatch(ctx, []*model.Chunk{{
		DocumentID: doc.ID,
		ChunkIndex: 0,
		Content:    doc.Content,
		EndChar:    len(doc.Content),
	}}))
	session := &model.ChatSession{ID: id.New(), DocumentID: doc.ID}
	require.NoError(t, inner.Sessions().Create(ctx, session))

	result, err := svc.Chat(ctx, session.ID, "summarize the meeting notes")
	require.NoError(t, err, "persistence failure must not lose the answer")
	assert.Equal(t, "Here is the summary of the uploaded meeting notes.", result.Answer)

	messages, err := inner.Messages().ListBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, messages, "the failed turn leaves no partial rows")
}

func TestChatCachedAnswerSkipsPipeline(t *testing.T) {
	client := setupTestRedis(t)
	factory := testStore(t)
	chat := &fakeChat{responses: map[string]string{
		"": "Grounded answer produced by the one and only model call.",
	}}
	cache := NewAnswerCache(client, &AnswerCacheConfig{
		Enabled:   true,
		TTL:       time.Minute,
		KeyPrefix: "test:svc:",
	})
	svc, err := NewChatService(factory, nil, chat, cache, &ServiceConfig{
		Ingester: &IngesterConfig{ChunkSize: 20, ChunkOverlap: 5},
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	ctx := context.Background()

	_, sessionID := seedConversation(t, svc,
		"observability runbook describing alert thresholds and paging policies in production")

	first, err := svc.Chat(ctx, sessionID, "which alerts page the on-call?")
	require.NoError(t, err)
	require.Len(t, chat.calls, 1)

	// Any further model call would now fail; the cache must answer instead.
	chat.errs = map[string]error{"": assert.AnError}

	second, err := svc.Chat(ctx, sessionID, "which alerts page the on-call?")
	require.NoError(t, err)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Len(t, chat.calls, 1, "cache hit must not reach the model")

	history, err := svc.History(ctx, sessionID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "cache hits do not append to the transcript")
}

func TestChatConcurrentTurnsDoNotInterleave(t *testing.T) {
	chat := &fakeChat{responses: map[string]string{
		"": "Concurrent turns are serialized per session before persisting.",
	}}
	svc, _ := newTestService(t, nil, chat)
	ctx := context.Background()

	_, sessionID := seedConversation(t, svc,
		"load test notes covering concurrency controls and transactional persistence behavior")

	questions := []string{
		"does persistence serialize concurrent turns?",
		"how many writers can touch a session?",
		"what guards the transcript ordering?",
	}
	var wg sync.WaitGroup
	for _, q := range questions {
		wg.Add(1)
		go func(question string) {
			defer wg.Done()
			_, err := svc.Chat(ctx, sessionID, question)
			assert.NoError(t, err)
		}(q)
	}
	wg.Wait()

	history, err := svc.History(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, history, 2*len(questions))
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, model.RoleUser, history[i].Role, "turn %d", i/2)
		assert.Equal(t, model.RoleAssistant, history[i+1].Role, "turn %d", i/2)
	}
}

func TestChatSnapshotTruncatesLongChunks(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{0, 1}}
	chat := &fakeChat{responses: map[string]string{
		"": "The long passage is summarized without copying it verbatim.",
	}}
	svc, _ := newTestService(t, embedder, chat)
	ctx := context.Background()

	words := make([]string, 20)
	for i := range words {
		words[i] = fmt.Sprintf("verylongword%03dpadpadpad", i)
	}
	_, sessionID := seedConversation(t, svc, strings.Join(words, " "))

	result, err := svc.Chat(ctx, sessionID, "summarize the passage")
	require.NoError(t, err)
	require.NotEmpty(t, result.Sources)
	assert.Len(t, result.Sources[0].Text, 203, "200 runes plus the ellipsis")
	assert.True(t, strings.HasSuffix(result.Sources[0].Text, "..."))
}

func TestServiceNotFoundErrnos(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	_, err := svc.GetDocument(ctx, "missing")
	assert.True(t, errors.IsCode(err, errors.ErrDocumentNotFound.Code))

	err = svc.DeleteDocument(ctx, "missing")
	assert.True(t, errors.IsCode(err, errors.ErrDocumentNotFound.Code))

	_, err = svc.StartSession(ctx, "missing")
	assert.True(t, errors.IsCode(err, errors.ErrDocumentNotFound.Code))

	err = svc.DeleteSession(ctx, "missing")
	assert.True(t, errors.IsCode(err, errors.ErrSessionNotFound.Code))

	_, err = svc.History(ctx, "missing")
	assert.True(t, errors.IsCode(err, errors.ErrSessionNotFound.Code))
}

func TestListDocumentsIncludesChunkCounts(t *testing.T) {
	svc, factory := newTestService(t, nil, nil)
	ctx := context.Background()

	first, err := svc.IngestDocument(ctx, "long.txt", []byte(wordRun(50)))
	require.NoError(t, err)
	second, err := svc.IngestDocument(ctx, "short.txt", []byte("tiny note"))
	require.NoError(t, err)

	infos, err := svc.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byID := make(map[string]*model.DocumentInfo, len(infos))
	for _, info := range infos {
		byID[info.ID] = info
		assert.Empty(t, info.Content, "listing omits extracted text")
	}
	for _, docID := range []string{first.ID, second.ID} {
		chunks, err := factory.Chunks().ListByDocument(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, int64(len(chunks)), byID[docID].ChunkCount)
	}
}

func TestListSessionsJoinsDocumentFilename(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	_, sessionID := seedConversation(t, svc,
		"meeting minutes covering the quarterly planning discussion and action items")

	infos, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, sessionID, infos[0].ID)
	assert.Equal(t, "seed.txt", infos[0].DocumentFilename)
}

func TestDeleteDocumentEndsItsSessions(t *testing.T) {
	chat := &fakeChat{responses: map[string]string{
		"": "The handbook covers onboarding procedures for new engineers.",
	}}
	svc, _ := newTestService(t, nil, chat)
	ctx := context.Background()

	docID, sessionID := seedConversation(t, svc,
		"engineering handbook describing the onboarding procedure for new engineers")

	result, err := svc.Chat(ctx, sessionID, "what does the handbook cover?")
	require.NoError(t, err)
	assert.NotEqual(t, "Session not found. Please start a new conversation.", result.Answer)

	require.NoError(t, svc.DeleteDocument(ctx, docID))

	result, err = svc.Chat(ctx, sessionID, "what does the handbook cover now?")
	require.NoError(t, err)
	assert.Equal(t, "Session not found. Please start a new conversation.", result.Answer)
}

func TestStatsShape(t *testing.T) {
	chat := &fakeChat{responses: map[string]string{
		"": "Stats exercise answer that is clearly long enough to accept.",
	}}
	svc, _ := newTestService(t, nil, chat)
	ctx := context.Background()

	_, sessionID := seedConversation(t, svc,
		"metrics overview document listing the counters exported by the pipeline")
	_, err := svc.Chat(ctx, sessionID, "which counters exist?")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)

	assert.Contains(t, stats, "queries")
	assert.Contains(t, stats, "generation")
	assert.Contains(t, stats, "cache")

	storeStats, ok := stats["store"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, storeStats["documents"])
	assert.Equal(t, 1, storeStats["sessions"])
}

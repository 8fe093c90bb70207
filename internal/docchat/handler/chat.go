package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/docchat/internal/docchat/biz"
	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/pkg/errors"
)

// DefaultChatTimeout bounds one chat turn end to end.
const DefaultChatTimeout = 60 * time.Second

// ChatHandler handles chat session and message requests.
type ChatHandler struct {
	service biz.Service
	timeout time.Duration
}

// NewChatHandler creates a ChatHandler. timeout bounds each chat turn; zero
// or negative selects DefaultChatTimeout.
func NewChatHandler(service biz.Service, timeout time.Duration) *ChatHandler {
	if timeout <= 0 {
		timeout = DefaultChatTimeout
	}
	return &ChatHandler{service: service, timeout: timeout}
}

// StartSessionRequest starts a conversation bound to one document.
type StartSessionRequest struct {
	DocumentID string `json:"document_id" validate:"required"`
}

// StartSession opens a new chat session.
func (h *ChatHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.service.StartSession(c.Request.Context(), req.DocumentID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, session)
}

// ListSessions returns every session with its document filename.
func (h *ChatHandler) ListSessions(c *gin.Context) {
	infos, err := h.service.ListSessions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, infos)
}

// DeleteSession removes a session and its messages.
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	if err := h.service.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "session deleted", nil)
}

// History returns the session transcript in chronological order.
func (h *ChatHandler) History(c *gin.Context) {
	messages, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, messages)
}

// ChatRequest carries one question.
type ChatRequest struct {
	Message string `json:"message" validate:"required,notblank"`
}

// ChatResponse is one answered turn.
type ChatResponse struct {
	SessionID string                `json:"session_id"`
	Answer    string                `json:"answer"`
	Sources   []model.SnapshotEntry `json:"sources,omitempty"`
	ElapsedMs int64                 `json:"elapsed_ms"`
}

// Chat answers one question within a session.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sessionID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, err := h.service.Chat(ctx, sessionID, req.Message)
	// The pipeline degrades upstream failures to fallback text, so the
	// deadline has to be checked before the result.
	if ctx.Err() == context.DeadlineExceeded {
		respondError(c, errors.ErrChatTimeout.WithMessage(
			"the request took too long to process, please try again or simplify your question"))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, ChatResponse{
		SessionID: sessionID,
		Answer:    result.Answer,
		Sources:   result.Sources,
		ElapsedMs: result.Elapsed.Milliseconds(),
	})
}

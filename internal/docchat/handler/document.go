package handler

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/internal/docchat/biz"
	"github.com/kart-io/docchat/pkg/errors"
)

// DefaultMaxFileSize caps individual uploads at 10 MiB.
const DefaultMaxFileSize = 10 << 20

// DocumentHandler handles document upload and management requests.
type DocumentHandler struct {
	service     biz.Service
	maxFileSize int64
}

// NewDocumentHandler creates a DocumentHandler. maxFileSize caps individual
// uploads in bytes; zero or negative selects DefaultMaxFileSize.
func NewDocumentHandler(service biz.Service, maxFileSize int64) *DocumentHandler {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &DocumentHandler{service: service, maxFileSize: maxFileSize}
}

// UploadResult reports the outcome for one uploaded file.
type UploadResult struct {
	Filename   string `json:"filename"`
	DocumentID string `json:"document_id,omitempty"`
	ChunkCount int64  `json:"chunk_count,omitempty"`
	Accepted   bool   `json:"accepted"`
	Reason     string `json:"reason,omitempty"`
}

// Upload ingests files from a multipart form. Each file is accepted or
// rejected independently so one bad file never blocks the rest of the batch.
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, errors.ErrBadRequest.WithMessage("invalid multipart form: "+err.Error()))
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		respondError(c, errors.ErrBadRequest.WithMessage("no files in upload, use form field \"files\""))
		return
	}

	results := make([]UploadResult, 0, len(files))
	accepted := 0
	for _, fh := range files {
		result := h.ingestOne(c, fh)
		if result.Accepted {
			accepted++
		}
		results = append(results, result)
	}

	respondMessage(c, fmt.Sprintf("%d of %d files accepted", accepted, len(files)), results)
}

// ingestOne runs one file through the ingestion pipeline and maps failures to
// a per-file rejection reason.
func (h *DocumentHandler) ingestOne(c *gin.Context, fh *multipart.FileHeader) UploadResult {
	result := UploadResult{Filename: fh.Filename}

	if fh.Size > h.maxFileSize {
		result.Reason = errors.ErrFileTooLarge.WithMessagef(
			"file exceeds the %d byte limit", h.maxFileSize).Message
		return result
	}

	file, err := fh.Open()
	if err != nil {
		result.Reason = "failed to open uploaded file: " + err.Error()
		return result
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		result.Reason = "failed to read uploaded file: " + err.Error()
		return result
	}

	doc, err := h.service.IngestDocument(c.Request.Context(), fh.Filename, data)
	if err != nil {
		logger.Warnw("upload rejected", "filename", fh.Filename, "error", err.Error())
		result.Reason = errors.FromError(err).Message
		return result
	}

	result.DocumentID = doc.ID
	result.ChunkCount = int64(len(doc.Chunks))
	result.Accepted = true
	return result
}

// List returns every document with its chunk count.
func (h *DocumentHandler) List(c *gin.Context) {
	infos, err := h.service.ListDocuments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, infos)
}

// Get returns the metadata of one document.
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.service.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, doc)
}

// Delete removes a document with its chunks, sessions, and messages.
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "document deleted", nil)
}

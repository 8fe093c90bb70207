package errors

import "net/http"

// Service codes (AA).
const (
	// ServiceCommon is for common/base errors shared by all services.
	ServiceCommon = 0

	// ServiceInfraDB is for database infrastructure.
	ServiceInfraDB = 10

	// ServiceInfraCache is for cache infrastructure.
	ServiceInfraCache = 11

	// ServiceDocChat is for the docchat service.
	ServiceDocChat = 30

	// ServiceUpstreamLLM is for upstream embedding/generation providers.
	ServiceUpstreamLLM = 90
)

// Category codes (BB).
const (
	// CategorySuccess indicates successful operation.
	CategorySuccess = 0

	// CategoryRequest indicates request/validation errors.
	CategoryRequest = 1

	// CategoryResource indicates resource not found errors.
	CategoryResource = 4

	// CategoryConflict indicates resource conflict errors.
	CategoryConflict = 5

	// CategoryInternal indicates internal server errors.
	CategoryInternal = 7

	// CategoryDatabase indicates database errors.
	CategoryDatabase = 8

	// CategoryCache indicates cache errors.
	CategoryCache = 9

	// CategoryNetwork indicates network errors.
	CategoryNetwork = 10

	// CategoryTimeout indicates timeout errors.
	CategoryTimeout = 11

	// CategoryConfig indicates configuration errors.
	CategoryConfig = 12
)

// OK represents a successful operation.
var OK = Register(&Errno{
	Code:    0,
	HTTP:    http.StatusOK,
	Message: "Success",
})

// Common errors shared by all components.
var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = Register(New(MakeCode(ServiceCommon, CategoryRequest, 0), http.StatusBadRequest, "Bad request"))

	// ErrInvalidParam indicates an invalid parameter.
	ErrInvalidParam = Register(New(MakeCode(ServiceCommon, CategoryRequest, 1), http.StatusBadRequest, "Invalid parameter"))

	// ErrValidationFailed indicates request validation failure.
	ErrValidationFailed = Register(New(MakeCode(ServiceCommon, CategoryRequest, 2), http.StatusBadRequest, "Validation failed"))

	// ErrNotFound indicates a missing resource.
	ErrNotFound = Register(New(MakeCode(ServiceCommon, CategoryResource, 0), http.StatusNotFound, "Resource not found"))

	// ErrConflict indicates a resource conflict.
	ErrConflict = Register(New(MakeCode(ServiceCommon, CategoryConflict, 0), http.StatusConflict, "Resource conflict"))

	// ErrInternal indicates an unexpected internal error.
	ErrInternal = Register(New(MakeCode(ServiceCommon, CategoryInternal, 0), http.StatusInternalServerError, "Internal server error"))

	// ErrPanic indicates a recovered panic.
	ErrPanic = Register(New(MakeCode(ServiceCommon, CategoryInternal, 1), http.StatusInternalServerError, "Internal server error"))

	// ErrDatabase indicates a database failure.
	ErrDatabase = Register(New(MakeCode(ServiceInfraDB, CategoryDatabase, 0), http.StatusInternalServerError, "Database error"))

	// ErrCache indicates a cache failure.
	ErrCache = Register(New(MakeCode(ServiceInfraCache, CategoryCache, 0), http.StatusInternalServerError, "Cache error"))

	// ErrConfig indicates a configuration defect detected at runtime.
	ErrConfig = Register(New(MakeCode(ServiceCommon, CategoryConfig, 0), http.StatusInternalServerError, "Invalid configuration"))

	// ErrTimeout indicates an operation exceeded its deadline.
	ErrTimeout = Register(New(MakeCode(ServiceCommon, CategoryTimeout, 0), http.StatusGatewayTimeout, "Operation timed out"))
)

// docchat service errors.
var (
	// ErrDocumentNotFound indicates the referenced document does not exist.
	ErrDocumentNotFound = Register(New(MakeCode(ServiceDocChat, CategoryResource, 1), http.StatusNotFound, "Document not found"))

	// ErrSessionNotFound indicates the referenced chat session does not exist.
	ErrSessionNotFound = Register(New(MakeCode(ServiceDocChat, CategoryResource, 2), http.StatusNotFound, "Chat session not found"))

	// ErrDuplicateContent indicates an upload whose extracted text already exists.
	ErrDuplicateContent = Register(New(MakeCode(ServiceDocChat, CategoryConflict, 1), http.StatusConflict, "Duplicate content: an identical document already exists"))

	// ErrEmptyMessage indicates a chat request with a blank message.
	ErrEmptyMessage = Register(New(MakeCode(ServiceDocChat, CategoryRequest, 1), http.StatusBadRequest, "Message cannot be empty"))

	// ErrUnsupportedFileType indicates an upload with an unsupported extension.
	ErrUnsupportedFileType = Register(New(MakeCode(ServiceDocChat, CategoryRequest, 2), http.StatusBadRequest, "Unsupported file type"))

	// ErrFileTooLarge indicates an upload exceeding the size limit.
	ErrFileTooLarge = Register(New(MakeCode(ServiceDocChat, CategoryRequest, 3), http.StatusRequestEntityTooLarge, "File exceeds maximum allowed size"))

	// ErrEmptyDocument indicates an upload whose extracted text is empty.
	ErrEmptyDocument = Register(New(MakeCode(ServiceDocChat, CategoryRequest, 4), http.StatusBadRequest, "Document contains no extractable text"))

	// ErrExtractFailed indicates text extraction failed for an upload.
	ErrExtractFailed = Register(New(MakeCode(ServiceDocChat, CategoryInternal, 1), http.StatusInternalServerError, "Failed to extract document text"))

	// ErrIngestFailed indicates the chunk/embed/persist pipeline failed.
	ErrIngestFailed = Register(New(MakeCode(ServiceDocChat, CategoryInternal, 2), http.StatusInternalServerError, "Document ingestion failed"))

	// ErrChatTimeout indicates an answer could not be produced in time.
	ErrChatTimeout = Register(New(MakeCode(ServiceDocChat, CategoryTimeout, 1), http.StatusRequestTimeout, "Chat request timed out"))
)

// Upstream provider errors.
var (
	// ErrProviderConfig indicates a misconfigured provider (e.g. missing credential).
	ErrProviderConfig = Register(New(MakeCode(ServiceUpstreamLLM, CategoryConfig, 1), http.StatusInternalServerError, "Provider configuration error"))

	// ErrEmbeddingUnavailable indicates the embedding capability failed or is unreachable.
	ErrEmbeddingUnavailable = Register(New(MakeCode(ServiceUpstreamLLM, CategoryNetwork, 1), http.StatusBadGateway, "Embedding service unavailable"))

	// ErrGenerationUnavailable indicates all generation backends failed.
	ErrGenerationUnavailable = Register(New(MakeCode(ServiceUpstreamLLM, CategoryNetwork, 2), http.StatusBadGateway, "Generation service unavailable"))

	// ErrResponseShape indicates an upstream response with an unrecognized payload shape.
	ErrResponseShape = Register(New(MakeCode(ServiceUpstreamLLM, CategoryInternal, 1), http.StatusBadGateway, "Unrecognized upstream response shape"))
)

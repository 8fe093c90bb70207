package response

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/pkg/errors"
)

func TestSuccess(t *testing.T) {
	resp := Success(map[string]string{"id": "doc-1"})
	defer Release(resp)

	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, http.StatusOK, resp.HTTPStatus())
}

func TestSuccessWithMessage(t *testing.T) {
	resp := SuccessWithMessage("document deleted", nil)
	defer Release(resp)

	assert.Equal(t, "document deleted", resp.Message)
	assert.True(t, resp.IsSuccess())
}

func TestErr(t *testing.T) {
	resp := Err(errors.ErrDocumentNotFound)
	defer Release(resp)

	assert.Equal(t, errors.ErrDocumentNotFound.Code, resp.Code)
	assert.Equal(t, "Document not found", resp.Message)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, http.StatusNotFound, resp.HTTPStatus())
}

func TestErrNil(t *testing.T) {
	resp := Err(nil)
	defer Release(resp)

	assert.True(t, resp.IsSuccess())
}

func TestErrKeepsDerivedMessage(t *testing.T) {
	e := errors.ErrFileTooLarge.WithMessagef("file size %d exceeds the %d byte limit", 200, 100)
	resp := Err(e)
	defer Release(resp)

	assert.Equal(t, errors.ErrFileTooLarge.Code, resp.Code)
	assert.Equal(t, "file size 200 exceeds the 100 byte limit", resp.Message)
	// The derived errno keeps the registered code, so the status survives.
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.HTTPStatus())
}

func TestErrFromError(t *testing.T) {
	t.Run("errno chain", func(t *testing.T) {
		err := errors.ErrSessionNotFound.WithCause(assert.AnError)
		resp := ErrFromError(err)
		defer Release(resp)

		assert.Equal(t, errors.ErrSessionNotFound.Code, resp.Code)
		assert.Equal(t, http.StatusNotFound, resp.HTTPStatus())
	})

	t.Run("plain error maps to internal", func(t *testing.T) {
		resp := ErrFromError(assert.AnError)
		defer Release(resp)

		assert.Equal(t, errors.ErrInternal.Code, resp.Code)
		assert.Equal(t, http.StatusInternalServerError, resp.HTTPStatus())
	})
}

func TestHTTPStatusCategoryFallback(t *testing.T) {
	tests := []struct {
		name     string
		category int
		want     int
	}{
		{"request", errors.CategoryRequest, http.StatusBadRequest},
		{"resource", errors.CategoryResource, http.StatusNotFound},
		{"conflict", errors.CategoryConflict, http.StatusConflict},
		{"timeout", errors.CategoryTimeout, http.StatusGatewayTimeout},
		{"network", errors.CategoryNetwork, http.StatusBadGateway},
		{"internal", errors.CategoryInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Sequence 999 is never registered, forcing the category fallback.
			code := errors.MakeCode(99, tt.category, 999)
			_, ok := errors.Lookup(code)
			require.False(t, ok)

			resp := &Response{Code: code, Message: "x"}
			assert.Equal(t, tt.want, resp.HTTPStatus())
		})
	}
}

func TestWithRequestID(t *testing.T) {
	resp := Success(nil).WithRequestID("req-42")
	defer Release(resp)

	assert.Equal(t, "req-42", resp.RequestID)
}

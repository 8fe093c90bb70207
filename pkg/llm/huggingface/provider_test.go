package huggingface

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/pkg/errors"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewProviderWithConfig(&Config{
		BaseURL:    srv.URL,
		APIKey:     "test-token",
		Model:      "sentence-transformers/all-MiniLM-L6-v2",
		Timeout:    5 * time.Second,
		MaxRetries: 0,
	})
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(map[string]any{"base_url": "http://localhost"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrProviderConfig.Code))
}

func TestEmbedSentenceVector(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pipeline/feature-extraction/sentence-transformers/all-MiniLM-L6-v2", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`[[0.1, 0.2, 0.3]]`))
	})

	vec, err := p.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbedTokenVectorsMeanPooled(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		// Two tokens of dimension 2; the pooled vector is their mean.
		w.Write([]byte(`[[[1.0, 3.0], [3.0, 5.0]]]`))
	})

	vec, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, vec, 2)
	assert.InDelta(t, 2.0, vec[0], 0.0001)
	assert.InDelta(t, 4.0, vec[1], 0.0001)
}

func TestEmbedUnexpectedShape(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "model overloaded"}`))
	})

	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrResponseShape.Code))
}

func TestEmbedUpstreamFailure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrEmbeddingUnavailable.Code))
}

func TestGenerateListResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gpt2", r.URL.Path)
		w.Write([]byte(`[{"generated_text": "the answer"}]`))
	})

	out, err := p.Generate(context.Background(), "gpt2", "the question")
	require.NoError(t, err)
	assert.Equal(t, "the answer", out)
}

func TestGenerateObjectResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"generated_text": "object answer"}`))
	})

	out, err := p.Generate(context.Background(), "gpt2", "q")
	require.NoError(t, err)
	assert.Equal(t, "object answer", out)
}

func TestGenerateBareStringResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"bare answer"`))
	})

	out, err := p.Generate(context.Background(), "gpt2", "q")
	require.NoError(t, err)
	assert.Equal(t, "bare answer", out)
}

func TestGenerateUnexpectedShape(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`42`))
	})

	_, err := p.Generate(context.Background(), "gpt2", "q")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrResponseShape.Code))
}

func TestGenerateDefaultsToConfiguredModel(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/sentence-transformers/all-MiniLM-L6-v2", r.URL.Path)
		w.Write([]byte(`[{"generated_text": "x"}]`))
	})

	_, err := p.Generate(context.Background(), "", "q")
	require.NoError(t, err)
}

package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{ name string }

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
func (f *fakeEmbedder) Name() string { return f.name }

type fakeChatter struct{ name string }

func (f *fakeChatter) Generate(_ context.Context, _, _ string) (string, error) {
	return "answer", nil
}
func (f *fakeChatter) Name() string { return f.name }

func TestEmbeddingProviderRegistry(t *testing.T) {
	RegisterEmbeddingProvider("fake-embed", func(config map[string]any) (EmbeddingProvider, error) {
		name, _ := config["name"].(string)
		return &fakeEmbedder{name: name}, nil
	})

	p, err := NewEmbeddingProvider("fake-embed", map[string]any{"name": "e1"})
	require.NoError(t, err)
	assert.Equal(t, "e1", p.Name())

	vec, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 2)

	_, err = NewEmbeddingProvider("missing", nil)
	assert.Error(t, err)
}

func TestChatProviderRegistry(t *testing.T) {
	RegisterChatProvider("fake-chat", func(config map[string]any) (ChatProvider, error) {
		return &fakeChatter{name: "c1"}, nil
	})

	p, err := NewChatProvider("fake-chat", nil)
	require.NoError(t, err)

	out, err := p.Generate(context.Background(), "m", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)

	_, err = NewChatProvider("missing", nil)
	assert.Error(t, err)
}

func TestListProviders(t *testing.T) {
	RegisterEmbeddingProvider("zz-embed", func(map[string]any) (EmbeddingProvider, error) {
		return &fakeEmbedder{}, nil
	})
	RegisterChatProvider("aa-chat", func(map[string]any) (ChatProvider, error) {
		return &fakeChatter{}, nil
	})

	names := ListProviders()
	assert.Contains(t, names, "zz-embed")
	assert.Contains(t, names, "aa-chat")
	assert.IsIncreasing(t, names)
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		opts *Options
		want string
	}{
		{
			name: "memory",
			opts: &Options{Path: MemoryPath, BusyTimeout: 5 * time.Second},
			want: ":memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		},
		{
			name: "file path",
			opts: &Options{Path: "./data/docchat.db", BusyTimeout: time.Second},
			want: "./data/docchat.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(1000)",
		},
		{
			name: "zero busy timeout falls back",
			opts: &Options{Path: "x.db"},
			want: "x.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildDSN(tt.opts))
		})
	}
}

func TestNewWithContextInMemory(t *testing.T) {
	opts := NewOptions()
	opts.Path = MemoryPath

	client, err := NewWithContext(context.Background(), opts)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "sqlite", client.Name())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Health()())
	assert.NotNil(t, client.DB())
}

func TestNewWithContextCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	opts := NewOptions()
	opts.Path = filepath.Join(dir, "nested", "db", "docchat.db")

	client, err := NewWithContext(context.Background(), opts)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))
	assert.FileExists(t, opts.Path)
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Options{Path: ""})
	assert.Error(t, err)
}

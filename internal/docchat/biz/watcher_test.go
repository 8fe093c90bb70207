package biz

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/internal/docchat/store"
)

func startTestWatcher(t *testing.T, factory store.Factory) string {
	t.Helper()

	dir := t.TempDir()
	ingester := newTestIngester(t, factory, nil, nil)
	watcher, err := NewUploadWatcher(ingester, &UploadWatcherConfig{
		Dir:      dir,
		Debounce: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	watcher.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = watcher.Close()
	})
	return dir
}

func documentCount(t *testing.T, factory store.Factory) int {
	t.Helper()
	docs, err := factory.Documents().List(context.Background())
	require.NoError(t, err)
	return len(docs)
}

func TestWatcherIngestsDroppedFile(t *testing.T) {
	factory := testStore(t)
	dir := startTestWatcher(t, factory)

	path := filepath.Join(dir, "dropped.txt")
	require.NoError(t, os.WriteFile(path, []byte("notes that arrived via the upload directory"), 0o644))

	require.Eventually(t, func() bool {
		return documentCount(t, factory) == 1
	}, 3*time.Second, 25*time.Millisecond)

	docs, err := factory.Documents().List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dropped.txt", docs[0].Filename)
}

func TestWatcherIgnoresUnsupportedFiles(t *testing.T) {
	factory := testStore(t)
	dir := startTestWatcher(t, factory)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "upload.partial"), []byte("half written"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.bin"), []byte{0x1, 0x2}, 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, documentCount(t, factory))
}

func TestWatcherDeduplicatesRepeatedDrops(t *testing.T) {
	factory := testStore(t)
	dir := startTestWatcher(t, factory)

	body := []byte("the same content dropped under two names")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.txt"), body, 0o644))

	require.Eventually(t, func() bool {
		return documentCount(t, factory) == 1
	}, 3*time.Second, 25*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.txt"), body, 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, documentCount(t, factory), "identical content is ingested once")
}

func TestWatcherRequiresDirectory(t *testing.T) {
	ingester := newTestIngester(t, testStore(t), nil, nil)

	_, err := NewUploadWatcher(ingester, nil)
	assert.Error(t, err)

	_, err = NewUploadWatcher(ingester, &UploadWatcherConfig{})
	assert.Error(t, err)
}

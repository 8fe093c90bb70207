package biz

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/internal/pkg/docutil"
	"github.com/kart-io/docchat/pkg/errors"
)

// defaultDebounce is how long a watched file must stay quiet before it is
// ingested. Editors and copies emit several write events per file.
const defaultDebounce = 500 * time.Millisecond

// UploadWatcherConfig configures the upload directory watcher.
type UploadWatcherConfig struct {
	// Dir is the directory to watch. Created if it does not exist.
	Dir string
	// Debounce is the quiet period before a changed file is ingested.
	Debounce time.Duration
}

// UploadWatcher ingests supported files dropped into the upload directory
// outside the API, for example by a volume mount or scp. Files that arrived
// through the API are deduplicated by content fingerprint, so watching the
// directory the API also writes to is safe.
type UploadWatcher struct {
	ingester *Ingester
	watcher  *fsnotify.Watcher
	config   *UploadWatcherConfig

	mu      sync.Mutex
	timers  map[string]*time.Timer
	started bool
}

// NewUploadWatcher creates a watcher over config.Dir.
func NewUploadWatcher(ingester *Ingester, config *UploadWatcherConfig) (*UploadWatcher, error) {
	if config == nil || config.Dir == "" {
		return nil, fmt.Errorf("upload watcher: directory is required")
	}
	if config.Debounce <= 0 {
		config.Debounce = defaultDebounce
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload watcher: create directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(config.Dir); err != nil {
		_ = w.Close()
		return nil, err
	}

	return &UploadWatcher{
		ingester: ingester,
		watcher:  w,
		config:   config,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Start begins processing events until ctx is cancelled or the watcher is
// closed. Idempotent.
func (w *UploadWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	go w.loop(ctx)
	logger.Infow("upload directory watcher started",
		"dir", w.config.Dir,
		"debounce", w.config.Debounce.String(),
	)
}

// Close stops the watcher and cancels pending ingestions.
func (w *UploadWatcher) Close() error {
	w.mu.Lock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *UploadWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !docutil.SupportedExtension(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("upload watcher error", "error", err.Error())
		}
	}
}

// schedule arms or re-arms the debounce timer for path. Ingestion fires once
// the file has stopped changing.
func (w *UploadWatcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
}

func (w *UploadWatcher) ingest(ctx context.Context, path string) {
	doc, err := w.ingester.IngestFile(ctx, path)
	if err != nil {
		if errors.IsCode(err, errors.ErrDuplicateContent.Code) {
			logger.Infow("watched file already ingested", "path", path)
			return
		}
		logger.Warnw("failed to ingest watched file", "path", path, "error", err.Error())
		return
	}
	logger.Infow("watched file ingested", "path", path, "document_id", doc.ID)
}

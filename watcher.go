package raglet

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/corvid-labs/raglet/rag"
)

// CorpusWatcher monitors the corpus directory and invalidates the
// index when a JSON partition is created, changed, or removed. The
// rebuild itself stays lazy: nothing happens until the next retrieval
// or query.
type CorpusWatcher struct {
	watcher *fsnotify.Watcher
	index   *KnowledgeIndex
	logger  Logger
}

// NewCorpusWatcher creates a watcher that keeps index fresh against
// the given corpus directory.
func NewCorpusWatcher(index *KnowledgeIndex, dir string) (*CorpusWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &CorpusWatcher{
		watcher: w,
		index:   index,
		logger:  rag.GlobalLogger,
	}, nil
}

// Watch blocks, invalidating the index on every relevant corpus change
// until ctx is canceled or the watcher is stopped.
func (w *CorpusWatcher) Watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !isCorpusFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Info("corpus file changed", "file", filepath.Base(event.Name), "op", event.Op.String())
			w.index.Invalidate()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("corpus watcher error", "error", err)
		}
	}
}

// Stop closes the watcher and unblocks Watch.
func (w *CorpusWatcher) Stop() error {
	return w.watcher.Close()
}

func isCorpusFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

package registry

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/codymoss/hopgate/logger"
)

// Watcher reloads a platform file into a store when it changes on disk.
// A reload that fails to parse keeps the previous snapshot.
type Watcher struct {
	path    string
	store   *Store
	log     logger.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given platform file. The containing
// directory is watched rather than the file itself, since editors and
// config managers typically replace the file instead of writing in place.
func NewWatcher(path string, store *Store, log logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.Noop()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to resolve platform file path: %w", err)
	}

	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch platform file directory: %w", err)
	}

	return &Watcher{
		path:    absPath,
		store:   store,
		log:     log,
		watcher: fsWatcher,
	}, nil
}

// Run processes file events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("platform file watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return
	}

	reg, err := LoadFile(w.path, w.log)
	if err != nil {
		w.log.Warn("platform file changed but failed to load; keeping previous snapshot",
			"path", w.path, "error", err)
		return
	}

	w.store.Swap(reg)
	w.log.Info("platform file reloaded", "path", w.path, "platforms", reg.Len())
}

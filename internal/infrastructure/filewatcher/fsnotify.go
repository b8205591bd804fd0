// Package filewatcher watches an inbox directory for new pricing feeds.
package filewatcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultSettle is how long a file must stay unchanged before it is reported
const defaultSettle = 500 * time.Millisecond

// FSNotifyWatcher reports files that appear in a directory, once writes to
// them have settled
type FSNotifyWatcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
	settle     time.Duration
}

// NewFSNotifyWatcher creates a watcher for the given extensions, ".csv" when
// none are given
func NewFSNotifyWatcher(extensions []string, settle time.Duration) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if len(extensions) == 0 {
		extensions = []string{".csv"}
	}
	if settle <= 0 {
		settle = defaultSettle
	}

	return &FSNotifyWatcher{
		watcher:    w,
		extensions: extensions,
		settle:     settle,
	}, nil
}

// Watch starts monitoring dir and emits the path of every created file with a
// watched extension. A file that keeps being written is emitted once, after
// it has been quiet for the settle period. The channel closes with ctx.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan string, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	log := slog.With("op", "FSNotifyWatcher.Watch", "dir", dir)
	paths := make(chan string, 16)
	ready := make(chan string, 16)

	go func() {
		defer close(paths)

		pending := make(map[string]*time.Timer)
		defer func() {
			for _, t := range pending {
				t.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.isWatchedExtension(event.Name) {
					continue
				}

				switch {
				case event.Has(fsnotify.Create):
					name := event.Name
					if t, ok := pending[name]; ok {
						t.Reset(w.settle)
						continue
					}
					pending[name] = time.AfterFunc(w.settle, func() {
						select {
						case ready <- name:
						case <-ctx.Done():
						}
					})
				case event.Has(fsnotify.Write):
					if t, ok := pending[event.Name]; ok {
						t.Reset(w.settle)
					}
				case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
					if t, ok := pending[event.Name]; ok {
						t.Stop()
						delete(pending, event.Name)
					}
				}

			case name := <-ready:
				if _, ok := pending[name]; !ok {
					continue
				}
				delete(pending, name)
				select {
				case paths <- name:
				case <-ctx.Done():
					return
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Warn("watch error", "err", err)
			}
		}
	}()

	return paths, nil
}

// Stop stops the watcher
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}

// isWatchedExtension checks if the file has a watched extension
func (w *FSNotifyWatcher) isWatchedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

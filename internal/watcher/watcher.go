// Package watcher ingests documents automatically as they appear in watched
// directories.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches directories with fsnotify and invokes the ingest callback
// for files that appear or change. Events are debounced per path so a file
// being written in several bursts is ingested once. Content deduplication
// downstream makes repeated callbacks harmless.
type Watcher struct {
	roots      []string
	extensions []string
	recursive  bool
	onIngest   func(path string)
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	logger     *zap.Logger

	mu       sync.Mutex
	timers   map[string]*time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher over the given roots. extensions filters
// which files trigger ingestion (empty = all).
func NewWatcher(roots, extensions []string, recursive bool, onIngest func(path string), logger *zap.Logger) *Watcher {
	return &Watcher{
		roots:      roots,
		extensions: extensions,
		recursive:  recursive,
		onIngest:   onIngest,
		debounce:   defaultDebounce,
		logger:     logger,
		timers:     make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.mu.Unlock()

	w.logger.Debug("watcher starting",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))
	for _, root := range w.roots {
		if err := w.addRoot(root); err != nil {
			w.watcher.Close()
			return err
		}
	}
	go w.run(ctx)
	return nil
}

// SyncExisting ingests every matching file already present under the roots.
// Called once at startup so files created while the server was down are
// picked up.
func (w *Watcher) SyncExisting() {
	for _, root := range w.roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if !w.recursive && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if w.matchExtension(path) {
				w.onIngest(path)
			}
			return nil
		})
	}
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if w.recursive && ev.Op&fsnotify.Create != 0 {
			w.handleNewDirectory(ev.Name)
		}
		return
	}
	if w.matchExtension(ev.Name) {
		w.debounceIngest(ev.Name)
	}
}

// handleNewDirectory watches a directory created after startup and ingests
// any files that landed in it before the watch was in place.
func (w *Watcher) handleNewDirectory(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Debug("failed to watch new directory", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		if w.matchExtension(path) {
			w.debounceIngest(path)
		}
		return nil
	})
}

func (w *Watcher) addRoot(root string) error {
	if !w.recursive {
		return w.watcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.logger.Debug("watcher ingesting file", zap.String("path", path))
		w.onIngest(path)
	})
}

// Stop stops the watcher and cancels pending debounced ingests.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		for path, t := range w.timers {
			t.Stop()
			delete(w.timers, path)
		}
		w.mu.Unlock()
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
}

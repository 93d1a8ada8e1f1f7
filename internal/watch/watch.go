// =============================================================================
// Export Converter - Directory Watcher
// =============================================================================
//
// Watches a drop directory and hands every new export file to a handler.
//
//   - Only .xlsx, .xlsm and .csv files are considered
//   - A file is handled once no event arrived for it during the debounce
//     interval, so half-written uploads are not picked up
//   - Files are handled one at a time, in arrival order
//
// =============================================================================

package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is used when no debounce interval is given.
const DefaultDebounce = 500 * time.Millisecond

// Handler processes one file. Errors are logged and do not stop the watcher.
type Handler func(ctx context.Context, file string) error

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before a file is handled.
	Debounce time.Duration

	// Ignore skips files by base name, e.g. files the converter writes
	// itself.
	Ignore func(name string) bool

	// ScanExisting handles files already in the directory at start.
	ScanExisting bool

	Logger *zap.Logger
}

// Stats counts watcher activity.
type Stats struct {
	Handled int
	Failed  int
	Errors  int
}

// Watcher feeds files dropped into a directory to a Handler.
type Watcher struct {
	dir     string
	handler Handler
	opts    Options
	logger  *zap.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time
	order   []string
	stats   Stats
}

// New creates a Watcher for dir.
func New(dir string, handler Handler, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch directory: %s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		dir:     dir,
		handler: handler,
		opts:    opts,
		logger:  logger.Named("watch").With(zap.String("dir", dir)),
		watcher: watcher,
		pending: make(map[string]time.Time),
	}, nil
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run watches until ctx is done. It closes the underlying watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching directory")

	if w.opts.ScanExisting {
		entries, err := os.ReadDir(w.dir)
		if err != nil {
			return fmt.Errorf("scan %s: %w", w.dir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				w.touch(filepath.Join(w.dir, entry.Name()), time.Time{})
			}
		}
	}

	ticker := time.NewTicker(w.opts.Debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.touch(event.Name, time.Now())
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processReady(ctx)
		}
	}
}

// touch records activity on a file that may need handling.
func (w *Watcher) touch(path string, at time.Time) {
	if !w.accepts(filepath.Base(path)) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, seen := w.pending[path]; !seen {
		w.order = append(w.order, path)
	}
	w.pending[path] = at
}

func (w *Watcher) accepts(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".csv":
	default:
		return false
	}
	return w.opts.Ignore == nil || !w.opts.Ignore(name)
}

// processReady handles, in arrival order, the files that have been quiet
// for the debounce interval.
func (w *Watcher) processReady(ctx context.Context) {
	for _, path := range w.ready(time.Now()) {
		if ctx.Err() != nil {
			return
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}

		err := w.handler(ctx, path)

		w.mu.Lock()
		if err != nil {
			w.stats.Failed++
		} else {
			w.stats.Handled++
		}
		w.mu.Unlock()

		if err != nil {
			w.logger.Error("file handling failed", zap.String("file", filepath.Base(path)), zap.Error(err))
		}
	}
}

func (w *Watcher) ready(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready, waiting []string
	for _, path := range w.order {
		if now.Sub(w.pending[path]) >= w.opts.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		} else {
			waiting = append(waiting, path)
		}
	}
	w.order = waiting
	return ready
}

package world

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"scopenerd/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// ChangeFunc receives the settled set of changed .rs paths.
type ChangeFunc func(ctx context.Context, changed []string)

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Events        int
	Batches       int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// Watcher watches a workspace for .rs changes and calls onChange once the
// changes have been quiet for the debounce window.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	root        string
	ignore      []string
	debounceDur time.Duration
	pending     map[string]time.Time
	onChange    ChangeFunc
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stats       WatcherStats
}

// NewWatcher creates a watcher for root. Directories matching ignore are
// not watched.
func NewWatcher(root string, ignore []string, debounce time.Duration, onChange ChangeFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		watcher:     fw,
		root:        root,
		ignore:      ignore,
		debounceDur: debounce,
		pending:     make(map[string]time.Time),
		onChange:    onChange,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start adds every workspace directory to the watch list and begins the
// event loop in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dirs := 0
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(w.root, path); relErr == nil && rel != "." && isIgnoredRel(rel, d.Name(), w.ignore) {
			return filepath.SkipDir
		}
		if addErr := w.watcher.Add(path); addErr != nil {
			logging.Get(logging.CategoryWatch).Warn("Watcher: cannot watch %s: %v", path, addErr)
			return nil
		}
		dirs++
		return nil
	})
	if err != nil {
		return err
	}
	logging.Watch("Watcher: watching %d directories under %s", dirs, w.root)

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and releases the fsnotify watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.WatchError("Watcher: error closing watcher: %v", err)
	}
	logging.Watch("Watcher: stopped")
}

// Stats returns a snapshot of the watcher counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounceDur / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("Watcher: context cancelled")
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WatchError("Watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		// new directories must be added explicitly
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			rel, relErr := filepath.Rel(w.root, event.Name)
			if relErr == nil && !isIgnoredRel(rel, info.Name(), w.ignore) {
				if addErr := w.watcher.Add(event.Name); addErr == nil {
					logging.WatchDebug("Watcher: watching new directory %s", event.Name)
				}
			}
		}
	}
	if !strings.HasSuffix(event.Name, ".rs") {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	logging.WatchDebug("Watcher: %s %s", event.Op, event.Name)

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.stats.Events++
	w.stats.LastEventPath = event.Name
	w.stats.LastEventTime = time.Now()
	w.mu.Unlock()
}

// flush hands pending paths to onChange once none of them has changed for
// the debounce window.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	now := time.Now()
	for _, t := range w.pending {
		if now.Sub(t) < w.debounceDur {
			w.mu.Unlock()
			return
		}
	}
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	sort.Strings(changed)
	w.pending = make(map[string]time.Time)
	w.stats.Batches++
	w.mu.Unlock()

	logging.Watch("Watcher: %d files changed", len(changed))
	if w.onChange != nil {
		w.onChange(ctx, changed)
	}
}

// Package watch re-reconciles a mirror file when it changes on disk.
package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/propsync/internal/resource"
)

// Refresher is the part of a resource the watcher drives.
type Refresher interface {
	Path() string
	Refresh(ctx context.Context) (bool, error)
}

// Stats counts watcher activity.
type Stats struct {
	Events    int       `json:"events"`
	Refreshes int       `json:"refreshes"`
	Rewrites  int       `json:"rewrites"`
	Errors    int       `json:"errors"`
	LastEvent time.Time `json:"last_event"`
}

// Watcher watches the directory of a mirror and calls Refresh once events
// for the mirror path have been quiet for the debounce interval.
//
// Refresh rewrites the mirror, which produces events of its own; the
// follow-up Refresh finds identical content and does nothing.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	res      Refresher
	path     string
	debounce time.Duration
	pending  time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	closed   bool
	stats    Stats
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher for res. A zero debounce refreshes on the next tick.
func New(res Refresher, debounce time.Duration, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		res:      res,
		path:     resource.CanonicalPath(res.Path()),
		debounce: debounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the canonical mirror path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Start begins watching the mirror's directory.
// This method is non-blocking; the event loop runs in a goroutine until
// ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("watcher is stopped")
	}

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("watching mirror", "path", w.path)
	go w.run(ctx)
	return nil
}

// Stop stops the watcher, waits for the event loop to exit and releases the
// fsnotify watcher. Stop is safe to call more than once, and without Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	} else {
		// The loop never ran; release anyone waiting on Done.
		close(w.doneCh)
	}

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("closing fsnotify watcher", "error", err)
	}
	w.logger.Info("watcher stopped", "path", w.path)
}

// Done is closed when the event loop exits, or by Stop if Start was never
// called. A Done channel taken before Start stays open until one of those.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a snapshot of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(tickInterval(w.debounce))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("watcher context cancelled")
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
			w.logger.Error("fsnotify error", "error", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.logger.Debug("mirror event", "op", event.Op.String(), "path", event.Name)

	w.mu.Lock()
	now := time.Now()
	w.stats.Events++
	w.stats.LastEvent = now
	w.pending = now
	w.mu.Unlock()
}

// processPending refreshes once the last event has settled.
func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	changed, err := w.res.Refresh(ctx)

	w.mu.Lock()
	w.stats.Refreshes++
	if err != nil {
		w.stats.Errors++
	} else if changed {
		w.stats.Rewrites++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("refresh failed", "path", w.path, "error", err)
		return
	}
	if changed {
		w.logger.Info("mirror restored", "path", w.path)
	}
}

func tickInterval(debounce time.Duration) time.Duration {
	tick := debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	if tick > 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}
	return tick
}

package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Store whenever its backing file changes.
type Watcher struct {
	store    *Store
	logger   *slog.Logger
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for the store's file.
func NewWatcher(store *Store, debounce time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{store: store, logger: logger, debounce: debounce}
}

// Run blocks until ctx is cancelled. The parent directory is watched so that
// editors replacing the file via rename are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	if w.store.Path() == "" {
		return fmt.Errorf("policy watcher: no policy path configured")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	target := filepath.Clean(w.store.Path())
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	w.logger.Info("policy watcher started", slog.String("path", target), slog.Duration("debounce", w.debounce))

	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("policy watcher: events channel closed")
			}
			if filepath.Clean(event.Name) != target || event.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug("policy file event", slog.String("op", event.Op.String()))
			w.schedule()
		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("policy watcher: errors channel closed")
			}
			w.logger.Error("policy watcher error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.store.Reload(); err != nil {
			w.logger.Error("policy reload failed; keeping previous policy", slog.Any("error", err))
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Package rosterfile loads the user roster from a JSON file and hot-reloads
// it when the file changes.
package rosterfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

const debounceDuration = 500 * time.Millisecond

// Applier receives a freshly loaded roster. Roster.ReplaceAll satisfies it.
type Applier interface {
	ReplaceAll(ctx context.Context, users []types.AccessUser) error
}

// Load reads a JSON array of users. Validation is left to the Applier.
func Load(path string) ([]types.AccessUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var users []types.AccessUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return users, nil
}

// Watcher reapplies the roster file after it is written, created or renamed
// into place.
type Watcher struct {
	path    string
	applier Applier
	logger  *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	timer   *time.Timer
	ctx     context.Context
}

// Watch applies path once and then keeps watching it. The parent directory
// is watched so editors that replace the file atomically are picked up.
func Watch(ctx context.Context, path string, applier Applier, logger *slog.Logger) (*Watcher, error) {
	w := &Watcher{path: filepath.Clean(path), applier: applier, logger: logger, done: make(chan struct{}), ctx: ctx}
	if err := w.reload(); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.watcher = fw

	go w.loop(fw)
	logger.Info("watching roster file", "path", w.path)
	return w, nil
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher == nil {
		return
	}
	close(w.done)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.watcher.Close()
	w.watcher = nil
	w.logger.Info("roster file watcher stopped")
}

func (w *Watcher) loop(fw *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("roster file watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// schedule collapses bursts of events into one reload.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceDuration, func() {
		if err := w.reload(); err != nil {
			w.logger.Error("roster reload failed, keeping previous roster", "path", w.path, "error", err)
		}
	})
}

func (w *Watcher) reload() error {
	users, err := Load(w.path)
	if err != nil {
		return err
	}
	if err := w.applier.ReplaceAll(w.ctx, users); err != nil {
		return fmt.Errorf("apply roster: %w", err)
	}
	w.logger.Info("roster reloaded", "path", w.path, "users", len(users))
	return nil
}

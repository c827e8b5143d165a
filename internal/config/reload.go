// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/voxdesk/voxdesk/internal/log"
)

// ReloadFunc re-reads the watched file and swaps the derived snapshot in.
// A returned error keeps the previous snapshot; reloads are all-or-nothing.
type ReloadFunc func() error

// Watcher hot-reloads one file (the reply catalogue) while the daemon
// runs. An edit that fails to load or validate is logged and ignored so a
// half-written file can never take the deterministic reply tier down.
type Watcher struct {
	path    string
	name    string
	reload  ReloadFunc
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
}

// debounceDuration coalesces the burst of events editors emit per save.
const debounceDuration = 500 * time.Millisecond

// NewWatcher creates a file watcher. name labels log entries.
func NewWatcher(path, name string, reload ReloadFunc) *Watcher {
	return &Watcher{
		path:   path,
		name:   name,
		reload: reload,
		logger: log.WithComponent("config"),
	}
}

// Start begins watching. An empty path is a no-op: the built-in snapshot
// stays in effect for the process lifetime.
func (w *Watcher) Start(ctx context.Context) error {
	if w.path == "" {
		w.logger.Info().
			Str("event", "config.watcher_disabled").
			Str("name", w.name).
			Msg("hot reload disabled (no file configured)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(w.path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	w.watcher = watcher

	w.logger.Info().
		Str("event", "config.watcher_started").
		Str("name", w.name).
		Str("path", w.path).
		Msg("watching file for changes")

	go w.watchLoop(ctx)
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context) {
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().
				Str("event", "config.watcher_stopped").
				Str("name", w.name).
				Msg("watcher stopped")
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Write and Create cover in-place edits and the
			// rename-into-place pattern of most editors.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDuration, func() {
					if err := w.reload(); err != nil {
						w.logger.Error().
							Err(err).
							Str("event", "config.reload_failed").
							Str("name", w.name).
							Msg("reload failed, keeping previous snapshot")
						return
					}
					w.logger.Info().
						Str("event", "config.reload_success").
						Str("name", w.name).
						Msg("file reloaded")
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().
				Err(err).
				Str("event", "config.watcher_error").
				Str("name", w.name).
				Msg("watcher error")
		}
	}
}

// Stop closes the underlying watcher, if running.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

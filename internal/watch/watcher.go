// Package watch reports Markdown files that change under the content root.
package watch

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/folio/internal/storage"
)

// DefaultDebounce is how long the watcher waits for a burst of events
// (editors often write, rename and chmod in quick succession) to settle.
const DefaultDebounce = 200 * time.Millisecond

// ChangeCallback receives the absolute paths of files changed since the
// previous call, sorted.
type ChangeCallback func(paths []string)

// Watch starts an fsnotify watcher on root and reports changed Markdown files
// until ctx is cancelled. Events are collected for debounce before cb is
// called. New directories created at runtime are added to the watch list.
// A missing root is not watched and Watch returns when ctx is done.
func Watch(ctx context.Context, root string, debounce time.Duration, logger *slog.Logger, cb ChangeCallback) error {
	if _, err := os.Stat(root); err != nil {
		logger.Warn("watcher: root unavailable", slog.String("root", root), slog.String("error", err.Error()))
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root, logger); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	scheduleFlush := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			logger.Debug("watcher: changes", slog.Int("count", len(paths)))
			cb(paths)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name, logger); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					_ = storage.Walk(ev.Name, nil, func(p string) {
						if storage.IsMarkdown(p) {
							pending[p] = struct{}{}
						}
					})
					scheduleFlush()
					continue
				}
			}

			if !storage.IsMarkdown(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			pending[ev.Name] = struct{}{}
			scheduleFlush()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and every directory below it to the watcher,
// following symbolic links the way the content scan does. Directories that
// cannot be read or watched are logged and skipped; only an unreadable root
// is an error.
func addDirsRecursive(w *fsnotify.Watcher, root string, logger *slog.Logger) error {
	return storage.Walk(root, func(dir string) {
		if err := w.Add(dir); err != nil {
			logger.Warn("watcher: add dir failed",
				slog.String("path", dir),
				slog.String("error", err.Error()))
		}
	}, nil)
}

package graph

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Invalidator receives cache-invalidation calls from the watcher. Satisfied
// by *cache.Service.
type Invalidator interface {
	InvalidatePage(id string)
	InvalidateAll()
}

// Watch runs an fsnotify loop over a local graph directory until ctx is
// cancelled, invalidating caches when page files change. Writes and
// creates invalidate the affected page; removes and renames are debounced
// into a full invalidation, since the old name can no longer be resolved
// reliably once the file is gone.
func Watch(ctx context.Context, local *Local, inv Invalidator, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, local.Root()); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", local.Root()))

	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	scheduleFlush := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(200 * time.Millisecond)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(200 * time.Millisecond)
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
			inv.InvalidateAll()
			logger.Debug("watcher: flushed all caches")

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					scheduleFlush()
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if page, ok := local.PageName(ev.Name); ok {
					inv.InvalidatePage(page)
					logger.Debug("watcher: page invalidated", slog.String("page", page))
				} else {
					scheduleFlush()
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				scheduleFlush()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

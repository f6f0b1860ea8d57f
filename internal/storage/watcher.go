package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Library change kinds passed to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a seed document is added, changed, or removed.
type EventCallback func(kind string, id string)

// Watch observes the library directory until ctx is cancelled and calls cb
// for every seed whose content actually changed. Writes that leave the
// checksum unchanged are ignored. Rename events trigger a debounced
// reconciliation against a fresh listing.
func Watch(ctx context.Context, lib *Library, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(lib.Root()); err != nil {
		return err
	}

	known, err := snapshot(lib)
	if err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", lib.Root()), slog.Int("seeds", len(known)))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	emit := func(kind, id string) {
		logger.Debug("watcher: seed changed", slog.String("id", id), slog.String("op", kind))
		if cb != nil {
			cb(kind, id)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			known = reconcile(lib, known, logger, emit)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			id, isSeed := lib.seedID(filepath.Base(ev.Name))
			if !isSeed {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := lib.fs.Read(filepath.Base(ev.Name))
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("id", id), slog.String("error", readErr.Error()))
					continue
				}
				sum := checksum(data)
				prev, existed := known[id]
				if existed && prev == sum {
					continue
				}
				known[id] = sum
				if existed {
					emit(EventUpdated, id)
				} else {
					emit(EventCreated, id)
				}

			case ev.Op&fsnotify.Remove != 0:
				if _, existed := known[id]; existed {
					delete(known, id)
					emit(EventDeleted, id)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports Rename on the old name only; the new name
				// arrives as a Create if it stays in the directory.
				if _, existed := known[id]; existed {
					delete(known, id)
					emit(EventDeleted, id)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func snapshot(lib *Library) (map[string]string, error) {
	metas, err := lib.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(metas))
	for _, m := range metas {
		out[m.ID] = m.Checksum
	}
	return out, nil
}

// reconcile diffs known against the current listing and emits the changes.
func reconcile(lib *Library, known map[string]string, logger *slog.Logger, emit func(kind, id string)) map[string]string {
	current, err := snapshot(lib)
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return known
	}
	for id := range known {
		if _, ok := current[id]; !ok {
			emit(EventDeleted, id)
		}
	}
	for id, sum := range current {
		prev, ok := known[id]
		switch {
		case !ok:
			emit(EventCreated, id)
		case prev != sum:
			emit(EventUpdated, id)
		}
	}
	return current
}

package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/holmgren/refdesk/internal/workspace"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, slug string)

// Watch starts an fsnotify watcher on the storage root and keeps the
// index in step with on-disk workspaces until ctx is cancelled. It
// calls cb (if non-nil) after each successful index mutation.
//
// Workspace directories created at runtime are added to the watch list.
// A workspace is (re)indexed whenever its meta.json is written, which
// the store does last on creation and on every update. Rename events
// trigger a debounced reconciliation pass that removes stale entries.
func Watch(ctx context.Context, db *DB, store *workspace.Store, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := addWorkspaceDirs(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	// reconcileTimer debounces reconciliation after renames/removals.
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

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			// New directory directly under the root: a workspace being
			// created. Watch it so we see its meta.json arrive.
			if ev.Op&fsnotify.Create != 0 && filepath.Dir(ev.Name) == root {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := w.Add(ev.Name); addErr != nil {
						logger.Warn("watcher: add dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			// Only meta.json writes matter: the store commits it last,
			// so its appearance means the workspace is complete.
			if filepath.Base(ev.Name) != workspace.FileMeta {
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					scheduleReconcile()
				}
				continue
			}
			slug := filepath.Base(filepath.Dir(ev.Name))

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				prior, _ := db.GetChecksum(slug)
				if err := reindexSlug(db, store, slug); err != nil {
					logger.Warn("watcher: index failed", slog.String("slug", slug), slog.String("error", err.Error()))
					continue
				}
				kind := "updated"
				if prior == "" {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("slug", slug), slog.String("op", kind))
				if cb != nil {
					cb(kind, slug)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if delErr := db.DeleteWorkspace(slug); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("slug", slug), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("slug", slug))
				if cb != nil {
					cb("deleted", slug)
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

// reindexSlug recomputes one workspace's checksum and upserts it.
func reindexSlug(db *DB, store *workspace.Store, slug string) error {
	e, err := store.Get(slug)
	if err != nil {
		return err
	}
	cs, ok := workspaceChecksum(store, slug)
	if !ok {
		return nil
	}
	return indexWorkspace(db, store, e, cs)
}

// reconcile removes index entries whose workspaces no longer exist on
// disk and picks up any that changed while events were in flight.
func reconcile(db *DB, store *workspace.Store, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	entries, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(entries))
	for _, e := range entries {
		if cs, ok := workspaceChecksum(store, e.Slug); ok {
			disk[e.Slug] = cs
		}
	}

	for slug := range checksums {
		if _, ok := disk[slug]; !ok {
			if delErr := db.DeleteWorkspace(slug); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("slug", slug))
				if cb != nil {
					cb("deleted", slug)
				}
			}
		}
	}

	for _, e := range entries {
		cs := disk[e.Slug]
		if cs == "" || checksums[e.Slug] == cs {
			continue
		}
		if idxErr := indexWorkspace(db, store, e, cs); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("slug", e.Slug))
			if cb != nil {
				cb("updated", e.Slug)
			}
		}
	}
}

// addWorkspaceDirs adds the root and every existing workspace directory
// to the watcher.
func addWorkspaceDirs(w *fsnotify.Watcher, root string) error {
	if err := w.Add(root); err != nil {
		return err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, de := range entries {
		if !de.IsDir() {
			continue
		}
		if err := w.Add(filepath.Join(root, de.Name())); err != nil {
			return err
		}
	}
	return nil
}

package index

import (
	"log/slog"

	"github.com/holmgren/refdesk/internal/checksum"
	"github.com/holmgren/refdesk/internal/workspace"
)

// Sync enumerates the workspace store and brings the index up to date:
//   - new/changed workspaces are upserted
//   - workspaces removed from disk are deleted from the index
//
// A workspace is reindexed when the checksum over its metadata and
// original document differs from the indexed one.
func Sync(db *DB, store *workspace.Store, logger *slog.Logger) error {
	entries, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		disk[e.Slug] = struct{}{}

		cs, ok := workspaceChecksum(store, e.Slug)
		if !ok {
			continue
		}
		if checksums[e.Slug] == cs {
			continue
		}
		if err := indexWorkspace(db, store, e, cs); err != nil {
			logger.Warn("sync: index failed", slog.String("slug", e.Slug), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("slug", e.Slug))
		}
	}

	// Remove stale entries.
	for slug := range checksums {
		if _, ok := disk[slug]; !ok {
			if err := db.DeleteWorkspace(slug); err != nil {
				logger.Warn("sync: delete failed", slog.String("slug", slug), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("slug", slug))
			}
		}
	}

	return nil
}

// workspaceChecksum computes a change marker over the metadata record
// and the original document.
func workspaceChecksum(store *workspace.Store, slug string) (string, bool) {
	meta, err := store.ReadFile(slug, workspace.FileMeta)
	if err != nil {
		return "", false
	}
	doc, err := store.ReadFile(slug, workspace.FileOriginal)
	if err != nil {
		return "", false
	}
	return checksum.Sum(append(meta, doc...)), true
}

// indexWorkspace reads the original document and upserts the workspace.
func indexWorkspace(db *DB, store *workspace.Store, e workspace.Entry, cs string) error {
	doc, err := store.ReadFile(e.Slug, workspace.FileOriginal)
	if err != nil {
		return err
	}
	row := WorkspaceRow{
		Slug:      e.Slug,
		Title:     e.Meta.TitleOriginal,
		Status:    e.Meta.Status,
		RefsCount: e.Meta.RefsCount,
		Checksum:  cs,
		CreatedAt: e.Meta.CreatedAt,
		UpdatedAt: e.Meta.UpdatedAt,
	}
	return db.UpsertWorkspace(row, string(doc))
}

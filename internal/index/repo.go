package index

import "fmt"

// WorkspaceRow represents a row in the workspaces table. Timestamps are
// the RFC 3339 strings taken from workspace metadata.
type WorkspaceRow struct {
	Slug      string
	Title     string
	Status    string
	RefsCount int
	Checksum  string
	CreatedAt string
	UpdatedAt string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertWorkspace inserts or replaces a workspace row and its FTS entry
// within a transaction. body is the original document text used for
// full-text search.
func (db *DB) UpsertWorkspace(row WorkspaceRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO workspaces (slug, title, status, refs_count, checksum, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title      = excluded.title,
			status     = excluded.status,
			refs_count = excluded.refs_count,
			checksum   = excluded.checksum,
			body       = excluded.body,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, row.Slug, row.Title, row.Status, row.RefsCount, row.Checksum, body, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert workspace: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, row.Slug, row.Title, body); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteWorkspace removes a workspace row and its FTS entry.
func (db *DB) DeleteWorkspace(slug string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, slug)
	_, _ = tx.Exec(`DELETE FROM workspaces WHERE slug = ?`, slug)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a workspace, or empty
// string if it is not indexed.
func (db *DB) GetChecksum(slug string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM workspaces WHERE slug = ?`, slug).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns slug -> checksum for every indexed workspace.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT slug, checksum FROM workspaces`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var slug, cs string
		if err := rows.Scan(&slug, &cs); err != nil {
			return nil, err
		}
		out[slug] = cs
	}
	return out, rows.Err()
}

// Package testutil provides shared test helpers for setting up workspace stores and databases.
package testutil

import (
	"os"
	"testing"

	"github.com/holmgren/refdesk/internal/index"
	"github.com/holmgren/refdesk/internal/workspace"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "refdesk-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary workspace store root.
func TestStore(t *testing.T) (string, *workspace.Store) {
	t.Helper()
	root := t.TempDir()
	store, err := workspace.NewStore(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

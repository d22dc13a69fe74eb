package index

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewWorkspaceIndexed(t *testing.T) {
	db := testDB(t)
	store := testStore(t)
	logger := quietLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, logger, func(kind, slug string) {
		mu.Lock()
		events = append(events, kind+":"+slug)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	if _, _, _, err := store.Create("Fresh Article", "text <ref>c</ref>"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("fresh-article")
		return cs != ""
	}, "new workspace not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:fresh-article" {
				return true
			}
		}
		return false
	}, "expected created:fresh-article callback")
}

func TestWatcher_UpdateReindexed(t *testing.T) {
	db := testDB(t)
	store := testStore(t)
	logger := quietLogger()

	if _, _, _, err := store.Create("Doc", "body"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	Sync(db, store, logger)
	before, _ := db.GetChecksum("doc")
	if before == "" {
		t.Fatal("precondition: workspace should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, logger, nil)
	time.Sleep(100 * time.Millisecond)

	if _, err := store.Update("doc", "edited text", "done"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("doc")
		return cs != "" && cs != before
	}, "updated workspace not reindexed by watcher")
}

func TestWatcher_RemovedWorkspaceDropped(t *testing.T) {
	db := testDB(t)
	store := testStore(t)
	logger := quietLogger()

	_, path, _, err := store.Create("Doomed", "body")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	Sync(db, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, logger, nil)
	time.Sleep(100 * time.Millisecond)

	// Removing the directory fires a Remove event for meta.json, and
	// the reconcile pass mops up anything missed.
	if err := os.RemoveAll(path); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("doomed")
		return cs == ""
	}, "removed workspace still in index")
}

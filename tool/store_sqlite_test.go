package tool

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newSQLiteHistoryStore(t *testing.T) *SQLiteHistoryStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := NewSQLiteHistoryStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteHistoryStore() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestSQLiteHistoryStoreAppendListNewestFirst(t *testing.T) {
	store := newSQLiteHistoryStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, runID := range []string{"run-1", "run-2", "run-3"} {
		summary := Summary{
			RunID:     runID,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Outcomes: []Outcome{
				{Integration: "obsidian", State: StateLoaded, Loaded: true, Operations: 11},
				{Integration: "notion", State: StateFailed, Reason: "NOTION_TOKEN environment variable is not set."},
			},
		}
		if err := store.Append(ctx, summary); err != nil {
			t.Fatalf("Append(%s) error = %v", runID, err)
		}
	}

	got, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() len = %d, want 2", len(got))
	}
	if got[0].RunID != "run-3" || got[1].RunID != "run-2" {
		t.Fatalf("List() order = %s, %s; want run-3, run-2", got[0].RunID, got[1].RunID)
	}
	if got[0].LoadedCount() != 1 || got[0].Outcomes[1].Reason == "" {
		t.Fatalf("decoded summary = %+v", got[0])
	}
}

func TestSQLiteHistoryStoreAppendReplacesRun(t *testing.T) {
	store := newSQLiteHistoryStore(t)
	ctx := context.Background()

	summary := Summary{RunID: "run-1", StartedAt: time.Now().UTC()}
	if err := store.Append(ctx, summary); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	summary.Outcomes = []Outcome{{Integration: "todoist", State: StateLoaded, Loaded: true}}
	if err := store.Append(ctx, summary); err != nil {
		t.Fatalf("Append() replace error = %v", err)
	}

	got, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || len(got[0].Outcomes) != 1 {
		t.Fatalf("List() = %+v, want one replaced record", got)
	}
	if err := store.Append(ctx, Summary{}); err == nil {
		t.Fatal("Append(empty run id) error = nil")
	}
}

func TestMemoryHistoryStoreLimit(t *testing.T) {
	store := NewMemoryHistoryStore()
	ctx := context.Background()
	for _, runID := range []string{"a", "b", "c"} {
		if err := store.Append(ctx, Summary{RunID: runID}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	got, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0].RunID != "c" || got[1].RunID != "b" {
		t.Fatalf("List() = %+v", got)
	}
}

package runs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBeginFinishRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)
	id, err := store.Begin(ctx, started, false, true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if id == "" {
		t.Fatal("Begin returned empty id")
	}

	finished := started.Add(4 * time.Minute)
	err = store.Finish(ctx, Record{
		ID:              id,
		FinishedAt:      finished,
		ChangedPackages: 12,
		KernelChanged:   true,
		RestartState:    "reboot-declined",
		Warnings:        2,
	})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	records, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.ID != id {
		t.Errorf("ID = %s, want %s", rec.ID, id)
	}
	if !rec.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", rec.StartedAt, started)
	}
	if !rec.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", rec.FinishedAt, finished)
	}
	if !rec.Finished() {
		t.Error("Finished() = false after Finish")
	}
	if rec.DryRun || !rec.SecurityOnly {
		t.Errorf("mode flags = dryRun %v securityOnly %v", rec.DryRun, rec.SecurityOnly)
	}
	if rec.ChangedPackages != 12 || !rec.KernelChanged || rec.RestartState != "reboot-declined" || rec.Warnings != 2 {
		t.Errorf("result fields = %+v", rec)
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := store.Begin(ctx, base.Add(time.Duration(i)*time.Hour), false, false)
		if err != nil {
			t.Fatalf("Begin %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	records, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != ids[2] || records[1].ID != ids[1] {
		t.Errorf("order = %s, %s; want newest first", records[0].ID, records[1].ID)
	}
	if records[0].Finished() {
		t.Error("unfinished run reported as finished")
	}
}

func TestFinishUnknownID(t *testing.T) {
	store := openTestStore(t)

	err := store.Finish(context.Background(), Record{ID: "no-such-run", FinishedAt: time.Now()})
	if err == nil {
		t.Fatal("expected error for unknown id")
	}
}

func TestSchemaVersionGuard(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err = Open(dir)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := store.Begin(ctx, time.Now(), true, false)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	records, err := reopened.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].ID != id {
		t.Fatalf("records = %+v, want the original run", records)
	}
}

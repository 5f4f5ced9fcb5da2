package history

import (
	"context"
	"testing"
	"time"

	"github.com/voicedrop/voicedrop/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestAppendAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	texts := []string{"first", "second", "third"}
	for i, text := range texts {
		rec := types.Transcription{
			Text:      text,
			Model:     "google/gemini-2.5-flash",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Duration:  2 * time.Second,
		}
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("append %q: %v", text, err)
		}
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	// Newest first.
	want := []string{"third", "second", "first"}
	for i, rec := range records {
		if rec.Text != want[i] {
			t.Errorf("record %d: expected %q, got %q", i, want[i], rec.Text)
		}
		if rec.ID == "" {
			t.Errorf("record %d: expected generated id", i)
		}
		if rec.Model != "google/gemini-2.5-flash" {
			t.Errorf("record %d: unexpected model %q", i, rec.Model)
		}
	}
}

func TestRecentLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := types.Transcription{
			Text:      "entry",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	records, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}

	records, err = store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent with zero limit: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records for zero limit, got %d", len(records))
	}
}

func TestAppendFillsTimestamp(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	before := time.Now()
	if err := store.Append(ctx, types.Transcription{Text: "hello"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	records, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].CreatedAt.Before(before.Truncate(time.Second)) {
		t.Errorf("expected timestamp filled in, got %v", records[0].CreatedAt)
	}
}

func TestRecentSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	rec := types.Transcription{Text: "persisted", CreatedAt: time.Now()}
	if err := store.Append(ctx, rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	records, err := reopened.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent after reopen: %v", err)
	}
	if len(records) != 1 || records[0].Text != "persisted" {
		t.Fatalf("expected persisted record, got %+v", records)
	}
}

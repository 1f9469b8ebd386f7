package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
)

func TestFileSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "metadata.json")
	snap := NewFileSnapshot(path)
	ctx := context.Background()

	records, err := snap.Load(ctx)
	if err != nil || len(records) != 0 {
		t.Fatalf("Load() on missing file = %v, %v", records, err)
	}

	owner := "11111111-1111-1111-1111-111111111111"
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	in := []models.FileRecord{
		{ID: owner, ContentHash: "abc", OriginalName: "a.txt", StoredName: owner + ".txt", Size: 3, UploadedAt: at},
		{ID: "22222222-2222-2222-2222-222222222222", ContentHash: "abc", OriginalName: "b.txt", Size: 3, UploadedAt: at.Add(time.Second), DuplicateOf: &owner},
	}
	if err := snap.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := snap.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Load() returned %d records", len(out))
	}
	byID := map[string]models.FileRecord{}
	for _, rec := range out {
		byID[rec.ID] = rec
	}
	dup := byID["22222222-2222-2222-2222-222222222222"]
	if dup.DuplicateOf == nil || *dup.DuplicateOf != owner {
		t.Fatalf("duplicateOf not preserved: %+v", dup)
	}
	if !byID[owner].UploadedAt.Equal(at) {
		t.Fatalf("uploadDate = %v", byID[owner].UploadedAt)
	}

	// A second save replaces the whole snapshot.
	if err := snap.Save(ctx, in[:1]); err != nil {
		t.Fatal(err)
	}
	out, _ = snap.Load(ctx)
	if len(out) != 1 {
		t.Fatalf("after rewrite Load() returned %d records", len(out))
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestFileSnapshotCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileSnapshot(path).Load(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

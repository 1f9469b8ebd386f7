package identity

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
)

type memorySnapshots struct {
	mu      sync.Mutex
	saved   []models.FileRecord
	saves   int
	failErr error
}

func (m *memorySnapshots) Load(context.Context) ([]models.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.FileRecord(nil), m.saved...), nil
}

func (m *memorySnapshots) Save(_ context.Context, records []models.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.saved = append([]models.FileRecord(nil), records...)
	m.saves++
	return nil
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%02d", n)
	}
}

func newTestIndex(snap Snapshotter) (*Index, *MemoryHashStore) {
	hashes := NewMemoryHashStore()
	return NewIndex(hashes, snap, WithIDGenerator(sequentialIDs())), hashes
}

func TestDigest(t *testing.T) {
	content := []byte("hello world")
	sum := sha256.Sum256(content)

	got, err := Digest(context.Background(), bytes.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	if want := hex.EncodeToString(sum[:]); got != want {
		t.Fatalf("Digest() = %s, want %s", got, want)
	}

	big := strings.Repeat("x", 3*hashChunkSize+7)
	bigSum := sha256.Sum256([]byte(big))
	if got, _ := Digest(context.Background(), strings.NewReader(big)); got != hex.EncodeToString(bigSum[:]) {
		t.Fatal("Digest() differs across chunk boundaries")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Digest(ctx, strings.NewReader(big)); !errors.Is(err, context.Canceled) {
		t.Fatalf("Digest() with cancelled ctx = %v", err)
	}
}

func TestRegisterFirstAndDuplicates(t *testing.T) {
	snap := &memorySnapshots{}
	idx, _ := newTestIndex(snap)
	ctx := context.Background()

	first, err := idx.Register(ctx, []byte("hello world"), FileInfo{Name: "a.txt", ContentType: "text/plain"})
	if err != nil {
		t.Fatal(err)
	}
	if first.DuplicateOf != nil {
		t.Fatalf("first upload marked duplicate of %s", *first.DuplicateOf)
	}
	if first.StoredName != first.ID+".txt" || first.Size != 11 || first.OriginalName != "a.txt" {
		t.Fatalf("unexpected record %+v", first)
	}

	for n := 0; n < 3; n++ {
		dup, err := idx.Register(ctx, []byte("hello world"), FileInfo{Name: "b.txt"})
		if err != nil {
			t.Fatal(err)
		}
		if dup.ID == first.ID {
			t.Fatal("duplicate reused the canonical id")
		}
		if dup.DuplicateOf == nil || *dup.DuplicateOf != first.ID {
			t.Fatalf("duplicate %d DuplicateOf = %v, want %s", n, dup.DuplicateOf, first.ID)
		}
	}

	other, _ := idx.Register(ctx, []byte("hello world!"), FileInfo{Name: "c.txt"})
	if other.DuplicateOf != nil {
		t.Fatal("different bytes marked as duplicate")
	}

	if got := len(idx.List()); got != 5 {
		t.Fatalf("List() has %d records, want 5", got)
	}
	if snap.saves != 5 || len(snap.saved) != 5 {
		t.Fatalf("snapshot saves=%d records=%d, want 5/5", snap.saves, len(snap.saved))
	}
}

func TestRegisterRejectsEmpty(t *testing.T) {
	idx, _ := newTestIndex(nil)
	if _, err := idx.Register(context.Background(), nil, FileInfo{}); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("Register(empty) error = %v", err)
	}
}

func TestRegisterConcurrentIdenticalContent(t *testing.T) {
	idx := NewIndex(NewMemoryHashStore(), &memorySnapshots{})
	const n = 64

	var wg sync.WaitGroup
	results := make([]models.FileRecord, n)
	errs := make([]error, n)
	for k := 0; k < n; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			results[k], errs[k] = idx.Register(context.Background(), []byte("same bytes"), FileInfo{Name: "x.txt"})
		}(k)
	}
	wg.Wait()

	var canonical []string
	for k, rec := range results {
		if errs[k] != nil {
			t.Fatalf("Register %d: %v", k, errs[k])
		}
		if rec.DuplicateOf == nil {
			canonical = append(canonical, rec.ID)
		}
	}
	if len(canonical) != 1 {
		t.Fatalf("got %d canonical records, want 1", len(canonical))
	}
	for _, rec := range results {
		if rec.DuplicateOf != nil && *rec.DuplicateOf != canonical[0] {
			t.Fatalf("duplicate %s points to %s, want %s", rec.ID, *rec.DuplicateOf, canonical[0])
		}
	}
}

func TestRegisterCancelledLeavesNoEntry(t *testing.T) {
	idx, hashes := newTestIndex(&memorySnapshots{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := idx.Register(ctx, []byte("content"), FileInfo{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Register() error = %v, want context.Canceled", err)
	}
	if hashes.Len() != 0 || len(idx.List()) != 0 {
		t.Fatalf("cancelled register left state: hashes=%d records=%d", hashes.Len(), len(idx.List()))
	}
}

func TestRegisterRollsBackOnSnapshotFailure(t *testing.T) {
	snap := &memorySnapshots{failErr: errors.New("disk full")}
	idx, hashes := newTestIndex(snap)
	ctx := context.Background()

	if _, err := idx.Register(ctx, []byte("content"), FileInfo{}); err == nil {
		t.Fatal("expected snapshot error")
	}
	if hashes.Len() != 0 || len(idx.List()) != 0 {
		t.Fatalf("failed register left state: hashes=%d records=%d", hashes.Len(), len(idx.List()))
	}

	snap.failErr = nil
	rec, err := idx.Register(ctx, []byte("content"), FileInfo{})
	if err != nil || rec.DuplicateOf != nil {
		t.Fatalf("retry after failure = %+v, %v; want canonical", rec, err)
	}
}

func TestRemove(t *testing.T) {
	idx, hashes := newTestIndex(&memorySnapshots{})
	ctx := context.Background()

	canonical, _ := idx.Register(ctx, []byte("shared"), FileInfo{})
	dup, _ := idx.Register(ctx, []byte("shared"), FileInfo{})

	// Removing a duplicate keeps the canonical mapping.
	if err := idx.Remove(ctx, dup.ID); err != nil {
		t.Fatal(err)
	}
	if owner, ok, _ := hashes.Get(ctx, canonical.ContentHash); !ok || owner != canonical.ID {
		t.Fatalf("canonical mapping disturbed: %q %v", owner, ok)
	}
	again, _ := idx.Register(ctx, []byte("shared"), FileInfo{})
	if again.DuplicateOf == nil || *again.DuplicateOf != canonical.ID {
		t.Fatalf("upload after duplicate removal = %+v", again)
	}

	if err := idx.Remove(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Remove(unknown) = %v", err)
	}
	if _, err := idx.Get(dup.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(removed) = %v", err)
	}
}

// Deleting a canonical file frees the digest: the next identical upload is
// canonical again and the surviving duplicate keeps its stale pointer.
func TestRemoveCanonicalLeavesStaleDuplicates(t *testing.T) {
	idx, _ := newTestIndex(&memorySnapshots{})
	ctx := context.Background()

	canonical, _ := idx.Register(ctx, []byte("shared"), FileInfo{})
	dup, _ := idx.Register(ctx, []byte("shared"), FileInfo{})

	if err := idx.Remove(ctx, canonical.ID); err != nil {
		t.Fatal(err)
	}

	reborn, err := idx.Register(ctx, []byte("shared"), FileInfo{})
	if err != nil {
		t.Fatal(err)
	}
	if reborn.DuplicateOf != nil {
		t.Fatalf("upload after canonical removal marked duplicate of %s", *reborn.DuplicateOf)
	}

	kept, err := idx.Get(dup.ID)
	if err != nil {
		t.Fatal(err)
	}
	if kept.DuplicateOf == nil || *kept.DuplicateOf != canonical.ID {
		t.Fatalf("duplicate pointer changed to %v", kept.DuplicateOf)
	}
	if _, err := idx.Get(canonical.ID); !errors.Is(err, ErrNotFound) {
		t.Fatal("removed canonical still present")
	}
}

func TestRemoveRollsBackOnSnapshotFailure(t *testing.T) {
	snap := &memorySnapshots{}
	idx, hashes := newTestIndex(snap)
	ctx := context.Background()

	rec, _ := idx.Register(ctx, []byte("keep me"), FileInfo{})
	snap.failErr = errors.New("read-only")

	if err := idx.Remove(ctx, rec.ID); err == nil {
		t.Fatal("expected error")
	}
	if _, err := idx.Get(rec.ID); err != nil {
		t.Fatalf("record lost after failed remove: %v", err)
	}
	if owner, ok, _ := hashes.Get(ctx, rec.ContentHash); !ok || owner != rec.ID {
		t.Fatal("digest lost after failed remove")
	}
}

func TestLoadRestoresCanonicalDigests(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	canonicalID := "id-canonical"
	snap := &memorySnapshots{saved: []models.FileRecord{
		{ID: "id-dup", ContentHash: "h1", UploadedAt: base.Add(time.Minute), DuplicateOf: &canonicalID},
		{ID: canonicalID, ContentHash: "h1", UploadedAt: base},
		{ID: "id-other", ContentHash: "h2", UploadedAt: base.Add(2 * time.Minute)},
	}}
	idx, hashes := newTestIndex(snap)
	ctx := context.Background()

	if err := idx.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if owner, _, _ := hashes.Get(ctx, "h1"); owner != canonicalID {
		t.Fatalf("h1 owner = %q", owner)
	}
	if owner, _, _ := hashes.Get(ctx, "h2"); owner != "id-other" {
		t.Fatalf("h2 owner = %q", owner)
	}
	list := idx.List()
	if len(list) != 3 || list[0].ID != canonicalID {
		t.Fatalf("List() = %+v", list)
	}
}

func TestLoadDropsDigestsWithoutRecord(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := &memorySnapshots{saved: []models.FileRecord{
		{ID: "id-kept", ContentHash: "h1", UploadedAt: base},
	}}
	idx, hashes := newTestIndex(snap)
	ctx := context.Background()

	// Left over from a previous snapshot.
	hashes.Set(ctx, "h-gone", "id-gone")
	hashes.Set(ctx, "h1", "id-kept")

	if err := idx.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := hashes.Get(ctx, "h-gone"); ok {
		t.Fatal("digest of a missing record survived Load")
	}
	if owner, _, _ := hashes.Get(ctx, "h1"); owner != "id-kept" {
		t.Fatalf("h1 owner = %q", owner)
	}

	rec, err := idx.Register(ctx, []byte("anything"), FileInfo{Name: "a.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.IsDuplicate() {
		t.Fatalf("fresh content registered as duplicate of %s", *rec.DuplicateOf)
	}
}

func TestRegisterWriteFailureIsInvisible(t *testing.T) {
	idx, hashes := newTestIndex(nil)
	ctx := context.Background()
	content := []byte("same bytes")

	started := make(chan struct{})
	release := make(chan struct{})
	firstErr := make(chan error, 1)
	go func() {
		_, err := idx.Register(ctx, content, FileInfo{
			Name: "a.txt",
			Write: func(context.Context, string) error {
				close(started)
				<-release
				return errors.New("disk full")
			},
		})
		firstErr <- err
	}()
	<-started

	secondDone := make(chan models.FileRecord, 1)
	go func() {
		rec, err := idx.Register(ctx, content, FileInfo{Name: "b.txt"})
		if err != nil {
			t.Errorf("second Register: %v", err)
		}
		secondDone <- rec
	}()

	close(release)
	if err := <-firstErr; err == nil {
		t.Fatal("expected write failure")
	}
	second := <-secondDone
	if second.IsDuplicate() {
		t.Fatalf("second upload points at failed record %s", *second.DuplicateOf)
	}
	if owner, _, _ := hashes.Get(ctx, second.ContentHash); owner != second.ID {
		t.Fatalf("digest owner = %q, want %q", owner, second.ID)
	}
	if n := len(idx.List()); n != 1 {
		t.Fatalf("index holds %d records", n)
	}
}

func TestRegisterWritesUnderNewID(t *testing.T) {
	idx, _ := newTestIndex(nil)
	var written string
	rec, err := idx.Register(context.Background(), []byte("x"), FileInfo{
		Name:  "a.txt",
		Write: func(_ context.Context, id string) error { written = id; return nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	if written != rec.ID {
		t.Fatalf("Write got %q, record id %q", written, rec.ID)
	}
}

func TestObserveAndRelease(t *testing.T) {
	idx := NewIndex(NewMemoryHashStore(), nil)
	ctx := context.Background()

	if dup, _ := idx.Observe(ctx, "a", "h"); dup != "" {
		t.Fatalf("first observe = %q", dup)
	}
	if dup, _ := idx.Observe(ctx, "a", "h"); dup != "" {
		t.Fatalf("re-observing the owner = %q", dup)
	}
	if dup, _ := idx.Observe(ctx, "b", "h"); dup != "a" {
		t.Fatalf("observe by another id = %q, want a", dup)
	}

	if ok, _ := idx.Release(ctx, "b", "h"); ok {
		t.Fatal("non-owner released the digest")
	}
	if ok, _ := idx.Release(ctx, "a", "h"); !ok {
		t.Fatal("owner could not release the digest")
	}
	if dup, _ := idx.Observe(ctx, "b", "h"); dup != "" {
		t.Fatalf("observe after release = %q", dup)
	}
}

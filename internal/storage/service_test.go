package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RishiKendai/textscan/internal/blob"
	"github.com/RishiKendai/textscan/internal/identity"
	"github.com/RishiKendai/textscan/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.FileEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev models.FileEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type failingBlobs struct{ blob.Store }

func (failingBlobs) Put(context.Context, string, []byte) error {
	return fmt.Errorf("disk full")
}

func newTestService(t *testing.T, opts Options) (*Service, *recordingPublisher) {
	t.Helper()
	blobs, err := blob.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	events := &recordingPublisher{}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	idx := identity.NewIndex(identity.NewMemoryHashStore(), nil, identity.WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
	return NewService(idx, blobs, events, opts), events
}

func TestUploadAndDuplicate(t *testing.T) {
	svc, events := newTestService(t, Options{MaxUploadBytes: 1024})
	ctx := context.Background()
	text := "The quick brown fox.\n\nJumps over the lazy dog."

	first, err := svc.Upload(ctx, "a.txt", []byte(text))
	if err != nil {
		t.Fatalf("Upload(a): %v", err)
	}
	if first.Duplicate || first.DuplicateOf != nil {
		t.Fatalf("first upload marked duplicate: %+v", first)
	}
	if first.Stats.Paragraphs != 2 || first.Stats.Words != 9 {
		t.Fatalf("stats = %+v", first.Stats)
	}

	second, err := svc.Upload(ctx, "b.txt", []byte(text))
	if err != nil {
		t.Fatalf("Upload(b): %v", err)
	}
	if !second.Duplicate || second.DuplicateOf == nil || *second.DuplicateOf != first.FileID {
		t.Fatalf("second upload = %+v, want duplicate of %s", second, first.FileID)
	}
	if second.FileID == first.FileID {
		t.Fatal("duplicate reused the canonical id")
	}

	got, err := svc.Content(ctx, second.FileID)
	if err != nil || string(got) != text {
		t.Fatalf("Content() = %q, %v", got, err)
	}
	if len(events.events) != 2 || events.events[0].Type != models.FileUploaded {
		t.Fatalf("events = %+v", events.events)
	}

	list := svc.List()
	if len(list.Files) != 2 || list.Files[0].Duplicate || !list.Files[1].Duplicate {
		t.Fatalf("List() = %+v", list)
	}
}

func TestUploadValidation(t *testing.T) {
	svc, _ := newTestService(t, Options{MaxUploadBytes: 16})
	ctx := context.Background()

	tests := []struct {
		name    string
		file    string
		data    []byte
		wantErr error
	}{
		{"wrong extension", "notes.md", []byte("hello"), ErrValidation},
		{"pdf not allowed", "paper.pdf", []byte("%PDF-1.4"), ErrValidation},
		{"empty", "empty.txt", nil, ErrValidation},
		{"too large", "big.txt", []byte(strings.Repeat("a", 17)), ErrTooLarge},
		{"binary", "bin.txt", []byte{0x00, 0x01, 0x02, 0xff, 0xfe, 0x00}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Upload(ctx, tt.file, tt.data); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Upload() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := svc.Upload(ctx, "UPPER.TXT", []byte("fine")); err != nil {
		t.Fatalf("upper-case extension rejected: %v", err)
	}
}

func TestUploadRollsBackWhenBlobFails(t *testing.T) {
	idx := identity.NewIndex(identity.NewMemoryHashStore(), nil)
	svc := NewService(idx, failingBlobs{}, nil, Options{MaxUploadBytes: 1024})

	if _, err := svc.Upload(context.Background(), "a.txt", []byte("hello")); err == nil {
		t.Fatal("expected error")
	}
	if n := len(idx.List()); n != 0 {
		t.Fatalf("index kept %d records after failed upload", n)
	}
}

// gatedBlobs fails its first Put once release is closed and delegates the rest.
type gatedBlobs struct {
	blob.Store
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func (g *gatedBlobs) Put(ctx context.Context, id string, data []byte) error {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()
	if first {
		close(g.started)
		<-g.release
		return fmt.Errorf("disk full")
	}
	return g.Store.Put(ctx, id, data)
}

type failingSnapshots struct{}

func (failingSnapshots) Load(context.Context) ([]models.FileRecord, error) { return nil, nil }
func (failingSnapshots) Save(context.Context, []models.FileRecord) error {
	return errors.New("snapshot unavailable")
}

func TestRacingUploadNeverPointsAtFailedUpload(t *testing.T) {
	disk, err := blob.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	blobs := &gatedBlobs{Store: disk, started: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(identity.NewIndex(identity.NewMemoryHashStore(), nil), blobs, nil, Options{MaxUploadBytes: 1024})
	ctx := context.Background()
	content := []byte("same bytes")

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Upload(ctx, "a.txt", content)
		firstErr <- err
	}()
	<-blobs.started

	second := make(chan models.UploadResult, 1)
	go func() {
		res, err := svc.Upload(ctx, "b.txt", content)
		if err != nil {
			t.Errorf("second upload: %v", err)
		}
		second <- res
	}()

	close(blobs.release)
	if err := <-firstErr; err == nil {
		t.Fatal("expected first upload to fail")
	}
	res := <-second
	if res.Duplicate {
		t.Fatalf("second upload is a duplicate of %s", *res.DuplicateOf)
	}
	if _, err := svc.Metadata(res.FileID); err != nil {
		t.Fatalf("Metadata(second) = %v", err)
	}
	if data, err := svc.Content(ctx, res.FileID); err != nil || string(data) != string(content) {
		t.Fatalf("Content(second) = %q, %v", data, err)
	}

	third, err := svc.Upload(ctx, "c.txt", content)
	if err != nil {
		t.Fatal(err)
	}
	if third.DuplicateOf == nil || *third.DuplicateOf != res.FileID {
		t.Fatalf("third upload duplicateOf = %v, want %s", third.DuplicateOf, res.FileID)
	}
}

func TestUploadRemovesBlobWhenSnapshotFails(t *testing.T) {
	dir := t.TempDir()
	disk, err := blob.NewDiskStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	idx := identity.NewIndex(identity.NewMemoryHashStore(), failingSnapshots{})
	svc := NewService(idx, disk, nil, Options{MaxUploadBytes: 1024})

	if _, err := svc.Upload(context.Background(), "a.txt", []byte("hello")); err == nil {
		t.Fatal("expected error")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("%d blobs left behind", len(entries))
	}
}

func TestDelete(t *testing.T) {
	svc, events := newTestService(t, Options{MaxUploadBytes: 1024})
	ctx := context.Background()

	a, _ := svc.Upload(ctx, "a.txt", []byte("same words"))
	b, _ := svc.Upload(ctx, "b.txt", []byte("same words"))

	if err := svc.Delete(ctx, a.FileID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Content(ctx, a.FileID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Content() after delete = %v", err)
	}
	if err := svc.Delete(ctx, a.FileID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete() = %v", err)
	}

	rec, err := svc.Metadata(b.FileID)
	if err != nil || rec.DuplicateOf == nil || *rec.DuplicateOf != a.FileID {
		t.Fatalf("duplicate lost its pointer: %+v, %v", rec, err)
	}

	c, _ := svc.Upload(ctx, "c.txt", []byte("same words"))
	if c.Duplicate {
		t.Fatal("upload after canonical delete should be canonical")
	}

	last := events.events[len(events.events)-2]
	if last.Type != models.FileDeleted || last.FileID != a.FileID || last.Hash == "" {
		t.Fatalf("delete event = %+v", last)
	}
}

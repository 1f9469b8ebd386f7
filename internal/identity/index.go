// Package identity assigns ids to uploaded content and detects byte-exact
// duplicates by SHA-256 digest.
//
// The first file registered with a digest becomes canonical; later files with
// the same bytes get their own id and point at it through DuplicateOf. Removing
// a canonical file frees its digest, so the next upload of those bytes becomes
// canonical again while older duplicates keep pointing at the removed id.
package identity

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
	"github.com/RishiKendai/textscan/internal/tracing"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrNotFound     = errors.New("identity: file not found")
	ErrEmptyContent = errors.New("identity: content is empty")
)

const hashChunkSize = 64 << 10

// Snapshotter persists the full set of records. Save replaces whatever was
// stored before.
type Snapshotter interface {
	Load(ctx context.Context) ([]models.FileRecord, error)
	Save(ctx context.Context, records []models.FileRecord) error
}

// FileInfo is the descriptive metadata supplied with an upload.
//
// Write, when set, stores the content under the new id. It runs under the
// index lock before the record or digest become visible, so a failed write
// leaves no trace and no concurrent Register can point at the record.
type FileInfo struct {
	Name        string
	ContentType string
	Write       func(ctx context.Context, id string) error
}

// Index owns the digest map and the record table. All mutations, including
// the snapshot write, happen under mu.
type Index struct {
	mu        sync.Mutex
	hashes    HashStore
	snapshots Snapshotter
	records   map[string]models.FileRecord

	newID func() string
	now   func() time.Time
}

type Option func(*Index)

// WithIDGenerator replaces uuid.NewString, mostly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(i *Index) { i.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(i *Index) { i.now = fn }
}

// NewIndex builds an empty index. snapshots may be nil for an index that is
// never persisted.
func NewIndex(hashes HashStore, snapshots Snapshotter, opts ...Option) *Index {
	idx := &Index{
		hashes:    hashes,
		snapshots: snapshots,
		records:   make(map[string]models.FileRecord),
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Digest returns the lowercase hex SHA-256 of r, checking ctx between chunks.
func Digest(ctx context.Context, r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read content: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Load restores records from the snapshot store and re-seeds the digest map
// with every canonical record, oldest first.
func (i *Index) Load(ctx context.Context) error {
	if i.snapshots == nil {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	records, err := i.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load metadata snapshot: %w", err)
	}
	sortRecords(records)

	i.records = make(map[string]models.FileRecord, len(records))
	for _, rec := range records {
		i.records[rec.ID] = rec
	}

	// A persistent hash store can outlive the snapshot. Drop digests whose
	// owner is not a canonical record of this snapshot.
	entries, err := i.hashes.All(ctx)
	if err != nil {
		return err
	}
	stale := 0
	for digest, owner := range entries {
		rec, ok := i.records[owner]
		if ok && !rec.IsDuplicate() && rec.ContentHash == digest {
			continue
		}
		if err := i.hashes.Remove(ctx, digest); err != nil {
			return err
		}
		stale++
	}

	for _, rec := range records {
		if rec.IsDuplicate() {
			continue
		}
		if _, ok, err := i.hashes.Get(ctx, rec.ContentHash); err != nil {
			return err
		} else if !ok {
			if err := i.hashes.Set(ctx, rec.ContentHash, rec.ID); err != nil {
				return err
			}
		}
	}

	log.Info().Int("records", len(records)).Int("stale_digests", stale).Msg("Identity index loaded")
	return nil
}

// Register assigns content a fresh id and records it, marking it as a
// duplicate when its digest already has a canonical owner. A failed or
// cancelled Register leaves the index as it was.
func (i *Index) Register(ctx context.Context, content []byte, info FileInfo) (models.FileRecord, error) {
	if len(content) == 0 {
		return models.FileRecord{}, ErrEmptyContent
	}

	ctx, span := tracing.Tracer().Start(ctx, "identity.register")
	defer span.End()

	digest, err := Digest(ctx, bytes.NewReader(content))
	if err != nil {
		span.RecordError(err)
		return models.FileRecord{}, fmt.Errorf("failed to hash content: %w", err)
	}
	span.SetAttributes(attribute.String("content_hash", digest))

	i.mu.Lock()
	defer i.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return models.FileRecord{}, err
	}

	id := i.newID()
	rec := models.FileRecord{
		ID:           id,
		ContentHash:  digest,
		OriginalName: info.Name,
		StoredName:   id + ".txt",
		ContentType:  info.ContentType,
		Size:         int64(len(content)),
		UploadedAt:   i.now(),
	}

	owner, found, err := i.hashes.Get(ctx, digest)
	if err != nil {
		return models.FileRecord{}, fmt.Errorf("failed to look up digest: %w", err)
	}
	if info.Write != nil {
		if err := info.Write(ctx, id); err != nil {
			return models.FileRecord{}, fmt.Errorf("failed to store %s: %w", id, err)
		}
	}
	claimed := false
	if found && owner != id {
		rec.DuplicateOf = &owner
	} else {
		if err := i.hashes.Set(ctx, digest, id); err != nil {
			return models.FileRecord{}, fmt.Errorf("failed to index digest: %w", err)
		}
		claimed = true
	}
	i.records[id] = rec

	if err := i.persist(ctx); err != nil {
		delete(i.records, id)
		if claimed {
			if rbErr := i.hashes.Remove(context.WithoutCancel(ctx), digest); rbErr != nil {
				log.Error().Err(rbErr).Str("hash", digest).Msg("Failed to roll back digest")
			}
		}
		return models.FileRecord{}, fmt.Errorf("failed to register %s: %w", id, err)
	}

	span.SetAttributes(attribute.Bool("duplicate", rec.IsDuplicate()))
	return rec, nil
}

// Remove deletes the record for id. When id is the canonical owner of its
// digest, the digest is released as well. Duplicates of id are left untouched.
func (i *Index) Remove(ctx context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	rec, ok := i.records[id]
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	owner, found, err := i.hashes.Get(ctx, rec.ContentHash)
	if err != nil {
		return fmt.Errorf("failed to look up digest: %w", err)
	}
	released := false
	if found && owner == id {
		if err := i.hashes.Remove(ctx, rec.ContentHash); err != nil {
			return fmt.Errorf("failed to release digest: %w", err)
		}
		released = true
	}
	delete(i.records, id)

	if err := i.persist(ctx); err != nil {
		i.records[id] = rec
		if released {
			if rbErr := i.hashes.Set(context.WithoutCancel(ctx), rec.ContentHash, id); rbErr != nil {
				log.Error().Err(rbErr).Str("hash", rec.ContentHash).Msg("Failed to restore digest")
			}
		}
		return fmt.Errorf("failed to remove %s: %w", id, err)
	}
	return nil
}

// Observe claims digest for id when no file owns it yet and otherwise
// returns the owner, or "" when id already owns it. Nothing is persisted.
func (i *Index) Observe(ctx context.Context, id, digest string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	owner, found, err := i.hashes.Get(ctx, digest)
	if err != nil {
		return "", fmt.Errorf("failed to look up digest: %w", err)
	}
	if found {
		if owner == id {
			return "", nil
		}
		return owner, nil
	}
	if err := i.hashes.Set(ctx, digest, id); err != nil {
		return "", fmt.Errorf("failed to index digest: %w", err)
	}
	return "", nil
}

// Release frees digest if id owns it and reports whether it did.
func (i *Index) Release(ctx context.Context, id, digest string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	owner, found, err := i.hashes.Get(ctx, digest)
	if err != nil {
		return false, fmt.Errorf("failed to look up digest: %w", err)
	}
	if !found || owner != id {
		return false, nil
	}
	if err := i.hashes.Remove(ctx, digest); err != nil {
		return false, fmt.Errorf("failed to release digest: %w", err)
	}
	return true, nil
}

func (i *Index) Get(id string) (models.FileRecord, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	rec, ok := i.records[id]
	if !ok {
		return models.FileRecord{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return rec, nil
}

// List returns every record, oldest upload first.
func (i *Index) List() []models.FileRecord {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.snapshotLocked()
}

func (i *Index) persist(ctx context.Context) error {
	if i.snapshots == nil {
		return nil
	}
	return i.snapshots.Save(ctx, i.snapshotLocked())
}

func (i *Index) snapshotLocked() []models.FileRecord {
	out := make([]models.FileRecord, 0, len(i.records))
	for _, rec := range i.records {
		out = append(out, rec)
	}
	sortRecords(out)
	return out
}

func sortRecords(records []models.FileRecord) {
	sort.Slice(records, func(a, b int) bool {
		if !records[a].UploadedAt.Equal(records[b].UploadedAt) {
			return records[a].UploadedAt.Before(records[b].UploadedAt)
		}
		return records[a].ID < records[b].ID
	})
}

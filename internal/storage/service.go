// Package storage implements the file store behind the storage service:
// upload validation, identity registration, blob persistence and file events.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/RishiKendai/textscan/internal/blob"
	"github.com/RishiKendai/textscan/internal/extract"
	"github.com/RishiKendai/textscan/internal/identity"
	"github.com/RishiKendai/textscan/internal/metrics"
	"github.com/RishiKendai/textscan/internal/models"
	"github.com/RishiKendai/textscan/internal/stats"
	"github.com/rs/zerolog/log"
)

var (
	ErrValidation = errors.New("storage: invalid upload")
	ErrTooLarge   = errors.New("storage: file too large")
	ErrNotFound   = errors.New("storage: file not found")
)

// EventPublisher receives an event after every successful upload or delete.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.FileEvent) error
}

type Options struct {
	MaxUploadBytes int64
	AllowPDF       bool
}

type Service struct {
	index  *identity.Index
	blobs  blob.Store
	events EventPublisher
	opts   Options
}

// NewService wires the store. events may be nil when no stream is configured.
func NewService(index *identity.Index, blobs blob.Store, events EventPublisher, opts Options) *Service {
	return &Service{
		index:  index,
		blobs:  blobs,
		events: events,
		opts:   opts,
	}
}

// Upload validates and stores one file. PDFs, when allowed, are stored as
// their extracted text so that hashing and analysis see the same bytes.
func (s *Service) Upload(ctx context.Context, name string, data []byte) (models.UploadResult, error) {
	content, contentType, err := s.validate(name, data)
	if err != nil {
		metrics.UploadCount.WithLabelValues("rejected").Inc()
		return models.UploadResult{}, err
	}

	// The blob is written under the index lock, before the record is visible.
	written := ""
	rec, err := s.index.Register(ctx, content, identity.FileInfo{
		Name:        name,
		ContentType: contentType,
		Write: func(ctx context.Context, id string) error {
			if err := s.blobs.Put(ctx, id, content); err != nil {
				return err
			}
			written = id
			return nil
		},
	})
	if err != nil && written != "" {
		if rbErr := s.blobs.Delete(context.WithoutCancel(ctx), written); rbErr != nil {
			log.Error().Err(rbErr).Str("file_id", written).Msg("Failed to remove orphaned blob")
		}
	}
	if errors.Is(err, identity.ErrEmptyContent) {
		metrics.UploadCount.WithLabelValues("rejected").Inc()
		return models.UploadResult{}, fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if err != nil {
		return models.UploadResult{}, err
	}

	outcome := "canonical"
	if rec.IsDuplicate() {
		outcome = "duplicate"
	}
	metrics.UploadCount.WithLabelValues(outcome).Inc()

	s.publish(ctx, models.FileUploaded, rec)

	log.Info().
		Str("file_id", rec.ID).
		Str("filename", name).
		Int64("size", rec.Size).
		Bool("duplicate", rec.IsDuplicate()).
		Msg("File stored")

	return models.UploadResult{
		FileID:      rec.ID,
		Filename:    rec.OriginalName,
		Size:        rec.Size,
		Duplicate:   rec.IsDuplicate(),
		DuplicateOf: rec.DuplicateOf,
		Stats:       stats.Calculate(string(content)),
	}, nil
}

func (s *Service) validate(name string, data []byte) ([]byte, string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	isPDF := ext == ".pdf" && s.opts.AllowPDF
	if ext != ".txt" && !isPDF {
		if s.opts.AllowPDF {
			return nil, "", fmt.Errorf("%w: only .txt and .pdf files are allowed", ErrValidation)
		}
		return nil, "", fmt.Errorf("%w: only .txt files are allowed", ErrValidation)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if s.opts.MaxUploadBytes > 0 && int64(len(data)) > s.opts.MaxUploadBytes {
		return nil, "", fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrTooLarge, len(data), s.opts.MaxUploadBytes)
	}

	if isPDF {
		if !extract.IsPDF(data) {
			return nil, "", fmt.Errorf("%w: file is not a PDF document", ErrValidation)
		}
		text, err := extract.PDFText(data)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return []byte(text), "text/plain; charset=utf-8", nil
	}

	mime, ok := extract.Sniff(data)
	if !ok {
		return nil, "", fmt.Errorf("%w: content is %s, not text", ErrValidation, mime)
	}
	return data, mime, nil
}

func (s *Service) List() models.FileList {
	records := s.index.List()
	files := make([]models.FileInfo, 0, len(records))
	for _, rec := range records {
		files = append(files, models.FileInfo{
			ID:         rec.ID,
			Filename:   rec.OriginalName,
			Size:       rec.Size,
			UploadDate: rec.UploadedAt,
			Duplicate:  rec.IsDuplicate(),
		})
	}
	return models.FileList{Files: files}
}

func (s *Service) Metadata(id string) (models.FileRecord, error) {
	rec, err := s.index.Get(id)
	if errors.Is(err, identity.ErrNotFound) {
		return models.FileRecord{}, fmt.Errorf("metadata %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// Content returns the stored bytes of id.
func (s *Service) Content(ctx context.Context, id string) ([]byte, error) {
	if _, err := s.Metadata(id); err != nil {
		return nil, err
	}
	data, err := s.blobs.Get(ctx, id)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, fmt.Errorf("content %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes the record first and then its blob. A blob that cannot be
// removed is logged and left behind.
func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.Metadata(id)
	if err != nil {
		return err
	}
	if err := s.index.Remove(ctx, id); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return fmt.Errorf("delete %s: %w", id, ErrNotFound)
		}
		return err
	}
	if err := s.blobs.Delete(ctx, id); err != nil {
		log.Error().Err(err).Str("file_id", id).Msg("Failed to delete blob")
	}

	s.publish(ctx, models.FileDeleted, rec)
	log.Info().Str("file_id", id).Msg("File deleted")
	return nil
}

func (s *Service) publish(ctx context.Context, typ models.FileEventType, rec models.FileRecord) {
	if s.events == nil {
		return
	}
	ev := models.FileEvent{
		Type:   typ,
		FileID: rec.ID,
		Hash:   rec.ContentHash,
		At:     time.Now().UTC(),
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn().Err(err).Str("file_id", rec.ID).Str("type", string(typ)).Msg("Failed to publish file event")
	}
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/RishiKendai/textscan/internal/models"
)

// FileSnapshot keeps the record table as one JSON document on disk.
// Every Save rewrites the whole file through a temp file and rename.
type FileSnapshot struct {
	path string
}

func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{path: path}
}

func (s *FileSnapshot) Path() string {
	return s.path
}

// Load returns no records when the file does not exist yet.
func (s *FileSnapshot) Load(ctx context.Context) ([]models.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var byID map[string]models.FileRecord
	if err := json.Unmarshal(data, &byID); err != nil {
		return nil, fmt.Errorf("failed to decode metadata file: %w", err)
	}
	records := make([]models.FileRecord, 0, len(byID))
	for id, rec := range byID {
		rec.ID = id
		records = append(records, rec)
	}
	return records, nil
}

func (s *FileSnapshot) Save(ctx context.Context, records []models.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	byID := make(map[string]models.FileRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	data, err := json.MarshalIndent(byID, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create metadata dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".metadata-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp metadata file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close metadata file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace metadata file: %w", err)
	}
	return nil
}

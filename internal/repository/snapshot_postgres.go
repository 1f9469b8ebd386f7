package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectPostgres opens a pgx connection pool using the provided DSN.
func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// PostgresSnapshot stores the record table in a file_records table,
// replacing all rows inside one transaction on every Save.
type PostgresSnapshot struct {
	pool *pgxpool.Pool
}

func NewPostgresSnapshot(pool *pgxpool.Pool) *PostgresSnapshot {
	return &PostgresSnapshot{pool: pool}
}

// EnsureSchema creates the file_records table if needed.
func (s *PostgresSnapshot) EnsureSchema(ctx context.Context) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS file_records (
	id TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	original_name TEXT NOT NULL,
	stored_name TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size BIGINT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL,
	duplicate_of TEXT
);
CREATE INDEX IF NOT EXISTS idx_file_records_hash ON file_records(content_hash);`
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresSnapshot) Load(ctx context.Context) ([]models.FileRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, content_hash, original_name, stored_name, content_type, size, uploaded_at, duplicate_of
		FROM file_records ORDER BY uploaded_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query file records: %w", err)
	}
	defer rows.Close()

	var records []models.FileRecord
	for rows.Next() {
		var rec models.FileRecord
		if err := rows.Scan(&rec.ID, &rec.ContentHash, &rec.OriginalName, &rec.StoredName,
			&rec.ContentType, &rec.Size, &rec.UploadedAt, &rec.DuplicateOf); err != nil {
			return nil, fmt.Errorf("scan file record: %w", err)
		}
		rec.UploadedAt = rec.UploadedAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file records: %w", err)
	}
	return records, nil
}

func (s *PostgresSnapshot) Save(ctx context.Context, records []models.FileRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM file_records`); err != nil {
		return fmt.Errorf("clear file records: %w", err)
	}
	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = []any{rec.ID, rec.ContentHash, rec.OriginalName, rec.StoredName,
			rec.ContentType, rec.Size, rec.UploadedAt, rec.DuplicateOf}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"file_records"},
		[]string{"id", "content_hash", "original_name", "stored_name", "content_type", "size", "uploaded_at", "duplicate_of"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy file records: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

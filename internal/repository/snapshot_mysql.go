package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
	_ "github.com/go-sql-driver/mysql"
)

// ConnectMySQL opens a database/sql pool with the mysql driver and pings it.
// The DSN must carry parseTime=true.
func ConnectMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}
	return db, nil
}

// MySQLSnapshot is the MySQL/TiDB flavour of PostgresSnapshot.
type MySQLSnapshot struct {
	db *sql.DB
}

func NewMySQLSnapshot(db *sql.DB) *MySQLSnapshot {
	return &MySQLSnapshot{db: db}
}

func (s *MySQLSnapshot) EnsureSchema(ctx context.Context) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS file_records (
	id VARCHAR(36) PRIMARY KEY,
	content_hash CHAR(64) NOT NULL,
	original_name VARCHAR(512) NOT NULL,
	stored_name VARCHAR(64) NOT NULL,
	content_type VARCHAR(255) NOT NULL,
	size BIGINT NOT NULL,
	uploaded_at DATETIME(6) NOT NULL,
	duplicate_of VARCHAR(36) NULL,
	INDEX idx_file_records_hash (content_hash)
)`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *MySQLSnapshot) Load(ctx context.Context) ([]models.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content_hash, original_name, stored_name, content_type, size, uploaded_at, duplicate_of
		FROM file_records ORDER BY uploaded_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query file records: %w", err)
	}
	defer rows.Close()

	var records []models.FileRecord
	for rows.Next() {
		var (
			rec         models.FileRecord
			duplicateOf sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.ContentHash, &rec.OriginalName, &rec.StoredName,
			&rec.ContentType, &rec.Size, &rec.UploadedAt, &duplicateOf); err != nil {
			return nil, fmt.Errorf("scan file record: %w", err)
		}
		if duplicateOf.Valid {
			owner := duplicateOf.String
			rec.DuplicateOf = &owner
		}
		rec.UploadedAt = rec.UploadedAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file records: %w", err)
	}
	return records, nil
}

func (s *MySQLSnapshot) Save(ctx context.Context, records []models.FileRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_records`); err != nil {
		return fmt.Errorf("clear file records: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO file_records (id, content_hash, original_name, stored_name, content_type, size, uploaded_at, duplicate_of)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var duplicateOf sql.NullString
		if rec.DuplicateOf != nil {
			duplicateOf = sql.NullString{String: *rec.DuplicateOf, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.ContentHash, rec.OriginalName, rec.StoredName,
			rec.ContentType, rec.Size, rec.UploadedAt, duplicateOf); err != nil {
			return fmt.Errorf("insert file record %s: %w", rec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

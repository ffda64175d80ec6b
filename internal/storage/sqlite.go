// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tagmark/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		source TEXT,
		output_path TEXT,
		format TEXT NOT NULL,
		record_count INTEGER NOT NULL,
		matched_count INTEGER NOT NULL,
		malformed_count INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at);

	CREATE TABLE IF NOT EXISTS batch_records (
		batch_id TEXT NOT NULL,
		row_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		labels TEXT NOT NULL,
		raw_labels TEXT,
		label_cell TEXT NOT NULL,
		malformed INTEGER NOT NULL,
		matched INTEGER NOT NULL,
		highlighted TEXT NOT NULL,
		error TEXT,
		PRIMARY KEY (batch_id, row_index),
		FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateBatch inserts a batch and its records in one transaction. An existing
// batch with the same ID is replaced.
func (s *SQLiteStorage) CreateBatch(ctx context.Context, batch *models.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now()
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, batch.ID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, source, output_path, format, record_count, matched_count, malformed_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.Source, batch.OutputPath, batch.Format,
		batch.RecordCount, batch.MatchedCount, batch.MalformedCount, batch.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO batch_records (batch_id, row_index, text, labels, raw_labels, label_cell, malformed, matched, highlighted, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range batch.Records {
		labelsJSON, err := json.Marshal(rec.Labels)
		if err != nil {
			return fmt.Errorf("failed to marshal labels: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			batch.ID, rec.Index, rec.Text, string(labelsJSON), rec.RawLabels, rec.LabelCell,
			rec.Malformed, rec.Matched, rec.Highlighted, rec.Error,
		); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", rec.Index, err)
		}
	}
	return tx.Commit()
}

// GetBatch returns a batch by ID without its records.
func (s *SQLiteStorage) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	var b models.Batch
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, output_path, format, record_count, matched_count, malformed_count, created_at
		 FROM batches WHERE id = ?`, id,
	).Scan(&b.ID, &b.Source, &b.OutputPath, &b.Format, &b.RecordCount, &b.MatchedCount, &b.MalformedCount, &b.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteBatch removes a batch and its records. Deleting a missing batch is not an error.
func (s *SQLiteStorage) DeleteBatch(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
	return err
}

// ListBatches returns batches newest first with offset and limit.
func (s *SQLiteStorage) ListBatches(ctx context.Context, offset, limit int) ([]*models.Batch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, output_path, format, record_count, matched_count, malformed_count, created_at
		 FROM batches ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []*models.Batch
	for rows.Next() {
		var b models.Batch
		if err := rows.Scan(&b.ID, &b.Source, &b.OutputPath, &b.Format, &b.RecordCount, &b.MatchedCount, &b.MalformedCount, &b.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, &b)
	}
	return batches, rows.Err()
}

// GetRecords returns the records of a batch ordered by row index.
func (s *SQLiteStorage) GetRecords(ctx context.Context, batchID string) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT row_index, text, labels, raw_labels, label_cell, malformed, matched, highlighted, error
		 FROM batch_records WHERE batch_id = ? ORDER BY row_index`,
		batchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		var rec models.Record
		var labelsJSON string
		var raw, recErr sql.NullString
		if err := rows.Scan(&rec.Index, &rec.Text, &labelsJSON, &raw, &rec.LabelCell, &rec.Malformed, &rec.Matched, &rec.Highlighted, &recErr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(labelsJSON), &rec.Labels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
		}
		rec.RawLabels = raw.String
		rec.Error = recErr.String
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// CountBatches returns the total number of batches.
func (s *SQLiteStorage) CountBatches(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches`).Scan(&count)
	return count, err
}

// CountRecords returns the total number of stored records.
func (s *SQLiteStorage) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batch_records`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

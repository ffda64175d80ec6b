// Package storage defines the persistence interface for processed batches and their records.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/tagmark/internal/models"
)

// ErrNotFound is returned when a batch does not exist.
var ErrNotFound = errors.New("batch not found")

// Storage defines batch and record persistence operations.
type Storage interface {
	// Batch operations
	CreateBatch(ctx context.Context, batch *models.Batch) error
	GetBatch(ctx context.Context, id string) (*models.Batch, error)
	DeleteBatch(ctx context.Context, id string) error
	ListBatches(ctx context.Context, offset, limit int) ([]*models.Batch, error)

	// Record operations
	GetRecords(ctx context.Context, batchID string) ([]*models.Record, error)

	// Stats
	CountBatches(ctx context.Context) (int64, error)
	CountRecords(ctx context.Context) (int64, error)

	Close() error
}

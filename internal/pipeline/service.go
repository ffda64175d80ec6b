package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/tagmark/internal/fileid"
	"github.com/hyperjump/tagmark/internal/models"
	"github.com/hyperjump/tagmark/internal/output"
	"github.com/hyperjump/tagmark/internal/storage"
	"github.com/hyperjump/tagmark/internal/tabular"
	"go.uber.org/zap"
)

// Service processes uploaded or watched tables, saves the processed table to
// the output directory and records the batch in storage.
type Service struct {
	processor *Processor
	writer    *output.Writer
	storage   storage.Storage
	logger    *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a logger for debug output (batch saved, batch deleted, etc.).
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a service with the given dependencies.
func NewService(processor *Processor, writer *output.Writer, store storage.Storage, opts ...ServiceOption) *Service {
	s := &Service{
		processor: processor,
		writer:    writer,
		storage:   store,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Processor returns the processor used for every batch.
func (s *Service) Processor() *Processor { return s.processor }

// ProcessUpload reads a table named name from r and processes it as a new batch.
// The format follows the extension of name.
func (s *Service) ProcessUpload(ctx context.Context, r io.Reader, name string) (*models.Batch, *tabular.Table, error) {
	t, err := tabular.Read(r, filepath.Ext(name))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read table: %w", err)
	}
	batch, err := s.ProcessTable(ctx, t, filepath.Base(name), uuid.New().String())
	if err != nil {
		return nil, nil, err
	}
	return batch, t, nil
}

// ProcessFile processes the table at path. The batch ID is derived from the
// absolute path, so reprocessing a file replaces its previous batch.
func (s *Service) ProcessFile(ctx context.Context, path string, allowedExts []string) (*models.Batch, error) {
	if len(allowedExts) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		allowed := false
		for _, e := range allowedExts {
			if strings.ToLower(e) == ext {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("extension %s not allowed", ext)
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	t, err := tabular.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	return s.ProcessTable(ctx, t, filepath.Base(abs), fileid.BatchID(abs))
}

// ProcessTable labels t in place, saves it and stores the batch under id.
func (s *Service) ProcessTable(ctx context.Context, t *tabular.Table, source, id string) (*models.Batch, error) {
	batch, err := s.processor.ProcessTable(t, source)
	if err != nil {
		return nil, err
	}
	batch.ID = id
	batch.Format = strings.TrimPrefix(s.writer.Ext(), ".")

	path, err := s.writer.Save(id, t)
	if err != nil {
		return nil, fmt.Errorf("failed to save processed table: %w", err)
	}
	batch.OutputPath = path

	if err := s.storage.CreateBatch(ctx, batch); err != nil {
		_ = s.writer.Remove(path)
		return nil, fmt.Errorf("failed to store batch: %w", err)
	}
	s.logger.Info("batch processed",
		zap.String("id", id),
		zap.String("source", source),
		zap.Int("records", batch.RecordCount),
		zap.Int("matched", batch.MatchedCount),
		zap.Int("malformed", batch.MalformedCount),
	)
	return batch, nil
}

// DeleteBatch removes a stored batch and its saved file.
func (s *Service) DeleteBatch(ctx context.Context, id string) error {
	batch, err := s.storage.GetBatch(ctx, id)
	if err != nil {
		return err
	}
	if batch.OutputPath != "" {
		if err := s.writer.Remove(batch.OutputPath); err != nil {
			s.logger.Warn("failed to remove saved table", zap.String("path", batch.OutputPath), zap.Error(err))
		}
	}
	if err := s.storage.DeleteBatch(ctx, id); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	s.logger.Debug("batch deleted", zap.String("id", id))
	return nil
}

// DeleteFile removes the batch created from the file at path, if any.
func (s *Service) DeleteFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return s.DeleteBatch(ctx, fileid.BatchID(abs))
}

// GetBatch returns a batch with its records.
func (s *Service) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	batch, err := s.storage.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := s.storage.GetRecords(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	batch.Records = records
	return batch, nil
}

// ListBatches returns stored batches newest first, without records.
func (s *Service) ListBatches(ctx context.Context, q models.ListQuery) ([]*models.Batch, error) {
	return s.storage.ListBatches(ctx, q.Offset, q.Limit)
}

// OutputDir returns the directory processed tables are saved to.
func (s *Service) OutputDir() string { return s.writer.Dir() }

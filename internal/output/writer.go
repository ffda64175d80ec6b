// Package output writes processed tables to the configured output directory.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/tagmark/internal/tabular"
	"go.uber.org/zap"
)

// Writer saves processed tables under a single directory. The directory is
// created on first write.
type Writer struct {
	dir    string
	ext    string
	logger *zap.Logger
}

// NewWriter returns a Writer for dir. format is "csv" or "xlsx".
func NewWriter(dir, format string, logger *zap.Logger) (*Writer, error) {
	ext, err := tabular.Ext(format)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, ext: ext, logger: logger}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Ext returns the extension of saved files (".csv" or ".xlsx").
func (w *Writer) Ext() string { return w.ext }

// FileName returns the file name used for batchID.
func (w *Writer) FileName(batchID string) string {
	return "processed_" + sanitize(batchID) + w.ext
}

// Save writes t as processed_<batchID> in the output directory and returns the path.
// An existing file for the same batch is replaced atomically.
func (w *Writer) Save(batchID string, t *tabular.Table) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(w.dir, w.FileName(batchID))
	tmp, err := os.CreateTemp(w.dir, ".processed-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tabular.Write(tmp, t, w.ext); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename output: %w", err)
	}
	w.logger.Debug("saved processed table", zap.String("path", path), zap.Int("rows", len(t.Rows)))
	return path, nil
}

// Remove deletes a previously saved file. Paths outside the output directory
// are refused; a missing file is not an error.
func (w *Writer) Remove(path string) error {
	if !w.Contains(path) {
		return fmt.Errorf("refusing to remove %s: outside output directory", path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Contains reports whether path lies inside the output directory.
func (w *Writer) Contains(path string) bool {
	rel, err := filepath.Rel(filepath.Clean(w.dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

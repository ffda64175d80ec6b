// Package tabular reads and writes record tables as CSV or XLSX.
package tabular

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for file extensions other than .csv and .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported table format")
	// ErrEmptyTable is returned when the input has no header row.
	ErrEmptyTable = errors.New("table has no header row")
)

// Table is a header row plus data rows. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named column or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Values returns a copy of column col for every row. A negative col yields
// empty strings.
func (t *Table) Values(col int) []string {
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if col >= 0 && col < len(row) {
			out[i] = row[col]
		}
	}
	return out
}

// SetColumn overwrites the named column, appending it when missing.
// values must have one entry per row.
func (t *Table) SetColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(values), len(t.Rows))
	}
	col := t.Column(name)
	if col < 0 {
		t.Header = append(t.Header, name)
		col = len(t.Header) - 1
	}
	for i, row := range t.Rows {
		for len(row) <= col {
			row = append(row, "")
		}
		row[col] = values[i]
		t.Rows[i] = row
	}
	return nil
}

// Ext normalizes a format name or file extension to ".csv" or ".xlsx".
func Ext(format string) (string, error) {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "csv", "":
		return ".csv", nil
	case "xlsx":
		return ".xlsx", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Read parses a table from r. ext selects the format (".csv" or ".xlsx").
func Read(r io.Reader, ext string) (*Table, error) {
	norm, err := Ext(ext)
	if err != nil {
		return nil, err
	}
	if norm == ".xlsx" {
		return readXLSX(r)
	}
	return readCSV(r)
}

// ReadFile reads the table at path; the format follows the file extension.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()
	return Read(f, filepath.Ext(path))
}

// Write serializes t to w in the format selected by ext.
func Write(w io.Writer, t *Table, ext string) error {
	norm, err := Ext(ext)
	if err != nil {
		return err
	}
	if norm == ".xlsx" {
		return writeXLSX(w, t)
	}
	return writeCSV(w, t)
}

// normalize pads short rows to the header width and rejects long ones.
func (t *Table) normalize() error {
	if len(t.Header) == 0 {
		return ErrEmptyTable
	}
	for i, row := range t.Rows {
		if len(row) > len(t.Header) {
			return fmt.Errorf("row %d has %d fields, header has %d", i+1, len(row), len(t.Header))
		}
		for len(row) < len(t.Header) {
			row = append(row, "")
		}
		t.Rows[i] = row
	}
	return nil
}

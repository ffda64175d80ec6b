// Package cli formats tagmark results for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hyperjump/tagmark/internal/models"
	"github.com/hyperjump/tagmark/internal/storage"
	"github.com/hyperjump/tagmark/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a -output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// previewRows is the number of records WriteBatch prints in text format.
const previewRows = 10

// Status summarizes stored batches for the status command.
type Status struct {
	Batches      int64             `json:"batches"`
	Records      int64             `json:"records"`
	DiskUsage    storage.DiskUsage `json:"disk_usage"`
	DatabasePath string            `json:"database_path"`
	OutputDir    string            `json:"output_dir"`
}

// WriteTextResult writes the labels and highlighted text of a free-text input.
func WriteTextResult(w io.Writer, res *models.TextResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "Text:        %s\n", res.Text)
	fmt.Fprintf(w, "Labels:      %s\n", res.Serialized)
	fmt.Fprintf(w, "Highlighted: %s\n", res.Highlighted)
	if !res.Matched {
		fmt.Fprintln(w, "(no match)")
	}
	return nil
}

// WriteBatch writes a processed batch: counts, output path and a preview of
// its first records.
func WriteBatch(w io.Writer, batch *models.Batch, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, batch)
	}
	fmt.Fprintf(w, "Batch %s (%s)\n", batch.ID, batch.Source)
	fmt.Fprintf(w, "  records: %d, matched: %d, invalid labels: %d\n",
		batch.RecordCount, batch.MatchedCount, batch.MalformedCount)
	if batch.OutputPath != "" {
		fmt.Fprintf(w, "  saved to: %s\n", batch.OutputPath)
	}
	if len(batch.Records) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	for i, rec := range batch.Records {
		if i == previewRows {
			fmt.Fprintf(w, "... %d more\n", len(batch.Records)-previewRows)
			break
		}
		mark := " "
		switch {
		case rec.Error != "" || rec.Malformed:
			mark = "!"
		case rec.Matched:
			mark = "*"
		}
		fmt.Fprintf(w, "%s %4d  %s\n", mark, rec.Index, utils.TruncateWords(rec.Text, 12))
		fmt.Fprintf(w, "        %s\n", utils.Truncate(rec.LabelCell, 120))
	}
	return nil
}

// WriteBatches writes a listing of stored batches.
func WriteBatches(w io.Writer, batches []*models.Batch, format OutputFormat) error {
	if format == OutputJSON {
		if batches == nil {
			batches = []*models.Batch{}
		}
		return writeJSON(w, batches)
	}
	if len(batches) == 0 {
		fmt.Fprintln(w, "No batches.")
		return nil
	}
	for _, b := range batches {
		fmt.Fprintf(w, "%s  %s  %-30s %5d records %5d matched\n",
			b.CreatedAt.Local().Format(time.DateTime), b.ID, utils.Truncate(b.Source, 30), b.RecordCount, b.MatchedCount)
	}
	return nil
}

// WriteStatus writes batch counts and disk usage.
func WriteStatus(w io.Writer, st *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Batches:    %d\n", st.Batches)
	fmt.Fprintf(w, "Records:    %d\n", st.Records)
	fmt.Fprintf(w, "Disk usage: %s in %d files\n", FormatBytes(st.DiskUsage.Bytes), st.DiskUsage.Files)
	fmt.Fprintf(w, "Database:   %s\n", st.DatabasePath)
	fmt.Fprintf(w, "Output dir: %s\n", st.OutputDir)
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

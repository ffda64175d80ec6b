package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/tagmark/internal/models"
	"github.com/hyperjump/tagmark/internal/storage"
)

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "json": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func sampleTextResult() *models.TextResult {
	return &models.TextResult{
		Text:        "дайте скидку",
		Highlighted: "дайте <span style='background-color: yellow;'>скидку</span>",
		Labels:      []string{"O", "B-discount"},
		Serialized:  "['O', 'B-discount']",
		Matched:     true,
	}
}

func TestWriteTextResult_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTextResult(&buf, sampleTextResult(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Labels:      ['O', 'B-discount']") {
		t.Errorf("labels line missing: %s", out)
	}
	if strings.Contains(out, "(no match)") {
		t.Errorf("matched result should not say no match: %s", out)
	}
}

func TestWriteTextResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTextResult(&buf, sampleTextResult(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.TextResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Serialized != "['O', 'B-discount']" || !decoded.Matched {
		t.Errorf("decoded: %+v", decoded)
	}
}

func sampleBatch(n int) *models.Batch {
	b := &models.Batch{
		ID:          "b1",
		Source:      "calls.csv",
		OutputPath:  "/tmp/processed_b1.csv",
		Format:      "csv",
		RecordCount: n,
		CreatedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	for i := 0; i < n; i++ {
		b.Records = append(b.Records, &models.Record{
			Index:     i,
			Text:      "дайте скидку",
			LabelCell: "['O', 'B-discount']",
			Matched:   i == 0,
		})
	}
	return b
}

func TestWriteBatch_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBatch(&buf, sampleBatch(12), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Batch b1 (calls.csv)", "saved to: /tmp/processed_b1.csv", "... 2 more", "*    0  дайте скидку"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteBatch_JSONOmitsPath(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBatch(&buf, sampleBatch(1), OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "/tmp/processed_b1.csv") {
		t.Errorf("JSON output should not expose the output path: %s", buf.String())
	}
}

func TestWriteBatches(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBatches(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No batches.") {
		t.Errorf("got %q", buf.String())
	}
	buf.Reset()
	if err := WriteBatches(&buf, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON listing: got %q", buf.String())
	}
	buf.Reset()
	if err := WriteBatches(&buf, []*models.Batch{sampleBatch(3)}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "b1") || !strings.Contains(buf.String(), "3 records") {
		t.Errorf("listing: %q", buf.String())
	}
}

func TestWriteStatus(t *testing.T) {
	st := &Status{Batches: 2, Records: 7, DiskUsage: storage.DiskUsage{Bytes: 2048, Files: 3}, DatabasePath: "/db", OutputDir: "/out"}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Disk usage: 2.0 KiB in 3 files") {
		t.Errorf("status: %s", buf.String())
	}
	buf.Reset()
	if err := WriteStatus(&buf, st, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded Status
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != *st {
		t.Errorf("decoded %+v, want %+v", decoded, *st)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{0: "0 B", 1023: "1023 B", 1024: "1.0 KiB", 1536: "1.5 KiB", 5 << 20: "5.0 MiB"}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

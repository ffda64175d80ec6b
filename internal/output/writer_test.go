package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/tagmark/internal/tabular"
)

func sampleTable() *tabular.Table {
	return &tabular.Table{
		Header: []string{"processed_text", "label"},
		Rows:   [][]string{{"дайте скидку", "['O', 'B-discount']"}},
	}
}

func TestWriter_SaveCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "saved_files")
	w, err := NewWriter(dir, "csv", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("directory should not exist before the first write")
	}
	path, err := w.Save("abc-123", sampleTable())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "processed_abc-123.csv" {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "B-discount") {
		t.Errorf("saved content: %s", data)
	}
}

func TestWriter_SaveReplaces(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "csv", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Save("id", sampleTable()); err != nil {
		t.Fatal(err)
	}
	tbl := sampleTable()
	tbl.Rows[0][0] = "replaced"
	path, err := w.Save("id", tbl)
	if err != nil {
		t.Fatal(err)
	}
	got, err := tabular.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rows[0][0] != "replaced" {
		t.Errorf("got %q", got.Rows[0][0])
	}
	entries, _ := os.ReadDir(w.Dir())
	if len(entries) != 1 {
		t.Errorf("expected only the output file, got %d entries", len(entries))
	}
}

func TestWriter_xlsx(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "xlsx", nil)
	if err != nil {
		t.Fatal(err)
	}
	path, err := w.Save("file:0a1b", sampleTable())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "processed_file_0a1b.xlsx" {
		t.Errorf("path = %s", path)
	}
	if _, err := tabular.ReadFile(path); err != nil {
		t.Fatal(err)
	}
}

func TestWriter_Remove(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "csv", nil)
	if err != nil {
		t.Fatal(err)
	}
	path, err := w.Save("x", sampleTable())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should be removed")
	}
	if err := w.Remove(path); err != nil {
		t.Errorf("removing a missing file: %v", err)
	}
	if err := w.Remove(filepath.Join(w.Dir(), "..", "other.csv")); err == nil {
		t.Error("expected refusal for path outside output directory")
	}
}

func TestNewWriter_badFormat(t *testing.T) {
	if _, err := NewWriter(t.TempDir(), "parquet", nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}

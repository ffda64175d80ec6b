package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hyperjump/tagmark/internal/models"
	"github.com/hyperjump/tagmark/internal/tabular"
	"go.uber.org/zap"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after words are moved first",
			args:     []string{"дайте", "скидку", "-output", "json"},
			expected: []string{"-output", "json", "дайте", "скидку"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-output", "json", "дайте"},
			expected: []string{"-output", "json", "дайте"},
		},
		{
			name:     "words only returns unchanged",
			args:     []string{"дайте", "скидку"},
			expected: []string{"дайте", "скидку"},
		},
		{
			name:     "stdin dash is not a flag",
			args:     []string{"-"},
			expected: []string{"-"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.expected, argsReorder(tt.args)); diff != "" {
				t.Errorf("argsReorder() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// writeConfig writes a config that keeps all state under a temp dir.
func writeConfig(t *testing.T) (path, dir string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "config.yaml")
	content := "storage:\n  database_path: ./db/batches.db\n  output_dir: ./saved_files\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path, dir
}

func TestLoadConfig_explicitPath(t *testing.T) {
	path, dir := writeConfig(t)
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path {
		t.Errorf("resolved: got %q want %q", resolved, path)
	}
	if cfg.Storage.DatabasePath != filepath.Join(dir, "db", "batches.db") {
		t.Errorf("database path: %q", cfg.Storage.DatabasePath)
	}
	if cfg.Labeling.TextColumn != "processed_text" {
		t.Errorf("defaults not applied: %+v", cfg.Labeling)
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing explicit config")
	}
}

func TestLoadConfig_cwdFallback(t *testing.T) {
	path, dir := writeConfig(t)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	resolvedEval, _ := filepath.EvalSymlinks(resolved)
	pathEval, _ := filepath.EvalSymlinks(path)
	if resolvedEval != pathEval {
		t.Errorf("resolved: got %q want %q", resolved, path)
	}
}

func TestRunText_args(t *testing.T) {
	path, _ := writeConfig(t)
	var out bytes.Buffer
	err := runText([]string{"дайте", "скидку", "-output", "json", "-config", path}, strings.NewReader(""), &out)
	if err != nil {
		t.Fatal(err)
	}
	var res models.TextResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("not JSON: %v\n%s", err, out.String())
	}
	if res.Serialized != "['O', 'B-discount']" {
		t.Errorf("labels: %q", res.Serialized)
	}
}

func TestRunText_stdin(t *testing.T) {
	path, _ := writeConfig(t)
	var out bytes.Buffer
	if err := runText([]string{"-config", path}, strings.NewReader("привет как дела\n"), &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "['O', 'O', 'O']") || !strings.Contains(out.String(), "(no match)") {
		t.Errorf("output: %s", out.String())
	}
}

func TestRunText_empty(t *testing.T) {
	path, _ := writeConfig(t)
	if err := runText([]string{"-config", path}, strings.NewReader("  "), &bytes.Buffer{}); err != errUsage {
		t.Errorf("got %v, want errUsage", err)
	}
}

const sampleCSV = "processed_text,label\nдайте скидку,\"['O', 'O']\"\nнет,broken\n"

func TestProcessToFile(t *testing.T) {
	path, dir := writeConfig(t)
	cfg, _, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	in := filepath.Join(dir, "calls.csv")
	if err := os.WriteFile(in, []byte(sampleCSV), 0600); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "labeled.xlsx")

	batch, err := processToFile(cfg, zap.NewNop(), in, out)
	if err != nil {
		t.Fatal(err)
	}
	if batch.MatchedCount != 1 || batch.MalformedCount != 1 || batch.Format != "xlsx" {
		t.Errorf("batch: %+v", batch)
	}
	tbl, err := tabular.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	labels := tbl.Values(tbl.Column("label"))
	if diff := cmp.Diff([]string{"['O', 'B-discount']", "broken"}, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessToFile_badExtension(t *testing.T) {
	path, dir := writeConfig(t)
	cfg, _, _ := loadConfig(path)
	if _, err := processToFile(cfg, zap.NewNop(), filepath.Join(dir, "x.csv"), filepath.Join(dir, "out.json")); err == nil {
		t.Error("expected error for unsupported output extension")
	}
}

func TestRunProcessAndStatus(t *testing.T) {
	path, dir := writeConfig(t)
	in := filepath.Join(dir, "calls.csv")
	if err := os.WriteFile(in, []byte(sampleCSV), 0600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runProcess([]string{"-config", path, "-output", "json", in}, &out); err != nil {
		t.Fatal(err)
	}
	var batch models.Batch
	if err := json.Unmarshal(out.Bytes(), &batch); err != nil {
		t.Fatalf("not JSON: %v\n%s", err, out.String())
	}
	if batch.RecordCount != 2 {
		t.Errorf("batch: %+v", batch)
	}

	cfg, _, _ := loadConfig(path)
	c, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	st, err := localStatus(context.Background(), c.storage, cfg)
	c.Close()
	if err != nil {
		t.Fatal(err)
	}
	if st.Batches != 1 || st.Records != 2 || st.DiskUsage.Files < 2 {
		t.Errorf("status: %+v", st)
	}

	out.Reset()
	if err := runDelete([]string{"-config", path, batch.ID}, &out); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := runBatches([]string{"-config", path}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No batches.") {
		t.Errorf("batches after delete: %s", out.String())
	}
}

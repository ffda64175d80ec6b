// Package config provides configuration loading and structs for the tagmark server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/tagmark/internal/labeling"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Labeling LabelingConfig `yaml:"labeling"`
	Watch    WatchConfig    `yaml:"watch"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	MaxUploadBytes   int64  `yaml:"max_upload_bytes"`
	DefaultListLimit int    `yaml:"default_list_limit"`
	MaxListLimit     int    `yaml:"max_list_limit"`
}

// StorageConfig holds the batch database path and the directory processed
// tables are written to.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	OutputDir    string `yaml:"output_dir"`
	OutputFormat string `yaml:"output_format"`
}

// LabelingConfig holds the labeling rules, the highlight set and the table
// column names.
type LabelingConfig struct {
	Rules             []labeling.Rule `yaml:"rules"`
	HighlightTags     []string        `yaml:"highlight_tags"`
	HighlightStyle    string          `yaml:"highlight_style"`
	TextColumn        string          `yaml:"text_column"`
	LabelColumn       string          `yaml:"label_column"`
	HighlightedColumn string          `yaml:"highlighted_column"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.OutputDir = expandPath(cfg.Storage.OutputDir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	switch c.Storage.OutputFormat {
	case "csv", "xlsx":
	default:
		return fmt.Errorf("invalid config: storage.output_format %q (want csv or xlsx)", c.Storage.OutputFormat)
	}
	for i, r := range c.Labeling.Rules {
		if r.Tag == "" {
			return fmt.Errorf("invalid config: labeling.rules[%d] has no tag", i)
		}
	}
	return nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

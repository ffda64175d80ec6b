package config

import "github.com/hyperjump/tagmark/internal/labeling"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 32 << 20
	}
	if cfg.Server.DefaultListLimit == 0 {
		cfg.Server.DefaultListLimit = 20
	}
	if cfg.Server.MaxListLimit == 0 {
		cfg.Server.MaxListLimit = 100
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/tagmark/data/db/batches.db"
	}
	if cfg.Storage.OutputDir == "" {
		cfg.Storage.OutputDir = "/usr/local/var/tagmark/saved_files"
	}
	if cfg.Storage.OutputFormat == "" {
		cfg.Storage.OutputFormat = "csv"
	}
	if cfg.Labeling.Rules == nil {
		cfg.Labeling.Rules = []labeling.Rule{labeling.DiscountRule}
	}
	if cfg.Labeling.HighlightTags == nil {
		cfg.Labeling.HighlightTags = append([]string(nil), labeling.DefaultHighlightTags...)
	}
	if cfg.Labeling.HighlightStyle == "" {
		cfg.Labeling.HighlightStyle = labeling.DefaultHighlightStyle
	}
	if cfg.Labeling.TextColumn == "" {
		cfg.Labeling.TextColumn = "processed_text"
	}
	if cfg.Labeling.LabelColumn == "" {
		cfg.Labeling.LabelColumn = "label"
	}
	if cfg.Labeling.HighlightedColumn == "" {
		cfg.Labeling.HighlightedColumn = "highlighted_text"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".csv", ".xlsx"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}

// Package models defines core data structures for records, batches, and text results.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Record is one row of a processed table.
type Record struct {
	Index       int      `json:"index"`
	Text        string   `json:"text"`
	Labels      []string `json:"labels"`
	RawLabels   string   `json:"raw_labels,omitempty"`
	LabelCell   string   `json:"label_cell"`
	Malformed   bool     `json:"malformed,omitempty"`
	Matched     bool     `json:"matched"`
	Highlighted string   `json:"highlighted"`
	Error       string   `json:"error,omitempty"`
}

// Batch is one processed table together with its records.
type Batch struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	OutputPath     string    `json:"-"`
	Format         string    `json:"format"`
	RecordCount    int       `json:"record_count"`
	MatchedCount   int       `json:"matched_count"`
	MalformedCount int       `json:"malformed_count"`
	CreatedAt      time.Time `json:"created_at"`
	Records        []*Record `json:"records,omitempty"`
}

// TextResult is the outcome of labeling a single free-text input.
type TextResult struct {
	Text        string   `json:"text"`
	Highlighted string   `json:"highlighted"`
	Labels      []string `json:"labels"`
	Serialized  string   `json:"serialized_labels"`
	Matched     bool     `json:"matched"`
}

// TextInput is the body of a free-text labeling request.
type TextInput struct {
	Text string `json:"text"`
}

// Validate returns an error if the text is empty or only whitespace.
func (in *TextInput) Validate() error {
	if strings.TrimSpace(in.Text) == "" {
		return fmt.Errorf("text cannot be empty")
	}
	return nil
}

// ListQuery pages through stored batches.
type ListQuery struct {
	Offset int
	Limit  int
}

// Normalize clamps offset and limit. maxLimit caps the page size.
func (q *ListQuery) Normalize(defaultLimit, maxLimit int) {
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
}

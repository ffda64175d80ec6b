// Package pipeline runs the labeling rules and the highlighter over free text
// and record tables, and persists processed tables as batches.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/hyperjump/tagmark/internal/config"
	"github.com/hyperjump/tagmark/internal/labeling"
	"github.com/hyperjump/tagmark/internal/models"
	"github.com/hyperjump/tagmark/internal/tabular"
	"go.uber.org/zap"
)

// ErrMissingTextColumn is returned when a table has no text column.
var ErrMissingTextColumn = errors.New("missing text column")

// Processor labels and highlights text. It holds no per-record state and is
// safe for concurrent use.
type Processor struct {
	rules             []labeling.Rule
	highlighter       *labeling.Highlighter
	textColumn        string
	labelColumn       string
	highlightedColumn string
	logger            *zap.Logger
}

// NewProcessor creates a processor from labeling settings. logger may be nil.
func NewProcessor(cfg *config.LabelingConfig, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		rules: append([]labeling.Rule(nil), cfg.Rules...),
		highlighter: labeling.NewHighlighter(
			labeling.WithTags(cfg.HighlightTags...),
			labeling.WithStyle(cfg.HighlightStyle),
		),
		textColumn:        cfg.TextColumn,
		labelColumn:       cfg.LabelColumn,
		highlightedColumn: cfg.HighlightedColumn,
		logger:            logger,
	}
}

// Rules returns the rules applied, in order.
func (p *Processor) Rules() []labeling.Rule {
	return append([]labeling.Rule(nil), p.rules...)
}

// ProcessText labels a single free-text input and renders it highlighted.
func (p *Processor) ProcessText(text string) *models.TextResult {
	labels, matched, err := labeling.ApplyRules(text, labeling.InitializeLabels(text), p.rules)
	if err != nil {
		// Freshly initialized labels are always aligned with their text.
		p.logger.Error("labeling fresh sequence failed", zap.Error(err))
	}
	highlighted, err := p.highlighter.HighlightText(text, labels)
	if err != nil {
		p.logger.Error("highlighting fresh sequence failed", zap.Error(err))
		highlighted = p.highlighter.Plain(text)
	}
	return &models.TextResult{
		Text:        text,
		Highlighted: highlighted,
		Labels:      labels,
		Serialized:  labels.String(),
		Matched:     matched > 0,
	}
}

// ProcessTable labels every row of t and writes the label and highlighted
// columns back into t. The label column is initialized when absent. Cells that
// fail to parse, or that are not aligned with their text, are logged and kept
// verbatim; such rows are shown without highlighting. The returned batch has
// no ID, output path or format.
func (p *Processor) ProcessTable(t *tabular.Table, source string) (*models.Batch, error) {
	textCol := t.Column(p.textColumn)
	if textCol < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingTextColumn, p.textColumn)
	}
	labelCol := t.Column(p.labelColumn)

	batch := &models.Batch{Source: source, RecordCount: len(t.Rows)}
	labelCells := make([]string, len(t.Rows))
	highlightedCells := make([]string, len(t.Rows))
	texts := t.Values(textCol)
	raws := t.Values(labelCol)
	for i, text := range texts {
		rec := p.processRow(i, text, raws[i], labelCol >= 0)
		labelCells[i] = rec.LabelCell
		highlightedCells[i] = rec.Highlighted
		if rec.Matched {
			batch.MatchedCount++
		}
		if rec.Malformed {
			batch.MalformedCount++
		}
		batch.Records = append(batch.Records, rec)
	}

	if err := t.SetColumn(p.labelColumn, labelCells); err != nil {
		return nil, err
	}
	if err := t.SetColumn(p.highlightedColumn, highlightedCells); err != nil {
		return nil, err
	}
	p.logger.Debug("processed table",
		zap.String("source", source),
		zap.Int("records", batch.RecordCount),
		zap.Int("matched", batch.MatchedCount),
		zap.Int("malformed", batch.MalformedCount),
	)
	return batch, nil
}

// processRow labels one row. Rows that cannot be labeled keep raw as their label cell.
func (p *Processor) processRow(index int, text, raw string, hasLabels bool) *models.Record {
	rec := &models.Record{Index: index, Text: text, RawLabels: raw, LabelCell: raw}

	labels := labeling.InitializeLabels(text)
	if hasLabels {
		parsed, err := labeling.ParseLabels(raw)
		if err != nil {
			p.logger.Warn("invalid label format", zap.Int("index", index), zap.String("labels", raw), zap.Error(err))
			rec.Malformed = true
			rec.Error = err.Error()
			rec.Highlighted = p.highlighter.Plain(text)
			return rec
		}
		labels = parsed
	}

	updated, matched, err := labeling.ApplyRules(text, labels, p.rules)
	if err != nil {
		p.logger.Warn("label sequence not aligned with text", zap.Int("index", index), zap.Error(err))
		rec.Labels = labels
		rec.Error = err.Error()
		rec.Highlighted = p.highlighter.Plain(text)
		return rec
	}
	rec.Labels = updated
	rec.Matched = matched > 0

	highlighted, err := p.highlighter.HighlightText(text, updated)
	if err != nil {
		p.logger.Warn("cannot highlight record", zap.Int("index", index), zap.Error(err))
		rec.Error = err.Error()
		highlighted = p.highlighter.Plain(text)
	}
	rec.Highlighted = highlighted
	rec.LabelCell = updated.String()
	return rec
}

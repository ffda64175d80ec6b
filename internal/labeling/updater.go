package labeling

import (
	"go.uber.org/zap"
)

// UpdateLabels applies one (prefix, tag) rule to a column of serialized label
// sequences aligned with texts and returns the updated column. Entries that
// fail to parse, or whose match falls outside the sequence, are logged and
// returned verbatim; the batch never fails. A missing entry (labelsCol shorter
// than texts) is initialized from its text first.
func UpdateLabels(texts, labelsCol []string, prefix, tag string, logger *zap.Logger) []string {
	if logger == nil {
		logger = zap.NewNop()
	}
	rule := Rule{Prefix: prefix, Tag: tag}
	updated := make([]string, len(texts))
	for i, text := range texts {
		var labels Labels
		if i < len(labelsCol) {
			parsed, err := ParseLabels(labelsCol[i])
			if err != nil {
				logger.Warn("invalid label format",
					zap.Int("index", i),
					zap.String("labels", labelsCol[i]),
					zap.Error(err),
				)
				updated[i] = labelsCol[i]
				continue
			}
			labels = parsed
		} else {
			labels = InitializeLabels(text)
		}

		next, _, err := ApplyRule(text, labels, rule)
		if err != nil {
			logger.Warn("label sequence not aligned with text",
				zap.Int("index", i),
				zap.Int("tokens", len(Tokenize(text))),
				zap.Int("labels", len(labels)),
			)
			if i < len(labelsCol) {
				updated[i] = labelsCol[i]
			} else {
				updated[i] = labels.String()
			}
			continue
		}
		updated[i] = next.String()
	}
	return updated
}

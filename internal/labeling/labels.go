package labeling

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Outside is the default tag of a token that is not part of any tagged span.
const Outside = "O"

// Labels is an ordered sequence of tags, one per token.
type Labels []string

// InitializeLabels returns one Outside tag per whitespace-delimited token of text.
func InitializeLabels(text string) Labels {
	n := len(Tokenize(text))
	labels := make(Labels, n)
	for i := range labels {
		labels[i] = Outside
	}
	return labels
}

// Clone returns a copy of l that shares no storage with it.
func (l Labels) Clone() Labels {
	if l == nil {
		return nil
	}
	return append(Labels(make([]string, 0, len(l))), l...)
}

// Count returns how many labels equal tag.
func (l Labels) Count(tag string) int {
	n := 0
	for _, t := range l {
		if t == tag {
			n++
		}
	}
	return n
}

// String serializes l as a list literal, e.g. ['O', 'B-discount'].
func (l Labels) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, tag := range l {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteTag(tag))
	}
	b.WriteByte(']')
	return b.String()
}

// quoteTag single-quotes plain tags and falls back to a double-quoted,
// backslash-escaped form when the tag needs escaping.
func quoteTag(tag string) string {
	if strings.ContainsAny(tag, "'\\\n\r\t") || !strconv.CanBackquote(tag) {
		return strconv.Quote(tag)
	}
	return "'" + tag + "'"
}

// ParseLabels parses a serialized label sequence such as ['O', 'B-discount'].
// The input must be a single bracketed list of single- or double-quoted
// strings; anything else wraps ErrMalformedLabels.
func ParseLabels(s string) (Labels, error) {
	dec := yaml.NewDecoder(strings.NewReader(s))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLabels, err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing content after list", ErrMalformedLabels)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, fmt.Errorf("%w: %q is not a list", ErrMalformedLabels, s)
	}
	seq := doc.Content[0]
	if seq.Kind != yaml.SequenceNode || seq.Style&yaml.FlowStyle == 0 {
		return nil, fmt.Errorf("%w: %q is not a list", ErrMalformedLabels, s)
	}
	labels := make(Labels, 0, len(seq.Content))
	for i, item := range seq.Content {
		if item.Kind != yaml.ScalarNode || item.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle) == 0 {
			return nil, fmt.Errorf("%w: item %d is not a quoted tag", ErrMalformedLabels, i)
		}
		labels = append(labels, item.Value)
	}
	return labels, nil
}

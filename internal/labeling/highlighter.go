package labeling

import (
	"fmt"
	"html"
	"strings"
)

// DefaultHighlightTags are the tags rendered with highlight markup.
var DefaultHighlightTags = []string{"B-discount", "B-value", "I-value"}

// DefaultHighlightStyle is the inline CSS of the highlight span.
const DefaultHighlightStyle = "background-color: yellow;"

// Highlighter renders tokens and their labels as a single line of markup.
type Highlighter struct {
	tags   map[string]struct{}
	open   string
	close  string
	escape func(string) string
}

// HighlighterOption configures a Highlighter.
type HighlighterOption func(*Highlighter)

// WithTags replaces the set of highlighted tags.
func WithTags(tags ...string) HighlighterOption {
	return func(h *Highlighter) {
		h.tags = make(map[string]struct{}, len(tags))
		for _, t := range tags {
			h.tags[t] = struct{}{}
		}
	}
}

// WithStyle sets the inline CSS of the HTML highlight span.
func WithStyle(style string) HighlighterOption {
	return func(h *Highlighter) {
		h.open = fmt.Sprintf("<span style='%s'>", html.EscapeString(style))
		h.close = "</span>"
		h.escape = html.EscapeString
	}
}

// WithMarkers wraps highlighted tokens in open and close verbatim and leaves
// tokens unescaped. Useful for terminal or plain-text output.
func WithMarkers(open, close string) HighlighterOption {
	return func(h *Highlighter) {
		h.open = open
		h.close = close
		h.escape = func(s string) string { return s }
	}
}

// NewHighlighter returns an HTML highlighter for DefaultHighlightTags unless
// options say otherwise.
func NewHighlighter(opts ...HighlighterOption) *Highlighter {
	h := &Highlighter{}
	WithTags(DefaultHighlightTags...)(h)
	WithStyle(DefaultHighlightStyle)(h)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// IsHighlighted reports whether tokens labeled tag are wrapped in markup.
func (h *Highlighter) IsHighlighted(tag string) bool {
	_, ok := h.tags[tag]
	return ok
}

// Highlight joins tokens with single spaces, wrapping every token whose label
// is highlighted. tokens and labels must have equal length; otherwise an error
// wrapping ErrLengthMismatch is returned and nothing is rendered.
func (h *Highlighter) Highlight(tokens []string, labels Labels) (string, error) {
	if len(tokens) != len(labels) {
		return "", fmt.Errorf("%w: %d tokens, %d labels", ErrLengthMismatch, len(tokens), len(labels))
	}
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		if h.IsHighlighted(labels[i]) {
			b.WriteString(h.open)
			b.WriteString(h.escape(tok))
			b.WriteString(h.close)
			continue
		}
		b.WriteString(h.escape(tok))
	}
	return b.String(), nil
}

// HighlightText tokenizes text and highlights it with labels.
func (h *Highlighter) HighlightText(text string, labels Labels) (string, error) {
	return h.Highlight(Tokenize(text), labels)
}

// Plain joins tokens with single spaces using the highlighter's escaping and
// no markup.
func (h *Highlighter) Plain(text string) string {
	tokens := Tokenize(text)
	for i, tok := range tokens {
		tokens[i] = h.escape(tok)
	}
	return strings.Join(tokens, " ")
}

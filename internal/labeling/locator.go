// Package labeling locates prefix matches in whitespace-tokenized text, keeps
// per-token label sequences aligned with the tokens and renders them as
// highlighted markup.
package labeling

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NotFound is returned by FindWordStartingWith when no token matches.
const NotFound = -1

// Tokenize splits text into whitespace-delimited tokens.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// FindWordStartingWith returns the 1-based index of the first token in text
// that starts with prefix, compared case-insensitively. The prefix is a literal
// string. Leading punctuation of a token is skipped so that a quoted or
// bracketed word still matches, but a prefix in the middle of a word does not.
// Returns NotFound when no token matches.
func FindWordStartingWith(text, prefix string) int {
	skipPunct := startsWithWordRune(prefix)
	for i, tok := range Tokenize(text) {
		word := tok
		if skipPunct {
			word = strings.TrimLeftFunc(tok, func(r rune) bool { return !isWordRune(r) })
		}
		if hasFoldPrefix(word, prefix) {
			return i + 1
		}
	}
	return NotFound
}

// hasFoldPrefix reports whether s begins with prefix under Unicode simple case folding.
func hasFoldPrefix(s, prefix string) bool {
	n := utf8.RuneCountInString(prefix)
	seen := 0
	for pos := range s {
		if seen == n {
			return strings.EqualFold(s[:pos], prefix)
		}
		seen++
	}
	return seen == n && strings.EqualFold(s, prefix)
}

func startsWithWordRune(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size > 0 && isWordRune(r)
}

// isWordRune matches the characters of a regexp \w class in Unicode mode.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

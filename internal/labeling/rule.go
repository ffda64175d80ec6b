package labeling

import "fmt"

// Rule tags the first token starting with Prefix as Tag.
type Rule struct {
	Prefix string `yaml:"prefix" json:"prefix"`
	Tag    string `yaml:"tag" json:"tag"`
}

// DiscountRule marks the first word mentioning a discount ("скидка", "скидку", ...).
var DiscountRule = Rule{Prefix: "скидк", Tag: "B-discount"}

// ApplyRule returns a copy of labels with the token located by rule.Prefix set
// to rule.Tag. The returned bool reports whether a token matched. When the
// matched position lies outside labels, labels are returned unchanged together
// with an error wrapping ErrLengthMismatch.
func ApplyRule(text string, labels Labels, rule Rule) (Labels, bool, error) {
	out := labels.Clone()
	pos := FindWordStartingWith(text, rule.Prefix)
	if pos == NotFound {
		return out, false, nil
	}
	if pos > len(out) {
		return out, false, fmt.Errorf("%w: token %d of %d labels", ErrLengthMismatch, pos, len(out))
	}
	out[pos-1] = rule.Tag
	return out, true, nil
}

// ApplyRules applies rules in order; a later rule overwrites an earlier tag at
// the same position. It stops at the first error.
func ApplyRules(text string, labels Labels, rules []Rule) (Labels, int, error) {
	out := labels.Clone()
	matched := 0
	for _, rule := range rules {
		next, ok, err := ApplyRule(text, out, rule)
		if err != nil {
			return out, matched, err
		}
		if ok {
			matched++
		}
		out = next
	}
	return out, matched, nil
}

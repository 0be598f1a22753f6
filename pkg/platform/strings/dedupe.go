// Package strings provides string slice normalization helpers.
package strings

import (
	"strings"
	"unicode/utf8"
)

// NormalizeLabels trims, lowercases and deduplicates values, keeping first
// occurrences in order. Blank values and values longer than maxLen runes are
// dropped; maxLen <= 0 means no length limit. Returns nil when nothing is left.
func NormalizeLabels(values []string, maxLen int) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		label := strings.ToLower(strings.TrimSpace(v))
		if label == "" || (maxLen > 0 && utf8.RuneCountInString(label) > maxLen) {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

package scan

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultTopic labels pages without a recognizable heading
	DefaultTopic = "GENERAL"

	topicMaxLines  = 5
	topicMinLength = 5
)

// DetectTopic guesses the section heading of a page: the first of its first
// five non-empty lines that is fully upper-case and longer than five
// characters. Gazette pages usually open with the issuing agency in capitals.
func DetectTopic(raw string) string {
	seen := 0
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isUpper(line) && utf8.RuneCountInString(line) > topicMinLength {
			return line
		}
		seen++
		if seen == topicMaxLines {
			break
		}
	}
	return DefaultTopic
}

// isUpper reports whether s has at least one cased letter and no lower-case
// or title-case letters
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}

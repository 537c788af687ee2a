package scan

import "strings"

// Normalize collapses every whitespace run, newlines included, into a single
// space and trims both ends.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.Join(strings.Fields(raw), " ")
}

package scan

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/criapa/DOE-PE/internal/catalog"
)

// Snippet window around the start of a match, in characters
const (
	SnippetBefore = 100
	SnippetAfter  = 200
	snippetSuffix = "..."
)

// ClassifyPage finds, for every catalog category, the first term present in
// the page text and returns one finding per matching category. Pages without
// text yield no findings.
func ClassifyPage(page Page, sourceFile, topic string, cat *catalog.Catalog, processed time.Time) []Finding {
	normalized := Normalize(page.Text)
	if normalized == "" {
		return nil
	}

	// strings.ToLower maps rune to rune, so rune offsets found in lower are
	// valid in normalized even when byte lengths differ.
	lower := strings.ToLower(normalized)
	original := []rune(normalized)
	date := NewDate(processed)

	var findings []Finding
	cat.Each(func(c catalog.Category) {
		for _, term := range c.Terms {
			idx := strings.Index(lower, term)
			if idx < 0 {
				continue
			}

			findings = append(findings, Finding{
				SourceFile:     sourceFile,
				Page:           page.Number,
				DetectedTopic:  topic,
				Category:       c.Name,
				MatchedTerm:    term,
				Impact:         c.Impact,
				ContextSnippet: snippet(original, utf8.RuneCountInString(lower[:idx])),
				ProcessedDate:  date,
			})
			return
		}
	})

	return findings
}

// snippet returns the text from SnippetBefore characters before start up to
// SnippetAfter characters after it, clamped to the text bounds
func snippet(text []rune, start int) string {
	from := max(0, start-SnippetBefore)
	to := min(len(text), start+SnippetAfter)
	return strings.TrimSpace(string(text[from:to])) + snippetSuffix
}

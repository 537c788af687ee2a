package scan

import (
	"time"

	"github.com/criapa/DOE-PE/internal/catalog"
)

// Scanner classifies every page of a document against a catalog
type Scanner struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

// Option configures a Scanner
type Option func(*Scanner)

// WithClock overrides the clock used to stamp findings
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

// NewScanner creates a scanner for the given catalog
func NewScanner(cat *catalog.Catalog, opts ...Option) *Scanner {
	s := &Scanner{
		catalog: cat,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the catalog the scanner matches against
func (s *Scanner) Catalog() *catalog.Catalog {
	return s.catalog
}

// Scan classifies the pages in order. A document without extractable text
// produces an empty result, not an error.
func (s *Scanner) Scan(pages []Page, sourceFile string) ScanResult {
	result := ScanResult{Documents: 1}
	processed := s.now()

	for _, page := range pages {
		if Normalize(page.Text) == "" {
			result.PagesSkipped++
			continue
		}
		result.PagesScanned++

		topic := DetectTopic(page.Text)
		result.Findings = append(result.Findings, ClassifyPage(page, sourceFile, topic, s.catalog, processed)...)
	}

	return result
}

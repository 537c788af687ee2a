package scan

import (
	"fmt"
	"time"

	"github.com/criapa/DOE-PE/internal/catalog"
)

// DateLayout is the wire layout of Finding.ProcessedDate
const DateLayout = "2006-01-02"

// Page is the extracted text of one PDF page. Text is empty when the page had
// no extractable text.
type Page struct {
	Number int
	Text   string
}

// Date is a calendar date serialized as YYYY-MM-DD
type Date struct {
	t time.Time
}

// NewDate truncates t to its calendar date
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Time returns the date at midnight UTC
func (d Date) Time() time.Time {
	return d.t
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// String returns the date as YYYY-MM-DD
func (d Date) String() string {
	return d.t.Format(DateLayout)
}

// MarshalText implements encoding.TextMarshaler
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Timestamps with a time
// component are accepted and truncated.
func (d *Date) UnmarshalText(text []byte) error {
	s := string(text)
	for _, layout := range []string{DateLayout, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = NewDate(t)
			return nil
		}
	}
	return fmt.Errorf("invalid date: %q", s)
}

// Finding is one keyword match on one page. Field order and JSON names follow
// the report format consumed by the dashboard.
type Finding struct {
	SourceFile     string         `json:"arquivo"`
	Page           int            `json:"pagina"`
	DetectedTopic  string         `json:"topico_detectado"`
	Category       string         `json:"categoria"`
	MatchedTerm    string         `json:"termo_encontrado"`
	Impact         catalog.Impact `json:"impacto"`
	ContextSnippet string         `json:"resumo_snippet"`
	ProcessedDate  Date           `json:"data_processamento"`
}

// ScanResult aggregates the findings of one or more scanned documents
type ScanResult struct {
	Findings     []Finding
	Documents    int
	PagesScanned int
	PagesSkipped int
}

// HighImpact returns the findings with HIGH impact, in their original order
func (r ScanResult) HighImpact() []Finding {
	return FilterImpact(r.Findings, catalog.ImpactHigh)
}

// Empty reports whether the result holds no findings
func (r ScanResult) Empty() bool {
	return len(r.Findings) == 0
}

// Merge appends other to r, keeping document order
func (r *ScanResult) Merge(other ScanResult) {
	r.Findings = append(r.Findings, other.Findings...)
	r.Documents += other.Documents
	r.PagesScanned += other.PagesScanned
	r.PagesSkipped += other.PagesSkipped
}

// Stats summarizes a scan result
type Stats struct {
	Documents    int            `json:"documents"`
	PagesScanned int            `json:"pages_scanned"`
	PagesSkipped int            `json:"pages_skipped"`
	Findings     int            `json:"findings"`
	HighImpact   int            `json:"high_impact"`
	ByCategory   map[string]int `json:"by_category"`
}

// Stats computes counters for logging and tool output
func (r ScanResult) Stats() Stats {
	s := Stats{
		Documents:    r.Documents,
		PagesScanned: r.PagesScanned,
		PagesSkipped: r.PagesSkipped,
		Findings:     len(r.Findings),
		ByCategory:   make(map[string]int),
	}
	for _, f := range r.Findings {
		s.ByCategory[f.Category]++
		if f.Impact == catalog.ImpactHigh {
			s.HighImpact++
		}
	}
	return s
}

// FilterImpact returns the findings with the given impact, preserving order
func FilterImpact(findings []Finding, impact catalog.Impact) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Impact == impact {
			out = append(out, f)
		}
	}
	return out
}

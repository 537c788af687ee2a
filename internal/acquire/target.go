// Package acquire obtains gazette PDFs, either from the state portal or from
// a local directory of previously downloaded editions.
package acquire

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Date layouts accepted on the command line
const (
	LayoutBR  = "02/01/2006"
	LayoutISO = "2006-01-02"
)

// Target selects one gazette edition: a specific date or the latest one.
type Target struct {
	Date   time.Time
	Latest bool
}

// Acquirer returns the local path of the PDF for a target.
type Acquirer interface {
	Acquire(ctx context.Context, target Target) (string, error)
}

// LatestTarget selects the most recent edition
func LatestTarget() Target {
	return Target{Latest: true}
}

// DateTarget selects the edition of the given day
func DateTarget(d time.Time) Target {
	y, m, day := d.Date()
	return Target{Date: time.Date(y, m, day, 0, 0, 0, 0, time.UTC)}
}

// ParseTarget accepts "latest", dd/mm/yyyy or yyyy-mm-dd.
func ParseTarget(raw string) (Target, error) {
	s := strings.TrimSpace(raw)
	if strings.EqualFold(s, "latest") {
		return LatestTarget(), nil
	}
	for _, layout := range []string{LayoutBR, LayoutISO} {
		if d, err := time.Parse(layout, s); err == nil {
			return DateTarget(d), nil
		}
	}
	return Target{}, fmt.Errorf("invalid target %q: want latest, dd/mm/yyyy or yyyy-mm-dd", raw)
}

func (t Target) String() string {
	if t.Latest {
		return "latest"
	}
	return t.Date.Format(LayoutBR)
}

// FileName is the name the edition is stored under in the download directory
func (t Target) FileName() string {
	if t.Latest {
		return "DOE_latest.pdf"
	}
	return "DOE_" + t.Date.Format("02-01-2006") + ".pdf"
}

// dateTokens are the spellings of the target date that may appear in a
// published file name or link text
func (t Target) dateTokens() []string {
	if t.Latest {
		return nil
	}
	return []string{
		t.Date.Format("02-01-2006"),
		t.Date.Format("02/01/2006"),
		t.Date.Format("02012006"),
		t.Date.Format("2006-01-02"),
		t.Date.Format("20060102"),
		t.Date.Format("02_01_2006"),
	}
}

func (t Target) matches(s string) bool {
	s = strings.ToLower(s)
	for _, tok := range t.dateTokens() {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

// Package report persists scan findings as the JSON, CSV and text artifacts
// read by the dashboard and by people.
package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/criapa/DOE-PE/internal/scan"
)

// File name prefixes and the timestamp layout embedded in every artifact name
const (
	JSONPrefix      = "relatorio_geral_"
	CSVPrefix       = "ALERTA_CONCURSOS_"
	SummaryPrefix   = "resumo_topicos_"
	TimestampLayout = "20060102_1504"

	SummaryHeader = "=== RESUMO DO DIÁRIO OFICIAL ==="

	// maxCollisions bounds the numeric suffixes tried for one name
	maxCollisions = 1000
)

// UTF8BOM makes spreadsheet tools detect the CSV encoding
const UTF8BOM = "\ufeff"

// CSVHeader is the column order of the high-impact CSV
var CSVHeader = []string{
	"arquivo",
	"pagina",
	"topico_detectado",
	"categoria",
	"termo_encontrado",
	"impacto",
	"resumo_snippet",
	"data_processamento",
}

// Artifacts holds the paths written by WriteAll; empty when not written
type Artifacts struct {
	JSON    string `json:"json,omitempty"`
	CSV     string `json:"csv,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Paths returns the non-empty artifact paths
func (a Artifacts) Paths() []string {
	var out []string
	for _, p := range []string{a.JSON, a.CSV, a.Summary} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Writer creates report files in one directory. Files are never
// overwritten: a name already taken gets a _2, _3... suffix.
type Writer struct {
	dir string
	now func() time.Time
}

// Option configures a Writer
type Option func(*Writer)

// WithClock sets the time source used for artifact names
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWriter creates a writer for dir; the directory is created on first write
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

func (w *Writer) timestamp() string {
	return w.now().Format(TimestampLayout)
}

// WriteJSON writes all findings as an indented JSON array
func (w *Writer) WriteJSON(findings []scan.Finding) (string, error) {
	return w.writeJSON(findings, w.timestamp())
}

// WriteHighImpactCSV writes the high-impact findings. With no findings
// nothing is written and the path is empty.
func (w *Writer) WriteHighImpactCSV(findings []scan.Finding) (string, error) {
	return w.writeCSV(findings, w.timestamp())
}

// WriteTopicSummary writes occurrence counts per topic and category. With no
// findings nothing is written and the path is empty.
func (w *Writer) WriteTopicSummary(findings []scan.Finding) (string, error) {
	return w.writeSummary(findings, w.timestamp())
}

// WriteAll writes the three artifacts for a scan result under one timestamp
func (w *Writer) WriteAll(result scan.ScanResult) (Artifacts, error) {
	ts := w.timestamp()
	var a Artifacts
	var err error

	if a.JSON, err = w.writeJSON(result.Findings, ts); err != nil {
		return a, err
	}
	if a.CSV, err = w.writeCSV(result.HighImpact(), ts); err != nil {
		return a, err
	}
	if a.Summary, err = w.writeSummary(result.Findings, ts); err != nil {
		return a, err
	}
	return a, nil
}

func (w *Writer) writeJSON(findings []scan.Finding, ts string) (string, error) {
	if findings == nil {
		findings = []scan.Finding{}
	}
	return w.create(JSONPrefix+ts, ".json", func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "    ")
		return enc.Encode(findings)
	})
}

func (w *Writer) writeCSV(findings []scan.Finding, ts string) (string, error) {
	if len(findings) == 0 {
		return "", nil
	}
	return w.create(CSVPrefix+ts, ".csv", func(out io.Writer) error {
		if _, err := io.WriteString(out, UTF8BOM); err != nil {
			return err
		}
		cw := csv.NewWriter(out)
		cw.Comma = ';'
		if err := cw.Write(CSVHeader); err != nil {
			return err
		}
		for _, f := range findings {
			if err := cw.Write(CSVRecord(f)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// CSVRecord renders a finding in CSVHeader column order
func CSVRecord(f scan.Finding) []string {
	return []string{
		f.SourceFile,
		strconv.Itoa(f.Page),
		f.DetectedTopic,
		f.Category,
		f.MatchedTerm,
		f.Impact.String(),
		f.ContextSnippet,
		f.ProcessedDate.String(),
	}
}

// TopicCount is the number of findings of one category under one topic
type TopicCount struct {
	Topic    string
	Category string
	Count    int
}

// CountTopics groups findings by topic and category, sorted by topic then
// category
func CountTopics(findings []scan.Finding) []TopicCount {
	type key struct{ topic, category string }
	counts := make(map[key]int)
	for _, f := range findings {
		counts[key{f.DetectedTopic, f.Category}]++
	}

	out := make([]TopicCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, TopicCount{Topic: k.topic, Category: k.category, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Topic != out[j].Topic {
			return out[i].Topic < out[j].Topic
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func (w *Writer) writeSummary(findings []scan.Finding, ts string) (string, error) {
	if len(findings) == 0 {
		return "", nil
	}
	return w.create(SummaryPrefix+ts, ".txt", func(out io.Writer) error {
		if _, err := fmt.Fprintf(out, "%s\n\n", SummaryHeader); err != nil {
			return err
		}
		for _, tc := range CountTopics(findings) {
			if _, err := fmt.Fprintf(out, "[%s] %s: %d occurrences\n", tc.Category, tc.Topic, tc.Count); err != nil {
				return err
			}
		}
		return nil
	})
}

// create opens base+ext exclusively, falling back to base_N+ext, and hands a
// buffered writer to fill. A failed fill removes the partial file.
func (w *Writer) create(base, ext string, fill func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	f, path, err := w.openExclusive(base, ext)
	if err != nil {
		return "", err
	}

	bw := bufio.NewWriter(f)
	if err := fill(bw); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

func (w *Writer) openExclusive(base, ext string) (*os.File, string, error) {
	for seq := 1; seq <= maxCollisions; seq++ {
		name := base + ext
		if seq > 1 {
			name = base + "_" + strconv.Itoa(seq) + ext
		}
		path := filepath.Join(w.dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", name, err)
		}
	}
	return nil, "", fmt.Errorf("create %s%s: too many files with the same timestamp", base, ext)
}

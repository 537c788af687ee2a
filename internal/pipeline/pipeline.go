// Package pipeline runs acquisition, extraction, scanning, reporting and
// alerting for a batch of gazette editions.
package pipeline

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/criapa/DOE-PE/internal/acquire"
	"github.com/criapa/DOE-PE/internal/alert"
	"github.com/criapa/DOE-PE/internal/logger"
	"github.com/criapa/DOE-PE/internal/report"
	"github.com/criapa/DOE-PE/internal/scan"
)

// ReportMode selects when reports are written
type ReportMode string

const (
	// ModeBatch writes one set of reports over every document of the run
	ModeBatch ReportMode = "batch"
	// ModePerDocument writes one set of reports per document
	ModePerDocument ReportMode = "per-document"
)

// ParseReportMode accepts batch or per-document; empty means batch
func ParseReportMode(raw string) (ReportMode, error) {
	switch ReportMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeBatch:
		return ModeBatch, nil
	case ModePerDocument:
		return ModePerDocument, nil
	default:
		return "", fmt.Errorf("invalid report mode %q: want batch or per-document", raw)
	}
}

// Extractor returns the text of every page of a PDF
type Extractor interface {
	ExtractPages(path string) ([]scan.Page, error)
}

// ReportWriter persists a scan result
type ReportWriter interface {
	WriteAll(result scan.ScanResult) (report.Artifacts, error)
}

// Pipeline wires the collaborators of a run. The zero value is not usable;
// construct with New.
type Pipeline struct {
	acquirer  acquire.Acquirer
	extractor Extractor
	scanner   *scan.Scanner
	writer    ReportWriter
	publisher alert.Publisher
	mode      ReportMode
	log       *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithPublisher forwards high-impact findings to pub
func WithPublisher(pub alert.Publisher) Option {
	return func(p *Pipeline) {
		if pub != nil {
			p.publisher = pub
		}
	}
}

// WithReportMode sets when reports are written
func WithReportMode(mode ReportMode) Option {
	return func(p *Pipeline) {
		p.mode = mode
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.log = logger.OrDiscard(l)
	}
}

// WithClock sets the time source for run timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a pipeline
func New(acq acquire.Acquirer, ext Extractor, scanner *scan.Scanner, writer ReportWriter, opts ...Option) *Pipeline {
	p := &Pipeline{
		acquirer:  acq,
		extractor: ext,
		scanner:   scanner,
		writer:    writer,
		publisher: alert.NopPublisher{},
		mode:      ModeBatch,
		log:       logger.OrDiscard(nil),
		now:       time.Now,
		newID:     newRunID,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// Run processes every target in order. A target that cannot be acquired or
// extracted is recorded and skipped. Report write failures abort the run.
func (p *Pipeline) Run(ctx context.Context, targets []acquire.Target) (*RunSummary, error) {
	sources := make([]source, 0, len(targets))
	for _, t := range targets {
		sources = append(sources, source{
			label: t.String(),
			resolve: func(ctx context.Context) (string, error) {
				return p.acquirer.Acquire(ctx, t)
			},
		})
	}
	return p.run(ctx, sources)
}

// RunFiles is Run over local PDFs, skipping acquisition
func (p *Pipeline) RunFiles(ctx context.Context, paths []string) (*RunSummary, error) {
	sources := make([]source, 0, len(paths))
	for _, path := range paths {
		sources = append(sources, source{
			label:   path,
			resolve: func(context.Context) (string, error) { return path, nil },
		})
	}
	return p.run(ctx, sources)
}

// ScanFile extracts and scans one PDF without writing reports
func (p *Pipeline) ScanFile(path string) (scan.ScanResult, error) {
	pages, err := p.extractor.ExtractPages(path)
	if err != nil {
		return scan.ScanResult{}, err
	}
	return p.scanner.Scan(pages, filepath.Base(path)), nil
}

type source struct {
	label   string
	resolve func(context.Context) (string, error)
}

func (p *Pipeline) run(ctx context.Context, sources []source) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     p.newID(),
		Mode:      p.mode,
		StartedAt: p.now(),
	}
	log := p.log.With(slog.String("run_id", summary.RunID))
	log.Info("run started", slog.Int("targets", len(sources)), slog.String("mode", string(p.mode)))

	var total scan.ScanResult
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			summary.finish(p.now(), total)
			return summary, err
		}

		outcome, result := p.process(ctx, log, src)
		summary.Targets = append(summary.Targets, outcome)
		if outcome.Status != StatusOK {
			if err := ctx.Err(); err != nil {
				summary.finish(p.now(), total)
				return summary, err
			}
			continue
		}
		total.Merge(result)

		if p.mode == ModePerDocument && !result.Empty() {
			if err := p.emit(ctx, log, summary, result); err != nil {
				summary.finish(p.now(), total)
				return summary, err
			}
		}
	}

	if p.mode != ModePerDocument && !total.Empty() {
		if err := p.emit(ctx, log, summary, total); err != nil {
			summary.finish(p.now(), total)
			return summary, err
		}
	}

	summary.finish(p.now(), total)
	if total.Empty() {
		log.Info("nothing relevant found", slog.Int("documents", total.Documents))
	}
	log.Info("run finished",
		slog.Int("findings", summary.Stats.Findings),
		slog.Int("high_impact", summary.Stats.HighImpact),
		slog.Int("failed", summary.Failed()),
		slog.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

func (p *Pipeline) process(ctx context.Context, log *slog.Logger, src source) (TargetOutcome, scan.ScanResult) {
	outcome := TargetOutcome{Target: src.label}

	path, err := src.resolve(ctx)
	if err != nil {
		outcome.Error = err.Error()
		outcome.Status = StatusFailed
		if errors.Is(err, acquire.ErrNotAvailable) {
			outcome.Status = StatusNotAvailable
		}
		log.Warn("acquisition failed", slog.String("target", src.label), slog.Any("err", err))
		return outcome, scan.ScanResult{}
	}
	outcome.Path = path

	result, err := p.ScanFile(path)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		log.Warn("extraction failed", slog.String("target", src.label), slog.String("path", path), slog.Any("err", err))
		return outcome, scan.ScanResult{}
	}

	outcome.Status = StatusOK
	outcome.Pages = result.PagesScanned + result.PagesSkipped
	outcome.Findings = len(result.Findings)
	log.Info("document scanned",
		slog.String("target", src.label),
		slog.String("path", path),
		slog.Int("pages", outcome.Pages),
		slog.Int("findings", outcome.Findings),
	)
	return outcome, result
}

// emit writes reports and then forwards high-impact findings. Alert
// failures are logged only.
func (p *Pipeline) emit(ctx context.Context, log *slog.Logger, summary *RunSummary, result scan.ScanResult) error {
	arts, err := p.writer.WriteAll(result)
	if err != nil {
		return fmt.Errorf("write reports: %w", err)
	}
	summary.Artifacts = append(summary.Artifacts, arts)
	log.Info("reports written", slog.Any("paths", arts.Paths()))

	high := result.HighImpact()
	if len(high) == 0 {
		return nil
	}
	log.Warn("high-impact findings", slog.Int("count", len(high)), slog.String("csv", arts.CSV))

	sent, err := p.publisher.Publish(ctx, summary.RunID, high)
	if err != nil {
		log.Error("alert publish failed", slog.Any("err", err))
		return nil
	}
	summary.AlertsSent += sent
	return nil
}

// ParseTargets parses command-line targets; no arguments means latest.
// Repeated targets are kept once.
func ParseTargets(args []string) ([]acquire.Target, error) {
	if len(args) == 0 {
		return []acquire.Target{acquire.LatestTarget()}, nil
	}

	seen := make(map[acquire.Target]bool, len(args))
	targets := make([]acquire.Target, 0, len(args))
	for _, arg := range args {
		t, err := acquire.ParseTarget(arg)
		if err != nil {
			return nil, err
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		targets = append(targets, t)
	}
	return targets, nil
}

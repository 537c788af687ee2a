// Package schedule runs a job on a cron spec until the context is cancelled.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/criapa/DOE-PE/internal/logger"
)

// Job is one scheduled execution
type Job func(ctx context.Context) error

// Scheduler triggers a job on a standard five-field cron spec. Overlapping
// triggers are skipped while a run is still in progress.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	job      Job
	log      *slog.Logger
	location *time.Location

	mu      sync.Mutex
	running bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLocation evaluates the spec in loc instead of local time
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.log = logger.OrDiscard(l)
	}
}

// New parses spec and binds job to it
func New(spec string, job Job, opts ...Option) (*Scheduler, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	s := &Scheduler{
		spec:     spec,
		schedule: sched,
		job:      job,
		log:      logger.OrDiscard(nil),
		location: time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Next returns the first activation after t
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

// Run blocks until ctx is cancelled, firing the job at each activation.
// Job errors are logged; they never stop the scheduler.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.location))
	c.Schedule(s.schedule, cron.FuncJob(func() { s.Trigger(ctx) }))

	s.log.Info("scheduler started",
		slog.String("spec", s.spec),
		slog.Time("next", s.Next(time.Now())),
	)
	c.Start()

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	s.log.Info("scheduler stopped")
	return nil
}

// Trigger runs the job now unless a run is already in progress. It reports
// whether the job was started.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("previous run still in progress, skipping")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.log.Error("scheduled run failed", slog.Any("err", err), slog.Duration("elapsed", time.Since(start)))
		return true
	}
	s.log.Info("scheduled run finished",
		slog.Duration("elapsed", time.Since(start)),
		slog.Time("next", s.Next(time.Now())),
	)
	return true
}

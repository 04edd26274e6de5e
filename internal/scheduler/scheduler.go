// Package scheduler runs recurring jobs, such as district broadcasts, on
// cron schedules with a seconds field.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is the work run on each tick.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	schedule string
	fn       JobFunc
	entry    cron.EntryID
}

// Scheduler runs registered jobs until its Run context is cancelled. A job
// still running when its next tick fires is skipped for that tick.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*job
	ctx  context.Context
}

// New creates a Scheduler. Each job run is bounded by timeout.
func New(timeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		timeout: timeout,
		logger:  logger,
		jobs:    make(map[string]*job),
		ctx:     context.Background(),
	}
}

// Register adds a named job. The schedule has six fields, seconds first, or
// is a descriptor such as "@hourly".
func (s *Scheduler) Register(name, schedule string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}

	j := &job{name: name, schedule: schedule, fn: fn}
	id, err := s.cron.AddFunc(schedule, func() { s.runJob(j) })
	if err != nil {
		return fmt.Errorf("job %q: invalid schedule %q: %w", name, schedule, err)
	}
	j.entry = id
	s.jobs[name] = j
	s.logger.Info("job registered", "name", name, "schedule", schedule)
	return nil
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	n := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", n)
	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// RunNow runs a registered job synchronously and returns its error.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}
	return s.execute(ctx, j)
}

// Next returns when the named job fires next, or the zero time while the
// scheduler is not running.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(j.entry).Next
}

func (s *Scheduler) runJob(j *job) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	_ = s.execute(ctx, j)
}

func (s *Scheduler) execute(ctx context.Context, j *job) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	s.logger.Info("job started", "name", j.name)
	err := j.fn(ctx)
	if err != nil {
		s.logger.Error("job failed", "name", j.name, "duration", time.Since(start), "error", err)
		return err
	}
	s.logger.Info("job completed", "name", j.name, "duration", time.Since(start))
	return nil
}

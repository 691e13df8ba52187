package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/serialstock/pkg/logger"
	"github.com/angelmondragon/serialstock/pkg/metrics"
)

const defaultInterval = time.Minute

// SchedulerParams configure a Scheduler. Logger and Lock are required.
type SchedulerParams struct {
	Name     string
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Scheduler runs its registered jobs while holding a sweep lock, waiting
// Interval between the end of one cycle and the start of the next. The
// expiry and payment sweeps each get their own Scheduler.
type Scheduler struct {
	name     string
	logg     *logger.Logger
	jobs     *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewScheduler(p SchedulerParams) (*Scheduler, error) {
	var err error
	if p.Logger == nil {
		err = multierr.Append(err, errors.New("logger required"))
	}
	if p.Lock == nil {
		err = multierr.Append(err, errors.New("lock required"))
	}
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		name:     p.Name,
		logg:     p.Logger,
		jobs:     p.Registry,
		lock:     p.Lock,
		metrics:  p.Metrics,
		interval: p.Interval,
	}
	if s.name == "" {
		s.name = "cron"
	}
	if s.jobs == nil {
		s.jobs = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	return s, nil
}

// Run performs one cycle immediately and then one per interval until ctx is
// done. Cycle failures are logged; only cancellation ends the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"scheduler": s.name,
		"interval":  s.interval.String(),
		"jobs":      s.jobs.Names(),
	})
	s.logg.Info(ctx, "scheduler started")

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			if _, err := s.cycle(ctx); err != nil {
				s.logg.Error(ctx, "sweep cycle failed", err)
			}
			timer.Reset(s.interval)
		}
	}
}

// cycle reports whether the lock was won. Job errors do not fail the cycle.
func (s *Scheduler) cycle(ctx context.Context) (bool, error) {
	won, err := s.lock.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !won {
		s.metrics.IncSkipped(s.name)
		s.logg.Debug(ctx, "sweep lock held elsewhere, skipping cycle")
		return false, nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "sweep lock release failed")
		}
	}()

	for _, job := range s.jobs.Jobs() {
		if ctx.Err() != nil {
			break
		}
		s.runJob(ctx, job)
	}
	return true, nil
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	started := time.Now()
	err := guard(ctx, job)
	took := time.Since(started)
	s.metrics.ObserveRun(job.Name(), took, err)

	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "sweep job failed", err)
		return
	}
	s.logg.Debug(ctx, "sweep job finished")
}

// guard turns a job panic into an error so one bad job cannot kill the worker.
func guard(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	return job.Run(ctx)
}

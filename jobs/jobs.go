// Package jobs runs recurring maintenance work on a shared goroutine
// pool, scheduled by cron expressions.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"

	"github.com/kochabx/membership/log"
)

// Job is a named recurring task.
type Job struct {
	Name string
	Spec string // standard 5-field cron expression, @every syntax allowed
	Run  func(ctx context.Context) error
}

// Runner schedules jobs and executes their firings on a worker pool.
type Runner struct {
	cron    *cron.Cron
	pool    *ants.Pool
	logger  *log.Logger
	running atomic.Bool
}

// Option configures the Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a runner with a pool of the given size.
func NewRunner(concurrency int, opts ...Option) (*Runner, error) {
	if concurrency <= 0 {
		concurrency = 5
	}

	pool, err := ants.NewPool(concurrency, ants.WithPreAlloc(true))
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		))),
		pool: pool,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.G
	}

	return r, nil
}

// Register schedules a job. Each firing is submitted to the pool, a
// full pool drops the firing rather than blocking the cron loop.
func (r *Runner) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("jobs: name and run function are required")
	}

	_, err := r.cron.AddFunc(job.Spec, func() {
		submitErr := r.pool.Submit(func() {
			start := time.Now()
			if err := job.Run(context.Background()); err != nil {
				r.logger.Error().Err(err).Str("job", job.Name).Dur("duration", time.Since(start)).Msg("job failed")
				return
			}
			r.logger.Debug().Str("job", job.Name).Dur("duration", time.Since(start)).Msg("job finished")
		})
		if submitErr != nil {
			r.logger.Warn().Err(submitErr).Str("job", job.Name).Msg("job submission rejected")
		}
	})
	if err != nil {
		return fmt.Errorf("jobs: schedule %s: %w", job.Name, err)
	}

	r.logger.Info().Str("job", job.Name).Str("spec", job.Spec).Msg("job registered")
	return nil
}

// Start begins firing schedules.
func (r *Runner) Start() {
	if !r.running.CompareAndSwap(false, true) {
		return
	}
	r.cron.Start()
	r.logger.Info().Msg("job runner started")
}

// Stop halts scheduling and waits for in-flight jobs.
func (r *Runner) Stop(ctx context.Context) error {
	if !r.running.CompareAndSwap(true, false) {
		return nil
	}

	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		r.logger.Warn().Msg("job runner stop timeout")
	}

	r.pool.Release()
	r.logger.Info().Msg("job runner stopped")
	return nil
}

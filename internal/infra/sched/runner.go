// File: internal/infra/sched/runner.go
package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"payment-gateway-service/internal/infra/metrics"
	"payment-gateway-service/internal/infra/redis"
)

// Job is one scheduled unit of work. Jobs are stateless between runs; all
// progress lives in the database so any instance can pick up a tick.
type Job interface {
	Name() string
	Interval() time.Duration
	// RunOnStart triggers an immediate run after the startup delay, before
	// the first ticker fire.
	RunOnStart() bool
	Run(ctx context.Context) error
}

// Runner drives a set of Jobs on their intervals, serializing each job
// across instances with a redis lock keyed by job name.
type Runner struct {
	jobs         []Job
	locker       redis.Locker
	startupDelay time.Duration
	log          *zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(jobs []Job, locker redis.Locker, startupDelay time.Duration, logger *zerolog.Logger) *Runner {
	runLog := logger.With().Str("component", "Runner").Logger()
	return &Runner{jobs: jobs, locker: locker, startupDelay: startupDelay, log: &runLog}
}

// Start launches one goroutine per job. Calling Start twice has no effect.
func (r *Runner) Start(parentCtx context.Context) {
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	r.cancel = cancel

	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}
	r.log.Info().Int("jobs", len(r.jobs)).Msg("scheduler started")
}

// Stop cancels all job loops and waits for in-flight runs to finish.
func (r *Runner) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
	r.log.Info().Msg("scheduler stopped")
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	select {
	case <-ctx.Done():
		return
	case <-time.After(r.startupDelay):
	}

	if job.RunOnStart() {
		r.runOnce(ctx, job)
	}

	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Str("job", job.Name()).Msg("stopping job loop")
			return
		case <-ticker.C:
			r.runOnce(ctx, job)
		}
	}
}

// runOnce executes one guarded run. The lock TTL matches the run timeout
// so a crashed holder frees the job for the next tick.
func (r *Runner) runOnce(ctx context.Context, job Job) {
	timeout := job.Interval()
	if timeout > 10*time.Minute {
		timeout = 10 * time.Minute
	}

	lockKey := "jobs:lock:" + job.Name()
	token, err := r.locker.TryLock(ctx, lockKey, timeout)
	if err != nil {
		if errors.Is(err, redis.ErrLockHeld) {
			metrics.IncJobLockSkip(job.Name())
			r.log.Debug().Str("job", job.Name()).Msg("lock held elsewhere, skipping run")
			return
		}
		r.log.Error().Err(err).Str("job", job.Name()).Msg("lock acquisition failed")
		return
	}
	defer func() {
		if uerr := r.locker.Unlock(context.Background(), lockKey, token); uerr != nil {
			r.log.Warn().Err(uerr).Str("job", job.Name()).Msg("unlock failed")
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err = job.Run(runCtx)
	metrics.ObserveJobRun(job.Name(), time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		r.log.Error().Err(err).Str("job", job.Name()).Msg("job run failed")
	}
}

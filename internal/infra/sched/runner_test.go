//go:build !integration

package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"payment-gateway-service/internal/infra/redis"
)

type countingJob struct {
	name     string
	interval time.Duration
	onStart  bool
	runs     atomic.Int32
}

func (j *countingJob) Name() string            { return j.name }
func (j *countingJob) Interval() time.Duration { return j.interval }
func (j *countingJob) RunOnStart() bool        { return j.onStart }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return nil
}

// freeLocker always grants the lock.
type freeLocker struct{}

func (freeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "token", nil
}
func (freeLocker) Unlock(ctx context.Context, key, token string) error { return nil }

// heldLocker always reports the lock as taken elsewhere.
type heldLocker struct{}

func (heldLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", redis.ErrLockHeld
}
func (heldLocker) Unlock(ctx context.Context, key, token string) error { return nil }

// recordingLocker tracks lock keys used.
type recordingLocker struct {
	mu   sync.Mutex
	keys []string
}

func (l *recordingLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return "token", nil
}
func (l *recordingLocker) Unlock(ctx context.Context, key, token string) error { return nil }

func TestRunner(t *testing.T) {
	t.Run("should run job on start and on ticks", func(t *testing.T) {
		job := &countingJob{name: "tick", interval: 20 * time.Millisecond, onStart: true}
		r := NewRunner([]Job{job}, freeLocker{}, 0, newTestLogger())

		r.Start(context.Background())
		time.Sleep(90 * time.Millisecond)
		r.Stop()

		if got := job.runs.Load(); got < 2 {
			t.Errorf("runs = %d, want at least 2", got)
		}
	})

	t.Run("should skip runs when lock is held elsewhere", func(t *testing.T) {
		job := &countingJob{name: "locked", interval: 10 * time.Millisecond, onStart: true}
		r := NewRunner([]Job{job}, heldLocker{}, 0, newTestLogger())

		r.Start(context.Background())
		time.Sleep(50 * time.Millisecond)
		r.Stop()

		if got := job.runs.Load(); got != 0 {
			t.Errorf("runs = %d, want 0 while lock held", got)
		}
	})

	t.Run("should key the lock by job name", func(t *testing.T) {
		job := &countingJob{name: "keyed", interval: time.Hour, onStart: true}
		locker := &recordingLocker{}
		r := NewRunner([]Job{job}, locker, 0, newTestLogger())

		r.Start(context.Background())
		time.Sleep(30 * time.Millisecond)
		r.Stop()

		locker.mu.Lock()
		defer locker.mu.Unlock()
		if len(locker.keys) == 0 || locker.keys[0] != "jobs:lock:keyed" {
			t.Errorf("lock keys = %v", locker.keys)
		}
	})

	t.Run("should honor startup delay before first run", func(t *testing.T) {
		job := &countingJob{name: "delayed", interval: time.Hour, onStart: true}
		r := NewRunner([]Job{job}, freeLocker{}, 200*time.Millisecond, newTestLogger())

		r.Start(context.Background())
		time.Sleep(50 * time.Millisecond)
		if got := job.runs.Load(); got != 0 {
			t.Errorf("runs = %d before startup delay elapsed", got)
		}
		r.Stop()
	})
}

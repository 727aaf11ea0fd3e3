package sched

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"payment-gateway-service/internal/usecase"
)

// NotificationWorker periodically publishes recent status changes to the
// broadcast channel so consumers that missed a webhook-time publish still
// converge.
type NotificationWorker struct {
	interval time.Duration
	limit    int
	uc       usecase.NotificationUseCase
	log      *zerolog.Logger

	mu      sync.Mutex
	lastRun time.Time
}

func NewNotificationWorker(interval time.Duration, limit int, uc usecase.NotificationUseCase, logger *zerolog.Logger) *NotificationWorker {
	notifLog := logger.With().Str("component", "NotificationWorker").Logger()
	if limit <= 0 {
		limit = 200
	}
	return &NotificationWorker{
		interval: interval,
		limit:    limit,
		uc:       uc,
		log:      &notifLog,
		lastRun:  time.Now(),
	}
}

func (w *NotificationWorker) Name() string            { return "status_broadcast" }
func (w *NotificationWorker) Interval() time.Duration { return w.interval }
func (w *NotificationWorker) RunOnStart() bool        { return false }

func (w *NotificationWorker) Run(ctx context.Context) error {
	w.mu.Lock()
	since := w.lastRun
	w.mu.Unlock()

	start := time.Now()
	n, err := w.uc.BroadcastStatusChanges(ctx, since, w.limit)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.lastRun = start
	w.mu.Unlock()

	if n > 0 {
		w.log.Info().Int("count", n).Msg("status changes broadcast")
	}
	return nil
}

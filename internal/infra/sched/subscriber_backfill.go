package sched

import (
	"context"
	"time"

	"funnel-billing/internal/infra/logging"
	"funnel-billing/internal/infra/metrics"
	"funnel-billing/internal/usecase"

	"github.com/rs/zerolog"
)

// SubscriberBackfill retries gateway subscriber lookups for recurring subscriptions that
// were stored without one, e.g. when the lookup raced the gateway's own bookkeeping.
type SubscriberBackfill struct {
	reconciler usecase.SubscriberReconciler
	interval   time.Duration // how often to scan
	minAge     time.Duration // how old a subscription must be to retry
	batchSize  int
	log        *zerolog.Logger
}

func NewSubscriberBackfill(reconciler usecase.SubscriberReconciler, interval, minAge time.Duration, logger *zerolog.Logger) *SubscriberBackfill {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if minAge <= 0 {
		minAge = 5 * time.Minute
	}
	l := logger.With().Str("component", "SubscriberBackfill").Logger()
	return &SubscriberBackfill{reconciler: reconciler, interval: interval, minAge: minAge, batchSize: 200, log: &l}
}

func (w *SubscriberBackfill) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *SubscriberBackfill) tick(ctx context.Context) {
	defer logging.TraceDuration(w.log, "SubscriberBackfill.tick")()

	n, err := w.reconciler.Backfill(ctx, w.minAge, w.batchSize)
	if err != nil {
		metrics.IncScheduledRun("subscriber_backfill", "error")
		w.log.Error().Err(err).Msg("subscriber backfill failed")
		return
	}
	metrics.IncScheduledRun("subscriber_backfill", "ok")
	if n > 0 {
		w.log.Info().Int("count", n).Msg("subscriber ids backfilled")
	}
}

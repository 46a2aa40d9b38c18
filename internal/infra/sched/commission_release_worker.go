package sched

import (
	"context"
	"time"

	"funnel-billing/internal/infra/logging"
	"funnel-billing/internal/infra/metrics"
	"funnel-billing/internal/usecase"

	"github.com/rs/zerolog"
)

// CommissionReleaseWorker periodically matures held commissions via the use case.
type CommissionReleaseWorker struct {
	interval  time.Duration
	batchSize int
	uc        usecase.CommissionReleaseUseCase
	log       *zerolog.Logger
}

func NewCommissionReleaseWorker(interval time.Duration, batchSize int, uc usecase.CommissionReleaseUseCase, logger *zerolog.Logger) *CommissionReleaseWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	l := logger.With().Str("component", "CommissionReleaseWorker").Logger()
	return &CommissionReleaseWorker{interval: interval, batchSize: batchSize, uc: uc, log: &l}
}

func (w *CommissionReleaseWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting commission release worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping commission release worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *CommissionReleaseWorker) tick(ctx context.Context) {
	defer logging.TraceDuration(w.log, "CommissionReleaseWorker.tick")()

	rep, err := w.uc.ReleaseDue(ctx, w.batchSize)
	if err != nil {
		metrics.IncScheduledRun("commission_release", "error")
		w.log.Error().Err(err).Msg("commission release sweep failed")
		return
	}
	metrics.IncScheduledRun("commission_release", "ok")
	if rep.Released > 0 {
		metrics.AddCommissionReleased(rep.Amount)
		w.log.Info().Int("released", rep.Released).Str("amount", rep.Amount.StringFixed(2)).Msg("commissions released")
	}
	if rep.Failed > 0 {
		w.log.Warn().Int("failed", rep.Failed).Msg("some commissions could not be released")
	}
}

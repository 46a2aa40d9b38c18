package worker

import (
	"context"
	"time"

	"funnel-billing/internal/infra/metrics"
	"funnel-billing/internal/usecase"

	"github.com/rs/zerolog"
)

const defaultEffectTimeout = 30 * time.Second

// EffectDispatcher runs post-commit side effects on a Pool. Effects are detached from the
// request context, bounded by a timeout and never retried.
type EffectDispatcher struct {
	pool    *Pool
	timeout time.Duration
	log     *zerolog.Logger
}

var _ usecase.SideEffects = (*EffectDispatcher)(nil)

func NewEffectDispatcher(pool *Pool, timeout time.Duration, logger *zerolog.Logger) *EffectDispatcher {
	if timeout <= 0 {
		timeout = defaultEffectTimeout
	}
	l := logger.With().Str("component", "EffectDispatcher").Logger()
	return &EffectDispatcher{pool: pool, timeout: timeout, log: &l}
}

func (d *EffectDispatcher) Dispatch(ctx context.Context, name string, fn func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)
	err := d.pool.Submit(func(_ context.Context) error {
		runCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		if err := fn(runCtx); err != nil {
			metrics.IncSideEffect(name, "failed")
			d.log.Warn().Err(err).Str("effect", name).Msg("side effect failed")
			return err
		}
		metrics.IncSideEffect(name, "ok")
		return nil
	})
	if err != nil {
		metrics.IncSideEffect(name, "dropped")
		d.log.Warn().Err(err).Str("effect", name).Msg("side effect dropped")
	}
}

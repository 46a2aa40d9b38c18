//go:build !integration

package sched

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"funnel-billing/internal/usecase"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

type MockReleaseUC struct {
	calls  int
	limits []int
	report *usecase.ReleaseReport
	err    error
}

func (m *MockReleaseUC) ReleaseDue(ctx context.Context, limit int) (*usecase.ReleaseReport, error) {
	m.calls++
	m.limits = append(m.limits, limit)
	return m.report, m.err
}

type MockReconciler struct {
	calls  int
	minAge time.Duration
	n      int
	err    error
}

func (m *MockReconciler) Reconcile(ctx context.Context, subscriptionID, externalID string) error {
	return nil
}

func (m *MockReconciler) Backfill(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	m.calls++
	m.minAge = minAge
	return m.n, m.err
}

func TestCommissionReleaseWorker_Tick(t *testing.T) {
	t.Run("passes the batch size", func(t *testing.T) {
		uc := &MockReleaseUC{report: &usecase.ReleaseReport{Released: 2, Amount: decimal.NewFromInt(125)}}
		w := NewCommissionReleaseWorker(time.Minute, 50, uc, newTestLogger())

		w.tick(context.Background())

		if uc.calls != 1 || uc.limits[0] != 50 {
			t.Errorf("expected one call with limit 50, got %d %v", uc.calls, uc.limits)
		}
	})

	t.Run("survives a failing sweep", func(t *testing.T) {
		uc := &MockReleaseUC{err: errors.New("db down")}
		w := NewCommissionReleaseWorker(time.Minute, 0, uc, newTestLogger())

		w.tick(context.Background())
		w.tick(context.Background())

		if uc.calls != 2 || uc.limits[0] != 500 {
			t.Errorf("expected two calls with default limit, got %d %v", uc.calls, uc.limits)
		}
	})
}

func TestCommissionReleaseWorker_RunStopsOnCancel(t *testing.T) {
	uc := &MockReleaseUC{report: &usecase.ReleaseReport{Amount: decimal.Zero}}
	w := NewCommissionReleaseWorker(5*time.Millisecond, 10, uc, newTestLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the context error, got %v", err)
	}
}

func TestSubscriberBackfill_Tick(t *testing.T) {
	r := &MockReconciler{n: 3}
	w := NewSubscriberBackfill(r, time.Minute, 0, newTestLogger())

	w.tick(context.Background())

	if r.calls != 1 || r.minAge != 5*time.Minute {
		t.Errorf("expected one call with the default age, got %d %s", r.calls, r.minAge)
	}
}

package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cashpeg/pegvault/internal/history"
	"github.com/cashpeg/pegvault/internal/oracle"
)

// Runner executes one planning cycle.
type Runner interface {
	RunCycle(ctx context.Context) (history.Record, error)
}

// RebalanceWorker runs planning cycles on an interval. Each run is
// independent; if two keepers race, the ledger's double-spend
// protection lets exactly one transition through and the loser's
// assembler fails with a stale input, which is logged and retried on
// the next tick.
type RebalanceWorker struct {
	runner   Runner
	interval time.Duration
}

// NewRebalanceWorker creates a new RebalanceWorker.
func NewRebalanceWorker(runner Runner, interval time.Duration) *RebalanceWorker {
	return &RebalanceWorker{
		runner:   runner,
		interval: interval,
	}
}

// Run starts the rebalance loop. It blocks until the context is
// cancelled.
func (w *RebalanceWorker) Run(ctx context.Context) {
	slog.Info("RebalanceWorker: starting")

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("RebalanceWorker: shutting down")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *RebalanceWorker) runOnce(ctx context.Context) {
	rec, err := w.runner.RunCycle(ctx)
	switch {
	case err == nil:
		slog.Info("RebalanceWorker: cycle completed", "id", rec.ID, "outcome", rec.Outcome)
	case errors.Is(err, oracle.ErrStaleQuote):
		slog.Warn("RebalanceWorker: skipping cycle on stale quote", "error", err)
	case errors.Is(err, ErrNoAuthority):
		slog.Error("RebalanceWorker: authority token missing, cannot rebalance", "error", err)
	default:
		slog.Error("RebalanceWorker: cycle failed", "error", err)
	}
}

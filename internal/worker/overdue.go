package worker

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper moves reports past their due date to overdue.
type Sweeper interface {
	SweepOverdue(ctx context.Context) (int, error)
}

// OverdueWorker periodically runs the overdue sweep
type OverdueWorker struct {
	sweeper  Sweeper
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewOverdueWorker creates a new overdue worker
func NewOverdueWorker(sweeper Sweeper, logger *slog.Logger, interval time.Duration) *OverdueWorker {
	return &OverdueWorker{
		sweeper:  sweeper,
		logger:   logger,
		interval: interval,
		timeout:  time.Minute,
	}
}

// Start runs one sweep immediately and then one per interval until ctx is
// cancelled.
func (w *OverdueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("overdue worker started", slog.Duration("interval", w.interval))

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("overdue worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and logs the outcome.
func (w *OverdueWorker) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	marked, err := w.sweeper.SweepOverdue(ctx)
	if err != nil {
		w.logger.Error("overdue sweep failed", slog.String("error", err.Error()))
		return
	}

	if marked > 0 {
		w.logger.Info("reports marked overdue", slog.Int("count", marked))
	}
}

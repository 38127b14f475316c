package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StaleFailer fails PROCESSING calculations started before a cutoff.
// store.Store satisfies it.
type StaleFailer interface {
	FailStaleCalculations(ctx context.Context, startedBefore time.Time, message string) (int64, error)
}

// Reaper periodically fails calculations stuck in PROCESSING for longer
// than the processing timeout, which happens when a worker dies mid-task.
type Reaper struct {
	store    StaleFailer
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewReaper(s StaleFailer, timeout, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reaper{store: s, timeout: timeout, interval: interval, now: time.Now}
}

// AbandonedMessage is the error stored on calculations failed by the reaper.
func AbandonedMessage(timeout time.Duration) string {
	return fmt.Sprintf("Calculation abandoned: worker did not finish within %s", timeout)
}

// Sweep runs one reconciliation pass and returns how many jobs it failed.
func (r *Reaper) Sweep(ctx context.Context) (int64, error) {
	cutoff := r.now().UTC().Add(-r.timeout)
	n, err := r.store.FailStaleCalculations(ctx, cutoff, AbandonedMessage(r.timeout))
	if err != nil {
		return 0, fmt.Errorf("fail stale calculations: %w", err)
	}
	if n > 0 {
		slog.Warn("failed abandoned calculations", "count", n, "started_before", cutoff)
	}
	return n, nil
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
			slog.Error("reaper sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

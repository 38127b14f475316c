// Package market collects USDT/BOB market data: P2P advertisement snapshots
// from Binance and the official exchange rate from the BCB.
package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/elasticbot/internal/cache"
	"github.com/kiranshivaraju/elasticbot/internal/queue"
	"github.com/kiranshivaraju/elasticbot/internal/store"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
	"golang.org/x/sync/errgroup"
)

const (
	collectLockName = "collect_p2p"
	collectLockTTL  = 5 * time.Minute
	rateSource      = "BCB"
)

// Locker takes short-lived named locks. cache.Cache satisfies it.
type Locker interface {
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	DeleteIfValue(ctx context.Context, key string, value []byte) (bool, error)
}

// CollectOutcome describes what a P2P collection run did.
type CollectOutcome string

const (
	OutcomeCollected   CollectOutcome = "collected"
	OutcomeLocked      CollectOutcome = "skipped_locked"
	OutcomeTooRecent   CollectOutcome = "skipped_recent"
	OutcomeNoSellPrice CollectOutcome = "skipped_no_sell_ads"
)

// Options tunes a Collector.
type Options struct {
	MinInterval time.Duration
	Retention   time.Duration
}

// Collector runs the periodic market data tasks.
type Collector struct {
	store store.MarketStore
	locks Locker
	p2p   P2PSource
	rates RateSource
	opts  Options
	now   func() time.Time
}

func NewCollector(s store.MarketStore, locks Locker, p2p P2PSource, rates RateSource, opts Options) *Collector {
	if opts.MinInterval <= 0 {
		opts.MinInterval = 15 * time.Minute
	}
	if opts.Retention <= 0 {
		opts.Retention = 90 * 24 * time.Hour
	}
	return &Collector{store: s, locks: locks, p2p: p2p, rates: rates, opts: opts, now: time.Now}
}

// CollectP2P fetches sell and buy ads, aggregates them into a scored
// snapshot and stores it. Runs are serialized by a lock and skipped when the
// latest snapshot is younger than the minimum interval.
func (c *Collector) CollectP2P(ctx context.Context) (*models.MarketSnapshot, CollectOutcome, error) {
	lockKey := cache.LockKey(collectLockName)
	token := []byte(uuid.NewString())
	acquired, err := c.locks.SetNX(ctx, lockKey, token, collectLockTTL)
	switch {
	case err != nil:
		slog.Warn("collector lock unavailable, proceeding without it", "error", err)
	case !acquired:
		slog.Info("p2p collection already running, skipping")
		return nil, OutcomeLocked, nil
	default:
		defer func() {
			// The lock may have expired and been taken by a later run; only
			// release it while it still carries this run's token.
			released, err := c.locks.DeleteIfValue(context.WithoutCancel(ctx), lockKey, token)
			switch {
			case err != nil:
				slog.Warn("failed to release collector lock", "error", err)
			case !released:
				slog.Warn("collector lock expired before the run finished", "ttl", collectLockTTL)
			}
		}()
	}

	now := c.now().UTC()
	last, err := c.store.LatestSnapshotAt(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, "", fmt.Errorf("latest snapshot: %w", err)
	case now.Sub(last) < c.opts.MinInterval:
		slog.Info("latest snapshot is recent, skipping collection",
			"latest", last, "min_interval", c.opts.MinInterval)
		return nil, OutcomeTooRecent, nil
	}

	var sell, buy []Ad
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sell, err = c.p2p.FetchAds(gctx, TradeSell)
		return err
	})
	g.Go(func() (err error) {
		buy, err = c.p2p.FetchAds(gctx, TradeBuy)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, "", fmt.Errorf("fetch p2p ads: %w", err)
	}

	snap := Aggregate(sell, buy, now)
	if snap.AverageSellPrice == 0 {
		slog.Warn("no usable sell ads, snapshot not stored", "sell_ads", len(sell), "buy_ads", len(buy))
		return nil, OutcomeNoSellPrice, nil
	}
	snap.CreatedAt = now
	if err := c.store.InsertSnapshot(ctx, snap); err != nil {
		return nil, "", fmt.Errorf("insert snapshot: %w", err)
	}

	slog.Info("market snapshot stored",
		"average_sell_price", snap.AverageSellPrice,
		"total_volume", snap.TotalVolume,
		"traders", snap.NumActiveTraders,
		"quality", snap.DataQualityScore,
	)
	return snap, OutcomeCollected, nil
}

// RefreshExchangeRate stores today's official rate, replacing any earlier
// value for the same date.
func (c *Collector) RefreshExchangeRate(ctx context.Context) (*models.ExchangeRate, error) {
	rate, err := c.rates.FetchRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch official rate: %w", err)
	}

	now := c.now().UTC()
	er := &models.ExchangeRate{
		Date:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Sell:      rate.Sell,
		Buy:       rate.Buy,
		Source:    rateSource,
		UpdatedAt: now,
	}
	if err := c.store.UpsertExchangeRate(ctx, er); err != nil {
		return nil, fmt.Errorf("upsert exchange rate: %w", err)
	}
	slog.Info("official exchange rate stored", "sell", er.Sell, "buy", er.Buy, "date", er.Date.Format(time.DateOnly))
	return er, nil
}

// Cleanup deletes snapshots older than the retention period.
func (c *Collector) Cleanup(ctx context.Context) (int64, error) {
	cutoff := c.now().UTC().Add(-c.opts.Retention)
	n, err := c.store.DeleteSnapshotsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old snapshots: %w", err)
	}
	slog.Info("old market snapshots deleted", "count", n, "cutoff", cutoff)
	return n, nil
}

// Handlers returns the task handlers for the collector kinds.
func (c *Collector) Handlers() map[string]func(context.Context, queue.Task) error {
	return map[string]func(context.Context, queue.Task) error{
		queue.KindCollectP2P: func(ctx context.Context, _ queue.Task) error {
			_, _, err := c.CollectP2P(ctx)
			return err
		},
		queue.KindRefreshExchangeRate: func(ctx context.Context, _ queue.Task) error {
			_, err := c.RefreshExchangeRate(ctx)
			return err
		},
		queue.KindCleanup: func(ctx context.Context, _ queue.Task) error {
			_, err := c.Cleanup(ctx)
			return err
		},
	}
}

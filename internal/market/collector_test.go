package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/elasticbot/internal/queue"
	"github.com/kiranshivaraju/elasticbot/internal/store/storetest"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeP2P struct {
	mu      sync.Mutex
	calls   []string
	err     error
	onFetch func()
}

func (f *fakeP2P) FetchAds(_ context.Context, tradeType string) ([]Ad, error) {
	f.mu.Lock()
	f.calls = append(f.calls, tradeType)
	if f.onFetch != nil {
		f.onFetch()
	}
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ads := make([]Ad, 6)
	for i := range ads {
		price := 10.0 + 0.01*float64(i)
		if tradeType == TradeBuy {
			price -= 0.2
		}
		ads[i] = Ad{Price: price, Available: 1000, Advertiser: fmt.Sprintf("%s-%d", tradeType, i)}
	}
	return ads, nil
}

type fakeRates struct {
	rate OfficialRate
	err  error
}

func (f fakeRates) FetchRate(context.Context) (OfficialRate, error) { return f.rate, f.err }

// fakeLocks holds lock tokens by key.
type fakeLocks struct {
	mu      sync.Mutex
	held    map[string]string
	err     error
	deleted []string
}

func newFakeLocks() *fakeLocks { return &fakeLocks{held: map[string]string{}} }

func (l *fakeLocks) SetNX(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if _, ok := l.held[key]; ok {
		return false, nil
	}
	l.held[key] = string(value)
	return true, nil
}

func (l *fakeLocks) DeleteIfValue(_ context.Context, key string, value []byte) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != string(value) {
		return false, nil
	}
	delete(l.held, key)
	l.deleted = append(l.deleted, key)
	return true, nil
}

// expire drops key and lets another holder take it.
func (l *fakeLocks) expire(key, nextHolder string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = nextHolder
}

var collectNow = time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)

func newTestCollector(s *storetest.MemoryStore, locks *fakeLocks, p2p P2PSource, rates RateSource) *Collector {
	c := NewCollector(s, locks, p2p, rates, Options{})
	c.now = func() time.Time { return collectNow }
	return c
}

func TestCollectP2P_StoresScoredSnapshot(t *testing.T) {
	s := storetest.New()
	locks := newFakeLocks()
	p2p := &fakeP2P{}

	snap, outcome, err := newTestCollector(s, locks, p2p, nil).CollectP2P(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCollected, outcome)
	require.NotNil(t, snap)

	assert.ElementsMatch(t, []string{TradeSell, TradeBuy}, p2p.calls)
	assert.Equal(t, 12, snap.NumActiveTraders)
	assert.InDelta(t, 12000, snap.TotalVolume, 1e-9)
	assert.InDelta(t, 1.0, snap.DataQualityScore, 1e-9)

	stored := s.Snapshots()
	require.Len(t, stored, 1)
	assert.Equal(t, collectNow, stored[0].Timestamp)

	// Lock released after the run.
	assert.Equal(t, []string{"lock:collect_p2p"}, locks.deleted)
	assert.Empty(t, locks.held)
}

func TestCollectP2P_SkipsWhenLocked(t *testing.T) {
	s := storetest.New()
	locks := newFakeLocks()
	locks.held["lock:collect_p2p"] = "other-run"
	p2p := &fakeP2P{}

	_, outcome, err := newTestCollector(s, locks, p2p, nil).CollectP2P(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeLocked, outcome)
	assert.Empty(t, p2p.calls)
	assert.Equal(t, "other-run", locks.held["lock:collect_p2p"], "another run's lock must not be released")
}

func TestCollectP2P_DoesNotReleaseLockTakenAfterExpiry(t *testing.T) {
	s := storetest.New()
	locks := newFakeLocks()
	p2p := &fakeP2P{onFetch: func() { locks.expire("lock:collect_p2p", "next-run") }}

	_, outcome, err := newTestCollector(s, locks, p2p, nil).CollectP2P(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCollected, outcome)

	assert.Equal(t, "next-run", locks.held["lock:collect_p2p"])
	assert.Empty(t, locks.deleted)
}

func TestCollectP2P_UsesFreshTokenPerRun(t *testing.T) {
	locks := newFakeLocks()
	var tokens []string
	p2p := &fakeP2P{onFetch: func() {
		locks.mu.Lock()
		tokens = append(tokens, locks.held["lock:collect_p2p"])
		locks.mu.Unlock()
	}}

	c := newTestCollector(storetest.New(), locks, p2p, nil)
	_, _, err := c.CollectP2P(context.Background())
	require.NoError(t, err)
	c.now = func() time.Time { return collectNow.Add(time.Hour) }
	_, _, err = c.CollectP2P(context.Background())
	require.NoError(t, err)

	// Two fetches per run, both under the same token.
	require.Len(t, tokens, 4)
	assert.Equal(t, tokens[0], tokens[1])
	assert.Equal(t, tokens[2], tokens[3])
	assert.NotEqual(t, tokens[0], tokens[2])
	assert.NotEmpty(t, tokens[0])
}

func TestCollectP2P_SkipsWhenRecent(t *testing.T) {
	s := storetest.New()
	require.NoError(t, s.InsertSnapshot(context.Background(), &models.MarketSnapshot{
		ID:        uuid.New(),
		Timestamp: collectNow.Add(-10 * time.Minute),
	}))
	p2p := &fakeP2P{}

	_, outcome, err := newTestCollector(s, newFakeLocks(), p2p, nil).CollectP2P(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeTooRecent, outcome)
	assert.Empty(t, p2p.calls)
}

func TestCollectP2P_ProceedsWithoutLockWhenCacheDown(t *testing.T) {
	locks := newFakeLocks()
	locks.err = errors.New("redis down")

	_, outcome, err := newTestCollector(storetest.New(), locks, &fakeP2P{}, nil).CollectP2P(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCollected, outcome)
	assert.Empty(t, locks.deleted)
}

func TestCollectP2P_SourceError(t *testing.T) {
	s := storetest.New()
	locks := newFakeLocks()

	_, _, err := newTestCollector(s, locks, &fakeP2P{err: ErrSourceUnreachable}, nil).CollectP2P(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnreachable)
	assert.Empty(t, s.Snapshots())
	assert.Empty(t, locks.held)
}

func TestRefreshExchangeRate(t *testing.T) {
	s := storetest.New()
	c := newTestCollector(s, newFakeLocks(), nil, fakeRates{rate: OfficialRate{Sell: 6.96, Buy: 6.86}})

	er, err := c.RefreshExchangeRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BCB", er.Source)

	stored, ok := s.ExchangeRate(collectNow)
	require.True(t, ok)
	assert.Equal(t, 6.96, stored.Sell)
	assert.Equal(t, time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC), stored.Date)
}

func TestRefreshExchangeRate_SourceError(t *testing.T) {
	s := storetest.New()
	c := newTestCollector(s, newFakeLocks(), nil, fakeRates{err: ErrSourceResponse})

	_, err := c.RefreshExchangeRate(context.Background())
	assert.ErrorIs(t, err, ErrSourceResponse)
	_, ok := s.ExchangeRate(collectNow)
	assert.False(t, ok)
}

func TestCleanup_DeletesBeyondRetention(t *testing.T) {
	s := storetest.New()
	ctx := context.Background()
	for _, age := range []time.Duration{24 * time.Hour, 89 * 24 * time.Hour, 91 * 24 * time.Hour, 200 * 24 * time.Hour} {
		require.NoError(t, s.InsertSnapshot(ctx, &models.MarketSnapshot{ID: uuid.New(), Timestamp: collectNow.Add(-age)}))
	}

	n, err := newTestCollector(s, newFakeLocks(), nil, nil).Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, s.Snapshots(), 2)
}

func TestHandlers_CoverCollectorKinds(t *testing.T) {
	h := newTestCollector(storetest.New(), newFakeLocks(), &fakeP2P{}, fakeRates{rate: OfficialRate{Sell: 6.96, Buy: 6.86}}).Handlers()
	for _, kind := range []string{queue.KindCollectP2P, queue.KindRefreshExchangeRate, queue.KindCleanup} {
		require.Contains(t, h, kind)
		assert.NoError(t, h[kind](context.Background(), queue.NewTask(kind, "")))
	}
}

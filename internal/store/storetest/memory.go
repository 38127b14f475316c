// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/elasticbot/internal/store"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// MemoryStore is a concurrency-safe in-memory store.Store. It applies the
// same transition and outcome rules as the Postgres implementation.
type MemoryStore struct {
	mu        sync.Mutex
	calcs     map[uuid.UUID]*models.Calculation
	snapshots []*models.MarketSnapshot
	rates     map[string]*models.ExchangeRate

	// Transitions records every successful status change in order.
	Transitions []Transition

	PingErr   error
	CreateErr error
	UpdateErr error
	ListErr   error
}

// Transition is one recorded status change.
type Transition struct {
	ID     uuid.UUID
	Status string
}

// New returns an empty MemoryStore.
func New() *MemoryStore {
	return &MemoryStore{
		calcs: make(map[uuid.UUID]*models.Calculation),
		rates: make(map[string]*models.ExchangeRate),
	}
}

func (m *MemoryStore) Ping(_ context.Context) error { return m.PingErr }

func (m *MemoryStore) CreateCalculation(_ context.Context, calc *models.Calculation) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.calcs[calc.ID]; ok {
		return store.ErrDuplicateKey
	}
	cp := *calc
	m.calcs[calc.ID] = &cp
	return nil
}

func (m *MemoryStore) GetCalculation(_ context.Context, id uuid.UUID) (*models.Calculation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calcs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) UpdateCalculationStatus(_ context.Context, id uuid.UUID, status string, opts ...store.CalculationUpdateOption) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	result, errMsg, meta := store.ApplyUpdateOptions(opts...)
	if err := store.CheckOutcome(status, result, errMsg); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calcs[id]
	if !ok {
		return store.ErrNotFound
	}

	allowed := false
	for _, prev := range store.PreviousStatuses(status) {
		if c.Status == prev {
			allowed = true
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, c.Status, status)
	}

	now := time.Now().UTC()
	c.Status = status
	if status == models.StatusProcessing {
		c.StartedAt = &now
	}
	if c.IsTerminal() {
		c.CompletedAt = &now
	}
	if result != nil {
		r := *result
		c.Result = &r
	}
	if errMsg != nil {
		msg := *errMsg
		c.ErrorMessage = &msg
	}
	if meta != nil {
		mergeMetadata(&c.Metadata, *meta)
	}
	m.Transitions = append(m.Transitions, Transition{ID: id, Status: status})
	return nil
}

func mergeMetadata(dst *models.CalculationMetadata, src models.CalculationMetadata) {
	if src.DispatchMode != "" {
		dst.DispatchMode = src.DispatchMode
	}
	if src.DataPoints != 0 {
		dst.DataPoints = src.DataPoints
	}
	if src.AverageDataQuality != nil {
		dst.AverageDataQuality = src.AverageDataQuality
	}
	if src.MinDataQuality != nil {
		dst.MinDataQuality = src.MinDataQuality
	}
}

func (m *MemoryStore) ListRecentCalculations(_ context.Context, fingerprint string, since time.Time) ([]*models.Calculation, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Calculation{}
	for _, c := range m.calcs {
		if c.RequesterFingerprint == fingerprint && !c.CreatedAt.Before(since) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) ListCalculations(_ context.Context, filter store.CalculationFilter) ([]*models.Calculation, int, error) {
	if m.ListErr != nil {
		return nil, 0, m.ListErr
	}
	filter = filter.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []*models.Calculation{}
	for _, c := range m.calcs {
		if filter.Status == "" || c.Status == filter.Status {
			cp := *c
			all = append(all, &cp)
		}
	}
	sortNewestFirst(all)

	start := (filter.Page - 1) * filter.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (m *MemoryStore) FailStaleCalculations(_ context.Context, startedBefore time.Time, message string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for id, c := range m.calcs {
		if c.Status == models.StatusProcessing && c.StartedAt != nil && c.StartedAt.Before(startedBefore) {
			msg := message
			c.Status = models.StatusFailed
			c.ErrorMessage = &msg
			c.CompletedAt = &now
			m.Transitions = append(m.Transitions, Transition{ID: id, Status: models.StatusFailed})
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) InsertSnapshot(_ context.Context, snap *models.MarketSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *snap
	m.snapshots = append(m.snapshots, &cp)
	return nil
}

func (m *MemoryStore) ListSnapshots(_ context.Context, start, end time.Time, minQuality float64) ([]*models.MarketSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.MarketSnapshot
	for _, s := range m.snapshots {
		if !s.Timestamp.Before(start) && !s.Timestamp.After(end) && s.DataQualityScore >= minQuality {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *MemoryStore) PageSnapshots(_ context.Context, filter store.SnapshotFilter) ([]*models.MarketSnapshot, int, error) {
	filter = filter.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*models.MarketSnapshot
	for _, s := range m.snapshots {
		if s.DataQualityScore >= filter.MinQuality {
			cp := *s
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })

	out := []*models.MarketSnapshot{}
	start := (filter.Page - 1) * filter.Limit
	if start < len(matched) {
		end := min(start+filter.Limit, len(matched))
		out = append(out, matched[start:end]...)
	}
	return out, len(matched), nil
}

func (m *MemoryStore) GetSnapshot(_ context.Context, id uuid.UUID) (*models.MarketSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snapshots {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemoryStore) LatestSnapshotAt(_ context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest time.Time
	for _, s := range m.snapshots {
		if s.Timestamp.After(latest) {
			latest = s.Timestamp
		}
	}
	if latest.IsZero() {
		return time.Time{}, store.ErrNotFound
	}
	return latest, nil
}

func (m *MemoryStore) DeleteSnapshotsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.snapshots[:0]
	var n int64
	for _, s := range m.snapshots {
		if s.Timestamp.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, s)
	}
	m.snapshots = kept
	return n, nil
}

func (m *MemoryStore) UpsertExchangeRate(_ context.Context, rate *models.ExchangeRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rate
	m.rates[rate.Date.Format("2006-01-02")] = &cp
	return nil
}

// Snapshots returns a copy of every stored snapshot.
func (m *MemoryStore) Snapshots() []models.MarketSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.MarketSnapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		out = append(out, *s)
	}
	return out
}

// ExchangeRate returns the stored rate for day, if any.
func (m *MemoryStore) ExchangeRate(day time.Time) (*models.ExchangeRate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rates[day.Format("2006-01-02")]
	return r, ok
}

// StatusHistory returns the recorded statuses for one calculation.
func (m *MemoryStore) StatusHistory(id uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, tr := range m.Transitions {
		if tr.ID == id {
			out = append(out, tr.Status)
		}
	}
	return out
}

func sortNewestFirst(calcs []*models.Calculation) {
	sort.SliceStable(calcs, func(i, j int) bool { return calcs[i].CreatedAt.After(calcs[j].CreatedAt) })
}

var _ store.Store = (*MemoryStore)(nil)

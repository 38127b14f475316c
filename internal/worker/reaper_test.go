package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/elasticbot/internal/store"
	"github.com/kiranshivaraju/elasticbot/internal/store/storetest"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCalc(t *testing.T, s *storetest.MemoryStore) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	c := &models.Calculation{
		ID:        uuid.New(),
		Method:    models.MethodMidpoint,
		Window:    models.WindowDaily,
		StartDate: now.Add(-10 * 24 * time.Hour),
		EndDate:   now,
		Status:    models.StatusPending,
		CreatedAt: now,
	}
	require.NoError(t, s.CreateCalculation(context.Background(), c))
	return c.ID
}

func TestReaper_FailsOnlyStaleProcessing(t *testing.T) {
	ctx := context.Background()
	s := storetest.New()

	stuck := newCalc(t, s)
	require.NoError(t, s.UpdateCalculationStatus(ctx, stuck, models.StatusProcessing))
	pending := newCalc(t, s)

	r := NewReaper(s, 10*time.Minute, time.Minute)
	r.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	n, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetCalculation(ctx, stuck)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "Calculation abandoned: worker did not finish within 10m0s", *got.ErrorMessage)
	assert.NotNil(t, got.CompletedAt)
	assert.Nil(t, got.Result)

	other, err := s.GetCalculation(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, other.Status)

	// A late finish from the dead worker can no longer overwrite the outcome.
	err = s.UpdateCalculationStatus(ctx, stuck, models.StatusCompleted,
		store.WithResult(&models.ElasticityResult{Coefficient: -1}))
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestReaper_LeavesRecentProcessing(t *testing.T) {
	ctx := context.Background()
	s := storetest.New()
	id := newCalc(t, s)
	require.NoError(t, s.UpdateCalculationStatus(ctx, id, models.StatusProcessing))

	n, err := NewReaper(s, 10*time.Minute, time.Minute).Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type errFailer struct{}

func (errFailer) FailStaleCalculations(context.Context, time.Time, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestReaper_SweepError(t *testing.T) {
	_, err := NewReaper(errFailer{}, time.Minute, time.Minute).Sweep(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestReaper_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewReaper(storetest.New(), time.Minute, 10*time.Millisecond).Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}

func TestReaper_NonPositiveIntervalDoesNotPanic(t *testing.T) {
	r := NewReaper(storetest.New(), time.Minute, 0)
	assert.Equal(t, time.Minute, r.interval)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() { r.Run(ctx) })
}

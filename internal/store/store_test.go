package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/elasticbot/internal/store"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool.
func setupTestDB(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("elasticbot_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool, connStr
}

func newCalculation(fingerprint string, createdAt time.Time) *models.Calculation {
	return &models.Calculation{
		ID:                   uuid.New(),
		Method:               models.MethodMidpoint,
		Window:               models.WindowDaily,
		StartDate:            time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		EndDate:              time.Date(2025, 11, 18, 23, 59, 59, 0, time.UTC),
		Status:               models.StatusPending,
		Metadata:             models.CalculationMetadata{DispatchMode: "async"},
		RequesterFingerprint: fingerprint,
		CreatedAt:            createdAt.UTC().Truncate(time.Microsecond),
	}
}

func sampleResult() *models.ElasticityResult {
	return &models.ElasticityResult{
		Coefficient:    -1.8,
		Magnitude:      1.8,
		Classification: models.ClassificationElastic,
		DataPointsUsed: 12,
		IsReliable:     true,
	}
}

// --- Migrations ---

func TestRunMigrations_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	_, connStr := setupTestDB(t)

	require.NoError(t, store.RunMigrations(connStr, migrationsDir()))

	version, dirty, err := store.MigrationVersion(connStr, migrationsDir())
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)
}

// --- Calculation lifecycle ---

func TestCalculation_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	calc := newCalculation("fp-a", time.Now())
	require.NoError(t, s.CreateCalculation(ctx, calc))

	got, err := s.GetCalculation(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, calc.ID, got.ID)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, "async", got.Metadata.DispatchMode)
	assert.Equal(t, "fp-a", got.RequesterFingerprint)
	assert.Nil(t, got.Result)
	assert.Nil(t, got.ErrorMessage)
	assert.Nil(t, got.CompletedAt)
	assert.True(t, calc.StartDate.Equal(got.StartDate))
}

func TestCalculation_CreateDuplicate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	calc := newCalculation("fp-a", time.Now())
	require.NoError(t, s.CreateCalculation(ctx, calc))
	assert.ErrorIs(t, s.CreateCalculation(ctx, calc), store.ErrDuplicateKey)
}

func TestCalculation_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.GetCalculation(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCalculation_CompleteLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	calc := newCalculation("fp-a", time.Now())
	require.NoError(t, s.CreateCalculation(ctx, calc))

	require.NoError(t, s.UpdateCalculationStatus(ctx, calc.ID, models.StatusProcessing))
	got, err := s.GetCalculation(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.NotNil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)

	quality := 0.98
	require.NoError(t, s.UpdateCalculationStatus(ctx, calc.ID, models.StatusCompleted,
		store.WithResult(sampleResult()),
		store.WithMetadata(models.CalculationMetadata{DataPoints: 12, AverageDataQuality: &quality})))

	got, err = s.GetCalculation(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, models.ClassificationElastic, got.Result.Classification)
	assert.InDelta(t, -1.8, got.Result.Coefficient, 1e-9)
	assert.Nil(t, got.ErrorMessage)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, 12, got.Metadata.DataPoints)
	// Metadata is merged, not replaced.
	assert.Equal(t, "async", got.Metadata.DispatchMode)
}

func TestCalculation_FailLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	calc := newCalculation("fp-a", time.Now())
	require.NoError(t, s.CreateCalculation(ctx, calc))
	require.NoError(t, s.UpdateCalculationStatus(ctx, calc.ID, models.StatusProcessing))
	require.NoError(t, s.UpdateCalculationStatus(ctx, calc.ID, models.StatusFailed,
		store.WithErrorMessage("Insufficient data points: found 1, need 2 for MIDPOINT.")))

	got, err := s.GetCalculation(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "Insufficient data points")
	assert.Nil(t, got.Result)
	assert.NotNil(t, got.CompletedAt)
}

func TestCalculation_InvalidTransitions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	calc := newCalculation("fp-a", time.Now())
	require.NoError(t, s.CreateCalculation(ctx, calc))

	// PENDING -> COMPLETED skips PROCESSING.
	err := s.UpdateCalculationStatus(ctx, calc.ID, models.StatusCompleted, store.WithResult(sampleResult()))
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	require.NoError(t, s.UpdateCalculationStatus(ctx, calc.ID, models.StatusProcessing))

	// Second claim is a duplicate delivery.
	err = s.UpdateCalculationStatus(ctx, calc.ID, models.StatusProcessing)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	require.NoError(t, s.UpdateCalculationStatus(ctx, calc.ID, models.StatusFailed, store.WithErrorMessage("boom")))

	// Terminal states never move.
	err = s.UpdateCalculationStatus(ctx, calc.ID, models.StatusCompleted, store.WithResult(sampleResult()))
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
	err = s.UpdateCalculationStatus(ctx, calc.ID, models.StatusPending)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestCalculation_OutcomeMustMatchStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	calc := newCalculation("fp-a", time.Now())
	require.NoError(t, s.CreateCalculation(ctx, calc))
	require.NoError(t, s.UpdateCalculationStatus(ctx, calc.ID, models.StatusProcessing))

	assert.Error(t, s.UpdateCalculationStatus(ctx, calc.ID, models.StatusCompleted))
	assert.Error(t, s.UpdateCalculationStatus(ctx, calc.ID, models.StatusFailed))

	got, err := s.GetCalculation(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
}

func TestCalculation_UpdateNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	err := s.UpdateCalculationStatus(context.Background(), uuid.New(), models.StatusProcessing)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCalculation_ConcurrentClaimsExactlyOneWins(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	calc := newCalculation("fp-a", time.Now())
	require.NoError(t, s.CreateCalculation(ctx, calc))

	const claimers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.UpdateCalculationStatus(ctx, calc.ID, models.StatusProcessing); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestListRecentCalculations_ScopedAndOrdered(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	var mine []*models.Calculation
	for i := 3; i >= 1; i-- {
		c := newCalculation("fp-mine", now.Add(-time.Duration(i)*time.Hour))
		require.NoError(t, s.CreateCalculation(ctx, c))
		mine = append(mine, c)
	}
	require.NoError(t, s.CreateCalculation(ctx, newCalculation("fp-other", now.Add(-30*time.Minute))))
	require.NoError(t, s.CreateCalculation(ctx, newCalculation("fp-mine", now.Add(-48*time.Hour))))

	got, err := s.ListRecentCalculations(ctx, "fp-mine", now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, mine[2].ID, got[0].ID)
	assert.Equal(t, mine[1].ID, got[1].ID)
	assert.Equal(t, mine[0].ID, got[2].ID)
}

func TestListCalculations_Pagination(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateCalculation(ctx, newCalculation("fp", now.Add(-time.Duration(i)*time.Minute))))
	}

	page, total, err := s.ListCalculations(ctx, store.CalculationFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 2)

	pending, total, err := s.ListCalculations(ctx, store.CalculationFilter{Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, pending)
}

func TestFailStaleCalculations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	stale := newCalculation("fp", time.Now())
	pending := newCalculation("fp", time.Now())
	require.NoError(t, s.CreateCalculation(ctx, stale))
	require.NoError(t, s.CreateCalculation(ctx, pending))
	require.NoError(t, s.UpdateCalculationStatus(ctx, stale.ID, models.StatusProcessing))

	n, err := s.FailStaleCalculations(ctx, time.Now().Add(time.Minute), "abandoned")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetCalculation(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.NotNil(t, got.CompletedAt)

	got, err = s.GetCalculation(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

// --- Market data ---

func TestSnapshots_ListFiltersByRangeAndQuality(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	insert := func(offset time.Duration, quality float64) {
		require.NoError(t, s.InsertSnapshot(ctx, &models.MarketSnapshot{
			ID:               uuid.New(),
			Timestamp:        base.Add(offset),
			AverageSellPrice: 9.5,
			TotalVolume:      1000,
			NumActiveTraders: 10,
			DataQualityScore: quality,
			CreatedAt:        time.Now().UTC(),
		}))
	}
	insert(2*time.Hour, 1.0)
	insert(1*time.Hour, 0.97)
	insert(3*time.Hour, 0.5)
	insert(72*time.Hour, 1.0)

	snaps, err := s.ListSnapshots(ctx, base, base.Add(24*time.Hour), 0.95)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].Timestamp.Before(snaps[1].Timestamp))

	latest, err := s.LatestSnapshotAt(ctx)
	require.NoError(t, err)
	assert.True(t, base.Add(72*time.Hour).Equal(latest))

	deleted, err := s.DeleteSnapshotsBefore(ctx, base.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

func TestSnapshots_PageNewestFirstAboveQuality(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	ids := make([]uuid.UUID, 5)
	qualities := []float64{0.9, 0.4, 0.7, 1.0, 0.69}
	for i, q := range qualities {
		ids[i] = uuid.New()
		require.NoError(t, s.InsertSnapshot(ctx, &models.MarketSnapshot{
			ID:               ids[i],
			Timestamp:        base.Add(time.Duration(i) * time.Hour),
			AverageSellPrice: 9.5,
			TotalVolume:      1000,
			DataQualityScore: q,
			CreatedAt:        time.Now().UTC(),
		}))
	}

	page, total, err := s.PageSnapshots(ctx, store.SnapshotFilter{MinQuality: 0.7, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID)
	assert.Equal(t, ids[2], page[1].ID)

	page, _, err = s.PageSnapshots(ctx, store.SnapshotFilter{MinQuality: 0.7, Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	got, err := s.GetSnapshot(ctx, ids[1])
	require.NoError(t, err)
	assert.InDelta(t, 0.4, got.DataQualityScore, 1e-9)

	_, err = s.GetSnapshot(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLatestSnapshotAt_Empty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.LatestSnapshotAt(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertExchangeRate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, _ := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	day := time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertExchangeRate(ctx, &models.ExchangeRate{Date: day, Sell: 6.96, Buy: 6.86, Source: "bcb", UpdatedAt: time.Now().UTC()}))
	require.NoError(t, s.UpsertExchangeRate(ctx, &models.ExchangeRate{Date: day, Sell: 6.97, Buy: 6.87, Source: "bcb", UpdatedAt: time.Now().UTC()}))

	var count int
	var sell float64
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*), MAX(sell) FROM exchange_rates`).Scan(&count, &sell))
	assert.Equal(t, 1, count)
	assert.InDelta(t, 6.97, sell, 1e-9)
}

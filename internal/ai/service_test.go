package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/elasticbot/internal/ai/mock"
	"github.com/kiranshivaraju/elasticbot/internal/store"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Delete(_ context.Context, key string) error { return nil }
func (c *memCache) Ping(_ context.Context) error               { return c.err }
func (c *memCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 0, nil
}
func (c *memCache) SetNX(_ context.Context, _ string, _ []byte, _ time.Duration) (bool, error) {
	return true, nil
}
func (c *memCache) DeleteIfValue(_ context.Context, _ string, _ []byte) (bool, error) {
	return true, nil
}

type calcGetter map[uuid.UUID]*models.Calculation

func (g calcGetter) GetCalculation(_ context.Context, id uuid.UUID) (*models.Calculation, error) {
	c, ok := g[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func countingProvider(text string, calls *int32) *mock.MockProvider {
	return &mock.MockProvider{
		Name_:  "counting",
		Model_: "counting-v1",
		InterpretFunc: func(_ context.Context, req models.InterpretationRequest) (string, error) {
			atomic.AddInt32(calls, 1)
			return text, nil
		},
	}
}

// --- helpers ---

func completedCalc(coefficient float64) *models.Calculation {
	q := 0.97
	r2 := 0.62
	return &models.Calculation{
		ID:        uuid.New(),
		Method:    models.MethodRegression,
		Window:    models.WindowDaily,
		StartDate: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC),
		Status:    models.StatusCompleted,
		Result: &models.ElasticityResult{
			Coefficient:    coefficient,
			Magnitude:      -coefficient,
			Classification: models.ClassificationInelastic,
			RSquared:       &r2,
			DataPointsUsed: 18,
			IsReliable:     true,
		},
		Metadata: models.CalculationMetadata{AverageDataQuality: &q},
	}
}

const longText = "La demanda de USDT en Bolivia es inelástica durante el periodo analizado."

// --- Interpret ---

func TestInterpret_GeneratesAndCaches(t *testing.T) {
	calc := completedCalc(-0.8712)
	ca := newMemCache()
	var calls int32
	svc := NewInterpretationService(countingProvider(longText, &calls), calcGetter{calc.ID: calc}, ca, 0, time.Second)

	first, err := svc.Interpret(context.Background(), calc.ID)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, longText, first.Interpretation)
	assert.Equal(t, "counting-v1", first.Model)
	assert.Equal(t, calc.ID.String(), first.CalculationID)
	assert.False(t, first.GeneratedAt.IsZero())

	key := CacheKey(calc)
	assert.Equal(t, 24*time.Hour, ca.ttls[key])

	second, err := svc.Interpret(context.Background(), calc.ID)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, longText, second.Interpretation)
	assert.Equal(t, "counting-v1", second.Model)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestInterpret_SharedAcrossEquivalentCalculations(t *testing.T) {
	a := completedCalc(-0.87121)
	b := completedCalc(-0.87124)
	var calls int32
	svc := NewInterpretationService(countingProvider(longText, &calls), calcGetter{a.ID: a, b.ID: b}, newMemCache(), time.Hour, 0)

	_, err := svc.Interpret(context.Background(), a.ID)
	require.NoError(t, err)
	res, err := svc.Interpret(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, b.ID.String(), res.CalculationID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestInterpret_CacheErrorsIgnored(t *testing.T) {
	calc := completedCalc(-0.5)
	ca := newMemCache()
	ca.err = errors.New("redis down")
	var calls int32
	svc := NewInterpretationService(countingProvider(longText, &calls), calcGetter{calc.ID: calc}, ca, 0, 0)

	res, err := svc.Interpret(context.Background(), calc.ID)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, longText, res.Interpretation)
}

func TestInterpret_NotFound(t *testing.T) {
	svc := NewInterpretationService(mock.NewMockProvider(), calcGetter{}, newMemCache(), 0, 0)
	_, err := svc.Interpret(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInterpret_NotCompleted(t *testing.T) {
	for _, status := range []string{models.StatusPending, models.StatusProcessing, models.StatusFailed} {
		t.Run(status, func(t *testing.T) {
			calc := completedCalc(-1)
			calc.Status = status
			calc.Result = nil
			svc := NewInterpretationService(mock.NewMockProvider(), calcGetter{calc.ID: calc}, newMemCache(), 0, 0)

			_, err := svc.Interpret(context.Background(), calc.ID)
			assert.ErrorIs(t, err, ErrNotCompleted)
			assert.Contains(t, err.Error(), status)
		})
	}
}

func TestInterpret_ProviderError(t *testing.T) {
	calc := completedCalc(-0.5)
	ca := newMemCache()
	svc := NewInterpretationService(mock.NewFailingProvider(ErrProviderUnavailable), calcGetter{calc.ID: calc}, ca, 0, 0)

	_, err := svc.Interpret(context.Background(), calc.ID)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Empty(t, ca.data, "failures must not be cached")
}

func TestInterpret_Timeout(t *testing.T) {
	calc := completedCalc(-0.5)
	svc := NewInterpretationService(mock.NewTimeoutProvider(), calcGetter{calc.ID: calc}, newMemCache(), 0, 30*time.Millisecond)

	_, err := svc.Interpret(context.Background(), calc.ID)
	assert.ErrorIs(t, err, ErrInferenceTimeout)
}

func TestInterpret_TimeoutWrapsForeignError(t *testing.T) {
	calc := completedCalc(-0.5)
	p := &mock.MockProvider{
		Name_: "slow",
		InterpretFunc: func(ctx context.Context, _ models.InterpretationRequest) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	svc := NewInterpretationService(p, calcGetter{calc.ID: calc}, newMemCache(), 0, 20*time.Millisecond)

	_, err := svc.Interpret(context.Background(), calc.ID)
	assert.ErrorIs(t, err, ErrInferenceTimeout)
}

func TestInterpret_PassesPromptAndNumbers(t *testing.T) {
	calc := completedCalc(-0.8712)
	calc.Result.IsReliable = false
	var got models.InterpretationRequest
	p := &mock.MockProvider{
		Name_: "spy",
		InterpretFunc: func(_ context.Context, req models.InterpretationRequest) (string, error) {
			got = req
			return longText, nil
		},
	}
	svc := NewInterpretationService(p, calcGetter{calc.ID: calc}, newMemCache(), 0, 0)

	_, err := svc.Interpret(context.Background(), calc.ID)
	require.NoError(t, err)
	assert.Equal(t, SystemPrompt, got.System)
	assert.InDelta(t, -0.8712, got.Elasticity, 1e-9)
	assert.Equal(t, models.ClassificationInelastic, got.Classification)
	assert.False(t, got.IsReliable)
	assert.True(t, strings.Contains(got.Prompt, "baja confiabilidad"))
}

// --- CacheKey ---

func TestCacheKey(t *testing.T) {
	calc := completedCalc(-0.87123)
	key := CacheKey(calc)
	assert.True(t, strings.HasPrefix(key, "ai_interpretation:"))
	assert.Len(t, strings.TrimPrefix(key, "ai_interpretation:"), 32)

	same := completedCalc(-0.87118)
	assert.Equal(t, key, CacheKey(same), "coefficients equal at four decimals share a key")

	other := completedCalc(-0.87123)
	other.Method = models.MethodMidpoint
	assert.NotEqual(t, key, CacheKey(other))

	fewer := completedCalc(-0.87123)
	fewer.Result.DataPointsUsed = 17
	assert.NotEqual(t, key, CacheKey(fewer))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "-1.0", formatFloat(-1))
	assert.Equal(t, "-0.8712", formatFloat(-0.8712))
	assert.Equal(t, "0.0", formatFloat(0))
}

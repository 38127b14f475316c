// Package ai generates narrative interpretations of completed elasticity
// calculations through a pluggable models.AIProvider.
package ai

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/elasticbot/internal/cache"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// CalculationGetter loads one calculation. store.CalculationStore satisfies it.
type CalculationGetter interface {
	GetCalculation(ctx context.Context, id uuid.UUID) (*models.Calculation, error)
}

// InterpretationService produces and caches interpretations.
type InterpretationService struct {
	provider models.AIProvider
	calcs    CalculationGetter
	cache    cache.Cache
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// NewInterpretationService creates a new InterpretationService.
func NewInterpretationService(provider models.AIProvider, calcs CalculationGetter, ca cache.Cache, ttl, timeout time.Duration) *InterpretationService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &InterpretationService{
		provider: provider,
		calcs:    calcs,
		cache:    ca,
		ttl:      ttl,
		timeout:  timeout,
		now:      time.Now,
	}
}

type cachedInterpretation struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// Interpret returns the interpretation for calculation id. Lookup errors
// from the store are returned unchanged so callers can match
// store.ErrNotFound. A calculation that is not COMPLETED yields
// ErrNotCompleted.
func (s *InterpretationService) Interpret(ctx context.Context, id uuid.UUID) (*models.Interpretation, error) {
	calc, err := s.calcs.GetCalculation(ctx, id)
	if err != nil {
		return nil, err
	}
	if calc.Status != models.StatusCompleted || calc.Result == nil {
		return nil, fmt.Errorf("%w: current status %s", ErrNotCompleted, calc.Status)
	}

	key := CacheKey(calc)
	if hit, ok := s.lookup(ctx, key); ok {
		slog.Info("interpretation cache hit", "calculation_id", id, "key", key)
		return &models.Interpretation{
			CalculationID:  id.String(),
			Interpretation: hit.Text,
			GeneratedAt:    s.now().UTC(),
			Cached:         true,
			Model:          hit.Model,
		}, nil
	}

	inferCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		inferCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.provider.Interpret(inferCtx, models.InterpretationRequest{
		System:         SystemPrompt,
		Prompt:         BuildPrompt(calc),
		Elasticity:     calc.Result.Coefficient,
		Classification: calc.Result.Classification,
		IsReliable:     calc.Result.IsReliable,
	})
	if err != nil {
		if errors.Is(inferCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrInferenceTimeout) {
			err = fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
		}
		slog.Error("interpretation failed", "calculation_id", id, "provider", s.provider.Name(), "error", err)
		return nil, err
	}
	text = Sanitize(text)

	slog.Info("interpretation generated",
		"calculation_id", id,
		"provider", s.provider.Name(),
		"model", s.provider.Model(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.store(ctx, key, cachedInterpretation{Text: text, Model: s.provider.Model()})

	return &models.Interpretation{
		CalculationID:  id.String(),
		Interpretation: text,
		GeneratedAt:    s.now().UTC(),
		Model:          s.provider.Model(),
	}, nil
}

func (s *InterpretationService) lookup(ctx context.Context, key string) (cachedInterpretation, bool) {
	var hit cachedInterpretation
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("interpretation cache read failed", "key", key, "error", err)
		return hit, false
	}
	if !ok {
		return hit, false
	}
	if err := json.Unmarshal(raw, &hit); err != nil || hit.Text == "" {
		return hit, false
	}
	return hit, true
}

func (s *InterpretationService) store(ctx context.Context, key string, v cachedInterpretation) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		slog.Warn("interpretation cache write failed", "key", key, "error", err)
	}
}

// CacheKey derives the cache key from the rounded coefficient,
// classification, method and data point count. Calculations that agree on
// all four share an interpretation.
func CacheKey(c *models.Calculation) string {
	e := math.Round(c.Result.Coefficient*1e4) / 1e4
	payload := fmt.Sprintf(`{"classification": %s, "data_points": %d, "elasticity": %s, "method": %s}`,
		strconv.Quote(c.Result.Classification),
		c.Result.DataPointsUsed,
		formatFloat(e),
		strconv.Quote(c.Method),
	)
	sum := md5.Sum([]byte(payload))
	return cache.InterpretationKey(hex.EncodeToString(sum[:]))
}

// formatFloat renders v the way a JSON encoder that keeps a decimal point
// on whole numbers would, so -1 becomes -1.0.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

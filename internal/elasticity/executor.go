package elasticity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/elasticbot/internal/dispatch"
	"github.com/kiranshivaraju/elasticbot/internal/engine"
	"github.com/kiranshivaraju/elasticbot/internal/queue"
	"github.com/kiranshivaraju/elasticbot/internal/store"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// Minimum observations fetched before the engine is called.
const (
	MinPointsMidpoint   = 2
	MinPointsRegression = 5
)

// DataStore is what the executor reads and writes.
type DataStore interface {
	store.CalculationStore
	ListSnapshots(ctx context.Context, start, end time.Time, minQuality float64) ([]*models.MarketSnapshot, error)
}

// Executor runs one calculation from PENDING to a terminal status.
type Executor struct {
	store      DataStore
	calc       engine.Calculator
	minQuality float64
	timeout    time.Duration
}

func NewExecutor(s DataStore, c engine.Calculator, minQuality float64, timeout time.Duration) *Executor {
	return &Executor{store: s, calc: c, minQuality: minQuality, timeout: timeout}
}

// HandleTask executes the calculation referenced by an elasticity task.
func (e *Executor) HandleTask(ctx context.Context, t queue.Task) error {
	id, err := uuid.Parse(t.Ref)
	if err != nil {
		return fmt.Errorf("task %s: invalid calculation id %q: %w", t.ID, t.Ref, err)
	}
	return e.Execute(ctx, id)
}

// Execute claims the calculation and finalizes it. A calculation that is
// unknown, already claimed or already terminal is left untouched and nil is
// returned, so duplicate deliveries are harmless. Calculation failures are
// recorded on the row; the returned error only reports store failures.
//
// Execution is bounded by the executor timeout only. Cancelling ctx (worker
// shutdown, a disconnected sync client) does not fail the calculation.
func (e *Executor) Execute(ctx context.Context, id uuid.UUID) error {
	ctx = context.WithoutCancel(ctx)
	log := slog.With("calculation_id", id)
	mode := dispatch.ModeFrom(ctx)

	err := e.store.UpdateCalculationStatus(ctx, id, models.StatusProcessing,
		store.WithMetadata(models.CalculationMetadata{DispatchMode: string(mode)}))
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Error("calculation not found")
		return nil
	case errors.Is(err, store.ErrInvalidTransition):
		log.Info("calculation already claimed, skipping duplicate delivery")
		return nil
	case err != nil:
		return fmt.Errorf("claim calculation: %w", err)
	}

	calc, err := e.store.GetCalculation(ctx, id)
	if err != nil {
		return e.finish(ctx, id, nil, fmt.Sprintf("Calculation error: %v", err), models.CalculationMetadata{})
	}

	log = log.With("method", calc.Method, "dispatch_mode", mode)
	log.Info("calculation started")

	result, meta, failure := e.run(ctx, calc)
	return e.finish(ctx, id, result, failure, meta)
}

type outcome struct {
	result  *models.ElasticityResult
	meta    models.CalculationMetadata
	failure string
}

// run computes the result with the execution timeout applied. Exactly one of
// the returned result and failure message is set.
func (e *Executor) run(ctx context.Context, calc *models.Calculation) (*models.ElasticityResult, models.CalculationMetadata, string) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic in calculation",
					"calculation_id", calc.ID,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				done <- outcome{failure: fmt.Sprintf("Calculation error: %v", rec)}
			}
		}()
		done <- e.compute(ctx, calc)
	}()

	select {
	case o := <-done:
		return o.result, o.meta, o.failure
	case <-ctx.Done():
		// Only the execution timeout can end ctx here.
		return nil, models.CalculationMetadata{}, fmt.Sprintf("Calculation timed out after %s", e.timeout)
	}
}

func (e *Executor) compute(ctx context.Context, calc *models.Calculation) outcome {
	snaps, err := e.store.ListSnapshots(ctx, calc.StartDate, calc.EndDate, e.minQuality)
	if err != nil {
		return outcome{failure: fmt.Sprintf("Calculation error: %v", err)}
	}

	if len(snaps) == 0 {
		return outcome{failure: fmt.Sprintf(
			"No high-quality OHLC data available for %s to %s. Only data with quality >= %.2f is used.",
			calc.StartDate.Format(time.DateOnly), calc.EndDate.Format(time.DateOnly), e.minQuality,
		)}
	}

	need := MinPointsMidpoint
	if calc.Method == models.MethodRegression {
		need = MinPointsRegression
	}
	if len(snaps) < need {
		return outcome{failure: fmt.Sprintf(
			"Insufficient data points: found %d, need %d for %s.", len(snaps), need, calc.Method,
		)}
	}

	prices := make([]float64, len(snaps))
	quantities := make([]float64, len(snaps))
	var qualitySum float64
	minQuality := snaps[0].DataQualityScore
	for i, s := range snaps {
		prices[i] = s.AverageSellPrice
		quantities[i] = s.TotalVolume
		qualitySum += s.DataQualityScore
		if s.DataQualityScore < minQuality {
			minQuality = s.DataQualityScore
		}
	}
	avgQuality := qualitySum / float64(len(snaps))
	meta := models.CalculationMetadata{
		DataPoints:         len(snaps),
		AverageDataQuality: &avgQuality,
		MinDataQuality:     &minQuality,
	}

	result, err := e.calculate(calc, prices, quantities)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidInput) {
			return outcome{meta: meta, failure: engine.Message(err)}
		}
		return outcome{meta: meta, failure: fmt.Sprintf("Calculation error: %v", err)}
	}
	return outcome{result: result, meta: meta}
}

// calculate calls the engine, turning a panic into an error so the
// gathered metadata is still recorded.
func (e *Executor) calculate(calc *models.Calculation, prices, quantities []float64) (result *models.ElasticityResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in elasticity engine",
				"calculation_id", calc.ID,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			result, err = nil, fmt.Errorf("%v", rec)
		}
	}()
	return e.calc.Calculate(calc.Method, prices, quantities)
}

// finish writes the terminal status. It runs on a context detached from
// cancellation so a timed-out execution is still recorded.
func (e *Executor) finish(ctx context.Context, id uuid.UUID, result *models.ElasticityResult, failure string, meta models.CalculationMetadata) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	log := slog.With("calculation_id", id)
	var err error
	if result != nil {
		err = e.store.UpdateCalculationStatus(ctx, id, models.StatusCompleted,
			store.WithResult(result), store.WithMetadata(meta))
	} else {
		err = e.store.UpdateCalculationStatus(ctx, id, models.StatusFailed,
			store.WithErrorMessage(failure), store.WithMetadata(meta))
	}

	switch {
	case errors.Is(err, store.ErrInvalidTransition):
		log.Warn("calculation was finalized elsewhere, discarding outcome")
		return nil
	case err != nil:
		return fmt.Errorf("finalize calculation: %w", err)
	}

	if result != nil {
		log.Info("calculation completed",
			"elasticity", result.Coefficient,
			"classification", result.Classification,
			"data_points", result.DataPointsUsed,
		)
	} else {
		log.Warn("calculation failed", "error_message", failure)
	}
	return nil
}

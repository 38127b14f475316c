// Package elasticity implements the calculation job lifecycle: submitting
// requests, executing them against market data and serving their state to
// pollers.
package elasticity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/elasticbot/internal/dispatch"
	"github.com/kiranshivaraju/elasticbot/internal/queue"
	"github.com/kiranshivaraju/elasticbot/internal/store"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// Service submits calculations and answers polls about them.
type Service struct {
	store        store.CalculationStore
	strategy     dispatch.Strategy
	maxSpan      time.Duration
	recentWindow time.Duration
	now          func() time.Time
}

// Options tunes a Service. Zero values fall back to the defaults.
type Options struct {
	MaxSpan      time.Duration
	RecentWindow time.Duration
}

func NewService(s store.CalculationStore, strategy dispatch.Strategy, opts Options) *Service {
	if opts.MaxSpan <= 0 {
		opts.MaxSpan = 90 * 24 * time.Hour
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = 24 * time.Hour
	}
	return &Service{
		store:        s,
		strategy:     strategy,
		maxSpan:      opts.MaxSpan,
		recentWindow: opts.RecentWindow,
		now:          time.Now,
	}
}

// Submit validates req, persists a PENDING calculation and dispatches it.
//
// With async dispatch the returned calculation is the PENDING row and the
// call does not wait for execution. With sync dispatch, configured or as a
// fallback, execution has finished and the returned row is final.
func (s *Service) Submit(ctx context.Context, req CalculateRequest, fingerprint string) (*models.Calculation, dispatch.Mode, error) {
	params, err := Validate(req, s.maxSpan, s.now().UTC())
	if err != nil {
		return nil, "", err
	}

	calc := &models.Calculation{
		ID:                   uuid.New(),
		Method:               params.Method,
		Window:               params.Window,
		StartDate:            params.Start,
		EndDate:              params.End,
		Status:               models.StatusPending,
		RequesterFingerprint: fingerprint,
		CreatedAt:            s.now().UTC(),
	}
	if err := s.store.CreateCalculation(ctx, calc); err != nil {
		return nil, "", fmt.Errorf("create calculation: %w", err)
	}

	log := slog.With("calculation_id", calc.ID, "method", calc.Method, "window_size", calc.Window)
	log.Info("calculation submitted")

	mode, err := s.strategy.Dispatch(ctx, queue.NewTask(queue.KindCalculate, calc.ID.String()))
	if err != nil {
		log.Error("dispatch failed", "mode", mode, "error", err)
		s.abandon(ctx, calc.ID)
		return nil, mode, fmt.Errorf("dispatch calculation: %w", err)
	}

	if mode == dispatch.ModeSync {
		final, err := s.store.GetCalculation(ctx, calc.ID)
		if err != nil {
			return nil, mode, fmt.Errorf("reload calculation: %w", err)
		}
		return final, mode, nil
	}
	return calc, mode, nil
}

// DispatchFailedMessage is stored on calculations that never reached an executor.
const DispatchFailedMessage = "Calculation could not be dispatched"

// abandon closes out a calculation whose dispatch failed so it does not sit
// in PENDING forever. It walks the normal PROCESSING then FAILED path; a row
// that an executor already claimed or finished is left to it.
func (s *Service) abandon(ctx context.Context, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	err := s.store.UpdateCalculationStatus(ctx, id, models.StatusProcessing)
	if err != nil && !errors.Is(err, store.ErrInvalidTransition) {
		slog.Error("failed to claim undispatched calculation", "calculation_id", id, "error", err)
		return
	}
	err = s.store.UpdateCalculationStatus(ctx, id, models.StatusFailed, store.WithErrorMessage(DispatchFailedMessage))
	if err != nil && !errors.Is(err, store.ErrInvalidTransition) {
		slog.Error("failed to fail undispatched calculation", "calculation_id", id, "error", err)
	}
}

// Get returns the full calculation record, or store.ErrNotFound.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Calculation, error) {
	return s.store.GetCalculation(ctx, id)
}

// Status returns the polling projection of a calculation.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (*models.CalculationStatus, error) {
	calc, err := s.store.GetCalculation(ctx, id)
	if err != nil {
		return nil, err
	}
	st := models.StatusOf(calc)
	return &st, nil
}

// ListRecent returns the requester's calculations from the recent window,
// most recent first.
func (s *Service) ListRecent(ctx context.Context, fingerprint string) ([]*models.Calculation, error) {
	since := s.now().UTC().Add(-s.recentWindow)
	calcs, err := s.store.ListRecentCalculations(ctx, fingerprint, since)
	if err != nil {
		return nil, fmt.Errorf("list recent calculations: %w", err)
	}
	return calcs, nil
}

// List pages through every calculation, newest first.
func (s *Service) List(ctx context.Context, filter store.CalculationFilter) ([]*models.Calculation, int, store.CalculationFilter, error) {
	filter = filter.Normalize()
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, 0, filter, &ValidationError{Fields: map[string]string{
			"status": fmt.Sprintf("%q is not a valid status", filter.Status),
		}}
	}
	calcs, total, err := s.store.ListCalculations(ctx, filter)
	if err != nil {
		return nil, 0, filter, fmt.Errorf("list calculations: %w", err)
	}
	return calcs, total, filter, nil
}

func validStatus(s string) bool {
	switch s {
	case models.StatusPending, models.StatusProcessing, models.StatusCompleted, models.StatusFailed:
		return true
	}
	return false
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

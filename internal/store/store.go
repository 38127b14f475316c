package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrInvalidTransition is returned when a status update does not follow
// PENDING -> PROCESSING -> COMPLETED | FAILED from the row's current status.
var ErrInvalidTransition = errors.New("invalid calculation status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	CalculationStore
	MarketStore
}

// CalculationStore persists elasticity calculation jobs.
type CalculationStore interface {
	CreateCalculation(ctx context.Context, calc *models.Calculation) error
	GetCalculation(ctx context.Context, id uuid.UUID) (*models.Calculation, error)
	// UpdateCalculationStatus moves a calculation forward atomically. It returns
	// ErrInvalidTransition when the row is no longer in a status that may move
	// to the requested one, which is how duplicate deliveries are detected.
	UpdateCalculationStatus(ctx context.Context, id uuid.UUID, status string, opts ...CalculationUpdateOption) error
	ListRecentCalculations(ctx context.Context, fingerprint string, since time.Time) ([]*models.Calculation, error)
	ListCalculations(ctx context.Context, filter CalculationFilter) ([]*models.Calculation, int, error)
	// FailStaleCalculations fails PROCESSING rows started before the cutoff.
	FailStaleCalculations(ctx context.Context, startedBefore time.Time, message string) (int64, error)
}

// MarketStore persists scraped market data.
type MarketStore interface {
	InsertSnapshot(ctx context.Context, snap *models.MarketSnapshot) error
	ListSnapshots(ctx context.Context, start, end time.Time, minQuality float64) ([]*models.MarketSnapshot, error)
	LatestSnapshotAt(ctx context.Context) (time.Time, error)
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	UpsertExchangeRate(ctx context.Context, rate *models.ExchangeRate) error
	// PageSnapshots lists snapshots at or above the filter's quality, newest
	// first, with the total count of matching rows.
	PageSnapshots(ctx context.Context, filter SnapshotFilter) ([]*models.MarketSnapshot, int, error)
	GetSnapshot(ctx context.Context, id uuid.UUID) (*models.MarketSnapshot, error)
}

type CalculationFilter struct {
	Status string
	Page   int
	Limit  int
}

// Normalize clamps pagination to the defaults used by every list endpoint.
func (f CalculationFilter) Normalize() CalculationFilter {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	return f
}

type SnapshotFilter struct {
	MinQuality float64
	Page       int
	Limit      int
}

func (f SnapshotFilter) Normalize() SnapshotFilter {
	p := CalculationFilter{Page: f.Page, Limit: f.Limit}.Normalize()
	f.Page, f.Limit = p.Page, p.Limit
	return f
}

type calculationUpdateParams struct {
	Result       *models.ElasticityResult
	ErrorMessage *string
	Metadata     *models.CalculationMetadata
}

type CalculationUpdateOption func(*calculationUpdateParams)

func WithResult(r *models.ElasticityResult) CalculationUpdateOption {
	return func(p *calculationUpdateParams) {
		p.Result = r
	}
}

func WithErrorMessage(msg string) CalculationUpdateOption {
	return func(p *calculationUpdateParams) {
		p.ErrorMessage = &msg
	}
}

func WithMetadata(m models.CalculationMetadata) CalculationUpdateOption {
	return func(p *calculationUpdateParams) {
		p.Metadata = &m
	}
}

// ApplyUpdateOptions resolves options into their values. Exposed for
// in-memory Store implementations used in tests.
func ApplyUpdateOptions(opts ...CalculationUpdateOption) (result *models.ElasticityResult, errMsg *string, meta *models.CalculationMetadata) {
	p := &calculationUpdateParams{}
	for _, opt := range opts {
		opt(p)
	}
	return p.Result, p.ErrorMessage, p.Metadata
}

var validTransitions = map[string][]string{
	models.StatusPending:    {models.StatusProcessing},
	models.StatusProcessing: {models.StatusCompleted, models.StatusFailed},
}

// PreviousStatuses returns the statuses a calculation may move from to reach status.
func PreviousStatuses(status string) []string {
	var prev []string
	for from, tos := range validTransitions {
		for _, to := range tos {
			if to == status {
				prev = append(prev, from)
			}
		}
	}
	return prev
}

// CheckOutcome enforces that exactly one of result or error accompanies a
// terminal status.
func CheckOutcome(status string, result *models.ElasticityResult, errMsg *string) error {
	switch status {
	case models.StatusCompleted:
		if result == nil || errMsg != nil {
			return errors.New("completed calculation requires a result and no error")
		}
	case models.StatusFailed:
		if errMsg == nil || result != nil {
			return errors.New("failed calculation requires an error message and no result")
		}
	default:
		if result != nil || errMsg != nil {
			return errors.New("non-terminal calculation cannot carry a result or error")
		}
	}
	return nil
}

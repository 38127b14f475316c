package models

import (
	"time"

	"github.com/google/uuid"
)

// Calculation methods.
const (
	MethodMidpoint   = "MIDPOINT"
	MethodRegression = "REGRESSION"
)

// Aggregation windows.
const (
	WindowHourly = "HOURLY"
	WindowDaily  = "DAILY"
	WindowWeekly = "WEEKLY"
)

// Calculation statuses. Transitions only move forward:
// PENDING -> PROCESSING -> COMPLETED | FAILED.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Elasticity classifications.
const (
	ClassificationElastic   = "ELASTIC"
	ClassificationInelastic = "INELASTIC"
	ClassificationUnitary   = "UNITARY"
)

// Calculation is an elasticity calculation job. The API returns it on
// POST /api/v1/elasticity/calculate/; the client polls
// GET /api/v1/elasticity/{id}/status/ until it is complete.
type Calculation struct {
	ID                   uuid.UUID           `db:"id"                    json:"id"`
	Method               string              `db:"method"                json:"method"`
	Window               string              `db:"window_size"           json:"window_size"`
	StartDate            time.Time           `db:"start_date"            json:"start_date"`
	EndDate              time.Time           `db:"end_date"              json:"end_date"`
	Status               string              `db:"status"                json:"status"`
	Result               *ElasticityResult   `db:"result"                json:"result,omitempty"`
	ErrorMessage         *string             `db:"error_message"         json:"error_message,omitempty"`
	Metadata             CalculationMetadata `db:"metadata"              json:"metadata"`
	RequesterFingerprint string              `db:"requester_fingerprint" json:"-"`
	CreatedAt            time.Time           `db:"created_at"            json:"created_at"`
	StartedAt            *time.Time          `db:"started_at"            json:"started_at,omitempty"`
	CompletedAt          *time.Time          `db:"completed_at"          json:"completed_at,omitempty"`
}

// IsTerminal reports whether the calculation has reached COMPLETED or FAILED.
func (c *Calculation) IsTerminal() bool {
	return c.Status == StatusCompleted || c.Status == StatusFailed
}

// ElasticityResult is the payload stored on a COMPLETED calculation.
type ElasticityResult struct {
	Coefficient             float64  `json:"elasticity_coefficient"`
	Magnitude               float64  `json:"elasticity_magnitude"`
	Classification          string   `json:"classification"`
	ConfidenceIntervalLower *float64 `json:"confidence_interval_lower,omitempty"`
	ConfidenceIntervalUpper *float64 `json:"confidence_interval_upper,omitempty"`
	RSquared                *float64 `json:"r_squared,omitempty"`
	StandardError           *float64 `json:"standard_error,omitempty"`
	PValue                  *float64 `json:"p_value,omitempty"`
	DataPointsUsed          int      `json:"data_points_used"`
	IsSignificant           bool     `json:"is_significant"`
	IsReliable              bool     `json:"is_reliable"`
	ReliabilityNote         string   `json:"reliability_note,omitempty"`
}

// CalculationMetadata records how a calculation was executed.
type CalculationMetadata struct {
	DispatchMode       string   `json:"dispatch_mode,omitempty"`
	DataPoints         int      `json:"data_points,omitempty"`
	AverageDataQuality *float64 `json:"average_data_quality,omitempty"`
	MinDataQuality     *float64 `json:"min_data_quality,omitempty"`
}

// CalculationStatus is the lightweight projection served to frequent pollers.
type CalculationStatus struct {
	ID          uuid.UUID  `json:"id"`
	Status      string     `json:"status"`
	IsComplete  bool       `json:"is_complete"`
	HasError    bool       `json:"has_error"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StatusOf projects a calculation to its polling view.
func StatusOf(c *Calculation) CalculationStatus {
	return CalculationStatus{
		ID:          c.ID,
		Status:      c.Status,
		IsComplete:  c.IsTerminal(),
		HasError:    c.Status == StatusFailed,
		CreatedAt:   c.CreatedAt,
		CompletedAt: c.CompletedAt,
	}
}

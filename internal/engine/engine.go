// Package engine computes price elasticity of demand from aligned price and
// quantity series.
package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// ErrInvalidInput marks input the engine refuses to compute on. Its message
// is meant for end users.
var ErrInvalidInput = errors.New("invalid elasticity input")

const (
	// MinPriceVariationPct is the smallest midpoint price change, in percent,
	// that yields a meaningful coefficient.
	MinPriceVariationPct = 0.5
	// MaxReasonableElasticity flags larger midpoint coefficients as unreliable.
	MaxReasonableElasticity = 10.0
	// MinRegressionPoints is the fewest observations a regression accepts.
	MinRegressionPoints = 10
	// MinPriceStdDev is the smallest price standard deviation a regression accepts.
	MinPriceStdDev = 0.01
	// SignificanceLevel is the p-value cutoff for IsSignificant.
	SignificanceLevel = 0.05
)

// Calculator turns price and quantity series into an elasticity result.
type Calculator interface {
	Calculate(method string, prices, quantities []float64) (*models.ElasticityResult, error)
}

// Engine is the default Calculator.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Calculate(method string, prices, quantities []float64) (*models.ElasticityResult, error) {
	if len(prices) != len(quantities) {
		return nil, invalid("Prices and quantities must have same length")
	}
	switch method {
	case models.MethodMidpoint:
		return Midpoint(prices, quantities)
	case models.MethodRegression:
		return Regression(prices, quantities)
	default:
		return nil, fmt.Errorf("unknown calculation method %q", method)
	}
}

// Classify maps an elasticity coefficient to its classification. Values
// within 0.05 of 1 in magnitude count as unitary.
func Classify(coefficient float64) string {
	abs := math.Abs(coefficient)
	switch {
	case abs > 1.05:
		return models.ClassificationElastic
	case abs < 0.95:
		return models.ClassificationInelastic
	default:
		return models.ClassificationUnitary
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Message returns the user-facing text of an ErrInvalidInput error.
func Message(err error) string {
	return strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
}

func ptr(v float64) *float64 { return &v }

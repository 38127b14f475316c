package engine

import (
	"math"

	"github.com/kiranshivaraju/elasticbot/pkg/models"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Regression fits ln(Q) = a + b*ln(P) by ordinary least squares. The slope b
// is the elasticity; the result carries r², the slope's standard error, its
// two-sided p-value and a 95% confidence interval.
func Regression(prices, quantities []float64) (*models.ElasticityResult, error) {
	n := len(prices)
	if n < MinRegressionPoints {
		return nil, invalid("Need at least %d data points for regression, got %d", MinRegressionPoints, n)
	}
	for i := range prices {
		if prices[i] <= 0 {
			return nil, invalid("All prices must be positive for log transformation")
		}
		if quantities[i] <= 0 {
			return nil, invalid("All quantities must be positive for log transformation")
		}
	}
	if populationStdDev(prices) < MinPriceStdDev {
		return nil, invalid("Insufficient price variation for regression")
	}

	x := make([]float64, n)
	y := make([]float64, n)
	for i := range prices {
		x[i] = math.Log(prices[i])
		y[i] = math.Log(quantities[i])
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	r2 := stat.RSquared(x, y, nil, alpha, beta)
	if math.IsNaN(r2) {
		// Constant quantities: nothing to explain.
		r2 = 0
	}

	df := float64(n - 2)
	var sse, sxx float64
	meanX := stat.Mean(x, nil)
	for i := range x {
		resid := y[i] - (alpha + beta*x[i])
		sse += resid * resid
		sxx += (x[i] - meanX) * (x[i] - meanX)
	}
	se := math.Sqrt(sse/df) / math.Sqrt(sxx)

	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	var p float64
	switch {
	case se > 0:
		p = 2 * (1 - t.CDF(math.Abs(beta/se)))
	case beta == 0:
		p = 1
	}
	margin := t.Quantile(0.975) * se

	return &models.ElasticityResult{
		Coefficient:             beta,
		Magnitude:               math.Abs(beta),
		Classification:          Classify(beta),
		ConfidenceIntervalLower: ptr(beta - margin),
		ConfidenceIntervalUpper: ptr(beta + margin),
		RSquared:                ptr(r2),
		StandardError:           ptr(se),
		PValue:                  ptr(p),
		DataPointsUsed:          n,
		IsSignificant:           p < SignificanceLevel,
		IsReliable:              true,
	}, nil
}

func populationStdDev(xs []float64) float64 {
	mean := stat.Mean(xs, nil)
	var ss float64
	for _, v := range xs {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(xs)))
}

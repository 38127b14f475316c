package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// Midpoint computes arc elasticity between the first and last observations:
//
//	Ed = ((Q2-Q1) / ((Q1+Q2)/2)) / ((P2-P1) / ((P1+P2)/2))
func Midpoint(prices, quantities []float64) (*models.ElasticityResult, error) {
	if len(prices) < 2 {
		return nil, invalid("Need at least 2 data points for elasticity calculation")
	}
	p1, p2 := prices[0], prices[len(prices)-1]
	q1, q2 := quantities[0], quantities[len(quantities)-1]

	if p1 <= 0 || p2 <= 0 {
		return nil, invalid("Prices must be positive")
	}
	if q1 < 0 || q2 < 0 {
		return nil, invalid("Quantities must be non-negative")
	}

	priceMid := (p1 + p2) / 2
	qtyMid := (q1 + q2) / 2
	priceChange := p2 - p1
	qtyChange := q2 - q1

	pctPrice := math.Abs(priceChange/priceMid) * 100
	if pctPrice < MinPriceVariationPct {
		return nil, invalid(
			"Insufficient price variation: %.2f%% (minimum required: %.1f%%). Price range %.4f to %.4f is too narrow for meaningful elasticity calculation.",
			pctPrice, MinPriceVariationPct, p1, p2,
		)
	}
	if qtyMid == 0 {
		return nil, invalid("Quantities must not both be zero")
	}

	coef := (qtyChange / qtyMid) / (priceChange / priceMid)
	abs := math.Abs(coef)

	res := &models.ElasticityResult{
		Coefficient:    coef,
		Magnitude:      abs,
		Classification: Classify(coef),
		DataPointsUsed: len(prices),
		IsReliable:     abs <= MaxReasonableElasticity,
	}
	if !res.IsReliable {
		res.ReliabilityNote = fmt.Sprintf(
			"Elasticity coefficient |%.2f| exceeds reasonable range (|%.0f|). This may indicate price variation too small (%.2f%%), volume changes driven by factors other than price, or insufficient data quality. Interpret with caution.",
			abs, MaxReasonableElasticity, pctPrice,
		)
		slog.Warn("unreliable midpoint elasticity", "coefficient", coef, "price_change_pct", pctPrice)
	}
	return res, nil
}

package engine

import "github.com/kiranshivaraju/elasticbot/pkg/models"

// Simulate computes the midpoint elasticity of a hypothetical scenario. It
// applies the same input checks as Midpoint.
func Simulate(s models.Scenario) (*models.ScenarioResult, error) {
	res, err := Midpoint(
		[]float64{s.PriceInitial, s.PriceFinal},
		[]float64{s.QuantityInitial, s.QuantityFinal},
	)
	if err != nil {
		return nil, err
	}

	priceMid := (s.PriceInitial + s.PriceFinal) / 2
	qtyMid := (s.QuantityInitial + s.QuantityFinal) / 2
	priceChange := s.PriceFinal - s.PriceInitial
	qtyChange := s.QuantityFinal - s.QuantityInitial

	return &models.ScenarioResult{
		Elasticity:               res.Coefficient,
		AbsValue:                 res.Magnitude,
		Classification:           res.Classification,
		PercentageChangeQuantity: qtyChange / qtyMid * 100,
		PercentageChangePrice:    priceChange / priceMid * 100,
		QuantityChange:           qtyChange,
		PriceChange:              priceChange,
		IsReliable:               res.IsReliable,
		ReliabilityNote:          res.ReliabilityNote,
		Metadata: models.ScenarioMetadata{
			Scenario:         s,
			PriceMidpoint:    priceMid,
			QuantityMidpoint: qtyMid,
		},
	}, nil
}

package models

// Scenario is a hypothetical move between two price and quantity points.
type Scenario struct {
	PriceInitial    float64 `json:"price_initial"`
	PriceFinal      float64 `json:"price_final"`
	QuantityInitial float64 `json:"quantity_initial"`
	QuantityFinal   float64 `json:"quantity_final"`
}

// ScenarioResult is the midpoint elasticity of a Scenario. Percentage
// changes are signed and measured against the midpoints.
type ScenarioResult struct {
	Elasticity               float64          `json:"elasticity"`
	AbsValue                 float64          `json:"abs_value"`
	Classification           string           `json:"classification"`
	PercentageChangeQuantity float64          `json:"percentage_change_quantity"`
	PercentageChangePrice    float64          `json:"percentage_change_price"`
	QuantityChange           float64          `json:"quantity_change"`
	PriceChange              float64          `json:"price_change"`
	IsReliable               bool             `json:"is_reliable"`
	ReliabilityNote          string           `json:"reliability_note,omitempty"`
	Metadata                 ScenarioMetadata `json:"metadata"`
}

type ScenarioMetadata struct {
	Scenario
	PriceMidpoint    float64 `json:"price_midpoint"`
	QuantityMidpoint float64 `json:"quantity_midpoint"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// MarketSnapshot is one aggregated observation of the USDT/BOB P2P market.
// Prices are in BOB per USDT, volume in USDT.
type MarketSnapshot struct {
	ID               uuid.UUID `db:"id"                 json:"id"`
	Timestamp        time.Time `db:"timestamp"          json:"timestamp"`
	AverageSellPrice float64   `db:"average_sell_price" json:"average_sell_price"`
	AverageBuyPrice  *float64  `db:"average_buy_price"  json:"average_buy_price,omitempty"`
	TotalVolume      float64   `db:"total_volume"       json:"total_volume"`
	SpreadPercentage float64   `db:"spread_percentage"  json:"spread_percentage"`
	NumActiveTraders int       `db:"num_active_traders" json:"num_active_traders"`
	DataQualityScore float64   `db:"data_quality_score" json:"data_quality_score"`
	CreatedAt        time.Time `db:"created_at"         json:"created_at"`
}

// ExchangeRate is the official BCB USD/BOB rate for one day.
type ExchangeRate struct {
	Date      time.Time `db:"date"       json:"date"`
	Sell      float64   `db:"sell"       json:"sell"`
	Buy       float64   `db:"buy"        json:"buy"`
	Source    string    `db:"source"     json:"source"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

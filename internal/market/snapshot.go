package market

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// Quality thresholds applied to every snapshot.
const (
	qualityMinPrice   = 5.0
	qualityMaxPrice   = 15.0
	qualityMinVolume  = 100.0
	qualityMinTraders = 5
	qualityMaxSpread  = 5.0
)

// Aggregate summarizes sell and buy ads into a market snapshot taken at ts.
// The data quality score is filled in.
func Aggregate(sell, buy []Ad, ts time.Time) *models.MarketSnapshot {
	traders := map[string]struct{}{}

	avg := func(ads []Ad) (mean, volume float64) {
		if len(ads) == 0 {
			return 0, 0
		}
		var sum float64
		for _, a := range ads {
			sum += a.Price
			volume += a.Available
			if a.Advertiser != "" {
				traders[a.Advertiser] = struct{}{}
			}
		}
		return sum / float64(len(ads)), volume
	}

	sellPrice, sellVolume := avg(sell)
	buyPrice, buyVolume := avg(buy)

	snap := &models.MarketSnapshot{
		ID:               uuid.New(),
		Timestamp:        ts.UTC(),
		AverageSellPrice: sellPrice,
		TotalVolume:      sellVolume + buyVolume,
		NumActiveTraders: len(traders),
	}
	if buyPrice > 0 {
		snap.AverageBuyPrice = &buyPrice
		if sellPrice > 0 {
			snap.SpreadPercentage = (sellPrice - buyPrice) / buyPrice * 100
		}
	}
	snap.DataQualityScore = QualityScore(snap)
	return snap
}

// QualityScore rates a snapshot between 0 and 1. It starts at 1 and loses
// 0.3 for a price outside [5, 15], 0.3 for volume under 100, 0.2 for fewer
// than 5 traders and 0.2 for a spread above 5%.
func QualityScore(s *models.MarketSnapshot) float64 {
	score := 1.0
	if s.AverageSellPrice < qualityMinPrice || s.AverageSellPrice > qualityMaxPrice {
		score -= 0.3
	}
	if s.TotalVolume < qualityMinVolume {
		score -= 0.3
	}
	if s.NumActiveTraders < qualityMinTraders {
		score -= 0.2
	}
	if s.SpreadPercentage > qualityMaxSpread {
		score -= 0.2
	}
	if score < 0 {
		return 0
	}
	return score
}

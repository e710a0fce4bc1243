package model

import "time"

// Candle is one OHLCV bar. Series are always ordered oldest first.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Market identifies the candle source universe.
type Market string

const (
	MarketBIST    Market = "bist100"
	MarketBinance Market = "binance"
)

// Horizon is the configured time granularity class of a strategy.
type Horizon string

const (
	HorizonShort  Horizon = "short"  // hourly bars
	HorizonMedium Horizon = "medium" // 4h bars
	HorizonLong   Horizon = "long"   // daily bars
)

// BarDuration returns the candle interval for a horizon.
func (h Horizon) BarDuration() time.Duration {
	switch h {
	case HorizonMedium:
		return 4 * time.Hour
	case HorizonLong:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

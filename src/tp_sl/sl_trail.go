package tp_sl

import (
	"signalscanner/src/model"
)

func IsBullish(c model.Candle) bool { return c.Close > c.Open }
func IsBearish(c model.Candle) bool { return c.Close < c.Open }

func AvgLow(candles []model.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range candles {
		sum += c.Low
	}
	return sum / float64(len(candles))
}

func AvgHigh(candles []model.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range candles {
		sum += c.High
	}
	return sum / float64(len(candles))
}

// ComputeNextStopLossDirectional applies trailing SL for long or short.
//
// Long:
// - gate: previous candle bullish
// - floor: avg(low) over lookback
// - clamp: candidate <= prev.Low
// - update: SL = max(SL, candidate)
//
// Short:
// - gate: previous candle bearish
// - ceiling: avg(high) over lookback
// - clamp: candidate >= prev.High
// - update: SL = min(SL, candidate)
func ComputeNextStopLossDirectional(
	direction model.Direction,
	currentSL float64,
	candles []model.Candle,
	lookback int,
) (newSL float64, moved bool) {
	if len(candles) < 2 {
		return currentSL, false
	}
	if lookback <= 0 {
		lookback = 20
	}
	if lookback > len(candles) {
		lookback = len(candles)
	}

	prev := candles[len(candles)-2]
	window := candles[len(candles)-lookback:]

	switch direction {
	case model.DirectionLong:
		if !IsBullish(prev) {
			return currentSL, false
		}
		floorAvg := AvgLow(window)

		candidate := floorAvg
		if candidate > prev.Low {
			candidate = prev.Low
		}

		if candidate > currentSL {
			return candidate, true
		}
		return currentSL, false

	case model.DirectionShort:
		if !IsBearish(prev) {
			return currentSL, false
		}
		ceilAvg := AvgHigh(window)

		candidate := ceilAvg
		// For shorts, do not set stop below the last bearish candle high
		if candidate < prev.High {
			candidate = prev.High
		}

		// Stop only moves down for shorts
		if candidate < currentSL {
			return candidate, true
		}
		return currentSL, false

	default:
		return currentSL, false
	}
}

package levels

import (
	"math"

	"signalscanner/src/model"
)

// DefaultATRPeriod is the true-range lookback used when strategies do not
// override it.
const DefaultATRPeriod = 14

// Params controls entry/stop/target pricing.
type Params struct {
	ATRPeriod     int
	ATRMultiplier float64 // buffer = ATR * multiplier
	MinATRRisk    float64 // floor on |entry-stop| in ATR units
	MaxATRRisk    float64 // cap on |entry-stop| in ATR units
	RewardRatio   float64 // target distance = risk * ratio
}

// DefaultParams mirrors the strategy defaults: half-ATR buffer, risk clamped
// to [0.5, 2.5] ATR, 2R target.
func DefaultParams() Params {
	return Params{
		ATRPeriod:     DefaultATRPeriod,
		ATRMultiplier: 0.5,
		MinATRRisk:    0.5,
		MaxATRRisk:    2.5,
		RewardRatio:   2.0,
	}
}

// FindPivots returns peak and trough series aligned with candles. A bar at
// index i is a peak iff its high is the maximum of the closed window
// [i-n, i+n]; troughs are symmetric on lows. Non-pivot entries are nil.
func FindPivots(candles []model.Candle, n int) (peaks, troughs []*float64) {
	peaks = make([]*float64, len(candles))
	troughs = make([]*float64, len(candles))
	if n <= 0 {
		return peaks, troughs
	}

	for i := n; i < len(candles)-n; i++ {
		isPeak, isTrough := true, true
		for j := i - n; j <= i+n; j++ {
			if candles[j].High > candles[i].High {
				isPeak = false
			}
			if candles[j].Low < candles[i].Low {
				isTrough = false
			}
		}
		if isPeak {
			high := candles[i].High
			peaks[i] = &high
		}
		if isTrough {
			low := candles[i].Low
			troughs[i] = &low
		}
	}
	return peaks, troughs
}

// LastPivots returns the most recent confirmed peak and trough prices, or nil
// when none exist in range. Callers must treat nil as insufficient structure
// and not signal.
func LastPivots(candles []model.Candle, n int) (lastPeak, lastTrough *float64) {
	peaks, troughs := FindPivots(candles, n)
	for i := len(candles) - 1; i >= 0; i-- {
		if lastPeak == nil && peaks[i] != nil {
			lastPeak = peaks[i]
		}
		if lastTrough == nil && troughs[i] != nil {
			lastTrough = troughs[i]
		}
		if lastPeak != nil && lastTrough != nil {
			break
		}
	}
	return lastPeak, lastTrough
}

// ATR is the mean true range over the last period bars. True range is
// max(high-low, |high-prevClose|, |low-prevClose|). Returns 0 when fewer than
// two bars are available.
func ATR(candles []model.Candle, period int) float64 {
	if len(candles) < 2 || period <= 0 {
		return 0
	}

	start := len(candles) - period
	if start < 1 {
		start = 1
	}

	sum, count := 0.0, 0
	for i := start; i < len(candles); i++ {
		tr := candles[i].High - candles[i].Low
		prevClose := candles[i-1].Close
		if hc := math.Abs(candles[i].High - prevClose); hc > tr {
			tr = hc
		}
		if lc := math.Abs(candles[i].Low - prevClose); lc > tr {
			tr = lc
		}
		sum += tr
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// ComputeLevels prices a setup from the last confirmed pivots.
//
// Long: entry = lastPeak + buffer, stop = max(lastTrough - buffer,
// entry - maxATRRisk*ATR), widened to entry - minATRRisk*ATR when too tight,
// target = entry + risk*rewardRatio. Short is the mirror. The cap keeps a
// noisy ATR from producing an oversized risk; the floor keeps normal noise
// from stopping the trade out immediately.
func ComputeLevels(candles []model.Candle, direction model.Direction, lastPeak, lastTrough float64, p Params) (entry, stopLoss, takeProfit float64) {
	atr := ATR(candles, p.ATRPeriod)
	buffer := atr * p.ATRMultiplier
	maxStopDistance := atr * p.MaxATRRisk
	minStopDistance := atr * p.MinATRRisk

	if direction == model.DirectionLong {
		entry = lastPeak + buffer

		naturalStop := lastTrough - buffer
		cappedStop := entry - maxStopDistance
		stopLoss = math.Max(naturalStop, cappedStop)

		risk := entry - stopLoss
		if risk < minStopDistance {
			stopLoss = entry - minStopDistance
			risk = minStopDistance
		}
		takeProfit = entry + risk*p.RewardRatio
		return entry, stopLoss, takeProfit
	}

	entry = lastTrough - buffer

	naturalStop := lastPeak + buffer
	cappedStop := entry + maxStopDistance
	stopLoss = math.Min(naturalStop, cappedStop)

	risk := stopLoss - entry
	if risk < minStopDistance {
		stopLoss = entry + minStopDistance
		risk = minStopDistance
	}
	takeProfit = entry - risk*p.RewardRatio
	return entry, stopLoss, takeProfit
}

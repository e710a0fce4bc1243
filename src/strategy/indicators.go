package strategy

import "math"

// Indicator series are aligned with their input; entries inside the warmup
// window are NaN so crossover checks cannot fire on undefined values.

// EMA returns the exponential moving average with alpha = 2/(period+1),
// seeded at the first value.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || period <= 0 {
		return out
	}

	alpha := 2.0 / (float64(period) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// SMA returns the simple moving average; the first period-1 entries are NaN.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// MACD returns the MACD line (fast EMA - slow EMA) and its signal line.
func MACD(closes []float64, fast, slow, signal int) (macd, signalLine []float64) {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	signalLine = EMA(macd, signal)
	return macd, signalLine
}

// RSI returns the relative strength index using rolling-mean gains/losses.
// A zero average loss yields 100 on gains and a neutral 50 on a flat window.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(closes) <= period {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	avgGain := SMA(gains[1:], period)
	avgLoss := SMA(losses[1:], period)

	for i := period; i < len(closes); i++ {
		g, l := avgGain[i-1], avgLoss[i-1]
		if math.IsNaN(g) || math.IsNaN(l) {
			continue
		}
		switch {
		case l == 0 && g == 0:
			out[i] = 50
		case l == 0:
			out[i] = 100
		default:
			rs := g / l
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

// StochRSI returns the %K and %D lines of the stochastic RSI. A zero RSI
// range inside the lookback is treated as zero, not propagated as an error.
func StochRSI(closes []float64, rsiPeriod, stochPeriod, kPeriod, dPeriod int) (kLine, dLine []float64) {
	rsi := RSI(closes, rsiPeriod)

	raw := make([]float64, len(closes))
	for i := range raw {
		raw[i] = math.NaN()
	}

	for i := stochPeriod - 1; i < len(rsi); i++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		valid := true
		for j := i - stochPeriod + 1; j <= i; j++ {
			if math.IsNaN(rsi[j]) {
				valid = false
				break
			}
			lo = math.Min(lo, rsi[j])
			hi = math.Max(hi, rsi[j])
		}
		if !valid {
			continue
		}
		if hi == lo {
			raw[i] = 0
			continue
		}
		raw[i] = (rsi[i] - lo) / (hi - lo) * 100
	}

	kLine = smaSkippingNaN(raw, kPeriod)
	dLine = smaSkippingNaN(kLine, dPeriod)
	return kLine, dLine
}

// smaSkippingNaN is an SMA whose window must be fully defined to produce a
// value.
func smaSkippingNaN(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 {
		return out
	}

	for i := period - 1; i < len(values); i++ {
		sum, valid := 0.0, true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				valid = false
				break
			}
			sum += values[j]
		}
		if valid {
			out[i] = sum / float64(period)
		}
	}
	return out
}

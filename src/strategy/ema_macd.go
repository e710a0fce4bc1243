package strategy

import (
	"fmt"

	"signalscanner/src/levels"
	"signalscanner/src/model"
)

// TypeEMAMACD is the trend-filter + momentum-crossover variant: long when
// price is above a long EMA and the MACD line crosses up through its signal
// line, mirrored short below the EMA.
const TypeEMAMACD = "ema_macd"

func init() {
	Register(TypeEMAMACD, func(params model.JSONMap, rewardRatio float64) Evaluator {
		return NewEMAMACD(params, rewardRatio)
	})
}

type EMAMACD struct {
	EMAPeriod     int
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
	PivotBars     int
	ATRPeriod     int
	ATRMultiplier float64
	RewardRatio   float64
}

func NewEMAMACD(params model.JSONMap, rewardRatio float64) *EMAMACD {
	if rewardRatio <= 0 {
		rewardRatio = 2.0
	}
	return &EMAMACD{
		EMAPeriod:     paramInt(params, "ema_period", 200),
		MACDFast:      paramInt(params, "macd_fast", 12),
		MACDSlow:      paramInt(params, "macd_slow", 26),
		MACDSignal:    paramInt(params, "macd_signal", 9),
		PivotBars:     paramInt(params, "pivot_bars", 5),
		ATRPeriod:     paramInt(params, "atr_period", levels.DefaultATRPeriod),
		ATRMultiplier: paramFloat(params, "atr_multiplier", 0.5),
		RewardRatio:   rewardRatio,
	}
}

func (s *EMAMACD) Name() string { return TypeEMAMACD }

func (s *EMAMACD) Evaluate(candles []model.Candle) Result {
	result := Result{Direction: model.DirectionLong}

	if len(candles) < s.EMAPeriod {
		result.Notes = fmt.Sprintf("insufficient history: %d bars, need %d", len(candles), s.EMAPeriod)
		return result
	}

	closePrices := closes(candles)
	currentPrice := closePrices[len(closePrices)-1]
	result.CurrentPrice = ptr(currentPrice)

	ema := EMA(closePrices, s.EMAPeriod)
	currentEMA := ema[len(ema)-1]

	macd, signal := MACD(closePrices, s.MACDFast, s.MACDSlow, s.MACDSignal)
	last := len(macd) - 1
	currMACD, currSignal := macd[last], signal[last]
	prevMACD, prevSignal := macd[last-1], signal[last-1]

	lastPeak, lastTrough := levels.LastPivots(candles, s.PivotBars)
	result.LastPeak = lastPeak
	result.LastTrough = lastTrough

	result.ExtraData = model.JSONMap{
		"ema":             currentEMA,
		"macd":            currMACD,
		"macd_signal":     currSignal,
		"price_above_ema": currentPrice > currentEMA,
	}

	bullishCross := prevMACD < prevSignal && currMACD > currSignal
	bearishCross := prevMACD > prevSignal && currMACD < currSignal

	switch {
	case currentPrice > currentEMA:
		result.PreconditionMet = true
		result.Direction = model.DirectionLong
		if !bullishCross {
			result.Notes = "price above trend EMA, awaiting bullish MACD cross"
			return result
		}
		if lastPeak == nil || lastTrough == nil {
			result.Notes = "bullish MACD cross but no confirmed pivots, holding off"
			return result
		}
		result.MainConditionMet = true
		result.Notes = "price above trend EMA, MACD crossed up: long"

	case currentPrice < currentEMA:
		result.PreconditionMet = true
		result.Direction = model.DirectionShort
		if !bearishCross {
			result.Notes = "price below trend EMA, awaiting bearish MACD cross"
			return result
		}
		if lastPeak == nil || lastTrough == nil {
			result.Notes = "bearish MACD cross but no confirmed pivots, holding off"
			return result
		}
		result.MainConditionMet = true
		result.Notes = "price below trend EMA, MACD crossed down: short"

	default:
		result.Notes = "price sitting on trend EMA, no bias"
		return result
	}

	entry, stop, target := levels.ComputeLevels(candles, result.Direction, *lastPeak, *lastTrough, levels.Params{
		ATRPeriod:     s.ATRPeriod,
		ATRMultiplier: s.ATRMultiplier,
		MinATRRisk:    0.5,
		MaxATRRisk:    2.5,
		RewardRatio:   s.RewardRatio,
	})
	result.EntryPrice = ptr(entry)
	result.StopLoss = ptr(stop)
	result.TakeProfit = ptr(target)
	return result
}

package strategy

import (
	"fmt"
	"math"

	"signalscanner/src/levels"
	"signalscanner/src/model"
)

// TypeBreakoutStochRSI is the breakout + momentum-confirmation variant, long
// only: price above the trend EMA, price breaking above the last confirmed
// pivot peak, and the stochastic RSI %K crossing up through the oversold
// threshold.
const TypeBreakoutStochRSI = "breakout_stochrsi"

func init() {
	Register(TypeBreakoutStochRSI, func(params model.JSONMap, rewardRatio float64) Evaluator {
		return NewBreakoutStochRSI(params, rewardRatio)
	})
}

type BreakoutStochRSI struct {
	EMAPeriod     int
	RSIPeriod     int
	StochPeriod   int
	StochK        int
	StochD        int
	StochOversold float64
	PivotBars     int
	ATRPeriod     int
	ATRMultiplier float64
	RewardRatio   float64
}

func NewBreakoutStochRSI(params model.JSONMap, rewardRatio float64) *BreakoutStochRSI {
	if rewardRatio <= 0 {
		rewardRatio = 2.0
	}
	return &BreakoutStochRSI{
		EMAPeriod:     paramInt(params, "ema_period", 200),
		RSIPeriod:     paramInt(params, "rsi_period", 14),
		StochPeriod:   paramInt(params, "stoch_period", 14),
		StochK:        paramInt(params, "stoch_k", 3),
		StochD:        paramInt(params, "stoch_d", 3),
		StochOversold: paramFloat(params, "stoch_oversold", 20),
		PivotBars:     paramInt(params, "pivot_bars", 5),
		ATRPeriod:     paramInt(params, "atr_period", levels.DefaultATRPeriod),
		ATRMultiplier: paramFloat(params, "atr_multiplier", 0.5),
		RewardRatio:   rewardRatio,
	}
}

func (s *BreakoutStochRSI) Name() string { return TypeBreakoutStochRSI }

func (s *BreakoutStochRSI) minBars() int {
	indicatorBars := s.RSIPeriod + s.StochPeriod + s.StochK
	if s.EMAPeriod > indicatorBars {
		return s.EMAPeriod
	}
	return indicatorBars
}

func (s *BreakoutStochRSI) Evaluate(candles []model.Candle) Result {
	result := Result{Direction: model.DirectionLong}

	if need := s.minBars(); len(candles) < need {
		result.Notes = fmt.Sprintf("insufficient history: %d bars, need %d", len(candles), need)
		return result
	}

	closePrices := closes(candles)
	currentPrice := closePrices[len(closePrices)-1]
	result.CurrentPrice = ptr(currentPrice)

	ema := EMA(closePrices, s.EMAPeriod)
	currentEMA := ema[len(ema)-1]

	kLine, dLine := StochRSI(closePrices, s.RSIPeriod, s.StochPeriod, s.StochK, s.StochD)
	last := len(kLine) - 1
	currK, prevK := kLine[last], kLine[last-1]

	lastPeak, lastTrough := levels.LastPivots(candles, s.PivotBars)
	result.LastPeak = lastPeak
	result.LastTrough = lastTrough

	result.ExtraData = model.JSONMap{
		"ema":             currentEMA,
		"price_above_ema": currentPrice > currentEMA,
	}
	if !math.IsNaN(currK) {
		result.ExtraData["stoch_k"] = currK
	}
	if !math.IsNaN(dLine[last]) {
		result.ExtraData["stoch_d"] = dLine[last]
	}

	if currentPrice <= currentEMA {
		result.Notes = "price below trend EMA, no uptrend"
		return result
	}
	result.PreconditionMet = true

	if lastPeak == nil || lastTrough == nil {
		result.Notes = "uptrend confirmed but no confirmed pivots yet"
		return result
	}
	resistance := *lastPeak
	result.ExtraData["resistance_level"] = resistance
	result.ExtraData["support_level"] = *lastTrough

	breakout := currentPrice > resistance
	stochCrossUp := !math.IsNaN(prevK) && !math.IsNaN(currK) &&
		prevK < s.StochOversold && currK >= s.StochOversold

	result.ExtraData["breakout_occurred"] = breakout
	result.ExtraData["stoch_cross_up"] = stochCrossUp

	switch {
	case breakout && stochCrossUp:
		result.MainConditionMet = true
		result.Notes = fmt.Sprintf("resistance %.2f broken with stochastic RSI momentum: long", resistance)
	case breakout:
		result.Notes = fmt.Sprintf("resistance %.2f broken, awaiting stochastic RSI confirmation", resistance)
		return result
	default:
		result.Notes = fmt.Sprintf("uptrend confirmed, awaiting breakout above %.2f", resistance)
		return result
	}

	entry, stop, target := levels.ComputeLevels(candles, model.DirectionLong, resistance, *lastTrough, levels.Params{
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

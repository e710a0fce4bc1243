package strategy

import (
	"strings"
	"testing"

	"signalscanner/src/levels"
	"signalscanner/src/model"
)

// stairstepCloses rises in blocks: a steady climb, a long shallow pullback
// that drives the stochastic RSI to zero, then a sharp three-bar recovery
// that clears the previous block's peak.
func stairstepCloses(blocks int) []float64 {
	out := make([]float64, 0, blocks*25)
	price := 100.0
	for b := 0; b < blocks; b++ {
		for i := 0; i < 12; i++ {
			price += 0.8
			out = append(out, price)
		}
		for i := 0; i < 10; i++ {
			price -= 0.25
			out = append(out, price)
		}
		for i := 0; i < 3; i++ {
			price += 3.5
			out = append(out, price)
		}
	}
	return out
}

func TestBreakoutStochRSIFullTrigger(t *testing.T) {
	closeValues := stairstepCloses(8)
	candles := candlesFromCloses(closeValues)
	s := NewBreakoutStochRSI(model.JSONMap{
		"ema_period": float64(50),
		"pivot_bars": float64(3),
	}, 2.0)

	ema := EMA(closeValues, s.EMAPeriod)
	kLine, _ := StochRSI(closeValues, s.RSIPeriod, s.StochPeriod, s.StochK, s.StochD)

	// Locate a bar where the uptrend holds, price clears the last confirmed
	// peak, and %K crosses up through the oversold threshold.
	triggerAt := -1
	for i := 60; i < len(candles); i++ {
		if closeValues[i] <= ema[i] {
			continue
		}
		if !(kLine[i-1] < s.StochOversold && kLine[i] >= s.StochOversold) {
			continue
		}
		peak, trough := levels.LastPivots(candles[:i+1], s.PivotBars)
		if peak == nil || trough == nil {
			continue
		}
		if closeValues[i] <= *peak {
			continue
		}
		triggerAt = i
		break
	}
	if triggerAt < 0 {
		t.Fatal("constructed series produced no breakout with momentum confirmation")
	}

	result := s.Evaluate(candles[:triggerAt+1])

	if !result.PreconditionMet {
		t.Fatalf("expected uptrend precondition at trigger bar: %+v", result)
	}
	if !result.MainConditionMet {
		t.Fatalf("expected main condition at trigger bar: %+v", result)
	}
	if result.Direction != model.DirectionLong {
		t.Fatalf("breakout variant is long only, got %s", result.Direction)
	}
	if result.EntryPrice == nil || result.StopLoss == nil || result.TakeProfit == nil {
		t.Fatalf("expected full level set: %+v", result)
	}
	if *result.EntryPrice <= *result.LastPeak {
		t.Fatalf("entry %v must sit above broken resistance %v", *result.EntryPrice, *result.LastPeak)
	}
	if *result.StopLoss >= *result.EntryPrice || *result.TakeProfit <= *result.EntryPrice {
		t.Fatalf("levels out of order: stop=%v entry=%v target=%v",
			*result.StopLoss, *result.EntryPrice, *result.TakeProfit)
	}

	// One bar earlier the %K cross has not fired yet.
	before := s.Evaluate(candles[:triggerAt])
	if before.MainConditionMet {
		t.Fatal("main condition must not be met before the %K cross bar")
	}
}

func TestBreakoutStochRSIBelowEMA(t *testing.T) {
	closeValues := make([]float64, 120)
	price := 200.0
	for i := range closeValues {
		price -= 0.4
		closeValues[i] = price
	}
	s := NewBreakoutStochRSI(model.JSONMap{"ema_period": float64(50)}, 2.0)
	result := s.Evaluate(candlesFromCloses(closeValues))

	if result.PreconditionMet {
		t.Fatalf("downtrend must not satisfy the long-only precondition: %+v", result)
	}
	if result.MainConditionMet || result.EntryPrice != nil {
		t.Fatalf("no trigger or levels without the trend filter: %+v", result)
	}
}

func TestBreakoutStochRSIUptrendWithoutPivots(t *testing.T) {
	// A monotonic rise never confirms a pivot peak: precondition only.
	closeValues := make([]float64, 120)
	price := 100.0
	for i := range closeValues {
		price += 0.5
		closeValues[i] = price
	}
	s := NewBreakoutStochRSI(model.JSONMap{"ema_period": float64(50)}, 2.0)
	result := s.Evaluate(candlesFromCloses(closeValues))

	if !result.PreconditionMet {
		t.Fatalf("monotonic rise should satisfy the trend filter: %+v", result)
	}
	if result.MainConditionMet {
		t.Fatal("no confirmed resistance means no breakout")
	}
	if !strings.Contains(result.Notes, "pivot") {
		t.Fatalf("expected a missing-pivots note, got %q", result.Notes)
	}
}

func TestBreakoutStochRSIInsufficientHistory(t *testing.T) {
	s := NewBreakoutStochRSI(nil, 2.0)
	result := s.Evaluate(candlesFromCloses(stairstepCloses(1)))

	if result.PreconditionMet || result.MainConditionMet {
		t.Fatalf("short series must not signal: %+v", result)
	}
	if !strings.Contains(result.Notes, "insufficient history") {
		t.Fatalf("expected an insufficient-history note, got %q", result.Notes)
	}
}

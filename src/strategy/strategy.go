package strategy

import (
	"fmt"
	"sort"

	"signalscanner/src/model"
)

// Result is the outcome of one strategy evaluation. It is a pure function of
// the candle window and the strategy parameters and is never persisted
// verbatim.
type Result struct {
	PreconditionMet  bool
	MainConditionMet bool

	Direction  model.Direction
	EntryPrice *float64
	StopLoss   *float64
	TakeProfit *float64

	LastPeak   *float64
	LastTrough *float64

	CurrentPrice *float64

	Notes     string
	ExtraData model.JSONMap
}

// Evaluator is a configured strategy variant.
type Evaluator interface {
	Name() string
	Evaluate(candles []model.Candle) Result
}

// Factory builds an Evaluator from its parameter map and reward:risk ratio.
type Factory func(params model.JSONMap, rewardRatio float64) Evaluator

var registry = map[string]Factory{}

// Register binds a strategy type tag to its factory. Called from init.
func Register(typeTag string, factory Factory) {
	registry[typeTag] = factory
}

// New resolves a strategy type tag at configuration-load time.
func New(typeTag string, params model.JSONMap, rewardRatio float64) (Evaluator, error) {
	factory, ok := registry[typeTag]
	if !ok {
		return nil, fmt.Errorf("unknown strategy type %q", typeTag)
	}
	return factory(params, rewardRatio), nil
}

// FromConfig builds the evaluator for a persisted strategy row.
func FromConfig(s *model.Strategy) (Evaluator, error) {
	return New(s.StrategyType, s.Params, s.RiskRewardRatio)
}

// Types lists the registered strategy type tags.
func Types() []string {
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func paramFloat(params model.JSONMap, key string, def float64) float64 {
	if params == nil {
		return def
	}
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func paramInt(params model.JSONMap, key string, def int) int {
	if params == nil {
		return def
	}
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func closes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

func ptr(v float64) *float64 { return &v }

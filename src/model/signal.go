package model

import "time"

// SignalStatus is the lifecycle state of a Signal.
type SignalStatus string

const (
	SignalPending   SignalStatus = "pending"    // precondition met, main condition not yet
	SignalTriggered SignalStatus = "triggered"  // main condition met, price not yet at entry
	SignalEntered   SignalStatus = "entered"    // position opened
	SignalStopped   SignalStatus = "stopped"    // stop loss hit
	SignalTargetHit SignalStatus = "target_hit" // take profit hit
	SignalCancelled SignalStatus = "cancelled"  // precondition broke or manual cancel
	SignalClosed    SignalStatus = "closed"     // manual full exit
)

// ActiveStatuses are the non-terminal states. At most one Signal per
// (ticker, strategy) may hold one of these at any time.
var ActiveStatuses = []SignalStatus{SignalPending, SignalTriggered, SignalEntered}

// Terminal reports whether no further transition is allowed from s.
func (s SignalStatus) Terminal() bool {
	switch s {
	case SignalStopped, SignalTargetHit, SignalCancelled, SignalClosed:
		return true
	}
	return false
}

// Direction is the trade side of a signal.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Signal is a persisted state-machine instance tracking one strategy decision
// on one ticker from first precondition hit to terminal exit.
type Signal struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	Ticker     string       `gorm:"size:50;not null;index:idx_signals_ticker_strategy" json:"ticker"`
	Market     Market       `gorm:"size:30;not null" json:"market"`
	StrategyID uint         `gorm:"not null;index:idx_signals_ticker_strategy" json:"strategy_id"`
	Status     SignalStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	Direction  Direction    `gorm:"size:10;not null;default:long" json:"direction"`

	EntryPrice   *float64 `json:"entry_price"`
	StopLoss     *float64 `json:"stop_loss"`
	TakeProfit   *float64 `json:"take_profit"`
	CurrentPrice *float64 `json:"current_price"`

	LastPeak   *float64 `json:"last_peak"`
	LastTrough *float64 `json:"last_trough"`

	EntryReached     bool     `gorm:"not null;default:false" json:"entry_reached"`
	ActualEntryPrice *float64 `json:"actual_entry_price"`
	Lots             float64  `gorm:"not null;default:0" json:"lots"`
	RemainingLots    float64  `gorm:"not null;default:0" json:"remaining_lots"`

	CreatedAt   time.Time  `json:"created_at"`
	TriggeredAt *time.Time `json:"triggered_at"`
	EnteredAt   *time.Time `json:"entered_at"`
	ClosedAt    *time.Time `json:"closed_at"`

	Notes     string  `gorm:"size:512" json:"notes"`
	ExtraData JSONMap `gorm:"serializer:json" json:"extra_data,omitempty"`
}

// TradeResult classifies a completed trade.
type TradeResult string

const (
	TradeWin       TradeResult = "win"
	TradeLoss      TradeResult = "loss"
	TradeBreakeven TradeResult = "breakeven"
)

// TradeHistory is an append-only record of one full or partial exit of an
// entered Signal. Never mutated after creation.
type TradeHistory struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	SignalID   uint   `gorm:"not null;index" json:"signal_id"`
	Ticker     string `gorm:"size:50;not null;index" json:"ticker"`
	Market     Market `gorm:"size:30;not null" json:"market"`
	StrategyID uint   `gorm:"not null;index" json:"strategy_id"`

	Direction  Direction `gorm:"size:10;not null" json:"direction"`
	EntryPrice float64   `gorm:"not null" json:"entry_price"`
	ExitPrice  float64   `gorm:"not null" json:"exit_price"`
	StopLoss   *float64  `json:"stop_loss"`
	TakeProfit *float64  `json:"take_profit"`

	Result             TradeResult `gorm:"size:20;not null" json:"result"`
	ProfitPercent      float64     `gorm:"not null;default:0" json:"profit_percent"`
	Profit             float64     `gorm:"not null;default:0" json:"profit"`
	Lots               float64     `gorm:"not null;default:0" json:"lots"`
	RiskRewardAchieved float64     `gorm:"not null;default:0" json:"risk_reward_achieved"`

	EnteredAt time.Time `gorm:"not null" json:"entered_at"`
	ClosedAt  time.Time `gorm:"not null" json:"closed_at"`
	Notes     string    `gorm:"size:512" json:"notes"`
}

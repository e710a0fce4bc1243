package model

import "time"

// Strategy is a configured evaluator instance. Immutable during a scan cycle;
// edited only through explicit update operations.
type Strategy struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Description     string    `gorm:"size:512" json:"description"`
	StrategyType    string    `gorm:"size:100;not null" json:"strategy_type"`
	Params          JSONMap   `gorm:"serializer:json" json:"params,omitempty"`
	RiskRewardRatio float64   `gorm:"not null;default:2" json:"risk_reward_ratio"`
	Horizon         Horizon   `gorm:"size:20;not null;default:short" json:"horizon"`
	Active          bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// WatchlistItem binds a ticker to a strategy. The active items define the
// scan universe.
type WatchlistItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Ticker     string    `gorm:"size:50;not null;index:idx_watchlist_ticker_strategy" json:"ticker"`
	Market     Market    `gorm:"size:30;not null" json:"market"`
	StrategyID uint      `gorm:"not null;index:idx_watchlist_ticker_strategy" json:"strategy_id"`
	Active     bool      `gorm:"not null;default:true" json:"active"`
	AddedAt    time.Time `gorm:"autoCreateTime" json:"added_at"`
}

// ScannerConfig is the single-row persisted scanner configuration.
type ScannerConfig struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	ScanIntervalMinutes int        `gorm:"not null;default:5" json:"scan_interval_minutes"`
	LastScanAt          *time.Time `json:"last_scan_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

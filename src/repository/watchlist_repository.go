package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalscanner/src/database"
	"signalscanner/src/model"
)

// ErrDuplicateWatchlistItem is returned when the ticker is already under
// active scan for the same strategy. The scanner relies on this uniqueness
// to keep cycle mutations per (ticker, strategy) on a single worker.
var ErrDuplicateWatchlistItem = errors.New("ticker is already on the watchlist for this strategy")

// WatchlistRepository handles read/write operations for watchlist entries.
type WatchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository() *WatchlistRepository {
	return &WatchlistRepository{db: database.MainDB}
}

func (r *WatchlistRepository) WithDB(db *gorm.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

func (r *WatchlistRepository) Add(ctx context.Context, item *model.WatchlistItem) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.WatchlistItem{}).
			Where("ticker = ? AND strategy_id = ? AND active = ?",
				item.Ticker, item.StrategyID, true).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateWatchlistItem
		}
		return tx.Create(item).Error
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "WatchlistRepository",
			"op":     "Add",
			"ticker": item.Ticker,
			"market": item.Market,
		}).WithError(err).Error("Failed to add watchlist item")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":   "WatchlistRepository",
		"op":     "Add",
		"ticker": item.Ticker,
		"market": item.Market,
	}).Info("Watchlist item added")

	return nil
}

// FindActive returns the active items across all markets, oldest first.
func (r *WatchlistRepository) FindActive(ctx context.Context) ([]model.WatchlistItem, error) {
	var items []model.WatchlistItem

	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&items).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "WatchlistRepository",
			"op":   "FindActive",
		}).WithError(err).Error("Failed to fetch watchlist")

		return nil, err
	}

	return items, nil
}

// FindActiveByMarket narrows FindActive to one market.
func (r *WatchlistRepository) FindActiveByMarket(ctx context.Context, market model.Market) ([]model.WatchlistItem, error) {
	var items []model.WatchlistItem

	err := r.db.WithContext(ctx).
		Where("active = ? AND market = ?", true, market).
		Order("id ASC").
		Find(&items).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "WatchlistRepository",
			"op":     "FindActiveByMarket",
			"market": market,
		}).WithError(err).Error("Failed to fetch watchlist for market")

		return nil, err
	}

	return items, nil
}

// Deactivate marks the item inactive so it is skipped by future scans.
func (r *WatchlistRepository) Deactivate(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&model.WatchlistItem{}).
		Where("id = ?", id).
		Update("active", false).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "WatchlistRepository",
			"op":   "Deactivate",
			"id":   id,
		}).WithError(err).Error("Failed to deactivate watchlist item")

		return err
	}

	return nil
}

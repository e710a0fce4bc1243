package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalscanner/src/database"
	"signalscanner/src/model"
)

// TradeHistoryRepository is an append-only store of completed trades.
type TradeHistoryRepository struct {
	db *gorm.DB
}

func NewTradeHistoryRepository() *TradeHistoryRepository {
	return &TradeHistoryRepository{db: database.MainDB}
}

func (r *TradeHistoryRepository) WithDB(db *gorm.DB) *TradeHistoryRepository {
	return &TradeHistoryRepository{db: db}
}

func (r *TradeHistoryRepository) Create(ctx context.Context, trade *model.TradeHistory) error {
	err := r.db.WithContext(ctx).Create(trade).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "TradeHistoryRepository",
			"op":        "Create",
			"signal_id": trade.SignalID,
			"ticker":    trade.Ticker,
		}).WithError(err).Error("Failed to record trade")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":      "TradeHistoryRepository",
		"op":        "Create",
		"signal_id": trade.SignalID,
		"ticker":    trade.Ticker,
		"result":    trade.Result,
		"profit":    trade.Profit,
	}).Info("Trade recorded")

	return nil
}

// FindBySignalID returns all fills for one signal, oldest first. Partial
// exits produce several rows per signal.
func (r *TradeHistoryRepository) FindBySignalID(ctx context.Context, signalID uint) ([]model.TradeHistory, error) {
	var trades []model.TradeHistory

	err := r.db.WithContext(ctx).
		Where("signal_id = ?", signalID).
		Order("id ASC").
		Find(&trades).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "TradeHistoryRepository",
			"op":        "FindBySignalID",
			"signal_id": signalID,
		}).WithError(err).Error("Failed to fetch trades for signal")

		return nil, err
	}

	return trades, nil
}

// FindClosedBetween returns trades closed inside [from, to), oldest first.
func (r *TradeHistoryRepository) FindClosedBetween(ctx context.Context, from, to time.Time) ([]model.TradeHistory, error) {
	var trades []model.TradeHistory

	err := r.db.WithContext(ctx).
		Where("closed_at >= ? AND closed_at < ?", from, to).
		Order("closed_at ASC, id ASC").
		Find(&trades).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeHistoryRepository",
			"op":   "FindClosedBetween",
			"from": from,
			"to":   to,
		}).WithError(err).Error("Failed to fetch trades in window")

		return nil, err
	}

	return trades, nil
}

// FindAll returns the full history, oldest first.
func (r *TradeHistoryRepository) FindAll(ctx context.Context) ([]model.TradeHistory, error) {
	var trades []model.TradeHistory

	err := r.db.WithContext(ctx).
		Order("closed_at ASC, id ASC").
		Find(&trades).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeHistoryRepository",
			"op":   "FindAll",
		}).WithError(err).Error("Failed to fetch trade history")

		return nil, err
	}

	return trades, nil
}

// DeleteAll wipes the history. Used when resetting simulation data.
func (r *TradeHistoryRepository) DeleteAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.TradeHistory{}).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeHistoryRepository",
			"op":   "DeleteAll",
		}).WithError(err).Error("Failed to delete trade history")

		return err
	}

	logger.WithField("repo", "TradeHistoryRepository").Info("Trade history deleted")
	return nil
}

package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalscanner/src/database"
	"signalscanner/src/model"
)

// ErrActiveSignalExists is returned when a create would violate the
// one-active-signal-per-ticker-per-strategy rule.
var ErrActiveSignalExists = errors.New("an active signal already exists for this ticker and strategy")

// SignalRepository handles read/write operations for signals.
type SignalRepository struct {
	db *gorm.DB
}

// NewSignalRepository creates a new repository instance using the main read/write database.
func NewSignalRepository() *SignalRepository {
	logger.WithField("component", "SignalRepository").
		Info("Creating new SignalRepository with MainDB")

	return &SignalRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *SignalRepository) WithDB(db *gorm.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Create inserts a new signal. At most one non-terminal signal may exist per
// ticker and strategy, so the existence check and the insert run in one
// transaction.
func (r *SignalRepository) Create(
	ctx context.Context,
	signal *model.Signal,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":        "SignalRepository",
		"op":          "Create",
		"ticker":      signal.Ticker,
		"strategy_id": signal.StrategyID,
		"status":      signal.Status,
	}).Debug("Creating new signal")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Signal{}).
			Where("ticker = ? AND strategy_id = ? AND status IN ?",
				signal.Ticker, signal.StrategyID, model.ActiveStatuses).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrActiveSignalExists
		}
		return tx.Create(signal).Error
	})

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "SignalRepository",
			"op":     "Create",
			"ticker": signal.Ticker,
		}).WithError(err).Error("Failed to create signal")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":      "SignalRepository",
		"op":        "Create",
		"signal_id": signal.ID,
		"ticker":    signal.Ticker,
	}).Info("Signal created successfully")

	return nil
}

// FindByID fetches a single signal by its primary ID.
// Returns (nil, nil) if the signal is not found.
func (r *SignalRepository) FindByID(
	ctx context.Context,
	id uint,
) (*model.Signal, error) {

	var signal model.Signal

	err := r.db.WithContext(ctx).First(&signal, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo": "SignalRepository",
				"op":   "FindByID",
				"id":   id,
			}).Info("Signal not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "SignalRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch signal by ID")

		return nil, err
	}

	return &signal, nil
}

// FindActive fetches the non-terminal signal for a ticker and strategy.
// Returns (nil, nil) if no active signal exists.
func (r *SignalRepository) FindActive(
	ctx context.Context,
	ticker string,
	strategyID uint,
) (*model.Signal, error) {

	var signal model.Signal

	err := r.db.WithContext(ctx).
		Where("ticker = ? AND strategy_id = ? AND status IN ?", ticker, strategyID, model.ActiveStatuses).
		Order("created_at DESC").
		First(&signal).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":        "SignalRepository",
			"op":          "FindActive",
			"ticker":      ticker,
			"strategy_id": strategyID,
		}).WithError(err).Error("Failed to fetch active signal")

		return nil, err
	}

	return &signal, nil
}

// FindAllActive returns every non-terminal signal, oldest first.
func (r *SignalRepository) FindAllActive(
	ctx context.Context,
) ([]model.Signal, error) {

	var signals []model.Signal

	err := r.db.WithContext(ctx).
		Where("status IN ?", model.ActiveStatuses).
		Order("created_at ASC").
		Find(&signals).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "SignalRepository",
			"op":   "FindAllActive",
		}).WithError(err).Error("Failed to fetch active signals")

		return nil, err
	}

	return signals, nil
}

// SignalSearchOptions narrows Search results. Zero values mean "no filter".
type SignalSearchOptions struct {
	Ticker     string
	StrategyID uint
	Statuses   []model.SignalStatus
	Limit      int
	Offset     int
}

// Search returns signals matching the options, newest first.
func (r *SignalRepository) Search(
	ctx context.Context,
	opts SignalSearchOptions,
) ([]model.Signal, error) {

	query := r.db.WithContext(ctx).Model(&model.Signal{})

	if opts.Ticker != "" {
		query = query.Where("ticker = ?", opts.Ticker)
	}
	if opts.StrategyID != 0 {
		query = query.Where("strategy_id = ?", opts.StrategyID)
	}
	if len(opts.Statuses) > 0 {
		query = query.Where("status IN ?", opts.Statuses)
	}

	query = query.Order("created_at DESC, id DESC")
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	var signals []model.Signal
	if err := query.Find(&signals).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "SignalRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to search signals")

		return nil, err
	}

	return signals, nil
}

// Update persists the full signal row.
func (r *SignalRepository) Update(
	ctx context.Context,
	signal *model.Signal,
) error {

	err := r.db.WithContext(ctx).Save(signal).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "SignalRepository",
			"op":        "Update",
			"signal_id": signal.ID,
			"status":    signal.Status,
		}).WithError(err).Error("Failed to update signal")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":      "SignalRepository",
		"op":        "Update",
		"signal_id": signal.ID,
		"status":    signal.Status,
	}).Debug("Signal updated")

	return nil
}

// DeleteAll wipes every signal row. Used when resetting simulation data.
func (r *SignalRepository) DeleteAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.Signal{}).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "SignalRepository",
			"op":   "DeleteAll",
		}).WithError(err).Error("Failed to delete signals")

		return err
	}

	logger.WithField("repo", "SignalRepository").Info("All signals deleted")
	return nil
}

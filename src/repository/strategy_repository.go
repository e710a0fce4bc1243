package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalscanner/src/database"
	"signalscanner/src/model"
)

// StrategyRepository handles read/write operations for strategy definitions.
type StrategyRepository struct {
	db *gorm.DB
}

func NewStrategyRepository() *StrategyRepository {
	return &StrategyRepository{db: database.MainDB}
}

func (r *StrategyRepository) WithDB(db *gorm.DB) *StrategyRepository {
	return &StrategyRepository{db: db}
}

func (r *StrategyRepository) Create(ctx context.Context, strategy *model.Strategy) error {
	err := r.db.WithContext(ctx).Create(strategy).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "StrategyRepository",
			"op":   "Create",
			"name": strategy.Name,
		}).WithError(err).Error("Failed to create strategy")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "StrategyRepository",
		"op":          "Create",
		"strategy_id": strategy.ID,
		"name":        strategy.Name,
	}).Info("Strategy created")

	return nil
}

// FindByID returns (nil, nil) if the strategy is not found.
func (r *StrategyRepository) FindByID(ctx context.Context, id uint) (*model.Strategy, error) {
	var strategy model.Strategy

	err := r.db.WithContext(ctx).First(&strategy, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "StrategyRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch strategy by ID")

		return nil, err
	}

	return &strategy, nil
}

// FindByName returns (nil, nil) if the strategy is not found.
func (r *StrategyRepository) FindByName(ctx context.Context, name string) (*model.Strategy, error) {
	var strategy model.Strategy

	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&strategy).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "StrategyRepository",
			"op":   "FindByName",
			"name": name,
		}).WithError(err).Error("Failed to fetch strategy by name")

		return nil, err
	}

	return &strategy, nil
}

// FindActive returns all active strategies ordered by ID.
func (r *StrategyRepository) FindActive(ctx context.Context) ([]model.Strategy, error) {
	var strategies []model.Strategy

	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&strategies).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "StrategyRepository",
			"op":   "FindActive",
		}).WithError(err).Error("Failed to fetch active strategies")

		return nil, err
	}

	return strategies, nil
}

func (r *StrategyRepository) Update(ctx context.Context, strategy *model.Strategy) error {
	err := r.db.WithContext(ctx).Save(strategy).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "StrategyRepository",
			"op":          "Update",
			"strategy_id": strategy.ID,
		}).WithError(err).Error("Failed to update strategy")

		return err
	}

	return nil
}

// SetActive flips the active flag without touching the rest of the row.
func (r *StrategyRepository) SetActive(ctx context.Context, id uint, active bool) error {
	err := r.db.WithContext(ctx).
		Model(&model.Strategy{}).
		Where("id = ?", id).
		Update("active", active).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "StrategyRepository",
			"op":          "SetActive",
			"strategy_id": id,
			"active":      active,
		}).WithError(err).Error("Failed to toggle strategy")

		return err
	}

	return nil
}

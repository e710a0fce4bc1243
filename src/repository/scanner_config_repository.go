package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalscanner/src/database"
	"signalscanner/src/model"
)

// ScannerConfigRepository persists the single scanner configuration row so
// the scan interval and last-scan marker survive restarts.
type ScannerConfigRepository struct {
	db *gorm.DB
}

func NewScannerConfigRepository() *ScannerConfigRepository {
	return &ScannerConfigRepository{db: database.MainDB}
}

func (r *ScannerConfigRepository) WithDB(db *gorm.DB) *ScannerConfigRepository {
	return &ScannerConfigRepository{db: db}
}

// Load fetches the configuration row, creating it with defaults on first use.
func (r *ScannerConfigRepository) Load(ctx context.Context) (*model.ScannerConfig, error) {
	var config model.ScannerConfig

	err := r.db.WithContext(ctx).
		Where(model.ScannerConfig{ID: 1}).
		Attrs(model.ScannerConfig{ScanIntervalMinutes: 15}).
		FirstOrCreate(&config).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "ScannerConfigRepository",
			"op":   "Load",
		}).WithError(err).Error("Failed to load scanner config")

		return nil, err
	}

	return &config, nil
}

// UpdateInterval changes the scan cadence in minutes.
func (r *ScannerConfigRepository) UpdateInterval(ctx context.Context, minutes int) error {
	err := r.db.WithContext(ctx).
		Model(&model.ScannerConfig{}).
		Where("id = ?", 1).
		Update("scan_interval_minutes", minutes).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "ScannerConfigRepository",
			"op":      "UpdateInterval",
			"minutes": minutes,
		}).WithError(err).Error("Failed to update scan interval")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":    "ScannerConfigRepository",
		"op":      "UpdateInterval",
		"minutes": minutes,
	}).Info("Scan interval updated")

	return nil
}

// TouchLastScan stamps the completion time of the latest scan cycle.
func (r *ScannerConfigRepository) TouchLastScan(ctx context.Context, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&model.ScannerConfig{}).
		Where("id = ?", 1).
		Update("last_scan_at", at).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "ScannerConfigRepository",
			"op":   "TouchLastScan",
		}).WithError(err).Error("Failed to stamp last scan time")

		return err
	}

	return nil
}

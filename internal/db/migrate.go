package db

import (
	"revpace/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.RoomCategory{},
		&models.RoomBooking{},
		&models.CoverBooking{},
		&models.PaceSnapshot{},
		&models.CategoryRateStats{},
		&models.ForecastSnapshot{},
		&models.BacktestResult{},
		&models.BudgetEntry{},
		&models.AggregationRun{},
		&models.SystemSetting{},
	)
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ForecastSnapshot is the unit of backtesting: one model's prediction for
// one target date as produced at a perception date. ActualValue is filled
// once the target date has passed and is what MAPE weighting reads.
type ForecastSnapshot struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	PerceptionDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_forecast_key;index"`
	TargetDate     time.Time `gorm:"type:date;not null;uniqueIndex:idx_forecast_key;index"`
	Model          string    `gorm:"type:varchar(40);not null;uniqueIndex:idx_forecast_key"`
	MetricCode     string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_forecast_key"`
	LeadTime       int       `gorm:"not null;uniqueIndex:idx_forecast_key"`

	ForecastValue decimal.Decimal  `gorm:"type:numeric(30,10);not null;default:0"`
	ActualValue   *decimal.Decimal `gorm:"type:numeric(30,10)"`

	GeneratedAt time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ForecastSnapshot) TableName() string {
	return "forecast_snapshots"
}

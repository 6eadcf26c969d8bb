package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestResult is one scored replay cell. Upserted idempotently on
// (target_date, metric_code, lead_time); re-running a sweep overwrites the
// same rows.
type BacktestResult struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	RunID      string    `gorm:"type:varchar(36);not null;index"`
	TargetDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_backtest_key;index"`
	MetricCode string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_backtest_key"`
	LeadTime   int       `gorm:"not null;uniqueIndex:idx_backtest_key"`

	SimulatedOTB   decimal.Decimal  `gorm:"type:numeric(30,10);not null;default:0"`
	PriorYearOTB   *decimal.Decimal `gorm:"type:numeric(30,10)"`
	PriorYearFinal *decimal.Decimal `gorm:"type:numeric(30,10)"`
	ProjectedValue decimal.Decimal  `gorm:"type:numeric(30,10);not null;default:0"`
	Method         string           `gorm:"type:varchar(30);not null"`

	ActualValue *decimal.Decimal `gorm:"type:numeric(30,10)"`
	ErrorSigned *decimal.Decimal `gorm:"type:numeric(30,10)"`
	ErrorAbs    *decimal.Decimal `gorm:"type:numeric(30,10)"`
	ErrorPct    *decimal.Decimal `gorm:"type:numeric(20,10)"`

	ErrorMessage *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (BacktestResult) TableName() string {
	return "backtest_results"
}

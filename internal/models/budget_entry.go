package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetEntry is an externally supplied reference value per metric and date.
// Upload/parsing happens outside this service; rows land here.
type BudgetEntry struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement"`
	MetricCode string          `gorm:"type:varchar(30);not null;uniqueIndex:idx_budget_key"`
	Date       time.Time       `gorm:"type:date;not null;uniqueIndex:idx_budget_key;index"`
	Value      decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	UpdatedAt  time.Time       `gorm:"type:timestamptz;autoUpdateTime"`
}

func (BudgetEntry) TableName() string {
	return "budget_entries"
}

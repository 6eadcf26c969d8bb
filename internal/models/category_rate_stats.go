package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryRateStats summarizes the actual per-night tariffs of bookings
// occupying a stay date. Used as the rate prior when a category has no
// current rack rate.
type CategoryRateStats struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	CategoryID  string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_cat_rate_day"`
	StayDate    time.Time       `gorm:"type:date;not null;uniqueIndex:idx_cat_rate_day;index"`
	MinNet      decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	MaxNet      decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	ADRNet      decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	SampleCount int             `gorm:"not null;default:0"`
	UpdatedAt   time.Time       `gorm:"type:timestamptz;autoUpdateTime"`
}

func (CategoryRateStats) TableName() string {
	return "category_rate_stats"
}

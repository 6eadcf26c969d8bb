package models

import (
	"time"
)

const (
	PeriodLunch  = "lunch"
	PeriodDinner = "dinner"
)

// CoverBooking is a row of the restaurant-domain ledger, synced from the
// reservation system. One row may carry several covers.
type CoverBooking struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement"`
	ExternalRef string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	BookingDate time.Time  `gorm:"type:date;not null;index"`
	PeriodType  string     `gorm:"type:varchar(10);not null;index"`
	Covers      int        `gorm:"not null;default:1"`
	Resident    bool       `gorm:"not null;default:false"`
	Status      string     `gorm:"type:varchar(20);not null;index"`
	PlacedAt    time.Time  `gorm:"type:timestamptz;not null;index"`
	CancelledAt *time.Time `gorm:"type:timestamptz"`
	Source      string     `gorm:"type:varchar(30)"`
	CreatedAt   time.Time  `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
}

func (CoverBooking) TableName() string {
	return "cover_bookings"
}

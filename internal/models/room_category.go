package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoomCategory carries the physical capacity and the currently listed rack
// rate per room type. Capacity bounds every room-count forecast.
type RoomCategory struct {
	ID        string           `gorm:"primaryKey;type:varchar(32)"`
	Name      string           `gorm:"type:varchar(80);not null"`
	Capacity  int              `gorm:"not null;default:0"`
	RackRate  *decimal.Decimal `gorm:"type:numeric(20,4)"`
	Active    bool             `gorm:"not null;default:true"`
	UpdatedAt time.Time        `gorm:"type:timestamptz;autoUpdateTime"`
}

func (RoomCategory) TableName() string {
	return "room_categories"
}

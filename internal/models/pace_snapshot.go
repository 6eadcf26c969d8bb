package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaceDomainRooms  = "rooms"
	PaceDomainCovers = "covers"

	PaceTypeTotal       = "total"
	PaceTypeResident    = "resident"
	PaceTypeNonResident = "non_resident"
)

// PaceSnapshot is one observed point of a pace curve: the on-the-books count
// (and, for rooms, revenue) for a stay date as seen at a tracked lead-time
// bucket. Rows are upserted per natural key, never deleted; a re-run of the
// same bucket overwrites the same row.
type PaceSnapshot struct {
	ID       uint64    `gorm:"primaryKey;autoIncrement"`
	Domain   string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_pace_key"`
	StayDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_pace_key;index"`
	PaceType string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_pace_key"`
	LeadTime int       `gorm:"not null;uniqueIndex:idx_pace_key"`

	Count   decimal.Decimal  `gorm:"type:numeric(20,4);not null;default:0"`
	Revenue *decimal.Decimal `gorm:"type:numeric(30,10)"`

	ObservedAt time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (PaceSnapshot) TableName() string {
	return "pace_snapshots"
}

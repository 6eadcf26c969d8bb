package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Booking statuses. The active set counts toward on-the-books; the rest are
// excluded from every pace/forecast aggregate.
const (
	BookingStatusConfirmed  = "confirmed"
	BookingStatusCheckedIn  = "checked_in"
	BookingStatusCheckedOut = "checked_out"
	BookingStatusCancelled  = "cancelled"
	BookingStatusNoShow     = "no_show"
	BookingStatusQuote      = "quote"
	BookingStatusWaitlist   = "waitlist"
)

func ActiveBookingStatuses() []string {
	return []string{BookingStatusConfirmed, BookingStatusCheckedIn, BookingStatusCheckedOut}
}

// RoomBooking is a row of the room-domain ledger, synced from the PMS.
// PlacedAt is immutable and is the only trustworthy event timestamp; status
// and dates may be rewritten by later syncs.
type RoomBooking struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement"`
	ExternalRef   string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	CategoryID    string     `gorm:"type:varchar(32);not null;index"`
	ArrivalDate   time.Time  `gorm:"type:date;not null;index"`
	DepartureDate time.Time  `gorm:"type:date;not null;index"`
	Status        string     `gorm:"type:varchar(20);not null;index"`
	PlacedAt      time.Time  `gorm:"type:timestamptz;not null;index"`
	CancelledAt   *time.Time `gorm:"type:timestamptz"`
	Guests        int        `gorm:"not null;default:1"`

	// RatePayload holds the per-night net tariff keyed by ISO stay date.
	RatePayload datatypes.JSON  `gorm:"type:jsonb"`
	TotalNet    decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`

	Source    string    `gorm:"type:varchar(30)"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (RoomBooking) TableName() string {
	return "room_bookings"
}

// Nights is the stay length in nights; never below 1 so per-night fallbacks
// stay divisible.
func (b *RoomBooking) Nights() int {
	n := int(b.DepartureDate.Sub(b.ArrivalDate).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

// NightlyNet returns the net tariff for one stay date. Falls back to the
// booking total spread evenly when the payload has no entry for that night.
func (b *RoomBooking) NightlyNet(stayDate time.Time) decimal.Decimal {
	if len(b.RatePayload) > 0 {
		var nightly map[string]decimal.Decimal
		if err := json.Unmarshal(b.RatePayload, &nightly); err == nil {
			if v, ok := nightly[stayDate.Format("2006-01-02")]; ok {
				return v
			}
		}
	}
	return b.TotalNet.Div(decimal.NewFromInt(int64(b.Nights())))
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is a bookable product owned by the content subsystem.
type Listing struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"` // ISO-4217
}

type Room struct {
	ID         int64           `json:"id"`
	ListingID  int64           `json:"listing_id"`
	Name       string          `json:"name"`
	TotalUnits int             `json:"total_units"`
	BasePrice  decimal.Decimal `json:"base_price"`
}

// DailyRecord is the ledger row for one room on one calendar date.
// A nil AvailableUnits means unknown capacity and is never bookable.
type DailyRecord struct {
	RoomID         int64           `json:"room_id"`
	Date           time.Time       `json:"date"`
	Price          decimal.Decimal `json:"price"`
	IsBlocked      bool            `json:"is_blocked"`
	AvailableUnits *int            `json:"available_units"`
}

// Sellable reports whether the night can take one more booking.
func (r DailyRecord) Sellable() bool {
	return !r.IsBlocked && r.AvailableUnits != nil && *r.AvailableUnits > 0
}

// AvailabilityChange is the notifier payload published after a ledger mutation.
type AvailabilityChange struct {
	RoomID         int64  `json:"room_id"`
	Date           string `json:"date"`
	IsBlocked      bool   `json:"is_blocked"`
	AvailableUnits *int   `json:"available_units"`
}

func ChangeFromRecord(r DailyRecord) AvailabilityChange {
	return AvailabilityChange{
		RoomID:         r.RoomID,
		Date:           r.Date.Format(DateLayout),
		IsBlocked:      r.IsBlocked,
		AvailableUnits: r.AvailableUnits,
	}
}

func Units(n int) *int { return &n }

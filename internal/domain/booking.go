package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

type BookingKind string

const (
	KindBooking BookingKind = "booking"
	KindInquiry BookingKind = "inquiry" // custom package request, quoted by hand
)

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Booking is immutable once stored, except for Status and Notes.
type Booking struct {
	ID         string          `json:"id"`
	Kind       BookingKind     `json:"kind"`
	Customer   Customer        `json:"customer"`
	ServiceID  *int64          `json:"service_id,omitempty"`
	RoomID     *int64          `json:"room_id,omitempty"`
	CheckIn    *time.Time      `json:"check_in,omitempty"`
	CheckOut   *time.Time      `json:"check_out,omitempty"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     BookingStatus   `json:"status"`
	Consent    bool            `json:"consent"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Range returns the stay, or false for bookings without dates.
func (b Booking) Range() (DateRange, bool) {
	if b.CheckIn == nil || b.CheckOut == nil {
		return DateRange{}, false
	}
	return NewDateRange(*b.CheckIn, *b.CheckOut), true
}

// Occupies reports whether the booking holds a unit on date d.
func (b Booking) Occupies(d time.Time) bool {
	if b.Status == StatusCancelled {
		return false
	}
	r, ok := b.Range()
	if !ok {
		return false
	}
	for _, n := range r.Nights() {
		if n.Equal(d) {
			return true
		}
	}
	return false
}

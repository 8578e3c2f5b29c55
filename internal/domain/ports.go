package domain

import (
	"context"
	"time"
)

// LedgerReader is the read side used by the matcher and the listing filter.
type LedgerReader interface {
	// Get returns the rows for dates in [from, to) ordered by date.
	// Fewer rows than requested nights is the fail-closed signal.
	Get(ctx context.Context, roomID int64, from, to time.Time) ([]DailyRecord, error)
}

// Ledger is the per-room, per-date inventory table.
type Ledger interface {
	LedgerReader

	// Upsert replaces or inserts rows keyed by (room, date). Each row is written atomically.
	Upsert(ctx context.Context, recs []DailyRecord) error

	// Decrement conditionally subtracts by units; it never goes below zero and
	// returns ErrCapacityExceeded leaving the row untouched when it would.
	Decrement(ctx context.Context, roomID int64, date time.Time, by int) (int, error)

	// CommitBooking decrements every night by one and stores b in a single
	// storage transaction. Any unsellable night aborts the whole commit with
	// ErrCapacityExceeded. TotalPrice is recomputed from the locked rows.
	CommitBooking(ctx context.Context, b Booking, nights []time.Time) (Booking, []DailyRecord, error)

	// SetBlocked flips only the block flag of seed's (room, date) row and returns
	// the stored row; units left by concurrent bookings are kept. A missing row is
	// inserted from seed. Unblocking a missing row, or one held at zero units,
	// opens totalUnits less the units held by active bookings on that date.
	SetBlocked(ctx context.Context, seed DailyRecord, totalUnits int) (DailyRecord, error)

	// Reset deletes rows in [from, to); administrative only.
	Reset(ctx context.Context, roomID int64, from, to time.Time) (int, error)
}

type BookingRepository interface {
	InsertInquiry(ctx context.Context, b Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	// ActiveBookings returns non-cancelled bookings of a room holding any night in [from, to).
	ActiveBookings(ctx context.Context, roomID int64, from, to time.Time) ([]Booking, error)
}

// CatalogRepository is the local replica of listings and rooms owned by content management.
type CatalogRepository interface {
	UpsertListing(ctx context.Context, l Listing) error
	UpsertRoom(ctx context.Context, r Room) error
	Catalog
}

type Catalog interface {
	GetListing(ctx context.Context, id int64) (Listing, error)
	GetRoom(ctx context.Context, id int64) (Room, error)
	ListRooms(ctx context.Context, listingID int64) ([]Room, error)
}

type ContentClient interface {
	GetListing(ctx context.Context, id int64) (map[string]any, error)
	GetRooms(ctx context.Context, listingID int64) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// ChangePublisher fans availability hints out to open booking sessions.
type ChangePublisher interface {
	PublishAvailability(ctx context.Context, c AvailabilityChange) error
}

type ChangeSubscriber interface {
	SubscribeAvailability(ctx context.Context, roomID int64) (<-chan AvailabilityChange, error)
}

// BookingEvents is consumed by the notification collaborator (email/SMS).
type BookingEvents interface {
	BookingCreated(ctx context.Context, b Booking) error
}

type AuditEntry struct {
	Action   string
	RoomID   int64
	Detail   map[string]any
	Occurred time.Time
}

type Auditor interface {
	Record(ctx context.Context, e AuditEntry) error
}

package app_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"travel_inventory/internal/app"
	"travel_inventory/internal/domain"
	"travel_inventory/internal/storage/memory"
)

// ---- fixtures ----

const (
	hotelID  int64 = 10 // rooms 1 and 2
	villaID  int64 = 20 // room 3
	emptyID  int64 = 30 // no rooms
	singleID int64 = 1  // capacity 1, base 100
	tripleID int64 = 2  // capacity 3, base 80
	villaRm  int64 = 3
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.UpsertListing(ctx, domain.Listing{ID: hotelID, Name: "Harbour Hotel", Currency: "USD"}))
	require.NoError(t, s.UpsertListing(ctx, domain.Listing{ID: villaID, Name: "Hill Villa", Currency: "JPY"}))
	require.NoError(t, s.UpsertListing(ctx, domain.Listing{ID: emptyID, Name: "Tour", Currency: "USD"}))
	require.NoError(t, s.UpsertRoom(ctx, domain.Room{ID: singleID, ListingID: hotelID, Name: "Single", TotalUnits: 1, BasePrice: dec("100")}))
	require.NoError(t, s.UpsertRoom(ctx, domain.Room{ID: tripleID, ListingID: hotelID, Name: "Triple", TotalUnits: 3, BasePrice: dec("80")}))
	require.NoError(t, s.UpsertRoom(ctx, domain.Room{ID: villaRm, ListingID: villaID, Name: "Villa", TotalUnits: 1, BasePrice: dec("12000")}))
	return s
}

// seed writes one sellable row per night in [from, to).
func seed(t *testing.T, l domain.Ledger, roomID int64, from, to time.Time, price string, units int) {
	t.Helper()
	var recs []domain.DailyRecord
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		recs = append(recs, domain.DailyRecord{RoomID: roomID, Date: d, Price: dec(price), AvailableUnits: domain.Units(units)})
	}
	require.NoError(t, l.Upsert(context.Background(), recs))
}

func guest() domain.Customer {
	return domain.Customer{Name: "Ana Silva", Email: "Ana@Example.com", Phone: "+351 900 000 000"}
}

func bookingReq(roomID int64, in, out time.Time) app.CreateBookingRequest {
	return app.CreateBookingRequest{Customer: guest(), RoomID: roomID, CheckIn: in, CheckOut: out, Consent: true}
}

// ---- fakes ----

// countingLedger records every read so tests can assert a path never touched the ledger.
type countingLedger struct {
	domain.Ledger
	gets atomic.Int64
}

func (c *countingLedger) Get(ctx context.Context, roomID int64, from, to time.Time) ([]domain.DailyRecord, error) {
	c.gets.Add(1)
	return c.Ledger.Get(ctx, roomID, from, to)
}

type failingEvents struct{ calls atomic.Int64 }

func (f *failingEvents) BookingCreated(ctx context.Context, b domain.Booking) error {
	f.calls.Add(1)
	return errors.New("broker down")
}

type recordingEvents struct {
	mu  sync.Mutex
	got []domain.Booking
}

func (r *recordingEvents) BookingCreated(ctx context.Context, b domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, b)
	return nil
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (r *recordingAuditor) Record(ctx context.Context, e domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingAuditor) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type recordingPublisher struct {
	mu  sync.Mutex
	got []domain.AvailabilityChange
}

func (p *recordingPublisher) PublishAvailability(ctx context.Context, c domain.AvailabilityChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, c)
	return nil
}

func (p *recordingPublisher) snapshot() []domain.AvailabilityChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.AvailabilityChange(nil), p.got...)
}

// fakeCache stores values as-is; Get copies them back through a type switch.
type fakeCache struct {
	store map[string]any
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.Room:
		*d = v.(domain.Room)
	case *domain.Listing:
		*d = v.(domain.Listing)
	case *[]domain.Room:
		*d = v.([]domain.Room)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

// Package memory is an in-process implementation of the storage ports.
// One mutex guards every table, so each method is atomic with respect to the others.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"travel_inventory/internal/domain"
)

type key struct {
	room int64
	day  int64 // unix seconds of the UTC date
}

func keyOf(roomID int64, d time.Time) key { return key{room: roomID, day: domain.Day(d).Unix()} }

type Store struct {
	mu       sync.Mutex
	ledger   map[key]domain.DailyRecord
	bookings map[string]domain.Booking
	listings map[int64]domain.Listing
	rooms    map[int64]domain.Room
}

func New() *Store {
	return &Store{
		ledger:   map[key]domain.DailyRecord{},
		bookings: map[string]domain.Booking{},
		listings: map[int64]domain.Listing{},
		rooms:    map[int64]domain.Room{},
	}
}

func clone(r domain.DailyRecord) domain.DailyRecord {
	if r.AvailableUnits != nil {
		r.AvailableUnits = domain.Units(*r.AvailableUnits)
	}
	return r
}

func (s *Store) Get(ctx context.Context, roomID int64, from, to time.Time) ([]domain.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DailyRecord
	for d := domain.Day(from); d.Before(domain.Day(to)); d = d.AddDate(0, 0, 1) {
		if r, ok := s.ledger[keyOf(roomID, d)]; ok {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

func (s *Store) Upsert(ctx context.Context, recs []domain.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		r.Date = domain.Day(r.Date)
		s.ledger[keyOf(r.RoomID, r.Date)] = clone(r)
	}
	return nil
}

func (s *Store) Decrement(ctx context.Context, roomID int64, date time.Time, by int) (int, error) {
	if by <= 0 {
		return 0, domain.Invalid("by", "must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keyOf(roomID, date)
	r, ok := s.ledger[k]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if r.AvailableUnits == nil || *r.AvailableUnits < by {
		return 0, domain.ErrCapacityExceeded
	}
	n := *r.AvailableUnits - by
	r.AvailableUnits = &n
	if n == 0 {
		r.IsBlocked = true
	}
	s.ledger[k] = r
	return n, nil
}

func (s *Store) SetBlocked(ctx context.Context, seed domain.DailyRecord, totalUnits int) (domain.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seed.Date = domain.Day(seed.Date)
	k := keyOf(seed.RoomID, seed.Date)
	r, ok := s.ledger[k]
	if !ok {
		r = seed
		r.AvailableUnits = domain.Units(0)
	}
	r.IsBlocked = seed.IsBlocked
	if !r.IsBlocked && (!ok || (r.AvailableUnits != nil && *r.AvailableUnits == 0)) {
		r.AvailableUnits = domain.Units(max(totalUnits-s.heldUnits(seed.RoomID, seed.Date), 0))
	}
	s.ledger[k] = clone(r)
	return r, nil
}

// heldUnits counts active bookings occupying d. Callers hold s.mu.
func (s *Store) heldUnits(roomID int64, d time.Time) int {
	n := 0
	for _, b := range s.bookings {
		if b.RoomID != nil && *b.RoomID == roomID && b.Occupies(d) {
			n++
		}
	}
	return n
}

func (s *Store) CommitBooking(ctx context.Context, b domain.Booking, nights []time.Time) (domain.Booking, []domain.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.RoomID == nil {
		return domain.Booking{}, nil, domain.Invalid("room_id", "required")
	}
	// check every night first so a failure leaves nothing behind
	rows := make([]domain.DailyRecord, 0, len(nights))
	for _, d := range nights {
		r, ok := s.ledger[keyOf(*b.RoomID, d)]
		if !ok || !r.Sellable() {
			return domain.Booking{}, nil, domain.ErrCapacityExceeded
		}
		rows = append(rows, r)
	}
	total := decimal.Zero
	for i, r := range rows {
		n := *r.AvailableUnits - 1
		r.AvailableUnits = &n
		if n == 0 {
			r.IsBlocked = true
		}
		s.ledger[keyOf(r.RoomID, r.Date)] = r
		rows[i] = clone(r)
		total = total.Add(r.Price)
	}
	b.TotalPrice = total
	s.bookings[b.ID] = b
	return b, rows, nil
}

func (s *Store) Reset(ctx context.Context, roomID int64, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for d := domain.Day(from); d.Before(domain.Day(to)); d = d.AddDate(0, 0, 1) {
		k := keyOf(roomID, d)
		if _, ok := s.ledger[k]; ok {
			delete(s.ledger, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) InsertInquiry(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = b
	return b, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *Store) ActiveBookings(ctx context.Context, roomID int64, from, to time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.RoomID == nil || *b.RoomID != roomID || b.Status == domain.StatusCancelled {
			continue
		}
		r, ok := b.Range()
		if !ok {
			continue
		}
		for _, n := range r.Nights() {
			if !n.Before(domain.Day(from)) && n.Before(domain.Day(to)) {
				out = append(out, b)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpsertListing(ctx context.Context, l domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = l
	return nil
}

func (s *Store) UpsertRoom(ctx context.Context, r domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
	return nil
}

func (s *Store) GetListing(ctx context.Context, id int64) (domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l, nil
}

func (s *Store) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListRooms(ctx context.Context, listingID int64) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Room
	for _, r := range s.rooms {
		if r.ListingID == listingID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"travel_inventory/internal/domain"
)

func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valDate(p *time.Time) any {
	if p == nil {
		return nil
	}
	return domain.Day(*p)
}
func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Repo implements the ledger, booking and catalog ports on MySQL.
// The DSN must carry parseTime=true&loc=UTC so DATE columns scan as UTC midnights.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (domain.DailyRecord, error) {
	var (
		rec   domain.DailyRecord
		units sql.NullInt64
	)
	if err := s.Scan(&rec.RoomID, &rec.Date, &rec.Price, &rec.IsBlocked, &units); err != nil {
		return domain.DailyRecord{}, err
	}
	rec.Date = domain.Day(rec.Date)
	if units.Valid {
		rec.AvailableUnits = domain.Units(int(units.Int64))
	}
	return rec, nil
}

func scanBooking(s scanner) (domain.Booking, error) {
	var (
		b                 domain.Booking
		kind, status      string
		serviceID, roomID sql.NullInt64
		in, out           sql.NullTime
		notes             sql.NullString
	)
	if err := s.Scan(&b.ID, &kind, &b.Customer.Name, &b.Customer.Email, &b.Customer.Phone,
		&serviceID, &roomID, &in, &out, &b.TotalPrice, &status, &b.Consent, &notes, &b.CreatedAt); err != nil {
		return domain.Booking{}, err
	}
	b.Kind = domain.BookingKind(kind)
	b.Status = domain.BookingStatus(status)
	b.Notes = notes.String
	b.CreatedAt = b.CreatedAt.UTC()
	if serviceID.Valid {
		b.ServiceID = &serviceID.Int64
	}
	if roomID.Valid {
		b.RoomID = &roomID.Int64
	}
	if in.Valid {
		d := domain.Day(in.Time)
		b.CheckIn = &d
	}
	if out.Valid {
		d := domain.Day(out.Time)
		b.CheckOut = &d
	}
	return b, nil
}

// ---------------------------------------------------------------------------
// bookings
// ---------------------------------------------------------------------------

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertBooking(ctx context.Context, x execer, b domain.Booking) error {
	_, err := x.ExecContext(ctx, insertBookingSQL,
		b.ID,
		string(b.Kind),
		b.Customer.Name,
		b.Customer.Email,
		b.Customer.Phone,
		valInt64(b.ServiceID),
		valInt64(b.RoomID),
		valDate(b.CheckIn),
		valDate(b.CheckOut),
		b.TotalPrice,
		string(b.Status),
		b.Consent,
		valStr(b.Notes),
		b.CreatedAt.UTC(),
	)
	return err
}

func (r *Repo) InsertInquiry(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if err := insertBooking(ctx, r.db, b); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *Repo) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

func (r *Repo) ActiveBookings(ctx context.Context, roomID int64, from, to time.Time) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, activeBookingsSQL, roomID, domain.Day(to), domain.Day(from))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// catalog
// ---------------------------------------------------------------------------

func (r *Repo) UpsertListing(ctx context.Context, l domain.Listing) error {
	_, err := r.db.ExecContext(ctx, upsertListingSQL, l.ID, l.Name, strings.ToUpper(l.Currency))
	return err
}

func (r *Repo) UpsertRoom(ctx context.Context, rm domain.Room) error {
	_, err := r.db.ExecContext(ctx, upsertRoomSQL, rm.ID, rm.ListingID, rm.Name, rm.TotalUnits, rm.BasePrice)
	return err
}

func (r *Repo) GetListing(ctx context.Context, id int64) (domain.Listing, error) {
	var l domain.Listing
	err := r.db.QueryRowContext(ctx, getListingSQL, id).Scan(&l.ID, &l.Name, &l.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l, err
}

func scanRoom(s scanner) (domain.Room, error) {
	var rm domain.Room
	err := s.Scan(&rm.ID, &rm.ListingID, &rm.Name, &rm.TotalUnits, &rm.BasePrice)
	return rm, err
}

func (r *Repo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx, getRoomSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrNotFound
	}
	return rm, err
}

func (r *Repo) ListRooms(ctx context.Context, listingID int64) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, listRoomsSQL, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func sumPrices(recs []domain.DailyRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range recs {
		total = total.Add(r.Price)
	}
	return total
}

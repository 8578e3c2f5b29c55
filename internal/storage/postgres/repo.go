package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"travel_inventory/internal/domain"
)

// Repo implements the ledger, booking and catalog ports on Postgres.
type Repo struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func unitsArg(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func dateArg(p *time.Time) any {
	if p == nil {
		return nil
	}
	return domain.Day(*p)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("numeric %q: %w", s, err)
	}
	return d, nil
}

func scanRecord(row pgx.Row) (domain.DailyRecord, error) {
	var (
		rec   domain.DailyRecord
		price string
		units *int32
	)
	if err := row.Scan(&rec.RoomID, &rec.Date, &price, &rec.IsBlocked, &units); err != nil {
		return domain.DailyRecord{}, err
	}
	p, err := parseDecimal(price)
	if err != nil {
		return domain.DailyRecord{}, err
	}
	rec.Price = p
	rec.Date = domain.Day(rec.Date)
	if units != nil {
		rec.AvailableUnits = domain.Units(int(*units))
	}
	return rec, nil
}

func collectRecords(rows pgx.Rows) ([]domain.DailyRecord, error) {
	defer rows.Close()
	var out []domain.DailyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var (
		b                 domain.Booking
		kind, status      string
		total             string
		serviceID, roomID *int64
		in, out           *time.Time
		notes             *string
	)
	if err := row.Scan(&b.ID, &kind, &b.Customer.Name, &b.Customer.Email, &b.Customer.Phone,
		&serviceID, &roomID, &in, &out, &total, &status, &b.Consent, &notes, &b.CreatedAt); err != nil {
		return domain.Booking{}, err
	}
	p, err := parseDecimal(total)
	if err != nil {
		return domain.Booking{}, err
	}
	b.TotalPrice = p
	b.Kind = domain.BookingKind(kind)
	b.Status = domain.BookingStatus(status)
	b.ServiceID, b.RoomID = serviceID, roomID
	b.CheckIn, b.CheckOut = dayPtr(in), dayPtr(out)
	b.CreatedAt = b.CreatedAt.UTC()
	if notes != nil {
		b.Notes = *notes
	}
	return b, nil
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.Day(*t)
	return &d
}

func insertBooking(ctx context.Context, q querier, b domain.Booking) error {
	var notes any
	if b.Notes != "" {
		notes = b.Notes
	}
	_, err := q.Exec(ctx, insertBookingSQL,
		b.ID, string(b.Kind), b.Customer.Name, b.Customer.Email, b.Customer.Phone,
		b.ServiceID, b.RoomID, dateArg(b.CheckIn), dateArg(b.CheckOut),
		b.TotalPrice.String(), string(b.Status), b.Consent, notes, b.CreatedAt.UTC(),
	)
	return err
}

// ---------------------------------------------------------------------------
// bookings
// ---------------------------------------------------------------------------

func (r *Repo) InsertInquiry(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if err := insertBooking(ctx, r.db, b); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *Repo) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, getBookingSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		// not a uuid
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

func (r *Repo) ActiveBookings(ctx context.Context, roomID int64, from, to time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, activeBookingsSQL, roomID, domain.Day(to), domain.Day(from))
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
	_, err := r.db.Exec(ctx, upsertListingSQL, l.ID, l.Name, strings.ToUpper(l.Currency))
	return err
}

func (r *Repo) UpsertRoom(ctx context.Context, rm domain.Room) error {
	_, err := r.db.Exec(ctx, upsertRoomSQL, rm.ID, rm.ListingID, rm.Name, rm.TotalUnits, rm.BasePrice.String())
	return err
}

func (r *Repo) GetListing(ctx context.Context, id int64) (domain.Listing, error) {
	var l domain.Listing
	err := r.db.QueryRow(ctx, getListingSQL, id).Scan(&l.ID, &l.Name, &l.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Listing{}, domain.ErrNotFound
	}
	l.Currency = strings.TrimSpace(l.Currency)
	return l, err
}

func scanRoom(row pgx.Row) (domain.Room, error) {
	var (
		rm    domain.Room
		price string
	)
	if err := row.Scan(&rm.ID, &rm.ListingID, &rm.Name, &rm.TotalUnits, &price); err != nil {
		return domain.Room{}, err
	}
	p, err := parseDecimal(price)
	if err != nil {
		return domain.Room{}, err
	}
	rm.BasePrice = p
	return rm, nil
}

func (r *Repo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	rm, err := scanRoom(r.db.QueryRow(ctx, getRoomSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Room{}, domain.ErrNotFound
	}
	return rm, err
}

func (r *Repo) ListRooms(ctx context.Context, listingID int64) ([]domain.Room, error) {
	rows, err := r.db.Query(ctx, listRoomsSQL, listingID)
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

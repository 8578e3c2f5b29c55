package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"travel_inventory/internal/domain"
)

const commitRetries = 3

func (r *Repo) Get(ctx context.Context, roomID int64, from, to time.Time) ([]domain.DailyRecord, error) {
	rows, err := r.db.Query(ctx, getInventorySQL, roomID, domain.Day(from), domain.Day(to))
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// Upsert pipelines one statement per row in a single batch.
func (r *Repo) Upsert(ctx context.Context, recs []domain.DailyRecord) error {
	if len(recs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range recs {
		batch.Queue(upsertInventorySQL, rec.RoomID, domain.Day(rec.Date), rec.Price.String(), rec.IsBlocked, unitsArg(rec.AvailableUnits))
	}
	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for i := range recs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert inventory row %d: %w", i, err)
		}
	}
	return br.Close()
}

func (r *Repo) Decrement(ctx context.Context, roomID int64, date time.Time, by int) (int, error) {
	if by <= 0 {
		return 0, domain.Invalid("by", "must be positive")
	}
	d := domain.Day(date)
	var left int32
	err := r.db.QueryRow(ctx, decrementSQL, by, roomID, d).Scan(&left)
	if err == nil {
		return int(left), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	var exists bool
	if err := r.db.QueryRow(ctx, existsSQL, roomID, d).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, domain.ErrNotFound
	}
	return 0, domain.ErrCapacityExceeded
}

// CommitBooking locks the stay's rows in date order, takes one unit per night
// and inserts the booking in one transaction. Serialization failures are retried.
func (r *Repo) CommitBooking(ctx context.Context, b domain.Booking, nights []time.Time) (domain.Booking, []domain.DailyRecord, error) {
	if b.RoomID == nil || len(nights) == 0 {
		return domain.Booking{}, nil, domain.Invalid("room_id", "booking needs a room and at least one night")
	}
	roomID := *b.RoomID
	first, last := domain.Day(nights[0]), domain.Day(nights[len(nights)-1])

	for attempt := 0; ; attempt++ {
		var touched []domain.DailyRecord
		err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx, lockNightsSQL, roomID, first, last)
			if err != nil {
				return err
			}
			locked, err := collectRecords(rows)
			if err != nil {
				return err
			}
			if len(locked) < len(nights) {
				return domain.ErrCapacityExceeded
			}

			total := decimal.Zero
			for _, rec := range locked {
				if !rec.Sellable() {
					return domain.ErrCapacityExceeded
				}
				var left int32
				if err := tx.QueryRow(ctx, takeNightSQL, roomID, rec.Date).Scan(&left, &rec.IsBlocked); err != nil {
					if errors.Is(err, pgx.ErrNoRows) {
						return domain.ErrCapacityExceeded
					}
					return err
				}
				rec.AvailableUnits = domain.Units(int(left))
				touched = append(touched, rec)
				total = total.Add(rec.Price)
			}

			b.TotalPrice = total
			return insertBooking(ctx, tx, b)
		})
		if err == nil {
			return b, touched, nil
		}
		if !retryable(err) || attempt+1 >= commitRetries {
			return domain.Booking{}, nil, err
		}
		log.Warn().Err(err).Int64("room_id", roomID).Int("attempt", attempt+1).Msg("booking commit aborted by postgres; retrying")
	}
}

// SetBlocked locks the row before counting bookings; under READ COMMITTED the
// count then includes every booking that took a unit from it.
func (r *Repo) SetBlocked(ctx context.Context, seed domain.DailyRecord, totalUnits int) (domain.DailyRecord, error) {
	d := domain.Day(seed.Date)
	var out domain.DailyRecord
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		rec, err := scanRecord(tx.QueryRow(ctx, lockNightSQL, seed.RoomID, d))
		missing := errors.Is(err, pgx.ErrNoRows)
		if err != nil && !missing {
			return err
		}
		if missing {
			rec = seed
			rec.Date = d
			rec.AvailableUnits = domain.Units(0)
		}
		rec.IsBlocked = seed.IsBlocked
		if !rec.IsBlocked && (missing || (rec.AvailableUnits != nil && *rec.AvailableUnits == 0)) {
			var held int64
			if err := tx.QueryRow(ctx, heldUnitsSQL, seed.RoomID, d).Scan(&held); err != nil {
				return err
			}
			rec.AvailableUnits = domain.Units(max(totalUnits-int(held), 0))
		}

		if missing {
			out, err = scanRecord(tx.QueryRow(ctx, insertBlockedSQL,
				rec.RoomID, rec.Date, rec.Price.String(), rec.IsBlocked, unitsArg(rec.AvailableUnits)))
			return err
		}
		if _, err := tx.Exec(ctx, setBlockedSQL, rec.IsBlocked, unitsArg(rec.AvailableUnits), seed.RoomID, d); err != nil {
			return err
		}
		out = rec
		return nil
	})
	return out, err
}

func (r *Repo) Reset(ctx context.Context, roomID int64, from, to time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, resetInventorySQL, roomID, domain.Day(from), domain.Day(to))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// retryable reports deadlock_detected and serialization_failure.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40P01" || pgErr.Code == "40001"
}

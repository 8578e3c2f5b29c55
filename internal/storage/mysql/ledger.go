package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"travel_inventory/internal/domain"
)

const (
	upsertBatch   = 500
	commitRetries = 3
	erDeadlock    = 1213
)

func (r *Repo) Get(ctx context.Context, roomID int64, from, to time.Time) ([]domain.DailyRecord, error) {
	rows, err := r.db.QueryContext(ctx, getInventorySQL, roomID, domain.Day(from), domain.Day(to))
	if err != nil {
		return nil, err
	}
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

// Upsert writes rows in multi-row statements; every row is replaced as a whole.
func (r *Repo) Upsert(ctx context.Context, recs []domain.DailyRecord) error {
	for start := 0; start < len(recs); start += upsertBatch {
		end := min(start+upsertBatch, len(recs))
		chunk := recs[start:end]

		values := make([]string, 0, len(chunk))
		args := make([]any, 0, len(chunk)*5)
		for _, rec := range chunk {
			values = append(values, "(?,?,?,?,?)")
			args = append(args, rec.RoomID, domain.Day(rec.Date), rec.Price, rec.IsBlocked, valInt(rec.AvailableUnits))
		}
		q := upsertInventoryPrefix + strings.Join(values, ",") + upsertInventoryOnDup
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("upsert inventory rows %d..%d: %w", start, end, err)
		}
	}
	return nil
}

func (r *Repo) Decrement(ctx context.Context, roomID int64, date time.Time, by int) (int, error) {
	if by <= 0 {
		return 0, domain.Invalid("by", "must be positive")
	}
	d := domain.Day(date)
	left := 0
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, decrementSQL, by, roomID, d, by)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}

		var units sql.NullInt64
		err = tx.QueryRowContext(ctx, unitsSQL, roomID, d).Scan(&units)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.ErrNotFound
		case err != nil:
			return err
		case n == 0:
			return domain.ErrCapacityExceeded
		}
		left = int(units.Int64)
		return nil
	})
	return left, err
}

// CommitBooking locks the stay's rows, takes one unit per night and inserts the booking
// in a single transaction. Deadlocks are retried; any unsellable night rolls everything back.
func (r *Repo) CommitBooking(ctx context.Context, b domain.Booking, nights []time.Time) (domain.Booking, []domain.DailyRecord, error) {
	if b.RoomID == nil || len(nights) == 0 {
		return domain.Booking{}, nil, domain.Invalid("room_id", "booking needs a room and at least one night")
	}
	roomID := *b.RoomID
	first, last := domain.Day(nights[0]), domain.Day(nights[len(nights)-1])

	var touched []domain.DailyRecord
	for attempt := 0; ; attempt++ {
		touched = nil
		err := r.inTx(ctx, func(tx *sql.Tx) error {
			locked, err := lockNights(ctx, tx, roomID, first, last)
			if err != nil {
				return err
			}
			if len(locked) < len(nights) {
				return domain.ErrCapacityExceeded
			}
			for _, rec := range locked {
				if !rec.Sellable() {
					return domain.ErrCapacityExceeded
				}
			}

			for _, rec := range locked {
				res, err := tx.ExecContext(ctx, takeNightSQL, roomID, rec.Date)
				if err != nil {
					return err
				}
				if n, _ := res.RowsAffected(); n != 1 {
					return domain.ErrCapacityExceeded
				}
				left := *rec.AvailableUnits - 1
				rec.AvailableUnits = &left
				rec.IsBlocked = left == 0
				touched = append(touched, rec)
			}

			b.TotalPrice = sumPrices(locked)
			return insertBooking(ctx, tx, b)
		})
		if err == nil {
			return b, touched, nil
		}
		if !isDeadlock(err) || attempt+1 >= commitRetries {
			return domain.Booking{}, nil, err
		}
		log.Warn().Err(err).Int64("room_id", roomID).Int("attempt", attempt+1).Msg("booking commit deadlocked; retrying")
	}
}

// SetBlocked runs under READ COMMITTED so the booking count after the row lock
// sees every booking that took a unit from the row before.
func (r *Repo) SetBlocked(ctx context.Context, seed domain.DailyRecord, totalUnits int) (domain.DailyRecord, error) {
	d := domain.Day(seed.Date)
	var out domain.DailyRecord
	err := r.inTxWith(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx *sql.Tx) error {
		rec, err := scanRecord(tx.QueryRowContext(ctx, lockNightSQL, seed.RoomID, d))
		missing := errors.Is(err, sql.ErrNoRows)
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
			var held int
			if err := tx.QueryRowContext(ctx, heldUnitsSQL, seed.RoomID, d, d).Scan(&held); err != nil {
				return err
			}
			rec.AvailableUnits = domain.Units(max(totalUnits-held, 0))
		}

		if missing {
			_, err = tx.ExecContext(ctx, insertBlockedSQL, rec.RoomID, rec.Date, rec.Price, rec.IsBlocked, valInt(rec.AvailableUnits))
			if err != nil {
				return err
			}
			// re-read: a concurrent insert may have won the key
			out, err = scanRecord(tx.QueryRowContext(ctx, lockNightSQL, seed.RoomID, d))
			return err
		}
		if _, err := tx.ExecContext(ctx, setBlockedSQL, rec.IsBlocked, valInt(rec.AvailableUnits), seed.RoomID, d); err != nil {
			return err
		}
		out = rec
		return nil
	})
	return out, err
}

func lockNights(ctx context.Context, tx *sql.Tx, roomID int64, first, last time.Time) ([]domain.DailyRecord, error) {
	rows, err := tx.QueryContext(ctx, lockNightsSQL, roomID, first, last)
	if err != nil {
		return nil, err
	}
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

func (r *Repo) Reset(ctx context.Context, roomID int64, from, to time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, resetInventorySQL, roomID, domain.Day(from), domain.Day(to))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *Repo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return r.inTxWith(ctx, nil, fn)
}

func (r *Repo) inTxWith(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isDeadlock(err error) bool {
	var me *mysqldrv.MySQLError
	return errors.As(err, &me) && me.Number == erDeadlock
}

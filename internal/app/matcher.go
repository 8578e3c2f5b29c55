package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"travel_inventory/internal/domain"
)

const (
	ReasonMissing         = "missing"
	ReasonBlocked         = "blocked"
	ReasonSoldOut         = "sold_out"
	ReasonUnknownCapacity = "unknown_capacity"
)

// Quote is the matcher's verdict for one room and stay.
type Quote struct {
	RoomID      int64                `json:"room_id"`
	Bookable    bool                 `json:"bookable"`
	TotalPrice  *decimal.Decimal     `json:"total_price"`
	Nights      int                  `json:"nights"`
	Records     []domain.DailyRecord `json:"records"`
	Reason      string               `json:"reason,omitempty"`
	FailedDates []string             `json:"failed_dates,omitempty"`
}

// Conflict turns a negative quote into the error surfaced to the guest.
func (q Quote) Conflict() error {
	return &domain.ConflictError{Dates: q.FailedDates, Reason: q.Reason}
}

// Matcher decides whether a room can be sold for every night of a stay. It only reads.
type Matcher struct {
	ledger domain.LedgerReader
}

func NewMatcher(l domain.LedgerReader) *Matcher { return &Matcher{ledger: l} }

func (m *Matcher) Match(ctx context.Context, roomID int64, r domain.DateRange) (Quote, error) {
	nights := r.Nights()
	from, to := r.Span()
	recs, err := m.ledger.Get(ctx, roomID, from, to)
	if err != nil {
		return Quote{}, err
	}
	q := Quote{RoomID: roomID, Nights: len(nights), Records: recs}

	byDay := make(map[time.Time]domain.DailyRecord, len(recs))
	for _, rec := range recs {
		byDay[domain.Day(rec.Date)] = rec
	}

	// a missing night is a hard stop, never a gap to skip
	if len(recs) < len(nights) {
		q.Reason = ReasonMissing
		for _, d := range nights {
			if _, ok := byDay[d]; !ok {
				q.FailedDates = append(q.FailedDates, d.Format(domain.DateLayout))
			}
		}
		return q, nil
	}

	total := decimal.Zero
	for _, d := range nights {
		rec, ok := byDay[d]
		switch {
		case !ok:
			q.fail(ReasonMissing, d)
		case rec.IsBlocked:
			q.fail(ReasonBlocked, d)
		case rec.AvailableUnits == nil:
			q.fail(ReasonUnknownCapacity, d)
		case *rec.AvailableUnits <= 0:
			q.fail(ReasonSoldOut, d)
		default:
			total = total.Add(rec.Price)
		}
	}
	if len(q.FailedDates) > 0 {
		return q, nil
	}
	q.Bookable = true
	q.TotalPrice = &total
	return q, nil
}

func (q *Quote) fail(reason string, d time.Time) {
	if q.Reason == "" {
		q.Reason = reason
	}
	q.FailedDates = append(q.FailedDates, d.Format(domain.DateLayout))
}

package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"travel_inventory/internal/domain"
)

// Notifier queues availability hints and publishes them from a single goroutine,
// which keeps per-room order. Notify never blocks; a full queue drops the hint.
type Notifier struct {
	pub   domain.ChangePublisher
	queue chan domain.AvailabilityChange
}

func NewNotifier(pub domain.ChangePublisher, buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Notifier{pub: pub, queue: make(chan domain.AvailabilityChange, buffer)}
}

func (n *Notifier) Notify(c domain.AvailabilityChange) bool {
	select {
	case n.queue <- c:
		return true
	default:
		log.Warn().Int64("room_id", c.RoomID).Str("date", c.Date).Msg("availability notifier queue full; hint dropped")
		return false
	}
}

// Run drains the queue until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-n.queue:
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := n.pub.PublishAvailability(pctx, c); err != nil {
				log.Warn().Err(err).Int64("room_id", c.RoomID).Str("date", c.Date).Msg("availability publish failed")
			}
			cancel()
		}
	}
}

// NotifyingLedger reports decrements, block toggles and transitions to blocked after they commit.
type NotifyingLedger struct {
	domain.Ledger
	n *Notifier
}

func NewNotifyingLedger(l domain.Ledger, n *Notifier) *NotifyingLedger {
	return &NotifyingLedger{Ledger: l, n: n}
}

func (l *NotifyingLedger) Upsert(ctx context.Context, recs []domain.DailyRecord) error {
	if err := l.Ledger.Upsert(ctx, recs); err != nil {
		return err
	}
	for _, r := range recs {
		if r.IsBlocked {
			l.n.Notify(domain.ChangeFromRecord(r))
		}
	}
	return nil
}

func (l *NotifyingLedger) SetBlocked(ctx context.Context, seed domain.DailyRecord, totalUnits int) (domain.DailyRecord, error) {
	rec, err := l.Ledger.SetBlocked(ctx, seed, totalUnits)
	if err != nil {
		return rec, err
	}
	l.n.Notify(domain.ChangeFromRecord(rec))
	return rec, nil
}

func (l *NotifyingLedger) Decrement(ctx context.Context, roomID int64, date time.Time, by int) (int, error) {
	left, err := l.Ledger.Decrement(ctx, roomID, date, by)
	if err != nil {
		return left, err
	}
	l.n.Notify(domain.AvailabilityChange{
		RoomID:         roomID,
		Date:           domain.Day(date).Format(domain.DateLayout),
		IsBlocked:      left == 0,
		AvailableUnits: domain.Units(left),
	})
	return left, nil
}

func (l *NotifyingLedger) CommitBooking(ctx context.Context, b domain.Booking, nights []time.Time) (domain.Booking, []domain.DailyRecord, error) {
	stored, recs, err := l.Ledger.CommitBooking(ctx, b, nights)
	if err != nil {
		return stored, recs, err
	}
	for _, r := range recs {
		l.n.Notify(domain.ChangeFromRecord(r))
	}
	return stored, recs, nil
}

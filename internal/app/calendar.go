package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"travel_inventory/internal/domain"
)

// MaxRuleDays bounds a single pricing rule.
const MaxRuleDays = 731

// PricingRule is an administrative batch edit. Start and End are both inclusive.
// Days restricts the edit to weekdays, 0 = Sunday through 6 = Saturday.
type PricingRule struct {
	ServiceID        int64
	RoomID           int64
	Start, End       time.Time
	Price            *decimal.Decimal
	Multiplier       *decimal.Decimal // percent over the room base price
	IsBlocked        bool
	Days             []int
	PreserveBookings bool
}

type RuleResult struct {
	Count int             `json:"count"`
	Price decimal.Decimal `json:"price"`
	// Overwritten counts dates whose committed bookings were discarded by an overwrite.
	Overwritten int `json:"overwritten,omitempty"`
}

type SparseUpdate struct {
	Date      time.Time
	Price     *decimal.Decimal // nil keeps the room base price
	IsBlocked bool
}

type CalendarService struct {
	ledger   domain.Ledger
	bookings domain.BookingRepository
	catalog  domain.Catalog
	audit    domain.Auditor
	tracer   trace.Tracer
	now      func() time.Time
}

func NewCalendarService(l domain.Ledger, b domain.BookingRepository, c domain.Catalog, a domain.Auditor) *CalendarService {
	return &CalendarService{
		ledger:   l,
		bookings: b,
		catalog:  c,
		audit:    a,
		tracer:   otel.Tracer("travel_inventory/calendar"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ApplyPricingRule upserts one ledger row per selected date. By default this overwrites
// available_units with full capacity even where bookings already hold units; set
// PreserveBookings to recompute units from the active bookings instead.
func (s *CalendarService) ApplyPricingRule(ctx context.Context, rule PricingRule) (RuleResult, error) {
	ctx, span := s.tracer.Start(ctx, "calendar.apply_rule", trace.WithAttributes(attribute.Int64("room_id", rule.RoomID)))
	defer span.End()

	if err := rule.validate(); err != nil {
		return RuleResult{}, err
	}
	room, listing, err := s.roomAndListing(ctx, rule.RoomID, rule.ServiceID)
	if err != nil {
		return RuleResult{}, err
	}

	price, err := EffectivePrice(room, listing, rule.Price, rule.Multiplier)
	if err != nil {
		return RuleResult{}, err
	}

	dates := SelectDates(rule.Start, rule.End, rule.Days)
	res := RuleResult{Count: len(dates), Price: price}
	if len(dates) == 0 {
		return res, nil
	}
	from, to := dates[0], dates[len(dates)-1].AddDate(0, 0, 1)

	occupied := map[time.Time]int{}
	if rule.PreserveBookings || !rule.IsBlocked {
		if occupied, err = s.occupancy(ctx, room.ID, from, to); err != nil {
			return RuleResult{}, err
		}
	}

	recs := make([]domain.DailyRecord, 0, len(dates))
	for _, d := range dates {
		units := room.TotalUnits
		if rule.PreserveBookings {
			units -= occupied[d]
		}
		if units < 0 {
			units = 0
		}
		if rule.IsBlocked {
			units = 0
		}
		recs = append(recs, domain.DailyRecord{
			RoomID:         room.ID,
			Date:           d,
			Price:          price,
			IsBlocked:      rule.IsBlocked || units == 0,
			AvailableUnits: domain.Units(units),
		})
	}

	if !rule.PreserveBookings && !rule.IsBlocked {
		for _, d := range dates {
			if occupied[d] > 0 {
				res.Overwritten++
			}
		}
		if res.Overwritten > 0 {
			log.Warn().
				Int64("room_id", room.ID).
				Int("dates", res.Overwritten).
				Msg("pricing rule resets available_units on dates with committed bookings; pass preserveBookings to keep them")
		}
	}

	if err := s.ledger.Upsert(ctx, recs); err != nil {
		return RuleResult{}, fmt.Errorf("upsert ledger: %w", err)
	}
	span.SetAttributes(attribute.Int("count", res.Count))
	s.record(ctx, "calendar.rule_applied", room.ID, map[string]any{
		"start": rule.Start.Format(domain.DateLayout), "end": rule.End.Format(domain.DateLayout),
		"count": res.Count, "price": price.String(), "is_blocked": rule.IsBlocked, "days": rule.Days,
		"preserve_bookings": rule.PreserveBookings, "overwritten": res.Overwritten,
	})
	return res, nil
}

// ApplySparseUpdates writes hand-edited individual dates with the same row shape as a rule.
func (s *CalendarService) ApplySparseUpdates(ctx context.Context, serviceID, roomID int64, ups []SparseUpdate) (int, error) {
	if len(ups) == 0 {
		return 0, nil
	}
	room, listing, err := s.roomAndListing(ctx, roomID, serviceID)
	if err != nil {
		return 0, err
	}
	recs := make([]domain.DailyRecord, 0, len(ups))
	for i, u := range ups {
		if u.Date.IsZero() {
			return 0, domain.Invalid(fmt.Sprintf("updates[%d].date", i), "required")
		}
		price, err := EffectivePrice(room, listing, u.Price, nil)
		if err != nil {
			return 0, err
		}
		units := room.TotalUnits
		if u.IsBlocked {
			units = 0
		}
		recs = append(recs, domain.DailyRecord{
			RoomID:         room.ID,
			Date:           domain.Day(u.Date),
			Price:          price,
			IsBlocked:      u.IsBlocked,
			AvailableUnits: domain.Units(units),
		})
	}
	if err := s.ledger.Upsert(ctx, recs); err != nil {
		return 0, fmt.Errorf("upsert ledger: %w", err)
	}
	s.record(ctx, "calendar.sparse_applied", room.ID, map[string]any{"count": len(recs)})
	return len(recs), nil
}

// ToggleBlock opens or closes one date, creating the row at the base price when absent.
// Only the flag changes on an existing row; reopening a sold-out or rule-blocked date
// restores the units not held by active bookings.
func (s *CalendarService) ToggleBlock(ctx context.Context, serviceID, roomID int64, date time.Time, blocked bool) (domain.DailyRecord, error) {
	if date.IsZero() {
		return domain.DailyRecord{}, domain.Invalid("date", "required")
	}
	room, listing, err := s.roomAndListing(ctx, roomID, serviceID)
	if err != nil {
		return domain.DailyRecord{}, err
	}
	d := domain.Day(date)
	rec, err := s.ledger.SetBlocked(ctx, domain.DailyRecord{
		RoomID:    room.ID,
		Date:      d,
		Price:     RoundToMinorUnit(room.BasePrice, listing.Currency),
		IsBlocked: blocked,
	}, room.TotalUnits)
	if err != nil {
		return domain.DailyRecord{}, fmt.Errorf("set blocked: %w", err)
	}
	s.record(ctx, "calendar.block_toggled", room.ID, map[string]any{"date": d.Format(domain.DateLayout), "blocked": blocked})
	return rec, nil
}

// Calendar returns the raw rows for an inclusive admin window.
func (s *CalendarService) Calendar(ctx context.Context, roomID int64, start, end time.Time) ([]domain.DailyRecord, error) {
	if end.Before(start) {
		return nil, domain.Invalid("to", "must not be before from")
	}
	return s.ledger.Get(ctx, roomID, domain.Day(start), domain.Day(end).AddDate(0, 0, 1))
}

// ResetCalendar deletes rows for an inclusive window; dates become unbookable.
func (s *CalendarService) ResetCalendar(ctx context.Context, serviceID, roomID int64, start, end time.Time) (int, error) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0, domain.Invalid("endDate", "must not be before startDate")
	}
	room, _, err := s.roomAndListing(ctx, roomID, serviceID)
	if err != nil {
		return 0, err
	}
	n, err := s.ledger.Reset(ctx, room.ID, domain.Day(start), domain.Day(end).AddDate(0, 0, 1))
	if err != nil {
		return 0, err
	}
	s.record(ctx, "calendar.reset", room.ID, map[string]any{"deleted": n})
	return n, nil
}

// SelectDates enumerates [start, end] and keeps only the given weekdays when any are set.
func SelectDates(start, end time.Time, days []int) []time.Time {
	want := map[time.Weekday]bool{}
	for _, d := range days {
		want[time.Weekday(d)] = true
	}
	var out []time.Time
	for d := domain.Day(start); !d.After(domain.Day(end)); d = d.AddDate(0, 0, 1) {
		if len(want) > 0 && !want[d.Weekday()] {
			continue
		}
		out = append(out, d)
	}
	return out
}

// EffectivePrice resolves a fixed price or base*(1+multiplier/100), rounded to the currency's minor unit.
func EffectivePrice(room domain.Room, listing domain.Listing, price, multiplier *decimal.Decimal) (decimal.Decimal, error) {
	var p decimal.Decimal
	switch {
	case price != nil:
		p = *price
	case multiplier != nil:
		p = room.BasePrice.Mul(decimal.NewFromInt(1).Add(multiplier.Div(decimal.NewFromInt(100))))
	default:
		p = room.BasePrice
	}
	p = RoundToMinorUnit(p, listing.Currency)
	if !p.IsPositive() {
		return decimal.Zero, domain.Invalid("price", "effective nightly price must be positive, got %s", p)
	}
	return p, nil
}

func (r PricingRule) validate() error {
	if r.RoomID <= 0 {
		return domain.Invalid("room_id", "required")
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return domain.Invalid("startDate", "startDate and endDate are required")
	}
	if domain.Day(r.End).Before(domain.Day(r.Start)) {
		return domain.Invalid("endDate", "must not be before startDate")
	}
	if domain.Day(r.End).Sub(domain.Day(r.Start)) >= MaxRuleDays*24*time.Hour {
		return domain.Invalid("endDate", "range exceeds %d days", MaxRuleDays)
	}
	if r.Price != nil && r.Multiplier != nil {
		return domain.Invalid("price", "give either price or multiplier, not both")
	}
	if r.Price == nil && r.Multiplier == nil {
		return domain.Invalid("price", "price or multiplier is required")
	}
	for _, d := range r.Days {
		if d < 0 || d > 6 {
			return domain.Invalid("applyToDays", "weekday %d outside 0..6", d)
		}
	}
	return nil
}

func (s *CalendarService) roomAndListing(ctx context.Context, roomID, serviceID int64) (domain.Room, domain.Listing, error) {
	room, err := s.catalog.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, domain.Listing{}, fmt.Errorf("room %d: %w", roomID, err)
	}
	if serviceID != 0 && room.ListingID != serviceID {
		return domain.Room{}, domain.Listing{}, domain.Invalid("room_id", "room %d does not belong to service %d", roomID, serviceID)
	}
	listing, err := s.catalog.GetListing(ctx, room.ListingID)
	if err != nil {
		return domain.Room{}, domain.Listing{}, fmt.Errorf("listing %d: %w", room.ListingID, err)
	}
	return room, listing, nil
}

func (s *CalendarService) occupancy(ctx context.Context, roomID int64, from, to time.Time) (map[time.Time]int, error) {
	bs, err := s.bookings.ActiveBookings(ctx, roomID, from, to)
	if err != nil {
		return nil, fmt.Errorf("active bookings: %w", err)
	}
	out := map[time.Time]int{}
	for _, b := range bs {
		r, _ := b.Range()
		for _, n := range r.Nights() {
			out[n]++
		}
	}
	return out, nil
}

func (s *CalendarService) record(ctx context.Context, action string, roomID int64, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, domain.AuditEntry{Action: action, RoomID: roomID, Detail: detail, Occurred: s.now()}); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("audit write failed")
	}
}

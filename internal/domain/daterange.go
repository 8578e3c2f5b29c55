package domain

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts a plain ISO date or a full RFC3339 timestamp and returns the calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// DateRange is a stay: CheckIn inclusive, CheckOut exclusive.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func NewDateRange(in, out time.Time) DateRange {
	return DateRange{CheckIn: Day(in), CheckOut: Day(out)}
}

// DayUse reports a same-day stay, which is charged as one night.
func (r DateRange) DayUse() bool { return r.CheckIn.Equal(r.CheckOut) }

// Nights lists the chargeable dates. A day-use stay yields its check-in date.
func (r DateRange) Nights() []time.Time {
	if r.DayUse() {
		return []time.Time{r.CheckIn}
	}
	var out []time.Time
	for d := r.CheckIn; d.Before(r.CheckOut); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Span is the half-open ledger window [from, to) covering Nights.
func (r DateRange) Span() (from, to time.Time) {
	if r.DayUse() {
		return r.CheckIn, r.CheckIn.AddDate(0, 0, 1)
	}
	return r.CheckIn, r.CheckOut
}

func (r DateRange) String() string {
	return r.CheckIn.Format(DateLayout) + ".." + r.CheckOut.Format(DateLayout)
}

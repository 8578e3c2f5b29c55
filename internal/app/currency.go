package app

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// RoundToMinorUnit rounds p to the smallest unit of the ISO currency (JPY 0 places, USD 2, KWD 3).
// Unknown codes fall back to two places.
func RoundToMinorUnit(p decimal.Decimal, code string) decimal.Decimal {
	scale, incr := 2, 1
	if u, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code))); err == nil {
		scale, incr = currency.Standard.Rounding(u)
	}
	if incr <= 1 {
		return p.Round(int32(scale))
	}
	step := decimal.New(int64(incr), -int32(scale))
	return p.Div(step).Round(0).Mul(step)
}

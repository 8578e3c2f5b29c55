package app

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"travel_inventory/internal/domain"
)

/********** alias registries **********/

var listingAliases = map[string][]string{
	"id":       {"id", "service_id", "listing_id"},
	"name":     {"name", "title", "service_name"},
	"currency": {"currency", "currency_code", "pricing.currency"},
}

var roomAliases = map[string][]string{
	"id":    {"id", "room_id"},
	"name":  {"name", "title", "room_name", "type"},
	"units": {"total_units", "quantity", "units", "inventory.total"},
	"price": {"base_price", "price", "pricing.base", "rate"},
}

/********** helpers **********/

// lookupAny: nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func lookupStr(m map[string]any, path string) string {
	if s, ok := lookupAny(m, path).(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func firstStr(m map[string]any, paths ...string) string {
	for _, p := range paths {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int64(v)
			return &x
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstDecimalFlexible accepts JSON numbers and strings, including "89,50".
func firstDecimalFlexible(m map[string]any, paths ...string) *decimal.Decimal {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			d := decimal.NewFromFloat(v)
			return &d
		case int:
			d := decimal.NewFromInt(int64(v))
			return &d
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if d, err := decimal.NewFromString(s); err == nil {
				return &d
			}
		}
	}
	return nil
}

/********** listing mapper **********/

func mapListing(fallbackID int64, p map[string]any) domain.Listing {
	id := fallbackID
	if v := firstInt64Flexible(p, listingAliases["id"]...); v != nil {
		id = *v
	}
	cur := strings.ToUpper(firstStr(p, listingAliases["currency"]...))
	if cur == "" {
		cur = "USD"
	}
	return domain.Listing{ID: id, Name: firstStr(p, listingAliases["name"]...), Currency: cur}
}

/********** rooms mapper **********/

// mapRooms drops rooms without an id or a positive capacity; they cannot hold ledger rows.
func mapRooms(listingID int64, in []map[string]any) []domain.Room {
	out := make([]domain.Room, 0, len(in))
	for _, r := range in {
		id := firstInt64Flexible(r, roomAliases["id"]...)
		units := firstInt64Flexible(r, roomAliases["units"]...)
		if id == nil || units == nil || *units < 1 {
			log.Warn().Int64("listing_id", listingID).Interface("room", r["id"]).Msg("skipping room without id or capacity")
			continue
		}
		room := domain.Room{
			ID:         *id,
			ListingID:  listingID,
			Name:       firstStr(r, roomAliases["name"]...),
			TotalUnits: int(*units),
		}
		if p := firstDecimalFlexible(r, roomAliases["price"]...); p != nil {
			room.BasePrice = *p
		}
		out = append(out, room)
	}
	return out
}

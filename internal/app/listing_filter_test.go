package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel_inventory/internal/app"
	"travel_inventory/internal/domain"
)

func TestFilter_AnyRoomMakesListingAvailable(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	// Single is sold out on the 2nd, Triple is fine; Villa has no rows at all.
	seed(t, s, singleID, day(2024, 6, 1), day(2024, 6, 4), "100", 1)
	require.NoError(t, s.Upsert(ctx, []domain.DailyRecord{
		{RoomID: singleID, Date: day(2024, 6, 2), Price: dec("100"), AvailableUnits: domain.Units(0)},
	}))
	seed(t, s, tripleID, day(2024, 6, 1), day(2024, 6, 4), "80", 3)

	f := app.NewListingFilter(s, app.NewMatcher(s), 2)
	r := domain.NewDateRange(day(2024, 6, 1), day(2024, 6, 4))

	got, err := f.Filter(ctx, []int64{villaID, emptyID, hotelID}, &r)
	require.NoError(t, err)
	assert.Equal(t, []int64{hotelID}, got)

	ok, err := f.IsAvailable(ctx, emptyID, r)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFilter_NoRangeSkipsMatcher(t *testing.T) {
	s := newStore(t)
	cl := &countingLedger{Ledger: s}
	f := app.NewListingFilter(s, app.NewMatcher(cl), 0)

	ids := []int64{emptyID, hotelID, villaID}
	got, err := f.Filter(context.Background(), ids, nil)
	require.NoError(t, err)
	assert.Equal(t, ids, got)
	assert.Zero(t, cl.gets.Load())
}

func TestFilter_PreservesInputOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	var ids []int64
	for i := int64(100); i < 140; i++ {
		require.NoError(t, s.UpsertListing(ctx, domain.Listing{ID: i, Currency: "USD"}))
		require.NoError(t, s.UpsertRoom(ctx, domain.Room{ID: i * 10, ListingID: i, TotalUnits: 1, BasePrice: dec("50")}))
		if i%3 != 0 {
			seed(t, s, i*10, day(2024, 6, 1), day(2024, 6, 3), "50", 1)
		}
		ids = append(ids, i)
	}
	// reverse so order is not accidentally sorted
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}

	r := domain.NewDateRange(day(2024, 6, 1), day(2024, 6, 3))
	got, err := app.NewListingFilter(s, app.NewMatcher(s), 4).Filter(ctx, ids, &r)
	require.NoError(t, err)

	var want []int64
	for _, id := range ids {
		if id%3 != 0 {
			want = append(want, id)
		}
	}
	assert.Equal(t, want, got)
}

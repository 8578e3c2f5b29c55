package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel_inventory/internal/app"
	"travel_inventory/internal/domain"
)

func TestMatch_SumsEveryNight(t *testing.T) {
	s := newStore(t)
	seed(t, s, singleID, day(2024, 6, 1), day(2024, 6, 3), "100", 1)

	q, err := app.NewMatcher(s).Match(context.Background(), singleID, domain.NewDateRange(day(2024, 6, 1), day(2024, 6, 3)))
	require.NoError(t, err)
	assert.True(t, q.Bookable)
	assert.Equal(t, 2, q.Nights)
	assert.True(t, dec("200").Equal(*q.TotalPrice))
	assert.Empty(t, q.Reason)
}

func TestMatch_FailClosed(t *testing.T) {
	ctx := context.Background()
	june := domain.NewDateRange(day(2024, 6, 1), day(2024, 6, 4))

	tests := []struct {
		name   string
		mutate func(t *testing.T, s domain.Ledger)
		reason string
		failed []string
	}{
		{
			name: "missing middle night",
			mutate: func(t *testing.T, s domain.Ledger) {
				_, err := s.Reset(ctx, tripleID, day(2024, 6, 2), day(2024, 6, 3))
				require.NoError(t, err)
			},
			reason: app.ReasonMissing,
			failed: []string{"2024-06-02"},
		},
		{
			name: "blocked night",
			mutate: func(t *testing.T, s domain.Ledger) {
				require.NoError(t, s.Upsert(ctx, []domain.DailyRecord{
					{RoomID: tripleID, Date: day(2024, 6, 3), Price: dec("80"), IsBlocked: true, AvailableUnits: domain.Units(3)},
				}))
			},
			reason: app.ReasonBlocked,
			failed: []string{"2024-06-03"},
		},
		{
			name: "sold out night",
			mutate: func(t *testing.T, s domain.Ledger) {
				require.NoError(t, s.Upsert(ctx, []domain.DailyRecord{
					{RoomID: tripleID, Date: day(2024, 6, 1), Price: dec("80"), AvailableUnits: domain.Units(0)},
				}))
			},
			reason: app.ReasonSoldOut,
			failed: []string{"2024-06-01"},
		},
		{
			name: "unknown capacity",
			mutate: func(t *testing.T, s domain.Ledger) {
				require.NoError(t, s.Upsert(ctx, []domain.DailyRecord{
					{RoomID: tripleID, Date: day(2024, 6, 2), Price: dec("80")},
				}))
			},
			reason: app.ReasonUnknownCapacity,
			failed: []string{"2024-06-02"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			seed(t, s, tripleID, day(2024, 6, 1), day(2024, 6, 4), "80", 3)
			tc.mutate(t, s)

			q, err := app.NewMatcher(s).Match(ctx, tripleID, june)
			require.NoError(t, err)
			assert.False(t, q.Bookable)
			assert.Nil(t, q.TotalPrice)
			assert.Equal(t, tc.reason, q.Reason)
			assert.Equal(t, tc.failed, q.FailedDates)
			assert.ErrorIs(t, q.Conflict(), domain.ErrConflict)
		})
	}
}

func TestMatch_DayUseNeedsOneNight(t *testing.T) {
	s := newStore(t)
	m := app.NewMatcher(s)
	r := domain.NewDateRange(day(2024, 6, 5), day(2024, 6, 5))

	q, err := m.Match(context.Background(), singleID, r)
	require.NoError(t, err)
	assert.False(t, q.Bookable)
	assert.Equal(t, []string{"2024-06-05"}, q.FailedDates)

	seed(t, s, singleID, day(2024, 6, 5), day(2024, 6, 6), "55.50", 1)
	q, err = m.Match(context.Background(), singleID, r)
	require.NoError(t, err)
	assert.True(t, q.Bookable)
	assert.Equal(t, 1, q.Nights)
	assert.True(t, dec("55.50").Equal(*q.TotalPrice))
}

func TestMatch_IsPureRead(t *testing.T) {
	s := newStore(t)
	seed(t, s, singleID, day(2024, 6, 1), day(2024, 6, 3), "100", 1)
	m := app.NewMatcher(s)
	r := domain.NewDateRange(day(2024, 6, 1), day(2024, 6, 3))

	for i := 0; i < 3; i++ {
		q, err := m.Match(context.Background(), singleID, r)
		require.NoError(t, err)
		require.True(t, q.Bookable)
	}
	rows, _ := s.Get(context.Background(), singleID, day(2024, 6, 1), day(2024, 6, 3))
	for _, row := range rows {
		assert.Equal(t, 1, *row.AvailableUnits)
	}
}

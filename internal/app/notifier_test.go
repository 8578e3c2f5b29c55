package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel_inventory/internal/app"
	"travel_inventory/internal/domain"
)

func TestNotifyingLedger_PublishesCommittedNights(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newStore(t)
	seed(t, s, singleID, day(2024, 6, 1), day(2024, 6, 3), "100", 1)
	pub := &recordingPublisher{}
	n := app.NewNotifier(pub, 16)
	go n.Run(ctx)

	l := app.NewNotifyingLedger(s, n)
	svc := app.NewBookingService(l, s, s, app.NewMatcher(l), nil, nil)
	_, err := svc.CreateBooking(ctx, bookingReq(singleID, day(2024, 6, 1), day(2024, 6, 3)))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(pub.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
	got := pub.snapshot()
	assert.Equal(t, "2024-06-01", got[0].Date)
	assert.Equal(t, "2024-06-02", got[1].Date)
	for _, c := range got {
		assert.Equal(t, singleID, c.RoomID)
		assert.True(t, c.IsBlocked)
		assert.Equal(t, 0, *c.AvailableUnits)
	}
}

func TestNotifyingLedger_OnlyBlockedUpsertsNotify(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newStore(t)
	pub := &recordingPublisher{}
	n := app.NewNotifier(pub, 16)
	go n.Run(ctx)
	l := app.NewNotifyingLedger(s, n)

	require.NoError(t, l.Upsert(ctx, []domain.DailyRecord{
		{RoomID: tripleID, Date: day(2024, 6, 1), Price: dec("80"), AvailableUnits: domain.Units(3)},
		{RoomID: tripleID, Date: day(2024, 6, 2), Price: dec("80"), IsBlocked: true, AvailableUnits: domain.Units(0)},
	}))
	left, err := l.Decrement(ctx, tripleID, day(2024, 6, 1), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, left)

	require.Eventually(t, func() bool { return len(pub.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
	got := pub.snapshot()
	assert.Equal(t, "2024-06-02", got[0].Date)
	assert.True(t, got[0].IsBlocked)
	assert.Equal(t, "2024-06-01", got[1].Date)
	assert.Equal(t, 2, *got[1].AvailableUnits)
}

func TestNotifier_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	n := app.NewNotifier(&recordingPublisher{}, 1)
	c := domain.AvailabilityChange{RoomID: 1, Date: "2024-06-01"}

	assert.True(t, n.Notify(c))
	done := make(chan bool, 1)
	go func() { done <- n.Notify(c) }()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
}

func TestNotifyingLedger_FailedDecrementIsSilent(t *testing.T) {
	s := newStore(t)
	seed(t, s, singleID, day(2024, 6, 1), day(2024, 6, 2), "100", 1)
	n := app.NewNotifier(&recordingPublisher{}, 1)
	l := app.NewNotifyingLedger(s, n)

	_, err := l.Decrement(context.Background(), singleID, day(2024, 6, 1), 2)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	// queue is still empty, so one hint fits
	assert.True(t, n.Notify(domain.AvailabilityChange{RoomID: singleID}))
}

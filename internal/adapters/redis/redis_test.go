package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisad "travel_inventory/internal/adapters/redis"
	"travel_inventory/internal/domain"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestCache_RoundTripAndTTL(t *testing.T) {
	mr, c := newClient(t)
	cache := redisad.NewCache(c)
	ctx := context.Background()

	var l domain.Listing
	ok, err := cache.Get(ctx, "listing:1", &l)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "listing:1", domain.Listing{ID: 1, Name: "Harbour", Currency: "USD"}, 60))
	ok, err = cache.Get(ctx, "listing:1", &l)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Harbour", l.Name)

	mr.FastForward(61 * time.Second)
	ok, _ = cache.Get(ctx, "listing:1", &l)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "room:2", domain.Room{ID: 2}, 60))
	require.NoError(t, cache.Del(ctx, "room:2"))
	assert.False(t, mr.Exists("room:2"))
}

func TestCache_CorruptValueIsAMiss(t *testing.T) {
	mr, c := newClient(t)
	require.NoError(t, mr.Set("room:9", "{not json"))

	var r domain.Room
	ok, err := redisad.NewCache(c).Get(context.Background(), "room:9", &r)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPubSub_AvailabilityReachesRoomSubscribers(t *testing.T) {
	_, c := newClient(t)
	ps := redisad.NewPubSub(c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := ps.SubscribeAvailability(ctx, 7)
	require.NoError(t, err)

	require.NoError(t, ps.PublishAvailability(ctx, domain.AvailabilityChange{RoomID: 8, Date: "2024-06-01"}))
	require.NoError(t, ps.PublishAvailability(ctx, domain.AvailabilityChange{RoomID: 7, Date: "2024-06-01", AvailableUnits: domain.Units(2)}))
	require.NoError(t, ps.PublishAvailability(ctx, domain.AvailabilityChange{RoomID: 7, Date: "2024-06-02", IsBlocked: true, AvailableUnits: domain.Units(0)}))

	var got []domain.AvailabilityChange
	for len(got) < 2 {
		select {
		case c := <-ch:
			got = append(got, c)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %+v", got)
		}
	}
	assert.Equal(t, "2024-06-01", got[0].Date)
	assert.Equal(t, 2, *got[0].AvailableUnits)
	assert.Equal(t, "2024-06-02", got[1].Date)
	assert.True(t, got[1].IsBlocked)

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPubSub_BookingCreated(t *testing.T) {
	_, c := newClient(t)
	ctx := context.Background()
	sub := c.Subscribe(ctx, redisad.BookingsChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, redisad.NewPubSub(c).BookingCreated(ctx, domain.Booking{ID: "b-1", Kind: domain.KindBooking}))

	select {
	case m := <-sub.Channel():
		assert.Contains(t, m.Payload, `"event":"booking_created"`)
		assert.Contains(t, m.Payload, `"id":"b-1"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no booking_created message")
	}
}

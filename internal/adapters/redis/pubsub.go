package redisad

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"travel_inventory/internal/adapters/observability"
	"travel_inventory/internal/domain"
)

const BookingsChannel = "bookings:created"

func AvailabilityChannel(roomID int64) string { return fmt.Sprintf("availability:room:%d", roomID) }

// PubSub carries availability hints and booking_created events over Redis channels.
// Delivery is at-most-once; a subscriber that is not connected misses the message.
type PubSub struct{ c *redis.Client }

func NewPubSub(c *redis.Client) *PubSub { return &PubSub{c: c} }

func (p *PubSub) PublishAvailability(ctx context.Context, c domain.AvailabilityChange) error {
	if err := p.publish(ctx, AvailabilityChannel(c.RoomID), c); err != nil {
		observability.ObserveNotifier("failed")
		return err
	}
	observability.ObserveNotifier("published")
	return nil
}

type bookingCreated struct {
	Event   string         `json:"event"`
	Booking domain.Booking `json:"booking"`
}

func (p *PubSub) BookingCreated(ctx context.Context, b domain.Booking) error {
	return p.publish(ctx, BookingsChannel, bookingCreated{Event: "booking_created", Booking: b})
}

func (p *PubSub) publish(ctx context.Context, channel string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.c.Publish(ctx, channel, b).Err()
}

// SubscribeAvailability returns once the subscription is live. The channel closes when ctx ends.
func (p *PubSub) SubscribeAvailability(ctx context.Context, roomID int64) (<-chan domain.AvailabilityChange, error) {
	sub := p.c.Subscribe(ctx, AvailabilityChannel(roomID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe room %d: %w", roomID, err)
	}

	out := make(chan domain.AvailabilityChange, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var c domain.AvailabilityChange
				if err := json.Unmarshal([]byte(m.Payload), &c); err != nil {
					log.Warn().Err(err).Str("channel", m.Channel).Msg("dropping malformed availability message")
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

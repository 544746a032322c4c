package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/freelanceshield/shieldd/internal/domain"
)

// Pub/Sub channels used by the engine. The websocket hub subscribes to both
// and fans deliveries out to connected clients.
const (
	ChannelClaims = "ch:claim"
	ChannelPool   = "ch:pool"
)

// SignalBus implements domain.SignalBus using Redis Pub/Sub.
type SignalBus struct {
	rdb *redis.Client
}

var _ domain.SignalBus = (*SignalBus)(nil)

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

// Publish sends a raw byte payload to a Redis Pub/Sub channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe creates a Redis Pub/Sub subscription over one or more channels
// and returns a read-only channel of deliveries. The subscription closes when
// the context is cancelled; the returned channel is closed at that point as
// well.
func (sb *SignalBus) Subscribe(ctx context.Context, channels ...string) (<-chan domain.SignalMessage, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("redis: subscribe: no channels given")
	}

	pubsub := sb.rdb.Subscribe(ctx, channels...)

	// Verify the subscription is established by receiving the confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %v: %w", channels, err)
	}

	out := make(chan domain.SignalMessage, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				delivery := domain.SignalMessage{
					Channel: msg.Channel,
					Payload: []byte(msg.Payload),
				}
				select {
				case out <- delivery:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

package gateway

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ridepool/backend/internal/events"
)

// Subscriber bridges the Redis event channel into the hub.
type Subscriber struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
}

func NewSubscriber(client *redis.Client, hub *Hub, logger *zap.Logger) *Subscriber {
	return &Subscriber{client: client, hub: hub, logger: logger}
}

// Run consumes envelopes until the context is cancelled. Envelopes
// that fail to decode are logged and skipped.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, events.Channel)
	defer pubsub.Close()

	// Confirm the subscription before consuming.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	s.logger.Info("subscribed", zap.String("channel", events.Channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.logger.Warn("malformed event envelope", zap.Error(err))
				continue
			}
			s.hub.Broadcast(ev)
		}
	}
}

package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher pushes one event toward the gateway. Implementations are
// best-effort: they log failures and never return delivery status to
// the caller, so a gateway outage cannot fail or roll back the state
// change being announced.
type Publisher interface {
	Publish(ctx context.Context, room, eventType string, payload any)
}

// RedisPublisher sends envelopes over a Redis pub/sub channel the
// gateway subscribes to.
type RedisPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisPublisher(client *redis.Client, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, room, eventType string, payload any) {
	ev, err := New(room, eventType, payload)
	if err != nil {
		p.logger.Error("marshal event payload",
			zap.String("type", eventType),
			zap.Error(err),
		)
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("marshal event envelope", zap.String("type", eventType), zap.Error(err))
		return
	}

	if err := p.client.Publish(ctx, Channel, data).Err(); err != nil {
		p.logger.Warn("event publish failed",
			zap.String("type", eventType),
			zap.String("room", room),
			zap.Error(err),
		)
	}
}

// NopPublisher drops every event. Used when no gateway is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) {}

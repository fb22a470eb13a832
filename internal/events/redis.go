package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
)

const DefaultChannel = "marketplace:events"

// RedisRelay publishes events on a redis channel so every API instance can
// forward them to its own hub.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
}

func NewRedisRelay(rdb *redis.Client, channel string, hub *Hub) *RedisRelay {
	return &RedisRelay{
		rdb:     rdb,
		channel: channel,
		hub:     hub,
	}
}

func (r *RedisRelay) Publish(event domain.MarketEvent) {
	raw, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("failed to encode market event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := r.rdb.Publish(ctx, r.channel, raw).Err(); err != nil {
		zap.L().Warn("redis publish failed, delivering locally", zap.Error(err))
		r.hub.Broadcast(raw)
	}
}

// Forward copies messages from the redis channel into the local hub until
// ctx is done.
func (r *RedisRelay) Forward(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("sub.Receive -> %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.hub.Broadcast([]byte(msg.Payload))
		}
	}
}

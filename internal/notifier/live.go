package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"retiree-match/internal/model"

	"github.com/redis/go-redis/v9"
)

// LivePublisher 向在线会话实时推送通知，返回是否有接收方确认。
type LivePublisher interface {
	Deliver(ctx context.Context, userID string, n model.Notification) (bool, error)
}

// RedisPublisher 通过 Redis Pub/Sub 推送，订阅方数量大于零视为已送达。
type RedisPublisher struct {
	client redis.Cmdable
	prefix string
}

// NewRedisPublisher 创建发布器，频道为 prefix:userID。
func NewRedisPublisher(client redis.Cmdable, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "notifications"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel 返回用户对应的频道名。
func (p *RedisPublisher) Channel(userID string) string {
	return p.prefix + ":" + userID
}

func (p *RedisPublisher) Deliver(ctx context.Context, userID string, n model.Notification) (bool, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return false, fmt.Errorf("encode notification: %w", err)
	}
	receivers, err := p.client.Publish(ctx, p.Channel(userID), data).Result()
	if err != nil {
		return false, fmt.Errorf("publish notification: %w", err)
	}
	return receivers > 0, nil
}

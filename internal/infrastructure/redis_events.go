package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event is the envelope published for dashboard live updates.
type Event struct {
	Type    string    `json:"type"`
	UserID  int       `json:"user_id"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// RedisEventPublisher fans pipeline events out on one channel per business.
type RedisEventPublisher struct {
	client *redis.Client
	prefix string
}

func NewRedisEventPublisher(ctx context.Context, addr, password string, db int, prefix string) (*RedisEventPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisEventPublisher{client: client, prefix: prefix}, nil
}

// Channel is the pub/sub channel carrying userID's events.
func (p *RedisEventPublisher) Channel(userID int) string {
	return fmt.Sprintf("%s:%d", p.prefix, userID)
}

func (p *RedisEventPublisher) Publish(ctx context.Context, userID int, event string, payload any) error {
	data, err := json.Marshal(Event{Type: event, UserID: userID, At: time.Now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.client.Publish(ctx, p.Channel(userID), data).Err()
}

func (p *RedisEventPublisher) Close() error {
	return p.client.Close()
}

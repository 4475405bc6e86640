package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes notifications on a Redis channel so every server
// instance can deliver them to its own websocket subscribers.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier creates a notifier publishing on channel.
func NewRedisNotifier(client *redis.Client, channel string) (*RedisNotifier, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if channel == "" {
		return nil, fmt.Errorf("notification channel is empty")
	}
	return &RedisNotifier{client: client, channel: channel}, nil
}

func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Forward subscribes to the channel and hands every notification to dst
// until ctx is cancelled. It returns once the subscription is established;
// the returned channel is closed when the forwarding goroutine exits.
func (r *RedisNotifier) Forward(ctx context.Context, dst Notifier) (<-chan struct{}, error) {
	if dst == nil {
		return nil, fmt.Errorf("destination notifier is nil")
	}

	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var n Notification
				if err := json.Unmarshal([]byte(m.Payload), &n); err != nil {
					slog.Warn("bad notification payload", "channel", r.channel, "error", err)
					continue
				}
				if err := dst.Notify(ctx, n); err != nil {
					slog.Warn("forward notification failed", "learner_id", n.LearnerID, "error", err)
				}
			}
		}
	}()
	return done, nil
}

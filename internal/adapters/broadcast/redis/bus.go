// Package redis fans events and chat frames out across server instances
// over Redis pub/sub.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

// Sink receives what other instances (and this one) published.
type Sink interface {
	ports.EventPublisher
	BroadcastRaw(payload []byte)
}

type Bus struct {
	client  *goredis.Client
	channel string
}

var _ ports.EventPublisher = (*Bus)(nil)

func New(ctx context.Context, cfg config.RedisConfig) (*Bus, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("redis connection established", "addr", cfg.Addr, "channel", cfg.Channel)
	return &Bus{client: client, channel: cfg.Channel}, nil
}

func (b *Bus) chatChannel() string {
	return b.channel + ":chat"
}

func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (b *Bus) PublishChat(ctx context.Context, payload []byte) error {
	if err := b.client.Publish(ctx, b.chatChannel(), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish chat message: %w", err)
	}
	return nil
}

// Run delivers everything published on the bus to sink until ctx is done.
// The subscription is confirmed before ready is closed.
func (b *Bus) Run(ctx context.Context, sink Sink, ready chan<- struct{}) error {
	pubsub := b.client.Subscribe(ctx, b.channel, b.chatChannel())
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.dispatch(ctx, sink, msg)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, sink Sink, msg *goredis.Message) {
	if msg.Channel == b.chatChannel() {
		sink.BroadcastRaw([]byte(msg.Payload))
		return
	}

	var event domain.Event
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		slog.Warn("dropping malformed event from redis", "error", err)
		return
	}
	if err := sink.Publish(ctx, event); err != nil {
		slog.Warn("failed to deliver event from redis", "type", event.Type, "error", err)
	}
}

func (b *Bus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Bus) Close() error {
	return b.client.Close()
}

// Package redisbus carries cross-process cache refresh signals and daily
// counters over Redis, with in-process fallbacks for single-node setups.
package redisbus

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/samber/oops"
)

const refreshChannel = "monitor:cache:refresh"

// Bus delivers "subscriber state changed" signals to every worker.
type Bus interface {
	Publish(ctx context.Context) error
	// Subscribe calls fn for each signal until ctx ends.
	Subscribe(ctx context.Context, fn func()) error
}

func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, oops.With("addr", addr, "context", "redis ping failed").Wrap(err)
	}
	return client, nil
}

type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context) error {
	if err := b.client.Publish(ctx, refreshChannel, time.Now().Unix()).Err(); err != nil {
		return oops.With("channel", refreshChannel).Wrap(err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, fn func()) error {
	sub := b.client.Subscribe(ctx, refreshChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return oops.With("channel", refreshChannel, "context", "subscribe failed").Wrap(err)
	}

	slog.Info("Subscribed to refresh signals", "channel", refreshChannel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-messages:
			if !ok {
				return nil
			}
			fn()
		}
	}
}

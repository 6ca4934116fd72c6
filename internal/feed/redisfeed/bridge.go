// Package redisfeed mirrors the in-process change feed onto a named redis
// pub/sub channel so that several instances fan the same events out to their
// own viewers. The local distributor stays the ordering authority; remote
// events funnel through it and its version guard discards echoes of our own
// publishes.
package redisfeed

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"tablepilot/internal/feed"
	"tablepilot/internal/pkg/config"
)

func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

type Bridge struct {
	client  *redis.Client
	channel string
	local   *feed.Distributor
	logger  *slog.Logger
}

func NewBridge(client *redis.Client, channel string, local *feed.Distributor, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		client:  client,
		channel: channel,
		local:   local,
		logger:  logger,
	}
}

// Publish delivers locally first (commit visibility must never depend on
// redis), then mirrors to the channel. A redis failure is logged and dropped;
// peers recover through Replay.
func (b *Bridge) Publish(e feed.Event) {
	b.local.Publish(e)

	data, err := json.Marshal(e)
	if err != nil {
		b.logger.Error("redisfeed: marshal event failed", "error", err)
		return
	}
	if err := b.client.Publish(context.Background(), b.channel, data).Err(); err != nil {
		b.logger.Warn("redisfeed: publish failed", "channel", b.channel, "error", err)
	}
}

// Run consumes the channel until ctx ends, injecting peer events into the
// local distributor.
func (b *Bridge) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e feed.Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				b.logger.Warn("redisfeed: malformed event skipped", "error", err)
				continue
			}
			b.local.Publish(e)
		}
	}
}

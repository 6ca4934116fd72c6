package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"tablepilot/internal/feed"
	"tablepilot/internal/feed/redisfeed"
	"tablepilot/internal/pkg/config"
	"tablepilot/internal/usecase/shared"
)

var FeedModule = fx.Module("feed",
	fx.Provide(
		feed.NewDistributor,
		NewEventPublisher,
	),
)

// NewEventPublisher wires the commit-side publisher. Without REDIS_ADDR the
// in-process hub stands alone; with it, events also mirror through a redis
// channel so every instance behind a load balancer sees every commit.
func NewEventPublisher(lc fx.Lifecycle, cfg config.Config, dist *feed.Distributor, logger *slog.Logger) shared.EventPublisher {
	if !cfg.Redis.Enabled() {
		return dist
	}

	client := redisfeed.NewClient(cfg.Redis)
	bridge := redisfeed.NewBridge(client, cfg.Redis.Channel, dist, logger)

	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := bridge.Run(runCtx); err != nil && runCtx.Err() == nil {
					logger.Error("redis feed bridge stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			return client.Close()
		},
	})
	return bridge
}

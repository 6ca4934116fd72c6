package components

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"tablepilot/internal/feed"
	"tablepilot/internal/infra/db"
	"tablepilot/internal/infra/memstore"
	"tablepilot/internal/infra/repository"
	"tablepilot/internal/pkg/clock"
	"tablepilot/internal/pkg/config"
	"tablepilot/internal/usecase/shared"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		NewReservationStore,
	),
)

type storeOut struct {
	fx.Out

	Repo shared.ReservationRepository
	Log  feed.EventLog
}

// NewReservationStore selects the store backend from STORE_DRIVER. The
// memory store carries the same semantics as postgres and needs no external
// process, which keeps local development and the unit suite self-contained.
func NewReservationStore(lc fx.Lifecycle, cfg config.Config, clk clock.Clock, logger *slog.Logger) (storeOut, error) {
	if cfg.Store.IsMemory() {
		logger.Info("reservation store: in-memory driver")
		store := memstore.NewReservationStore(clk)
		return storeOut{Repo: store, Log: store}, nil
	}

	pool, cleanup, err := db.Connect(cfg.DB)
	if err != nil {
		return storeOut{}, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if cleanup != nil {
				cleanup()
			}
			return nil
		},
	})

	logger.Info("reservation store: postgres driver", "host", cfg.DB.Host)
	repo := repository.NewReservationRepository(pool, logger)
	return storeOut{Repo: repo, Log: repo}, nil
}

package bootstrap

import (
	"go.uber.org/fx"

	"tablepilot/cmd/bootstrap/components"
)

var Module = fx.Options(
	ConfigModule,
	FeedModule,
	ExtractionModule,
	components.PersistenceModule,
	components.UseCaseModule,
	components.HandlerModule,
)

package components

import (
	"go.uber.org/fx"

	"tablepilot/internal/handler"
	"tablepilot/internal/handler/api"
	"tablepilot/internal/pkg/config"
	"tablepilot/internal/usecase/commands"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		NewWebhookHandler,
		api.NewReservationHandler,
		api.NewStreamHandler,
	),
	fx.Invoke(handler.NewRouter),
)

func NewWebhookHandler(intake commands.IntakeCommands, cfg config.Config) *api.WebhookHandler {
	return api.NewWebhookHandler(intake, cfg.Webhook)
}

package bootstrap

import (
	"log/slog"

	"go.uber.org/fx"

	"tablepilot/internal/extraction"
	"tablepilot/internal/pkg/config"
)

var ExtractionModule = fx.Module("extraction",
	fx.Provide(
		fx.Annotate(
			NewExtractor,
			fx.As(new(extraction.Extractor)),
		),
	),
)

func NewExtractor(cfg config.Config, logger *slog.Logger) *extraction.GeminiExtractor {
	return extraction.NewGeminiExtractor(cfg.Extractor, logger)
}

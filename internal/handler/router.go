package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tablepilot/internal/handler/api"
	"tablepilot/internal/handler/middleware"
	"tablepilot/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	webhookHandler *api.WebhookHandler,
	reservationHandler *api.ReservationHandler,
	streamHandler *api.StreamHandler,
) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, webhookHandler, reservationHandler, streamHandler)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(
	engine *gin.Engine,
	webhookHandler *api.WebhookHandler,
	reservationHandler *api.ReservationHandler,
	streamHandler *api.StreamHandler,
) {
	engine.GET("/health", healthCheck)

	// Provider callbacks live outside /api: their paths and plain-text bodies
	// are fixed by the subscription registered with the messaging provider.
	addRoutes(&engine.RouterGroup, []route{
		{Method: http.MethodGet, Path: "/webhook", Handler: webhookHandler.Verify},
		{Method: http.MethodPost, Path: "/webhook", Handler: webhookHandler.Receive},
	})

	apiGroup := engine.Group("/api")
	{
		reservations := apiGroup.Group("/reservations")
		{
			addRoutes(reservations, []route{
				{Method: http.MethodGet, Path: "", Handler: reservationHandler.ListReservations},
				{Method: http.MethodGet, Path: "/stream", Handler: streamHandler.Stream},
				{Method: http.MethodGet, Path: "/:id", Handler: reservationHandler.GetReservation},
				{Method: http.MethodPost, Path: "/:id/decision", Handler: reservationHandler.DecideReservation},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}

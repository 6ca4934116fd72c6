package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tablepilot/internal/feed"
	"tablepilot/internal/usecase/commands"
	"tablepilot/internal/usecase/queries"
	"tablepilot/internal/viewer"
)

// StreamHandler exposes the change feed over server-sent events. Each
// connection owns one sync agent, so every client sees the same snapshot
// semantics the in-process viewers do.
type StreamHandler struct {
	dist      *feed.Distributor
	decisions commands.DecisionCommands
	queries   queries.ReservationQueries
	logger    *slog.Logger
}

func NewStreamHandler(
	dist *feed.Distributor,
	decisions commands.DecisionCommands,
	qs queries.ReservationQueries,
	logger *slog.Logger,
) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{
		dist:      dist,
		decisions: decisions,
		queries:   qs,
		logger:    logger,
	}
}

// @Summary Stream reservation changes
// @Description Server-sent events: a snapshot on connect, then one change event per committed mutation. With entity and since_version set, persisted history past that version replays first.
// @Tags reservations
// @Produce text/event-stream
// @Param entity query string false "Replay a single reservation's history"
// @Param since_version query int false "Replay events with version greater than this"
// @Success 200 {string} string
// @Failure 400 {object} map[string]string
// @Router /reservations/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()

	agent := viewer.NewAgent(h.dist, h.decisions, h.queries, h.logger)

	// Subscribe before the snapshot read: a mutation committed in between is
	// buffered on the subscription and applied by the run loop, where the
	// version guard drops whatever the snapshot already covered.
	sub := agent.Subscribe()
	if err := agent.Resync(ctx); err != nil {
		agent.Unsubscribe(sub)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	replay, ok := h.replayEvents(c)
	if !ok {
		agent.Unsubscribe(sub)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("snapshot", agent.Snapshot())
	for _, e := range replay {
		c.SSEvent("change", e)
	}
	c.Writer.Flush()

	// The agent loop handles ordering, dedupe and gap recovery; this channel
	// only carries what survived toward the wire. A full channel means the
	// client stopped reading, so dropping is fine: reconnect resyncs.
	events := make(chan feed.Event, 16)
	go func() {
		defer close(events)
		_ = agent.Run(ctx, sub, func(e feed.Event) {
			select {
			case events <- e:
			default:
			}
		})
	}()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, open := <-events:
			if !open {
				return false
			}
			c.SSEvent("change", e)
			return true
		}
	})
}

// replayEvents resolves the optional entity/since_version catch-up request.
// The bool is false when the parameters were invalid and a response has been
// written.
func (h *StreamHandler) replayEvents(c *gin.Context) ([]feed.Event, bool) {
	entityParam := c.Query("entity")
	if entityParam == "" {
		return nil, true
	}

	entityID, err := uuid.Parse(entityParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid entity ID format",
		})
		return nil, false
	}

	var since int64
	if raw := c.Query("since_version"); raw != "" {
		since, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || since < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid since_version",
			})
			return nil, false
		}
	}

	events, err := h.dist.Replay(c.Request.Context(), nil, entityID, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return nil, false
	}
	return events, true
}

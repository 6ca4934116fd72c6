package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	reqdto "tablepilot/internal/handler/dto/request"
	"tablepilot/internal/pkg/config"
	"tablepilot/internal/usecase/commands"
)

// WebhookHandler is the provider-facing surface. Response bodies are part of
// the provider contract and must stay byte-exact: the provider retries on
// anything but a 2xx, so drops and duplicates still answer "OK".
type WebhookHandler struct {
	intake      commands.IntakeCommands
	verifyToken string
}

func NewWebhookHandler(intake commands.IntakeCommands, cfg config.WebhookConfig) *WebhookHandler {
	return &WebhookHandler{
		intake:      intake,
		verifyToken: cfg.VerifyToken,
	}
}

// @Summary Webhook verification handshake
// @Description Echoes the challenge when mode and verify token match
// @Tags webhook
// @Produce plain
// @Param hub.mode query string true "Subscription mode"
// @Param hub.verify_token query string true "Verify token"
// @Param hub.challenge query string true "Challenge to echo"
// @Success 200 {string} string
// @Failure 403 {string} string
// @Router /webhook [get]
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		c.String(http.StatusOK, "%s", challenge)
		return
	}
	c.String(http.StatusForbidden, "Forbidden")
}

// @Summary Receive inbound message callback
// @Description Unwraps the provider envelope and runs the intake pipeline
// @Tags webhook
// @Accept json
// @Produce plain
// @Param request body reqdto.WebhookEnvelope true "Provider callback payload"
// @Success 200 {string} string
// @Failure 500 {string} string
// @Router /webhook [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	// The provider adds envelope fields freely (metadata, contacts, status
	// batches), so decode leniently rather than through the strict app-wide
	// binder. A body that is not JSON at all is an internal failure, not a
	// messageless envelope.
	var envelope reqdto.WebhookEnvelope
	if err := json.NewDecoder(c.Request.Body).Decode(&envelope); err != nil {
		c.String(http.StatusInternalServerError, "Error")
		return
	}

	msg, ok := envelope.FirstMessage()
	if !ok {
		c.String(http.StatusOK, "No message")
		return
	}

	result, err := h.intake.IngestMessage(c.Request.Context(), msg.ToInbound())
	if err != nil {
		c.String(http.StatusInternalServerError, "Error")
		return
	}

	if result.Outcome == commands.IntakeIgnored {
		c.String(http.StatusOK, "No message")
		return
	}
	c.String(http.StatusOK, "OK")
}

package request

import (
	"tablepilot/internal/domain/reservation"
	"tablepilot/internal/usecase/commands"
)

// WebhookEnvelope mirrors the messaging provider's nested callback payload.
// Only the first message of the first change is actionable; status callbacks
// and empty batches arrive in the same shape with no messages.
type WebhookEnvelope struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []WebhookMessage `json:"messages"`
}

type WebhookMessage struct {
	ID   string       `json:"id"`
	From string       `json:"from"`
	Type string       `json:"type"`
	Text *WebhookText `json:"text"`
}

type WebhookText struct {
	Body string `json:"body"`
}

// FirstMessage unwraps entry[0].changes[0].value.messages[0], the only part
// of the envelope the intake pipeline consumes.
func (e WebhookEnvelope) FirstMessage() (WebhookMessage, bool) {
	if len(e.Entry) == 0 || len(e.Entry[0].Changes) == 0 {
		return WebhookMessage{}, false
	}
	msgs := e.Entry[0].Changes[0].Value.Messages
	if len(msgs) == 0 {
		return WebhookMessage{}, false
	}
	return msgs[0], true
}

func (m WebhookMessage) ToInbound() commands.InboundMessage {
	body := ""
	if m.Text != nil {
		body = m.Text.Body
	}
	return commands.InboundMessage{
		From:              m.From,
		Body:              body,
		ProviderMessageID: m.ID,
		Source:            reservation.SourceChat,
	}
}

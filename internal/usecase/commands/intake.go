package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	"tablepilot/internal/domain/reservation"
	"tablepilot/internal/extraction"
	"tablepilot/internal/feed"
	"tablepilot/internal/pkg/clock"
	"tablepilot/internal/pkg/errs"
	"tablepilot/internal/usecase/shared"
)

// InboundMessage is the unwrapped provider envelope: who sent what, and the
// provider's own message id, which becomes the dedupe key.
type InboundMessage struct {
	From              string
	Body              string
	ProviderMessageID string
	Source            reservation.Source
}

type IntakeOutcome string

const (
	// IntakeCreated: a new pending reservation was persisted and published.
	IntakeCreated IntakeOutcome = "created"
	// IntakeDuplicate: the provider retried a message we already ingested.
	IntakeDuplicate IntakeOutcome = "duplicate"
	// IntakeIgnored: the envelope held nothing actionable.
	IntakeIgnored IntakeOutcome = "ignored"
	// IntakeDropped: extraction or validation failed; logged, no reservation.
	IntakeDropped IntakeOutcome = "dropped"
)

type IntakeResult struct {
	Outcome     IntakeOutcome
	Reservation *reservation.Reservation
}

type IntakeCommands interface {
	IngestMessage(ctx context.Context, msg InboundMessage) (*IntakeResult, error)
}

type intakeCommandsImpl struct {
	repo      shared.ReservationRepository
	extractor extraction.Extractor
	publisher shared.EventPublisher
	clock     clock.Clock
	logger    *slog.Logger
}

func NewIntakeCommands(
	repo shared.ReservationRepository,
	extractor extraction.Extractor,
	publisher shared.EventPublisher,
	clk clock.Clock,
	logger *slog.Logger,
) IntakeCommands {
	if logger == nil {
		logger = slog.Default()
	}
	return &intakeCommandsImpl{
		repo:      repo,
		extractor: extractor,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// IngestMessage drives one inbound message through extraction, validation and
// the idempotent create. A returned error means an internal failure the
// boundary should surface as 500; extraction and validation failures are
// terminal drops reported through the outcome, not errors.
func (c *intakeCommandsImpl) IngestMessage(ctx context.Context, msg InboundMessage) (*IntakeResult, error) {
	if strings.TrimSpace(msg.Body) == "" {
		return &IntakeResult{Outcome: IntakeIgnored}, nil
	}
	if msg.From == "" {
		c.logger.Warn("intake rejected: missing sender address", "provider_message_id", msg.ProviderMessageID)
		return &IntakeResult{Outcome: IntakeDropped}, nil
	}

	cand, err := c.extractor.Extract(ctx, msg.Body)
	if err != nil {
		c.logger.Warn("intake dropped: extraction failed",
			"provider_message_id", msg.ProviderMessageID, "error", err)
		return &IntakeResult{Outcome: IntakeDropped}, nil
	}

	res, err := reservation.NewFromIntake(msg.From, msg.Source, cand, reservation.NewNote(""))
	if err != nil {
		c.logger.Warn("intake dropped: candidate validation rejected",
			"provider_message_id", msg.ProviderMessageID, "error", err)
		return &IntakeResult{Outcome: IntakeDropped}, nil
	}

	created, inserted, err := c.repo.Create(ctx, res, c.dedupeKey(msg))
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if !inserted {
		c.logger.Debug("duplicate message suppressed",
			"provider_message_id", msg.ProviderMessageID, "reservation_id", created.ID())
		return &IntakeResult{Outcome: IntakeDuplicate, Reservation: created}, nil
	}

	// Commit is visible to the feed before the provider sees our ack.
	c.publisher.Publish(feed.NewEvent(feed.OpInsert, created, created.UpdatedAt()))

	c.logger.Info("reservation created from inbound message",
		"reservation_id", created.ID(), "source", created.Source().String())
	return &IntakeResult{Outcome: IntakeCreated, Reservation: created}, nil
}

// dedupeKey prefers the provider message id; without one, replays of the
// identical envelope still collapse onto a digest of sender and body.
func (c *intakeCommandsImpl) dedupeKey(msg InboundMessage) string {
	if msg.ProviderMessageID != "" {
		return msg.ProviderMessageID
	}
	sum := sha256.Sum256([]byte(msg.From + "\n" + msg.Body))
	return hex.EncodeToString(sum[:])
}

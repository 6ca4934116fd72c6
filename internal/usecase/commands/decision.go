package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"tablepilot/internal/domain/reservation"
	"tablepilot/internal/feed"
	"tablepilot/internal/infra"
	"tablepilot/internal/pkg/errs"
	"tablepilot/internal/usecase/shared"
)

// DecisionAction is the staff verb. "accept" maps to the confirmed status;
// the UI has always said accept/decline even though the state machine says
// confirmed/declined.
type DecisionAction string

const (
	ActionAccept  DecisionAction = "accept"
	ActionDecline DecisionAction = "decline"
)

func (a DecisionAction) ToStatus() (reservation.Status, bool) {
	switch a {
	case ActionAccept:
		return reservation.StatusConfirmed, true
	case ActionDecline:
		return reservation.StatusDeclined, true
	default:
		return "", false
	}
}

type DecisionResult struct {
	Reservation *reservation.Reservation
	NewVersion  int64
}

type DecisionCommands interface {
	Decide(ctx context.Context, id uuid.UUID, expectedVersion int64, action DecisionAction) (*DecisionResult, error)
}

type decisionCommandsImpl struct {
	repo      shared.ReservationRepository
	publisher shared.EventPublisher
	logger    *slog.Logger
}

func NewDecisionCommands(
	repo shared.ReservationRepository,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) DecisionCommands {
	if logger == nil {
		logger = slog.Default()
	}
	return &decisionCommandsImpl{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Decide applies one accept/decline through the store's compare-and-swap.
// Exactly one of two racing calls with the same expectedVersion commits; the
// other receives ErrVersionConflict and nothing is partially applied.
func (c *decisionCommandsImpl) Decide(ctx context.Context, id uuid.UUID, expectedVersion int64, action DecisionAction) (*DecisionResult, error) {
	next, ok := action.ToStatus()
	if !ok {
		return nil, errs.Mark(errs.New("unknown action "+string(action)), errs.ErrDomainValidation)
	}

	updated, err := c.repo.UpdateStatus(ctx, id, expectedVersion, next)
	if err != nil {
		switch {
		case infra.IsKind(err, infra.KindNotFound):
			return nil, errs.Mark(err, errs.ErrReservationNotFound)
		case infra.IsKind(err, infra.KindConflict):
			return nil, errs.Mark(err, errs.ErrVersionConflict)
		case errors.Is(err, reservation.ErrInvalidTransition),
			errors.Is(err, reservation.ErrReservationFinalized),
			errors.Is(err, reservation.ErrInvalidStatus):
			return nil, errs.Mark(err, errs.ErrInvalidTransition)
		default:
			return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
	}

	// Commit is visible to the feed before the caller sees success.
	c.publisher.Publish(feed.NewEvent(feed.OpUpdate, updated, updated.UpdatedAt()))

	c.logger.Info("reservation decision committed",
		"reservation_id", updated.ID(), "status", updated.Status().String(), "version", updated.Version())
	return &DecisionResult{Reservation: updated, NewVersion: updated.Version()}, nil
}

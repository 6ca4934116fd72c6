// Package shared defines the ports both command and query usecases depend
// on, keeping the write and read sides off each other's types.
package shared

import (
	"context"

	"github.com/google/uuid"

	"tablepilot/internal/domain/reservation"
	"tablepilot/internal/feed"
)

// ReservationRepository is the single authoritative owner of reservation
// state and versions. Create is idempotent on (customer phone, dedupe key);
// UpdateStatus is a compare-and-swap on version. Each implementation appends
// the matching ChangeEvent to its persistent log as part of the commit.
type ReservationRepository interface {
	// Create inserts a pending reservation unless one already exists for the
	// dedupe key, in which case the existing row is returned with created ==
	// false and no second row is written.
	Create(ctx context.Context, res *reservation.Reservation, dedupeKey string) (result *reservation.Reservation, created bool, err error)

	// UpdateStatus commits the transition iff expectedVersion matches the
	// stored version and the transition is legal. Exactly one of two racing
	// calls with the same expectedVersion succeeds.
	UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int64, next reservation.Status) (*reservation.Reservation, error)

	FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error)
	Search(ctx context.Context, filter ReservationFilter) ([]*reservation.Reservation, error)

	// EventsSince replays the committed events of one entity for feed gap
	// recovery.
	EventsSince(ctx context.Context, entityID uuid.UUID, sinceVersion int64) ([]feed.Event, error)
}

type ReservationFilter struct {
	Status *reservation.Status
	Date   *reservation.BookingDate
}

// EventPublisher receives exactly one event per committed mutation, before
// the committing command returns success to its caller.
type EventPublisher interface {
	Publish(e feed.Event)
}

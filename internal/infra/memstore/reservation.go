// Package memstore is a mutex-guarded in-memory implementation of the
// reservation store port. It backs unit tests and the DB-less dev mode
// (STORE_DRIVER=memory) with the same idempotency and compare-and-swap
// semantics as the Postgres repository.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"tablepilot/internal/domain/reservation"
	"tablepilot/internal/feed"
	"tablepilot/internal/infra"
	"tablepilot/internal/pkg/clock"
	"tablepilot/internal/usecase/shared"
)

type dedupeRef struct {
	phone string
	key   string
}

type ReservationStore struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*reservation.Reservation
	byDedupe map[dedupeRef]uuid.UUID
	events   map[uuid.UUID][]feed.Event
	order    []uuid.UUID // insertion order, newest last
	clock    clock.Clock
}

func NewReservationStore(clk clock.Clock) *ReservationStore {
	return &ReservationStore{
		byID:     make(map[uuid.UUID]*reservation.Reservation),
		byDedupe: make(map[dedupeRef]uuid.UUID),
		events:   make(map[uuid.UUID][]feed.Event),
		clock:    clk,
	}
}

func (s *ReservationStore) Create(_ context.Context, res *reservation.Reservation, dedupeKey string) (*reservation.Reservation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := dedupeRef{phone: res.CustomerPhone().String(), key: dedupeKey}
	if existingID, ok := s.byDedupe[ref]; ok {
		return s.byID[existingID], false, nil
	}

	now := s.clock.Now()
	created := reservation.ReconstructReservation(
		res.ID(), res.CustomerName(), res.CustomerPhone(), res.Date(), res.TimeOfDay(), res.GuestCount(),
		reservation.StatusPending, res.Source(), res.Note(), 1, now, now,
	)

	s.byID[created.ID()] = created
	s.byDedupe[ref] = created.ID()
	s.order = append(s.order, created.ID())
	s.events[created.ID()] = append(s.events[created.ID()], feed.NewEvent(feed.OpInsert, created, now))
	return created, true, nil
}

func (s *ReservationStore) UpdateStatus(_ context.Context, id uuid.UUID, expectedVersion int64, next reservation.Status) (*reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return nil, infra.WrapRepoErr("reservation not found", nil, infra.KindNotFound)
	}
	if current.Version() != expectedVersion {
		return nil, infra.WrapRepoErr("stale version", nil, infra.KindConflict)
	}
	if !current.Status().CanTransitionTo(next) {
		// Reuse the domain rule so callers see the same error shape as with
		// the SQL store.
		probe := *current
		return nil, probe.Transition(next)
	}

	now := s.clock.Now()
	updated := reservation.ReconstructReservation(
		current.ID(), current.CustomerName(), current.CustomerPhone(), current.Date(), current.TimeOfDay(),
		current.GuestCount(), next, current.Source(), current.Note(),
		current.Version()+1, current.CreatedAt(), now,
	)
	s.byID[id] = updated
	s.events[id] = append(s.events[id], feed.NewEvent(feed.OpUpdate, updated, now))
	return updated, nil
}

func (s *ReservationStore) FindByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.byID[id]
	if !ok {
		return nil, infra.WrapRepoErr("reservation not found", nil, infra.KindNotFound)
	}
	return res, nil
}

func (s *ReservationStore) Search(_ context.Context, f shared.ReservationFilter) ([]*reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*reservation.Reservation
	for _, id := range s.order {
		res := s.byID[id]
		if f.Status != nil && res.Status() != *f.Status {
			continue
		}
		if f.Date != nil && (res.Date() == nil || !res.Date().Time().Equal(f.Date.Time())) {
			continue
		}
		result = append(result, res)
	}
	// Newest first, matching the SQL store ordering.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt().After(result[j].CreatedAt())
	})
	return result, nil
}

func (s *ReservationStore) EventsSince(_ context.Context, entityID uuid.UUID, sinceVersion int64) ([]feed.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []feed.Event
	for _, e := range s.events[entityID] {
		if e.Version > sinceVersion {
			result = append(result, e)
		}
	}
	return result, nil
}

// Package feed fans committed reservation mutations out to subscribed
// viewers, preserving per-entity version order.
package feed

import (
	"time"

	"github.com/google/uuid"

	"tablepilot/internal/domain/reservation"
)

type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
)

// Event is an immutable record of one committed mutation. It is created by
// the store at commit time and read-only everywhere else.
type Event struct {
	EntityID  uuid.UUID `json:"entity_id"`
	Op        Operation `json:"operation"`
	Version   int64     `json:"version"`
	Payload   Snapshot  `json:"payload"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Snapshot is the full state of a reservation at a given version. Payloads
// are whole snapshots, so a later version of an entity subsumes any earlier
// one a consumer may have missed.
type Snapshot struct {
	ID            uuid.UUID `json:"id"`
	CustomerName  *string   `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	Date          *string   `json:"date"`
	Time          *string   `json:"time"`
	GuestCount    *int      `json:"guest_count"`
	Status        string    `json:"status"`
	Source        string    `json:"source"`
	Note          *string   `json:"note,omitempty"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func SnapshotFrom(res *reservation.Reservation) Snapshot {
	snap := Snapshot{
		ID:            res.ID(),
		CustomerName:  res.CustomerName(),
		CustomerPhone: res.CustomerPhone().String(),
		Status:        res.Status().String(),
		Source:        res.Source().String(),
		Version:       res.Version(),
		CreatedAt:     res.CreatedAt(),
		UpdatedAt:     res.UpdatedAt(),
	}
	if d := res.Date(); d != nil {
		v := d.String()
		snap.Date = &v
	}
	if t := res.TimeOfDay(); t != nil {
		v := t.String()
		snap.Time = &v
	}
	if g := res.GuestCount(); g != nil {
		v := g.Value()
		snap.GuestCount = &v
	}
	if !res.Note().IsEmpty() {
		v := res.Note().String()
		snap.Note = &v
	}
	return snap
}

func NewEvent(op Operation, res *reservation.Reservation, emittedAt time.Time) Event {
	return Event{
		EntityID:  res.ID(),
		Op:        op,
		Version:   res.Version(),
		Payload:   SnapshotFrom(res),
		EmittedAt: emittedAt,
	}
}

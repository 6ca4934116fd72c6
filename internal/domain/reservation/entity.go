package reservation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidStatus        = errors.New("invalid reservation status")
	ErrInvalidTransition    = errors.New("status transition not allowed")
	ErrReservationFinalized = errors.New("reservation is already finalized")
)

// Reservation is the authoritative entity. Fields extracted from free text
// stay nil until extraction produces a usable value; version is assigned and
// advanced exclusively by the store.
type Reservation struct {
	id            uuid.UUID
	customerName  *string
	customerPhone Phone
	date          *BookingDate
	timeOfDay     *BookingTime
	guestCount    *GuestCount
	status        Status
	source        Source
	note          Note
	version       int64
	createdAt     time.Time
	updatedAt     time.Time
}

func ReconstructReservation(
	id uuid.UUID,
	customerName *string,
	customerPhone Phone,
	date *BookingDate,
	timeOfDay *BookingTime,
	guestCount *GuestCount,
	status Status,
	source Source,
	note Note,
	version int64,
	createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:            id,
		customerName:  customerName,
		customerPhone: customerPhone,
		date:          date,
		timeOfDay:     timeOfDay,
		guestCount:    guestCount,
		status:        status,
		source:        source,
		note:          note,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// Transition validates the one-way state machine and returns the entity with
// the new status applied. It does not touch version; the store owns that.
func (r *Reservation) Transition(next Status) error {
	if !next.IsValid() {
		return ErrInvalidStatus
	}
	if !r.status.CanTransitionTo(next) {
		if r.status.IsTerminal() {
			return ErrReservationFinalized
		}
		return ErrInvalidTransition
	}
	r.status = next
	return nil
}

func (r *Reservation) IsPending() bool {
	return r.status == StatusPending
}

func (r *Reservation) ID() uuid.UUID          { return r.id }
func (r *Reservation) CustomerName() *string  { return r.customerName }
func (r *Reservation) CustomerPhone() Phone   { return r.customerPhone }
func (r *Reservation) Date() *BookingDate     { return r.date }
func (r *Reservation) TimeOfDay() *BookingTime { return r.timeOfDay }
func (r *Reservation) GuestCount() *GuestCount { return r.guestCount }
func (r *Reservation) Status() Status         { return r.status }
func (r *Reservation) Source() Source         { return r.source }
func (r *Reservation) Note() Note             { return r.note }
func (r *Reservation) Version() int64         { return r.version }
func (r *Reservation) CreatedAt() time.Time   { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time   { return r.updatedAt }

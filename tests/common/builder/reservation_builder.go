//go:build unit || e2e

package builder

import (
	"time"

	"github.com/google/uuid"

	"tablepilot/internal/domain/reservation"
	"tablepilot/internal/usecase/commands"
)

type ReservationBuilder struct {
	ID       uuid.UUID
	Name     *string
	Phone    string
	Date     *string
	Time     *string
	Guests   *int
	Status   string
	Source   string
	Note     string
	Version  int64
	Created  time.Time
	Updated  time.Time
}

func NewReservationBuilder() *ReservationBuilder {
	name := "Marie Dupont"
	date := "2026-09-10"
	timeOfDay := "19:30"
	guests := 4
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	return &ReservationBuilder{
		ID:      uuid.New(),
		Name:    &name,
		Phone:   "+33612345678",
		Date:    &date,
		Time:    &timeOfDay,
		Guests:  &guests,
		Status:  "pending",
		Source:  "chat",
		Version: 1,
		Created: now,
		Updated: now,
	}
}

func (b *ReservationBuilder) With(mutate func(*ReservationBuilder)) *ReservationBuilder {
	mutate(b)
	return b
}

func (b *ReservationBuilder) WithStatus(status string) *ReservationBuilder {
	b.Status = status
	return b
}

func (b *ReservationBuilder) WithVersion(v int64) *ReservationBuilder {
	b.Version = v
	return b
}

func (b *ReservationBuilder) WithPhone(phone string) *ReservationBuilder {
	b.Phone = phone
	return b
}

// BuildDomain reconstructs the entity as the store would return it.
func (b *ReservationBuilder) BuildDomain() (*reservation.Reservation, error) {
	phone, err := reservation.NewPhone(b.Phone)
	if err != nil {
		return nil, err
	}

	var date *reservation.BookingDate
	if b.Date != nil {
		d, derr := reservation.NewBookingDate(*b.Date)
		if derr != nil {
			return nil, derr
		}
		date = &d
	}
	var timeOfDay *reservation.BookingTime
	if b.Time != nil {
		t, terr := reservation.NewBookingTime(*b.Time)
		if terr != nil {
			return nil, terr
		}
		timeOfDay = &t
	}
	var guests *reservation.GuestCount
	if b.Guests != nil {
		g, gerr := reservation.NewGuestCount(*b.Guests)
		if gerr != nil {
			return nil, gerr
		}
		guests = &g
	}

	return reservation.ReconstructReservation(
		b.ID, b.Name, phone, date, timeOfDay, guests,
		reservation.Status(b.Status), reservation.Source(b.Source), reservation.NewNote(b.Note),
		b.Version, b.Created, b.Updated,
	), nil
}

// BuildCandidate yields the extractor-output form of the same data.
func (b *ReservationBuilder) BuildCandidate() reservation.CandidateFields {
	return reservation.CandidateFields{
		Name:   b.Name,
		Date:   b.Date,
		Time:   b.Time,
		Guests: b.Guests,
	}
}

// BuildInbound yields the provider message that would produce this reservation.
func (b *ReservationBuilder) BuildInbound(providerMessageID, body string) commands.InboundMessage {
	return commands.InboundMessage{
		From:              b.Phone,
		Body:              body,
		ProviderMessageID: providerMessageID,
		Source:            reservation.Source(b.Source),
	}
}

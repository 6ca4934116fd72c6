package reservation

import (
	"errors"

	"github.com/google/uuid"
)

var ErrNoUsableFields = errors.New("no usable candidate fields")

// CandidateFields is the strict tagged form of the extractor output. A nil
// field means the external service could not determine it from the text.
type CandidateFields struct {
	Name   *string
	Date   *string // YYYY-MM-DD
	Time   *string // HH:MM
	Guests *int
}

func (c CandidateFields) IsEmpty() bool {
	return c.Name == nil && c.Date == nil && c.Guests == nil
}

// NewFromIntake builds a pending reservation from an inbound message. A
// candidate field that fails coercion is downgraded to unknown rather than
// failing the whole intake; the intake is rejected only when the phone is
// missing or no field at all survived.
func NewFromIntake(phoneValue string, source Source, cand CandidateFields, note Note) (*Reservation, error) {
	phone, err := NewPhone(phoneValue)
	if err != nil {
		return nil, err
	}
	if !source.IsValid() {
		source = SourceChat
	}

	var name *string
	if cand.Name != nil && *cand.Name != "" {
		v := *cand.Name
		name = &v
	}

	var date *BookingDate
	if cand.Date != nil {
		if d, derr := NewBookingDate(*cand.Date); derr == nil {
			date = &d
		}
	}

	var timeOfDay *BookingTime
	if cand.Time != nil {
		if t, terr := NewBookingTime(*cand.Time); terr == nil {
			timeOfDay = &t
		}
	}

	var guests *GuestCount
	if cand.Guests != nil {
		if g, gerr := NewGuestCount(*cand.Guests); gerr == nil {
			guests = &g
		}
	}

	if name == nil && date == nil && guests == nil {
		return nil, ErrNoUsableFields
	}

	return &Reservation{
		id:            uuid.New(),
		customerName:  name,
		customerPhone: phone,
		date:          date,
		timeOfDay:     timeOfDay,
		guestCount:    guests,
		status:        StatusPending,
		source:        source,
		note:          note,
	}, nil
}

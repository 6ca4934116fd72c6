package reservation

import (
	"errors"
	"time"
)

// Phone is the channel-native sender address. Immutable once assigned and
// part of the dedupe key.
type Phone struct {
	value string
}

func NewPhone(value string) (Phone, error) {
	if value == "" {
		return Phone{}, ErrEmptyPhone
	}
	return Phone{value: value}, nil
}

func (p Phone) String() string {
	return p.value
}

type GuestCount struct {
	value int
}

func NewGuestCount(value int) (GuestCount, error) {
	if value < 1 {
		return GuestCount{}, ErrInvalidGuestCount
	}
	return GuestCount{value: value}, nil
}

func (g GuestCount) Value() int {
	return g.value
}

// BookingDate is a calendar date without a time component.
type BookingDate struct {
	value time.Time
}

const bookingDateLayout = "2006-01-02"

func NewBookingDate(value string) (BookingDate, error) {
	t, err := time.Parse(bookingDateLayout, value)
	if err != nil {
		return BookingDate{}, ErrInvalidDate
	}
	return BookingDate{value: t}, nil
}

func NewBookingDateFromTime(t time.Time) BookingDate {
	y, m, d := t.Date()
	return BookingDate{value: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d BookingDate) Time() time.Time {
	return d.value
}

func (d BookingDate) String() string {
	return d.value.Format(bookingDateLayout)
}

// BookingTime is the optional local time of day, "HH:MM".
type BookingTime struct {
	value string
}

const bookingTimeLayout = "15:04"

func NewBookingTime(value string) (BookingTime, error) {
	if _, err := time.Parse(bookingTimeLayout, value); err != nil {
		return BookingTime{}, ErrInvalidTime
	}
	return BookingTime{value: value}, nil
}

func (t BookingTime) String() string {
	return t.value
}

type Note struct {
	value string
}

func NewNote(value string) Note {
	return Note{value: value}
}

func (n Note) String() string {
	return n.value
}

func (n Note) IsEmpty() bool {
	return n.value == ""
}

var (
	ErrEmptyPhone        = errors.New("customer phone must not be empty")
	ErrInvalidGuestCount = errors.New("guest count must be at least 1")
	ErrInvalidDate       = errors.New("date must be a valid calendar date")
	ErrInvalidTime       = errors.New("time must be HH:MM")
)

package queries

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tablepilot/internal/domain/reservation"
	"tablepilot/internal/infra"
	"tablepilot/internal/pkg/errs"
	"tablepilot/internal/usecase/shared"
)

// Read model (DTO for read side)
type ReservationView struct {
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

type ListFilter struct {
	Status *string
	Date   *string // YYYY-MM-DD
}

type ReservationQueries interface {
	List(ctx context.Context, filter ListFilter) ([]*ReservationView, error)
	Get(ctx context.Context, id uuid.UUID) (*ReservationView, error)
}

type reservationQueriesImpl struct {
	repo shared.ReservationRepository
}

func NewReservationQueries(repo shared.ReservationRepository) ReservationQueries {
	return &reservationQueriesImpl{repo: repo}
}

func (q *reservationQueriesImpl) List(ctx context.Context, filter ListFilter) ([]*ReservationView, error) {
	var f shared.ReservationFilter
	if filter.Status != nil {
		status := reservation.Status(*filter.Status)
		if !status.IsValid() {
			return nil, errs.Mark(errs.New("unknown status "+*filter.Status), errs.ErrDomainValidation)
		}
		f.Status = &status
	}
	if filter.Date != nil {
		date, err := reservation.NewBookingDate(*filter.Date)
		if err != nil {
			return nil, errs.Mark(err, errs.ErrDomainValidation)
		}
		f.Date = &date
	}

	rows, err := q.repo.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	result := make([]*ReservationView, len(rows))
	for i, res := range rows {
		result[i] = ViewFrom(res)
	}
	return result, nil
}

func (q *reservationQueriesImpl) Get(ctx context.Context, id uuid.UUID) (*ReservationView, error) {
	res, err := q.repo.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrReservationNotFound)
		}
		return nil, err
	}
	return ViewFrom(res), nil
}

func ViewFrom(res *reservation.Reservation) *ReservationView {
	view := &ReservationView{
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
		view.Date = &v
	}
	if t := res.TimeOfDay(); t != nil {
		v := t.String()
		view.Time = &v
	}
	if g := res.GuestCount(); g != nil {
		v := g.Value()
		view.GuestCount = &v
	}
	if n := res.Note(); !n.IsEmpty() {
		v := n.String()
		view.Note = &v
	}
	return view
}

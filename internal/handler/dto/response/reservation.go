package response

import (
	"time"

	"github.com/google/uuid"

	"tablepilot/internal/usecase/queries"
)

type ReservationResponse struct {
	ID            uuid.UUID `json:"id"`
	CustomerName  *string   `json:"customerName"`
	CustomerPhone string    `json:"customerPhone"`
	Date          *string   `json:"date"`
	Time          *string   `json:"time"`
	GuestCount    *int      `json:"guestCount"`
	Status        string    `json:"status"`
	Source        string    `json:"source"`
	Note          *string   `json:"note,omitempty"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func FromReservationView(view *queries.ReservationView) *ReservationResponse {
	return &ReservationResponse{
		ID:            view.ID,
		CustomerName:  view.CustomerName,
		CustomerPhone: view.CustomerPhone,
		Date:          view.Date,
		Time:          view.Time,
		GuestCount:    view.GuestCount,
		Status:        view.Status,
		Source:        view.Source,
		Note:          view.Note,
		Version:       view.Version,
		CreatedAt:     view.CreatedAt,
		UpdatedAt:     view.UpdatedAt,
	}
}

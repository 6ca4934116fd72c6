package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	reqdto "tablepilot/internal/handler/dto/request"
	resdto "tablepilot/internal/handler/dto/response"
	"tablepilot/internal/pkg/errs"
	"tablepilot/internal/usecase/commands"
	"tablepilot/internal/usecase/queries"
)

type ReservationHandler struct {
	decisions commands.DecisionCommands
	queries   queries.ReservationQueries
}

func NewReservationHandler(decisions commands.DecisionCommands, qs queries.ReservationQueries) *ReservationHandler {
	return &ReservationHandler{
		decisions: decisions,
		queries:   qs,
	}
}

// @Summary List reservations
// @Description List reservations, optionally filtered by status and booking date
// @Tags reservations
// @Produce json
// @Param status query string false "Filter by status (pending, confirmed, declined)"
// @Param date query string false "Filter by booking date (YYYY-MM-DD)"
// @Success 200 {array} resdto.ReservationResponse
// @Failure 422 {object} map[string]string
// @Router /reservations [get]
func (h *ReservationHandler) ListReservations(c *gin.Context) {
	var filter queries.ListFilter
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}
	if date := c.Query("date"); date != "" {
		filter.Date = &date
	}

	views, err := h.queries.List(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, errs.ErrDomainValidation) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Invalid filter parameters",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	response := make([]*resdto.ReservationResponse, len(views))
	for i, view := range views {
		response[i] = resdto.FromReservationView(view)
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Get reservation
// @Description Get reservation by ID
// @Tags reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} resdto.ReservationResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid reservation ID format",
		})
		return
	}

	view, err := h.queries.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrReservationNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Reservation not found",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}
	c.JSON(http.StatusOK, resdto.FromReservationView(view))
}

// @Summary Decide on a pending reservation
// @Description Accept or decline a pending reservation with optimistic concurrency
// @Tags reservations
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body reqdto.DecideReservationRequest true "Decision request"
// @Success 200 {object} resdto.ReservationResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /reservations/{id}/decision [post]
func (h *ReservationHandler) DecideReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid reservation ID format",
		})
		return
	}

	var req reqdto.DecideReservationRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	result, err := h.decisions.Decide(c.Request.Context(), id, req.Version, req.ToAction())
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrReservationNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Reservation not found",
			})
		case errors.Is(err, errs.ErrVersionConflict):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Reservation was modified by another actor",
			})
		case errors.Is(err, errs.ErrInvalidTransition):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Reservation is no longer pending",
			})
		case errors.Is(err, errs.ErrDomainValidation):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid decision action",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromReservationView(queries.ViewFrom(result.Reservation)))
}

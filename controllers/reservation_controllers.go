package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobook/services"
	"github.com/yeremiapane/restobook/utils"
)

type ReservationController struct {
	Booking *services.BookingService
}

func NewReservationController(booking *services.BookingService) *ReservationController {
	return &ReservationController{Booking: booking}
}

// CreateReservation -> POST /tables/:table_id/reservations
func (rc *ReservationController) CreateReservation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	tableID, ok := paramID(c, "table_id")
	if !ok {
		return
	}

	var req struct {
		ReservationDate string `json:"reservation_date" binding:"required"`
		ReservationTime string `json:"reservation_time" binding:"required"`
		GuestsCount     int    `json:"guests_count" binding:"required"`
		SpecialRequests string `json:"special_requests" binding:"max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	reservation, err := rc.Booking.SubmitReservation(c.Request.Context(), services.ReservationRequest{
		TableID:     tableID,
		UserID:      actor.UserID,
		Date:        req.ReservationDate,
		Time:        req.ReservationTime,
		GuestsCount: req.GuestsCount,
		Notes:       req.SpecialRequests,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Reservation created", reservation)
}

// MyReservations -> GET /reservations
func (rc *ReservationController) MyReservations(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	reservations, err := rc.Booking.UserReservations(c.Request.Context(), actor.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of reservations", reservations)
}

// CancelReservation serves both the owner route and the staff route; the
// service decides who may cancel.
func (rc *ReservationController) CancelReservation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	reservationID, ok := paramID(c, "reservation_id")
	if !ok {
		return
	}

	reservation, err := rc.Booking.CancelReservation(c.Request.Context(), reservationID, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation cancelled", reservation)
}

// ConfirmReservation -> POST /admin/reservations/:reservation_id/confirm
func (rc *ReservationController) ConfirmReservation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	reservationID, ok := paramID(c, "reservation_id")
	if !ok {
		return
	}

	reservation, err := rc.Booking.ConfirmReservation(c.Request.Context(), reservationID, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation confirmed", reservation)
}

// AllReservations -> GET /admin/reservations?status=&date=&restaurant_id=
func (rc *ReservationController) AllReservations(c *gin.Context) {
	filter := services.ReservationFilter{
		Status: c.Query("status"),
		Date:   c.Query("date"),
	}
	if raw := c.Query("restaurant_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		filter.RestaurantID = uint(id)
	}

	reservations, err := rc.Booking.Reservations(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of reservations", reservations)
}

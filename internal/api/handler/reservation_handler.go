package handler

import (
	"errors"
	"net/http"

	"parking_reserve/internal/api/middleware"
	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
	"parking_reserve/internal/service"

	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	resService *service.ReservationService
}

func NewReservationHandler(rs *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{resService: rs}
}

type confirmReservationDTO struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// POST /reservations/select
func (h *ReservationHandler) Select(c *gin.Context) {
	var dto domain.SelectSlotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := c.GetString(middleware.UserEmailKey)
	err := h.resService.Select(c.Request.Context(), email, dto.EstablishmentID, dto.SlotNumber)
	if err != nil {
		h.writeReservationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "slot selected",
		"slot_number": dto.SlotNumber,
		"state":       domain.StateSelected,
	})
}

// POST /reservations/confirm
func (h *ReservationHandler) Confirm(c *gin.Context) {
	var dto confirmReservationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := c.GetString(middleware.UserEmailKey)
	plate := c.GetString(middleware.UserPlateKey)
	rec, err := h.resService.Confirm(c.Request.Context(), email, plate, dto.Latitude, dto.Longitude)
	if err != nil {
		h.writeReservationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// POST /reservations/cancel
func (h *ReservationHandler) Cancel(c *gin.Context) {
	var dto domain.CancelSlotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := c.GetString(middleware.UserEmailKey)
	err := h.resService.Cancel(c.Request.Context(), email, dto.EstablishmentID, dto.SlotNumber)
	if err != nil {
		h.writeReservationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "reservation cancelled",
		"state":   domain.StateIdle,
	})
}

// GET /reservations
func (h *ReservationHandler) List(c *gin.Context) {
	email := c.GetString(middleware.UserEmailKey)
	reservations := h.resService.ActiveReservations(c.Request.Context(), email)
	state := h.resService.State(c.Request.Context(), email)
	c.JSON(http.StatusOK, gin.H{
		"state":        state,
		"reservations": reservations,
	})
}

// Every state-machine rejection carries a human-readable message; no
// failure is silent.
func (h *ReservationHandler) writeReservationError(c *gin.Context, err error) {
	var persistErr *service.PersistenceError
	switch {
	case errors.Is(err, service.ErrSlotOccupied):
		c.JSON(http.StatusConflict, gin.H{"error": "this slot is already occupied"})
	case errors.Is(err, service.ErrReservationLimit):
		c.JSON(http.StatusConflict, gin.H{"error": "you can only reserve one slot at a time"})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "please select a valid slot before reserving"})
	case errors.Is(err, service.ErrNoSuchReservation):
		c.JSON(http.StatusNotFound, gin.H{"error": "please select a valid reserved slot before canceling"})
	case errors.Is(err, service.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "slot does not exist in this establishment"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "establishment not found"})
	case errors.As(err, &persistErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not complete your reservation, please try again", "details": persistErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected error", "details": err.Error()})
	}
}

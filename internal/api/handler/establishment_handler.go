package handler

import (
	"errors"
	"net/http"
	"strconv"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
	"parking_reserve/internal/service"

	"github.com/gin-gonic/gin"
)

type EstablishmentHandler struct {
	estService *service.EstablishmentService
}

func NewEstablishmentHandler(es *service.EstablishmentService) *EstablishmentHandler {
	return &EstablishmentHandler{estService: es}
}

// POST /establishments
func (h *EstablishmentHandler) Create(c *gin.Context) {
	var dto domain.EstablishmentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	est, err := h.estService.Create(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create establishment", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, est)
}

// GET /establishments
func (h *EstablishmentHandler) GetAll(c *gin.Context) {
	ests, err := h.estService.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list establishments"})
		return
	}
	c.JSON(http.StatusOK, ests)
}

// GET /establishments/nearby?lat=&lng=&radius_m=
func (h *EstablishmentHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng query parameters are required"})
		return
	}
	radiusM := 5000.0
	if raw := c.Query("radius_m"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius_m"})
			return
		}
		radiusM = parsed
	}

	hits, err := h.estService.Nearby(c.Request.Context(), lat, lng, radiusM)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not search establishments"})
		return
	}
	c.JSON(http.StatusOK, hits)
}

// GET /establishments/:id
func (h *EstablishmentHandler) GetByID(c *gin.Context) {
	est, err := h.estService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "establishment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load establishment"})
		return
	}
	c.JSON(http.StatusOK, est)
}

// GET /establishments/:id/availability
func (h *EstablishmentHandler) Availability(c *gin.Context) {
	floorSets, err := h.estService.Availability(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "establishment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load availability"})
		return
	}
	// An empty floor set is a valid state: the establishment has not
	// declared a layout yet.
	if floorSets == nil {
		floorSets = []domain.FloorSet{}
	}
	c.JSON(http.StatusOK, floorSets)
}

// PUT /establishments/:id
func (h *EstablishmentHandler) Update(c *gin.Context) {
	var dto domain.EstablishmentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	est, err := h.estService.Update(c.Request.Context(), c.Param("id"), dto)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "establishment not found"})
			return
		}
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update establishment", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, est)
}

// DELETE /establishments/:id
func (h *EstablishmentHandler) Delete(c *gin.Context) {
	if err := h.estService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "establishment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete establishment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "establishment deleted"})
}

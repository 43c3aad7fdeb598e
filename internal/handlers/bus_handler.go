package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/transitworks/bus-booking-backend/internal/models"
	"github.com/transitworks/bus-booking-backend/internal/services"
)

// BusHandler handles HTTP requests for fleet management
type BusHandler struct {
	service *services.BusService
	logger  *logrus.Logger
}

// NewBusHandler creates a new bus handler
func NewBusHandler(service *services.BusService, logger *logrus.Logger) *BusHandler {
	return &BusHandler{service: service, logger: logger}
}

// Create handles POST /api/v1/buses
func (h *BusHandler) Create(c *gin.Context) {
	var req models.CreateBusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	bus, err := h.service.CreateBus(&req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, bus)
}

// Get handles GET /api/v1/buses/:id
func (h *BusHandler) Get(c *gin.Context) {
	bus, err := h.service.GetBus(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, bus)
}

// List handles GET /api/v1/buses
func (h *BusHandler) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	buses, total, err := h.service.ListBuses(models.BusStatus(c.Query("status")), page, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondList(c, buses, total, page, pageSize)
}

// Update handles PATCH /api/v1/buses/:id
func (h *BusHandler) Update(c *gin.Context) {
	var cmd models.UpdateBusCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		respondBindError(c, err)
		return
	}

	bus, err := h.service.UpdateBus(c.Param("id"), &cmd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, bus)
}

// UpdateLocation handles PUT /api/v1/buses/:id/location
func (h *BusHandler) UpdateLocation(c *gin.Context) {
	var req models.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.service.UpdateLocation(c.Param("id"), &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Location updated"})
}

// AdjustSeats handles POST /api/v1/buses/:id/seats
func (h *BusHandler) AdjustSeats(c *gin.Context) {
	var req models.AdjustSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	bus, err := h.service.AdjustSeats(c.Param("id"), req.Delta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, bus)
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/transitworks/bus-booking-backend/internal/models"
	"github.com/transitworks/bus-booking-backend/internal/services"
)

// TripHandler handles HTTP requests for trip scheduling and lifecycle
type TripHandler struct {
	service *services.TripService
	logger  *logrus.Logger
}

// NewTripHandler creates a new trip handler
func NewTripHandler(service *services.TripService, logger *logrus.Logger) *TripHandler {
	return &TripHandler{service: service, logger: logger}
}

// Create handles POST /api/v1/trips
func (h *TripHandler) Create(c *gin.Context) {
	var req models.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	trip, err := h.service.ScheduleTrip(&req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, trip)
}

// Get handles GET /api/v1/trips/:id and returns the trip with its seat map
func (h *TripHandler) Get(c *gin.Context) {
	trip, err := h.service.GetTrip(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

// List handles GET /api/v1/trips
func (h *TripHandler) List(c *gin.Context) {
	filter := models.TripFilter{
		RouteID:  c.Query("route_id"),
		BusID:    c.Query("bus_id"),
		Status:   models.TripStatus(c.Query("status")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}

	if from := c.Query("date_from"); from != "" {
		if parsed, err := time.Parse(time.RFC3339, from); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if to := c.Query("date_to"); to != "" {
		if parsed, err := time.Parse(time.RFC3339, to); err == nil {
			filter.DateTo = &parsed
		}
	}

	trips, total, err := h.service.ListTrips(filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondList(c, trips, total, filter.Page, filter.PageSize)
}

// UpdateStatus handles PUT /api/v1/trips/:id/status
func (h *TripHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateTripStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	trip, err := h.service.UpdateTripStatus(c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

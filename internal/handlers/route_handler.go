package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/transitworks/bus-booking-backend/internal/models"
	"github.com/transitworks/bus-booking-backend/internal/services"
)

// RouteHandler handles HTTP requests for route management
type RouteHandler struct {
	service *services.RouteService
	logger  *logrus.Logger
}

// NewRouteHandler creates a new route handler
func NewRouteHandler(service *services.RouteService, logger *logrus.Logger) *RouteHandler {
	return &RouteHandler{service: service, logger: logger}
}

// Create handles POST /api/v1/routes
func (h *RouteHandler) Create(c *gin.Context) {
	var req models.CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	route, err := h.service.CreateRoute(&req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, route)
}

// Get handles GET /api/v1/routes/:id
func (h *RouteHandler) Get(c *gin.Context) {
	route, err := h.service.GetRoute(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, route)
}

// List handles GET /api/v1/routes
func (h *RouteHandler) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	routes, total, err := h.service.ListRoutes(c.Query("origin"), c.Query("destination"), page, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondList(c, routes, total, page, pageSize)
}

// Update handles PATCH /api/v1/routes/:id
func (h *RouteHandler) Update(c *gin.Context) {
	var cmd models.UpdateRouteCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		respondBindError(c, err)
		return
	}

	route, err := h.service.UpdateRoute(c.Param("id"), &cmd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, route)
}

// Deactivate handles DELETE /api/v1/routes/:id
func (h *RouteHandler) Deactivate(c *gin.Context) {
	if err := h.service.DeactivateRoute(c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Route deactivated"})
}

package services

import (
	"database/sql"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/transitworks/bus-booking-backend/internal/database"
	"github.com/transitworks/bus-booking-backend/internal/errs"
	"github.com/transitworks/bus-booking-backend/internal/models"
)

// RouteService handles route management
type RouteService struct {
	routeRepo *database.RouteRepository
	logger    *logrus.Logger
}

// NewRouteService creates a new RouteService
func NewRouteService(routeRepo *database.RouteRepository, logger *logrus.Logger) *RouteService {
	return &RouteService{routeRepo: routeRepo, logger: logger}
}

// CreateRoute creates a new route
func (s *RouteService) CreateRoute(req *models.CreateRouteRequest) (*models.Route, error) {
	route := &models.Route{
		RouteNumber:     req.RouteNumber,
		RouteName:       req.RouteName,
		OriginCity:      req.OriginCity,
		DestinationCity: req.DestinationCity,
		DistanceKM:      req.DistanceKM,
		DurationMinutes: req.DurationMinutes,
		BaseFare:        req.BaseFare,
		Currency:        req.Currency,
	}

	if err := s.routeRepo.Create(route); err != nil {
		return nil, errs.Internal("failed to create route", err)
	}

	s.logger.WithFields(logrus.Fields{
		"route_id":     route.ID,
		"route_number": route.RouteNumber,
	}).Info("Route created")

	return route, nil
}

// GetRoute retrieves a route by ID
func (s *RouteService) GetRoute(routeID string) (*models.Route, error) {
	route, err := s.routeRepo.GetByID(routeID)
	if err != nil {
		return nil, errs.Internal("failed to get route", err)
	}
	if route == nil {
		return nil, errs.NotFound("route not found")
	}
	return route, nil
}

// ListRoutes lists routes with optional origin/destination filters
func (s *RouteService) ListRoutes(origin, destination string, page, pageSize int) ([]models.Route, int, error) {
	page, pageSize = normalizePage(page, pageSize)
	routes, total, err := s.routeRepo.List(origin, destination, page, pageSize)
	if err != nil {
		return nil, 0, errs.Internal("failed to list routes", err)
	}
	return routes, total, nil
}

// UpdateRoute applies an update command to a route
func (s *RouteService) UpdateRoute(routeID string, cmd *models.UpdateRouteCommand) (*models.Route, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	err := s.routeRepo.Update(routeID, cmd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("route not found")
	}
	if err != nil {
		return nil, errs.Internal("failed to update route", err)
	}

	return s.GetRoute(routeID)
}

// DeactivateRoute soft-deletes a route. Existing bookings keep their route
// reference; the route just stops accepting new trips and bookings.
func (s *RouteService) DeactivateRoute(routeID string) error {
	err := s.routeRepo.Deactivate(routeID)
	if errors.Is(err, sql.ErrNoRows) {
		return errs.NotFound("route not found")
	}
	if err != nil {
		return errs.Internal("failed to deactivate route", err)
	}

	s.logger.WithField("route_id", routeID).Info("Route deactivated")
	return nil
}

// normalizePage applies listing defaults and caps the page size
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

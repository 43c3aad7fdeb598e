package models

import (
	"time"
)

// RouteStatus represents the operational status of a route
type RouteStatus string

const (
	RouteStatusActive    RouteStatus = "active"
	RouteStatusInactive  RouteStatus = "inactive"
	RouteStatusSuspended RouteStatus = "suspended"
)

// Route represents a service route between two cities
type Route struct {
	ID              string      `json:"id" db:"id"`
	RouteNumber     string      `json:"route_number" db:"route_number"`
	RouteName       string      `json:"route_name" db:"route_name"`
	OriginCity      string      `json:"origin_city" db:"origin_city"`
	DestinationCity string      `json:"destination_city" db:"destination_city"`
	DistanceKM      float64     `json:"distance_km" db:"distance_km"`
	DurationMinutes int         `json:"duration_minutes" db:"duration_minutes"`
	BaseFare        float64     `json:"base_fare" db:"base_fare"`
	Currency        string      `json:"currency" db:"currency"`
	Status          RouteStatus `json:"status" db:"status"`
	IsActive        bool        `json:"is_active" db:"is_active"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// IsBookable checks whether new bookings may reference this route
func (r *Route) IsBookable() bool {
	return r.IsActive && r.Status == RouteStatusActive
}

// EstimatedDuration returns the route travel time
func (r *Route) EstimatedDuration() time.Duration {
	return time.Duration(r.DurationMinutes) * time.Minute
}

// CreateRouteRequest represents the request to create a route
type CreateRouteRequest struct {
	RouteNumber     string  `json:"route_number" binding:"required"`
	RouteName       string  `json:"route_name" binding:"required"`
	OriginCity      string  `json:"origin_city" binding:"required"`
	DestinationCity string  `json:"destination_city" binding:"required"`
	DistanceKM      float64 `json:"distance_km" binding:"gte=0"`
	DurationMinutes int     `json:"duration_minutes" binding:"required,min=1"`
	BaseFare        float64 `json:"base_fare" binding:"required,gt=0"`
	Currency        string  `json:"currency"`
}

// UpdateRouteCommand enumerates the mutable route fields. Unknown fields are
// rejected at the binding boundary; nil means "leave unchanged".
type UpdateRouteCommand struct {
	RouteName       *string      `json:"route_name,omitempty"`
	DistanceKM      *float64     `json:"distance_km,omitempty"`
	DurationMinutes *int         `json:"duration_minutes,omitempty"`
	BaseFare        *float64     `json:"base_fare,omitempty"`
	Status          *RouteStatus `json:"status,omitempty"`
}

// Validate validates the update command
func (c *UpdateRouteCommand) Validate() error {
	if c.DurationMinutes != nil && *c.DurationMinutes < 1 {
		return errInvalid("duration_minutes must be at least 1")
	}
	if c.BaseFare != nil && *c.BaseFare <= 0 {
		return errInvalid("base_fare must be positive")
	}
	if c.Status != nil {
		switch *c.Status {
		case RouteStatusActive, RouteStatusInactive, RouteStatusSuspended:
		default:
			return errInvalid("invalid route status")
		}
	}
	return nil
}

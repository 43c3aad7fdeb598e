package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/transitworks/bus-booking-backend/internal/models"
)

// RouteRepository handles database operations for the routes table
type RouteRepository struct {
	db DB
}

// NewRouteRepository creates a new RouteRepository
func NewRouteRepository(db DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// Create creates a new route
func (r *RouteRepository) Create(route *models.Route) error {
	query := `
		INSERT INTO routes (
			id, route_number, route_name, origin_city, destination_city,
			distance_km, duration_minutes, base_fare, currency, status, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		RETURNING created_at, updated_at
	`

	if route.ID == "" {
		route.ID = uuid.New().String()
	}
	if route.Currency == "" {
		route.Currency = "USD"
	}
	if route.Status == "" {
		route.Status = models.RouteStatusActive
	}
	route.IsActive = true

	err := r.db.QueryRow(
		query,
		route.ID, route.RouteNumber, route.RouteName, route.OriginCity, route.DestinationCity,
		route.DistanceKM, route.DurationMinutes, route.BaseFare, route.Currency, route.Status,
	).Scan(&route.CreatedAt, &route.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create route: %w", err)
	}

	return nil
}

// GetByID retrieves an active route by ID
func (r *RouteRepository) GetByID(routeID string) (*models.Route, error) {
	query := `
		SELECT id, route_number, route_name, origin_city, destination_city,
		       distance_km, duration_minutes, base_fare, currency, status,
		       is_active, created_at, updated_at
		FROM routes
		WHERE id = $1 AND is_active = TRUE
	`

	route := &models.Route{}
	err := r.db.Get(route, query, routeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}

	return route, nil
}

// List retrieves active routes, optionally filtered by origin/destination city
func (r *RouteRepository) List(origin, destination string, page, pageSize int) ([]models.Route, int, error) {
	conditions := []string{"is_active = TRUE"}
	args := []interface{}{}

	if origin != "" {
		args = append(args, origin)
		conditions = append(conditions, fmt.Sprintf("origin_city ILIKE $%d", len(args)))
	}
	if destination != "" {
		args = append(args, destination)
		conditions = append(conditions, fmt.Sprintf("destination_city ILIKE $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM routes WHERE " + where
	if err := r.db.Get(&total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count routes: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`
		SELECT id, route_number, route_name, origin_city, destination_city,
		       distance_km, duration_minutes, base_fare, currency, status,
		       is_active, created_at, updated_at
		FROM routes
		WHERE %s
		ORDER BY route_number
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	routes := []models.Route{}
	if err := r.db.Select(&routes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list routes: %w", err)
	}

	return routes, total, nil
}

// Update applies an update command to a route
func (r *RouteRepository) Update(routeID string, cmd *models.UpdateRouteCommand) error {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{routeID}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if cmd.RouteName != nil {
		add("route_name", *cmd.RouteName)
	}
	if cmd.DistanceKM != nil {
		add("distance_km", *cmd.DistanceKM)
	}
	if cmd.DurationMinutes != nil {
		add("duration_minutes", *cmd.DurationMinutes)
	}
	if cmd.BaseFare != nil {
		add("base_fare", *cmd.BaseFare)
	}
	if cmd.Status != nil {
		add("status", *cmd.Status)
	}

	query := fmt.Sprintf("UPDATE routes SET %s WHERE id = $1 AND is_active = TRUE", strings.Join(sets, ", "))
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update route: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Deactivate soft-deletes a route
func (r *RouteRepository) Deactivate(routeID string) error {
	result, err := r.db.Exec(
		`UPDATE routes SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`,
		routeID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate route: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

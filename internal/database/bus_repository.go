package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/transitworks/bus-booking-backend/internal/errs"
	"github.com/transitworks/bus-booking-backend/internal/models"
)

// BusRepository handles database operations for the buses table
type BusRepository struct {
	db *sqlx.DB
}

// NewBusRepository creates a new BusRepository
func NewBusRepository(db *sqlx.DB) *BusRepository {
	return &BusRepository{db: db}
}

// Create creates a new bus with available seats seeded to total seats
func (r *BusRepository) Create(bus *models.Bus) error {
	query := `
		INSERT INTO buses (
			id, bus_number, bus_name, bus_type, total_seats, available_seats,
			status, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING created_at, updated_at
	`

	if bus.ID == "" {
		bus.ID = uuid.New().String()
	}
	if bus.BusType == "" {
		bus.BusType = "standard"
	}
	if bus.Status == "" {
		bus.Status = models.BusStatusActive
	}
	bus.AvailableSeats = bus.TotalSeats
	bus.IsActive = true

	err := r.db.QueryRow(
		query,
		bus.ID, bus.BusNumber, bus.BusName, bus.BusType,
		bus.TotalSeats, bus.AvailableSeats, bus.Status,
	).Scan(&bus.CreatedAt, &bus.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bus: %w", err)
	}

	return nil
}

// GetByID retrieves an active bus by ID
func (r *BusRepository) GetByID(busID string) (*models.Bus, error) {
	query := `
		SELECT id, bus_number, bus_name, bus_type, total_seats, available_seats,
		       status, latitude, longitude, address, location_updated_at,
		       is_active, created_at, updated_at
		FROM buses
		WHERE id = $1 AND is_active = TRUE
	`

	bus := &models.Bus{}
	err := r.db.Get(bus, query, busID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bus: %w", err)
	}

	return bus, nil
}

// List retrieves active buses, optionally filtered by status
func (r *BusRepository) List(status models.BusStatus, page, pageSize int) ([]models.Bus, int, error) {
	conditions := []string{"is_active = TRUE"}
	args := []interface{}{}

	if status != "" {
		args = append(args, status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.Get(&total, "SELECT COUNT(*) FROM buses WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count buses: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`
		SELECT id, bus_number, bus_name, bus_type, total_seats, available_seats,
		       status, latitude, longitude, address, location_updated_at,
		       is_active, created_at, updated_at
		FROM buses
		WHERE %s
		ORDER BY bus_number
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	buses := []models.Bus{}
	if err := r.db.Select(&buses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list buses: %w", err)
	}

	return buses, total, nil
}

// Update applies an update command to a bus
func (r *BusRepository) Update(busID string, cmd *models.UpdateBusCommand) error {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{busID}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if cmd.BusName != nil {
		add("bus_name", *cmd.BusName)
	}
	if cmd.BusType != nil {
		add("bus_type", *cmd.BusType)
	}
	if cmd.Status != nil {
		add("status", *cmd.Status)
	}

	query := fmt.Sprintf("UPDATE buses SET %s WHERE id = $1 AND is_active = TRUE", strings.Join(sets, ", "))
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update bus: %w", err)
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

// UpdateLocation stamps the bus's current location
func (r *BusRepository) UpdateLocation(busID string, latitude, longitude float64, address string) error {
	query := `
		UPDATE buses
		SET latitude = $2, longitude = $3, address = $4,
		    location_updated_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_active = TRUE
	`

	result, err := r.db.Exec(query, busID, latitude, longitude, address)
	if err != nil {
		return fmt.Errorf("failed to update bus location: %w", err)
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

// UpdateAvailableSeats adjusts the fleet-level available-seat counter by
// delta. The guard clause rejects results outside [0, total_seats] instead of
// clamping.
func (r *BusRepository) UpdateAvailableSeats(busID string, delta int) error {
	return applyBusSeatDelta(r.db, busID, delta)
}

// applyBusSeatDelta runs the guarded counter update against a DB or an open
// transaction. Zero rows means the delta would leave the counter out of range
// (or the bus is gone).
func applyBusSeatDelta(e sqlx.Ext, busID string, delta int) error {
	query := `
		UPDATE buses
		SET available_seats = available_seats + $2, updated_at = NOW()
		WHERE id = $1
		  AND is_active = TRUE
		  AND available_seats + $2 >= 0
		  AND available_seats + $2 <= total_seats
	`

	result, err := e.Exec(query, busID, delta)
	if err != nil {
		return fmt.Errorf("failed to update available seats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.InvalidState("invalid seat count change")
	}

	return nil
}

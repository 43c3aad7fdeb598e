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

// TripRepository handles database operations for trips and their seat maps.
// It takes *sqlx.DB because trip creation seeds the seat map in one
// transaction.
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

// CreateWithSeatMap inserts the trip and its full seat map in one transaction.
// The caller supplies the seat slots derived from the bus capacity.
func (r *TripRepository) CreateWithSeatMap(trip *models.Trip, seats []models.TripSeat) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	if trip.Status == "" {
		trip.Status = models.TripStatusScheduled
	}
	trip.TotalSeats = len(seats)
	trip.BookedSeats = 0
	trip.AvailableSeats = len(seats)
	trip.IsActive = true

	err = tx.QueryRow(`
		INSERT INTO trips (
			id, trip_number, route_id, bus_id, driver_id, departure_at, arrival_at,
			status, total_seats, booked_seats, available_seats, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE)
		RETURNING created_at, updated_at`,
		trip.ID, trip.TripNumber, trip.RouteID, trip.BusID, trip.DriverID,
		trip.DepartureAt, trip.ArrivalAt, trip.Status,
		trip.TotalSeats, trip.BookedSeats, trip.AvailableSeats,
	).Scan(&trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO trip_seats (id, trip_id, seat_number, seat_type, is_booked)
		VALUES ($1, $2, $3, $4, FALSE)`)
	if err != nil {
		return fmt.Errorf("failed to prepare seat insert: %w", err)
	}
	defer stmt.Close()

	for i := range seats {
		seats[i].ID = uuid.New().String()
		seats[i].TripID = trip.ID
		if _, err := stmt.Exec(seats[i].ID, trip.ID, seats[i].SeatNumber, seats[i].SeatType); err != nil {
			return fmt.Errorf("failed to seed seat %s: %w", seats[i].SeatNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trip creation: %w", err)
	}

	return nil
}

// GetByID retrieves an active trip by ID
func (r *TripRepository) GetByID(tripID string) (*models.Trip, error) {
	query := `
		SELECT id, trip_number, route_id, bus_id, driver_id, departure_at, arrival_at,
		       status, total_seats, booked_seats, available_seats,
		       is_active, created_at, updated_at
		FROM trips
		WHERE id = $1 AND is_active = TRUE
	`

	trip := &models.Trip{}
	err := r.db.Get(trip, query, tripID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return trip, nil
}

// GetSeatMap retrieves the full seat map for a trip, ordered by seat number
func (r *TripRepository) GetSeatMap(tripID string) ([]models.TripSeat, error) {
	query := `
		SELECT id, trip_id, seat_number, seat_type, is_booked, passenger_id, booking_id,
		       created_at, updated_at
		FROM trip_seats
		WHERE trip_id = $1
		ORDER BY seat_number
	`

	seats := []models.TripSeat{}
	if err := r.db.Select(&seats, query, tripID); err != nil {
		return nil, fmt.Errorf("failed to get seat map: %w", err)
	}

	return seats, nil
}

// List retrieves active trips matching the filter
func (r *TripRepository) List(filter models.TripFilter) ([]models.Trip, int, error) {
	conditions := []string{"is_active = TRUE"}
	args := []interface{}{}

	add := func(condition string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.RouteID != "" {
		add("route_id = $%d", filter.RouteID)
	}
	if filter.BusID != "" {
		add("bus_id = $%d", filter.BusID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.DateFrom != nil {
		add("departure_at >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("departure_at <= $%d", *filter.DateTo)
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.Get(&total, "SELECT COUNT(*) FROM trips WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(`
		SELECT id, trip_number, route_id, bus_id, driver_id, departure_at, arrival_at,
		       status, total_seats, booked_seats, available_seats,
		       is_active, created_at, updated_at
		FROM trips
		WHERE %s
		ORDER BY departure_at
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	trips := []models.Trip{}
	if err := r.db.Select(&trips, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list trips: %w", err)
	}

	return trips, total, nil
}

// UpdateStatus transitions a trip to a new status
func (r *TripRepository) UpdateStatus(tripID string, status models.TripStatus) error {
	result, err := r.db.Exec(
		`UPDATE trips SET status = $2, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`,
		tripID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update trip status: %w", err)
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

// FindConflictingSeats returns which of the requested seat numbers are already
// booked, or do not exist, on the trip. Used to report every conflicting seat
// in one response rather than just the first.
func (r *TripRepository) FindConflictingSeats(tripID string, seatNumbers []string) ([]string, error) {
	return findConflictingSeats(r.db, tripID, seatNumbers)
}

func findConflictingSeats(db *sqlx.DB, tripID string, seatNumbers []string) ([]string, error) {
	if len(seatNumbers) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(
		`SELECT seat_number FROM trip_seats
		 WHERE trip_id = ? AND seat_number IN (?) AND is_booked = FALSE`,
		tripID, seatNumbers,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build seat query: %w", err)
	}

	available := []string{}
	if err := db.Select(&available, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to check seats: %w", err)
	}

	free := make(map[string]bool, len(available))
	for _, s := range available {
		free[s] = true
	}

	conflicts := []string{}
	for _, s := range seatNumbers {
		if !free[s] {
			conflicts = append(conflicts, s)
		}
	}

	return conflicts, nil
}

// claimSeat atomically marks one free seat as booked. The is_booked = FALSE
// guard makes the claim a compare-and-set: zero rows affected means another
// booking holds the seat, or the seat number does not exist on the trip.
func claimSeat(e sqlx.Ext, tripID, seatNumber, bookingID, passengerID string) (bool, error) {
	result, err := e.Exec(`
		UPDATE trip_seats
		SET is_booked = TRUE, booking_id = $3, passenger_id = $4, updated_at = NOW()
		WHERE trip_id = $1 AND seat_number = $2 AND is_booked = FALSE`,
		tripID, seatNumber, bookingID, passengerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim seat %s: %w", seatNumber, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

// releaseSeats frees every seat held by a booking and returns how many seats
// were released
func releaseSeats(e sqlx.Ext, bookingID string) (int, error) {
	result, err := e.Exec(`
		UPDATE trip_seats
		SET is_booked = FALSE, booking_id = NULL, passenger_id = NULL, updated_at = NOW()
		WHERE booking_id = $1 AND is_booked = TRUE`,
		bookingID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to release seats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(rows), nil
}

// applyTripCounters moves delta seats from available to booked (or back for a
// negative delta). The range guards keep the counters consistent with the seat
// rows updated in the same transaction.
func applyTripCounters(e sqlx.Ext, tripID string, delta int) error {
	result, err := e.Exec(`
		UPDATE trips
		SET booked_seats = booked_seats + $2,
		    available_seats = available_seats - $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND booked_seats + $2 >= 0
		  AND available_seats - $2 >= 0`,
		tripID, delta,
	)
	if err != nil {
		return fmt.Errorf("failed to update trip counters: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.InvalidState("trip seat counters out of range")
	}

	return nil
}

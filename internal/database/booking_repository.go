package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/transitworks/bus-booking-backend/internal/errs"
	"github.com/transitworks/bus-booking-backend/internal/models"
)

// BookingRepository handles database operations for the bookings table. It
// takes *sqlx.DB because booking creation and cancellation span the booking
// row, the trip seat map, the trip counters and the bus counter in one
// transaction.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateWithSeats inserts the booking and claims every requested seat in one
// transaction. Each seat claim is a compare-and-set on is_booked; if any seat
// is already taken the whole transaction rolls back and the returned conflict
// error lists every unavailable seat, not just the first.
func (r *BookingRepository) CreateWithSeats(booking *models.Booking) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}
	if booking.PaymentStatus == "" {
		booking.PaymentStatus = models.PaymentStatusPending
	}

	err = tx.QueryRow(`
		INSERT INTO bookings (
			id, booking_number, user_id, route_id, bus_id, trip_id,
			passengers, pickup_point, drop_point, departure_at, arrival_at,
			base_fare, total_amount, currency, status, payment_status, special_requests
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at`,
		booking.ID, booking.BookingNumber, booking.UserID,
		booking.RouteID, booking.BusID, booking.TripID,
		booking.Passengers, booking.PickupPoint, booking.DropPoint,
		booking.DepartureAt, booking.ArrivalAt,
		booking.BaseFare, booking.TotalAmount, booking.Currency,
		booking.Status, booking.PaymentStatus, booking.SpecialRequests,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	for _, p := range booking.Passengers {
		passenger := p.FirstName + " " + p.LastName
		claimed, err := claimSeat(tx, booking.TripID, p.SeatNumber, booking.ID, passenger)
		if err != nil {
			return err
		}
		if !claimed {
			// Roll back first so the conflict check sees the pre-booking
			// state, then report every seat the caller cannot have.
			tx.Rollback()
			conflicts, cerr := findConflictingSeats(r.db, booking.TripID, booking.Passengers.SeatNumbers())
			if cerr != nil {
				conflicts = []string{p.SeatNumber}
			}
			return errs.Conflict("requested seats are no longer available", conflicts...)
		}
	}

	seatCount := len(booking.Passengers)
	if err := applyTripCounters(tx, booking.TripID, seatCount); err != nil {
		return err
	}
	if err := applyBusSeatDelta(tx, booking.BusID, -seatCount); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	return nil
}

// CancelWithSeats persists a cancelled booking and releases its seats in one
// transaction, reversing the counter movements made at creation.
func (r *BookingRepository) CancelWithSeats(booking *models.Booking) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE bookings
		SET status = $2, cancellation_reason = $3, cancelled_by = $4,
		    cancellation_fee = $5, refund_amount = $6, cancelled_at = $7,
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'confirmed')`,
		booking.ID, booking.Status, booking.CancellationReason, booking.CancelledBy,
		booking.CancellationFee, booking.RefundAmount, booking.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.InvalidState("booking is no longer cancellable")
	}

	released, err := releaseSeats(tx, booking.ID)
	if err != nil {
		return err
	}
	if released > 0 {
		if err := applyTripCounters(tx, booking.TripID, -released); err != nil {
			return err
		}
		if err := applyBusSeatDelta(tx, booking.BusID, released); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	return nil
}

const bookingColumns = `
	id, booking_number, user_id, route_id, bus_id, trip_id,
	passengers, pickup_point, drop_point, departure_at, arrival_at,
	base_fare, total_amount, currency, status, payment_status, special_requests,
	cancellation_reason, cancelled_by, cancellation_fee, refund_amount, cancelled_at,
	created_at, updated_at`

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(bookingID string) (*models.Booking, error) {
	booking := &models.Booking{}
	err := r.db.Get(booking, `SELECT`+bookingColumns+` FROM bookings WHERE id = $1`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// GetByNumber retrieves a booking by its human-readable booking number
func (r *BookingRepository) GetByNumber(bookingNumber string) (*models.Booking, error) {
	booking := &models.Booking{}
	err := r.db.Get(booking, `SELECT`+bookingColumns+` FROM bookings WHERE booking_number = $1`, bookingNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// List retrieves bookings matching the filter, newest first
func (r *BookingRepository) List(filter models.BookingFilter) ([]models.Booking, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	add := func(condition string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.TripID != "" {
		add("trip_id = $%d", filter.TripID)
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
	if filter.Search != "" {
		add("booking_number ILIKE $%d", "%"+filter.Search+"%")
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.Get(&total, "SELECT COUNT(*) FROM bookings WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(`SELECT%s FROM bookings WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, where, len(args)-1, len(args))

	bookings := []models.Booking{}
	if err := r.db.Select(&bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	return bookings, total, nil
}

// ListUpcoming retrieves a user's pending and confirmed bookings that have not
// yet departed, soonest first
func (r *BookingRepository) ListUpcoming(userID string, now time.Time) ([]models.Booking, error) {
	query := `SELECT` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1 AND status IN ('pending', 'confirmed') AND departure_at > $2
		ORDER BY departure_at`

	bookings := []models.Booking{}
	if err := r.db.Select(&bookings, query, userID, now); err != nil {
		return nil, fmt.Errorf("failed to list upcoming bookings: %w", err)
	}

	return bookings, nil
}

// Update applies editable-field changes to a booking that is still pending or
// confirmed. Passenger contact edits arrive already merged into the booking's
// passenger list; the whole list is rewritten so seat assignments stay intact.
func (r *BookingRepository) Update(booking *models.Booking, cmd *models.UpdateBookingCommand) error {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{booking.ID}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if len(cmd.Passengers) > 0 {
		add("passengers", booking.Passengers)
	}
	if cmd.PickupPoint != nil {
		add("pickup_point", *cmd.PickupPoint)
	}
	if cmd.DropPoint != nil {
		add("drop_point", *cmd.DropPoint)
	}
	if cmd.SpecialRequests != nil {
		add("special_requests", *cmd.SpecialRequests)
	}

	query := fmt.Sprintf(
		"UPDATE bookings SET %s WHERE id = $1 AND status IN ('pending', 'confirmed')",
		strings.Join(sets, ", "),
	)
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
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

// SetStatus transitions a booking's status, optionally mirroring the payment
// status, guarded on the expected current status
func (r *BookingRepository) SetStatus(bookingID string, from, to models.BookingStatus, paymentStatus models.PaymentStatus) error {
	result, err := r.db.Exec(`
		UPDATE bookings
		SET status = $3, payment_status = $4, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		bookingID, from, to, paymentStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.InvalidState("booking is not in status " + string(from))
	}

	return nil
}

// SetPaymentStatus mirrors the latest payment status onto the booking without
// touching the booking status
func (r *BookingRepository) SetPaymentStatus(bookingID string, paymentStatus models.PaymentStatus) error {
	_, err := r.db.Exec(
		`UPDATE bookings SET payment_status = $2, updated_at = NOW() WHERE id = $1`,
		bookingID, paymentStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking payment status: %w", err)
	}
	return nil
}

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

// PaymentRepository handles database operations for the payments table
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `
	id, payment_number, booking_id, user_id,
	base_amount, taxes, fees, discounts, total_amount, currency,
	method, status, transaction_id, reference_id, gateway, gateway_response, processing_time_ms,
	is_refunded, refund_amount, refund_reason, refund_date, refund_method, partial_refunds,
	ip_address, user_agent, device_type,
	is_active, created_at, updated_at`

// Create inserts a new payment
func (r *PaymentRepository) Create(payment *models.Payment) error {
	query := `
		INSERT INTO payments (
			id, payment_number, booking_id, user_id,
			base_amount, taxes, fees, discounts, total_amount, currency,
			method, status, gateway, gateway_response,
			ip_address, user_agent, device_type, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, TRUE)
		RETURNING created_at, updated_at
	`

	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	payment.NormalizeAmount()
	payment.IsActive = true

	err := r.db.QueryRow(
		query,
		payment.ID, payment.PaymentNumber, payment.BookingID, payment.UserID,
		payment.BaseAmount, payment.Taxes, payment.Fees, payment.Discounts,
		payment.TotalAmount, payment.Currency,
		payment.Method, payment.Status, payment.Gateway, payment.GatewayResponse,
		payment.IPAddress, payment.UserAgent, payment.DeviceType,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByID retrieves an active payment by ID
func (r *PaymentRepository) GetByID(paymentID string) (*models.Payment, error) {
	payment := &models.Payment{}
	err := r.db.Get(payment,
		`SELECT`+paymentColumns+` FROM payments WHERE id = $1 AND is_active = TRUE`,
		paymentID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// GetOpenByBookingID retrieves the booking's payment that is still in flight
// or already settled. Failed and cancelled payments do not count; they may be
// superseded by a new intent.
func (r *PaymentRepository) GetOpenByBookingID(bookingID string) (*models.Payment, error) {
	payment := &models.Payment{}
	err := r.db.Get(payment, `
		SELECT`+paymentColumns+`
		FROM payments
		WHERE booking_id = $1 AND is_active = TRUE
		  AND status NOT IN ('failed', 'cancelled')
		ORDER BY created_at DESC
		LIMIT 1`,
		bookingID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment for booking: %w", err)
	}
	return payment, nil
}

// List retrieves payments matching the filter, newest first
func (r *PaymentRepository) List(filter models.PaymentFilter) ([]models.Payment, int, error) {
	conditions := []string{"is_active = TRUE"}
	args := []interface{}{}

	add := func(condition string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Method != "" {
		add("method = $%d", filter.Method)
	}
	if filter.DateFrom != nil {
		add("created_at >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("created_at <= $%d", *filter.DateTo)
	}
	if filter.Search != "" {
		add("payment_number ILIKE $%d", "%"+filter.Search+"%")
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.Get(&total, "SELECT COUNT(*) FROM payments WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(`SELECT%s FROM payments WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		paymentColumns, where, len(args)-1, len(args))

	payments := []models.Payment{}
	if err := r.db.Select(&payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, total, nil
}

// Update persists the mutable payment state after a model-level transition
func (r *PaymentRepository) Update(payment *models.Payment) error {
	payment.NormalizeAmount()

	result, err := r.db.Exec(`
		UPDATE payments
		SET base_amount = $2, taxes = $3, fees = $4, discounts = $5, total_amount = $6,
		    status = $7, transaction_id = $8, reference_id = $9,
		    gateway_response = $10, processing_time_ms = $11,
		    is_refunded = $12, refund_amount = $13, refund_reason = $14,
		    refund_date = $15, refund_method = $16, partial_refunds = $17,
		    updated_at = NOW()
		WHERE id = $1 AND is_active = TRUE`,
		payment.ID,
		payment.BaseAmount, payment.Taxes, payment.Fees, payment.Discounts, payment.TotalAmount,
		payment.Status, payment.TransactionID, payment.ReferenceID,
		payment.GatewayResponse, payment.ProcessingTimeMS,
		payment.IsRefunded, payment.RefundAmount, payment.RefundReason,
		payment.RefundDate, payment.RefundMethod, payment.PartialRefunds,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
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

// ConfirmWithBooking completes the payment and confirms its booking in one
// transaction. The booking row is locked and re-read first, so a cancellation
// that slipped in between the gateway callback and this call causes the
// confirmation to roll back instead of resurrecting a cancelled booking.
func (r *PaymentRepository) ConfirmWithBooking(payment *models.Payment) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var bookingStatus models.BookingStatus
	err = tx.Get(&bookingStatus,
		`SELECT status FROM bookings WHERE id = $1 FOR UPDATE`,
		payment.BookingID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return errs.NotFound("booking not found")
	}
	if err != nil {
		return fmt.Errorf("failed to lock booking: %w", err)
	}

	if bookingStatus == models.BookingStatusCancelled {
		return errs.InvalidState("booking was cancelled before payment confirmation")
	}

	_, err = tx.Exec(`
		UPDATE payments
		SET status = $2, transaction_id = $3, reference_id = $4,
		    gateway_response = $5, processing_time_ms = $6, updated_at = NOW()
		WHERE id = $1 AND is_active = TRUE`,
		payment.ID, payment.Status, payment.TransactionID, payment.ReferenceID,
		payment.GatewayResponse, payment.ProcessingTimeMS,
	)
	if err != nil {
		return fmt.Errorf("failed to complete payment: %w", err)
	}

	if bookingStatus == models.BookingStatusPending {
		_, err = tx.Exec(`
			UPDATE bookings
			SET status = $2, payment_status = $3, updated_at = NOW()
			WHERE id = $1`,
			payment.BookingID, models.BookingStatusConfirmed, models.PaymentStatusCompleted,
		)
	} else {
		_, err = tx.Exec(`
			UPDATE bookings SET payment_status = $2, updated_at = NOW() WHERE id = $1`,
			payment.BookingID, models.PaymentStatusCompleted,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to confirm booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment confirmation: %w", err)
	}

	return nil
}

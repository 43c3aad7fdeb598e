package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transitworks/bus-booking-backend/internal/errs"
	"github.com/transitworks/bus-booking-backend/internal/models"
)

func testPayment() *models.Payment {
	payment := &models.Payment{
		ID:            "payment-1",
		PaymentNumber: "PAY-20260310-D4E5F6",
		BookingID:     "booking-1",
		UserID:        "user-1",
		BaseAmount:    100,
		Currency:      "USD",
		Method:        models.PaymentMethodCreditCard,
		Status:        models.PaymentStatusProcessing,
		Gateway:       "internal",
	}
	payment.NormalizeAmount()
	payment.Complete("TXN-1", "REF-1")
	return payment
}

func TestConfirmWithBooking(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	payment := testPayment()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM bookings").
		WithArgs("booking-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectExec("UPDATE payments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings").
		WithArgs("booking-1", models.BookingStatusConfirmed, models.PaymentStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ConfirmWithBooking(payment)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmWithBooking_BookingCancelled(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	payment := testPayment()

	// The locked re-read finds a cancellation that won the race
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM bookings").
		WithArgs("booking-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("cancelled"))
	mock.ExpectRollback()

	err := repo.ConfirmWithBooking(payment)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidState))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmWithBooking_AlreadyConfirmed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	payment := testPayment()

	// Booking already confirmed: only the payment mirror is refreshed
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM bookings").
		WithArgs("booking-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("confirmed"))
	mock.ExpectExec("UPDATE payments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings").
		WithArgs("booking-1", models.PaymentStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ConfirmWithBooking(payment)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmWithBooking_BookingMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	payment := testPayment()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM bookings").
		WithArgs("booking-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	err := repo.ConfirmWithBooking(payment)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentUpdate_NormalizesTotal(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	payment := testPayment()
	payment.Discounts = 150 // would push the total negative

	mock.ExpectExec("UPDATE payments").WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(payment)
	require.NoError(t, err)
	assert.Equal(t, 0.0, payment.TotalAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

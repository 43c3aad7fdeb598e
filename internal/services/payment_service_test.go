package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transitworks/bus-booking-backend/internal/database"
	"github.com/transitworks/bus-booking-backend/internal/errs"
	"github.com/transitworks/bus-booking-backend/internal/events"
	"github.com/transitworks/bus-booking-backend/internal/models"
)

func newPaymentService(t *testing.T) (*PaymentService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	logger := logrus.New()

	service := NewPaymentService(
		database.NewPaymentRepository(sqlxDB),
		database.NewBookingRepository(sqlxDB),
		events.NewLogEmitter(logger),
		logger,
	)
	return service, mock
}

func TestRefundPayment_AdminOnly(t *testing.T) {
	service, _ := newPaymentService(t)

	passenger := models.Identity{UserID: "user-1", Role: models.RolePassenger}
	_, err := service.RefundPayment(passenger, "payment-1", &models.RefundPaymentRequest{
		Amount: 10, Reason: "goodwill",
	})

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindForbidden))
}

func TestListFailed_AdminOnly(t *testing.T) {
	service, _ := newPaymentService(t)

	passenger := models.Identity{UserID: "user-1", Role: models.RolePassenger}
	_, _, err := service.ListFailed(passenger, 1, 20)

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindForbidden))
}

func TestRetryPayment_AdminOnly(t *testing.T) {
	service, _ := newPaymentService(t)

	passenger := models.Identity{UserID: "user-1", Role: models.RolePassenger}
	_, err := service.RetryPayment(passenger, "payment-1")

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindForbidden))
}

func TestProcessPayment_RejectsCompleted(t *testing.T) {
	service, mock := newPaymentService(t)

	columns := []string{"id", "booking_id", "user_id", "total_amount", "status"}
	mock.ExpectQuery("SELECT(.+)FROM payments").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("payment-1", "booking-1", "user-1", 100.0, "completed"))

	identity := models.Identity{UserID: "user-1", Role: models.RolePassenger}
	_, err := service.ProcessPayment(identity, "payment-1", &models.ProcessPaymentRequest{
		GatewayResponse: models.GatewayResponse{"ref": "abc"},
	})

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidState))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIntent_InvalidMethod(t *testing.T) {
	service, _ := newPaymentService(t)

	identity := models.Identity{UserID: "user-1", Role: models.RolePassenger}
	_, _, err := service.CreateIntent(identity, &models.CreatePaymentIntentRequest{
		BookingID: "booking-1",
		Method:    "barter",
		Amount:    100,
	}, RequestMeta{})

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestConfirmPayment_Idempotent(t *testing.T) {
	service, mock := newPaymentService(t)

	columns := []string{"id", "booking_id", "user_id", "total_amount", "status"}
	mock.ExpectQuery("SELECT(.+)FROM payments").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("payment-1", "booking-1", "user-1", 100.0, "completed"))

	identity := models.Identity{UserID: "user-1", Role: models.RolePassenger}
	payment, err := service.ConfirmPayment(identity, "payment-1", &models.ConfirmPaymentRequest{
		TransactionID: "TXN-RETRY",
	})

	// Re-confirming a completed payment changes nothing and touches no booking
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPayment_ForbiddenForOtherUser(t *testing.T) {
	service, mock := newPaymentService(t)

	columns := []string{"id", "booking_id", "user_id", "total_amount", "status"}
	mock.ExpectQuery("SELECT(.+)FROM payments").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("payment-1", "booking-1", "owner-user", 100.0, "pending"))

	stranger := models.Identity{UserID: "other-user", Role: models.RolePassenger}
	_, err := service.ConfirmPayment(stranger, "payment-1", &models.ConfirmPaymentRequest{
		TransactionID: "TXN-1",
	})

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindForbidden))
}

func TestApplyRequestMeta(t *testing.T) {
	payment := &models.Payment{}
	applyRequestMeta(payment, RequestMeta{
		IPAddress: "203.0.113.10",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15",
	})

	require.NotNil(t, payment.IPAddress)
	assert.Equal(t, "203.0.113.10", *payment.IPAddress)
	require.NotNil(t, payment.DeviceType)
	assert.Equal(t, "mobile", *payment.DeviceType)

	desktop := &models.Payment{}
	applyRequestMeta(desktop, RequestMeta{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	})
	require.NotNil(t, desktop.DeviceType)
	assert.Equal(t, "desktop", *desktop.DeviceType)
	assert.Nil(t, desktop.IPAddress)

	empty := &models.Payment{}
	applyRequestMeta(empty, RequestMeta{})
	assert.Nil(t, empty.UserAgent)
	assert.Nil(t, empty.DeviceType)
}

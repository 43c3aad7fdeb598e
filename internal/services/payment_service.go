package services

import (
	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"
	"github.com/transitworks/bus-booking-backend/internal/database"
	"github.com/transitworks/bus-booking-backend/internal/errs"
	"github.com/transitworks/bus-booking-backend/internal/events"
	"github.com/transitworks/bus-booking-backend/internal/models"
	"github.com/transitworks/bus-booking-backend/pkg/reference"
)

// paymentGateway names the stubbed in-process gateway. Swapped for a real
// provider identifier once one is integrated.
const paymentGateway = "internal"

// RequestMeta carries the client metadata recorded on payment rows
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// PaymentService handles the payment lifecycle for bookings
type PaymentService struct {
	paymentRepo *database.PaymentRepository
	bookingRepo *database.BookingRepository
	emitter     events.Emitter
	logger      *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo *database.PaymentRepository,
	bookingRepo *database.BookingRepository,
	emitter events.Emitter,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		emitter:     emitter,
		logger:      logger,
	}
}

// CreateIntent opens a payment for a pending booking. A booking can hold at
// most one payment that is not failed or cancelled; a second intent is a
// conflict.
func (s *PaymentService) CreateIntent(identity models.Identity, req *models.CreatePaymentIntentRequest, meta RequestMeta) (*models.Payment, *models.PaymentIntent, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	booking, err := s.bookingRepo.GetByID(req.BookingID)
	if err != nil {
		return nil, nil, errs.Internal("failed to create payment", err)
	}
	if booking == nil {
		return nil, nil, errs.NotFound("booking not found")
	}
	if !identity.CanActFor(booking.UserID) {
		return nil, nil, errs.Forbidden("you do not have access to this booking")
	}
	if booking.Status != models.BookingStatusPending {
		return nil, nil, errs.InvalidState("booking is not awaiting payment")
	}
	if req.Amount != booking.TotalAmount {
		return nil, nil, errs.Validation("amount does not match the booking total")
	}

	existing, err := s.paymentRepo.GetOpenByBookingID(booking.ID)
	if err != nil {
		return nil, nil, errs.Internal("failed to create payment", err)
	}
	if existing != nil {
		return nil, nil, errs.Conflict("an active payment already exists for this booking")
	}

	paymentNumber, err := reference.New(reference.PaymentPrefix)
	if err != nil {
		return nil, nil, errs.Internal("failed to create payment", err)
	}

	payment := &models.Payment{
		PaymentNumber: paymentNumber,
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		BaseAmount:    booking.TotalAmount,
		Currency:      booking.Currency,
		Method:        req.Method,
		Gateway:       paymentGateway,
	}
	applyRequestMeta(payment, meta)

	if err := s.paymentRepo.Create(payment); err != nil {
		return nil, nil, errs.Internal("failed to create payment", err)
	}

	secret, err := reference.NewTransactionID("SEC")
	if err != nil {
		return nil, nil, errs.Internal("failed to create payment", err)
	}

	intent := &models.PaymentIntent{
		IntentID:     payment.ID,
		ClientSecret: secret,
		AmountMinor:  int64(payment.TotalAmount * 100),
		Currency:     payment.Currency,
		Status:       "requires_confirmation",
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id":     payment.ID,
		"payment_number": payment.PaymentNumber,
		"booking_id":     booking.ID,
		"amount":         payment.TotalAmount,
		"method":         payment.Method,
	}).Info("Payment intent created")

	return payment, intent, nil
}

// ProcessPayment records the gateway payload and moves an open payment to
// processing
func (s *PaymentService) ProcessPayment(identity models.Identity, paymentID string, req *models.ProcessPaymentRequest) (*models.Payment, error) {
	payment, err := s.getOwned(identity, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending && payment.Status != models.PaymentStatusProcessing {
		return nil, errs.InvalidState("payment cannot be processed from status " + string(payment.Status))
	}

	payment.MarkProcessing(req.GatewayResponse)
	if err := s.persist(payment); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id":         payment.ID,
		"processing_time_ms": payment.ProcessingTimeMS,
	}).Info("Payment moved to processing")

	return payment, nil
}

// ConfirmPayment completes a payment and confirms its booking. Confirming an
// already-completed payment is a no-op so gateway callbacks can be retried
// safely. Confirming after the booking was cancelled fails and leaves the
// payment untouched.
func (s *PaymentService) ConfirmPayment(identity models.Identity, paymentID string, req *models.ConfirmPaymentRequest) (*models.Payment, error) {
	payment, err := s.getOwned(identity, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentStatusCompleted {
		s.logger.WithField("payment_id", paymentID).Info("Payment already completed, confirmation is a no-op")
		return payment, nil
	}
	if payment.Status != models.PaymentStatusPending && payment.Status != models.PaymentStatusProcessing {
		return nil, errs.InvalidState("payment cannot be confirmed from status " + string(payment.Status))
	}

	referenceID, err := reference.NewTransactionID("REF")
	if err != nil {
		return nil, errs.Internal("failed to confirm payment", err)
	}

	payment.MarkProcessing(models.GatewayResponse{
		"gateway":        paymentGateway,
		"transaction_id": req.TransactionID,
	})
	payment.Complete(req.TransactionID, referenceID)

	if err := s.paymentRepo.ConfirmWithBooking(payment); err != nil {
		if errs.Is(err, errs.KindInvalidState) || errs.Is(err, errs.KindNotFound) {
			return nil, err
		}
		return nil, errs.Internal("failed to confirm payment", err)
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id":     payment.ID,
		"booking_id":     payment.BookingID,
		"transaction_id": req.TransactionID,
	}).Info("Payment completed")

	s.emitter.Emit(events.BookingConfirmed, map[string]interface{}{
		"booking_id": payment.BookingID,
		"payment_id": payment.ID,
	})

	return payment, nil
}

// FailPayment records a gateway failure on an in-flight payment
func (s *PaymentService) FailPayment(identity models.Identity, paymentID, reason string) (*models.Payment, error) {
	payment, err := s.getOwned(identity, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending && payment.Status != models.PaymentStatusProcessing {
		return nil, errs.InvalidState("payment cannot fail from status " + string(payment.Status))
	}

	payment.Fail(reason)
	if err := s.persist(payment); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"reason":     reason,
	}).Warn("Payment failed")

	return payment, nil
}

// CancelPayment cancels a payment that has not yet completed
func (s *PaymentService) CancelPayment(identity models.Identity, paymentID string, req *models.CancelPaymentRequest) (*models.Payment, error) {
	payment, err := s.getOwned(identity, paymentID)
	if err != nil {
		return nil, err
	}

	if err := payment.CancelPayment(req.Reason); err != nil {
		return nil, err
	}
	if err := s.persist(payment); err != nil {
		return nil, err
	}

	s.logger.WithField("payment_id", payment.ID).Info("Payment cancelled")
	return payment, nil
}

// RetryPayment resets a failed payment to pending for another attempt,
// keeping the same payment identity. Admin only.
func (s *PaymentService) RetryPayment(identity models.Identity, paymentID string) (*models.Payment, error) {
	if !identity.IsAdmin() {
		return nil, errs.Forbidden("only admins can retry payments")
	}

	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, errs.Internal("failed to retry payment", err)
	}
	if payment == nil {
		return nil, errs.NotFound("payment not found")
	}

	if err := payment.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := s.persist(payment); err != nil {
		return nil, err
	}

	s.logger.WithField("payment_id", payment.ID).Info("Payment reset for retry")
	return payment, nil
}

// RefundPayment applies an admin refund against a completed or partially
// refunded payment. Partial refunds accumulate in the ledger until the
// payment total is reached.
func (s *PaymentService) RefundPayment(identity models.Identity, paymentID string, req *models.RefundPaymentRequest) (*models.Payment, error) {
	if !identity.IsAdmin() {
		return nil, errs.Forbidden("only admins can issue refunds")
	}

	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, errs.Internal("failed to refund payment", err)
	}
	if payment == nil {
		return nil, errs.NotFound("payment not found")
	}

	method := req.Method
	if method == "" {
		method = "original-method"
	}

	transactionID, err := reference.NewTransactionID("RFD")
	if err != nil {
		return nil, errs.Internal("failed to refund payment", err)
	}

	if err := payment.ProcessRefund(req.Amount, req.Reason, method, transactionID); err != nil {
		return nil, err
	}
	if err := s.persist(payment); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id":    payment.ID,
		"refund_amount": req.Amount,
		"refund_total":  payment.RefundAmount,
		"status":        payment.Status,
	}).Info("Refund processed")

	return payment, nil
}

// GetPayment retrieves a payment, enforcing ownership for non-admin callers
func (s *PaymentService) GetPayment(identity models.Identity, paymentID string) (*models.Payment, error) {
	return s.getOwned(identity, paymentID)
}

// ListPayments lists payments. Non-admin callers only ever see their own.
func (s *PaymentService) ListPayments(identity models.Identity, filter models.PaymentFilter) ([]models.Payment, int, error) {
	if !identity.IsAdmin() {
		filter.UserID = identity.UserID
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)

	payments, total, err := s.paymentRepo.List(filter)
	if err != nil {
		return nil, 0, errs.Internal("failed to list payments", err)
	}
	return payments, total, nil
}

// ListFailed lists failed payments for the admin retry dashboard
func (s *PaymentService) ListFailed(identity models.Identity, page, pageSize int) ([]models.Payment, int, error) {
	if !identity.IsAdmin() {
		return nil, 0, errs.Forbidden("only admins can list failed payments")
	}

	page, pageSize = normalizePage(page, pageSize)
	payments, total, err := s.paymentRepo.List(models.PaymentFilter{
		Status:   models.PaymentStatusFailed,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, errs.Internal("failed to list failed payments", err)
	}
	return payments, total, nil
}

func (s *PaymentService) getOwned(identity models.Identity, paymentID string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, errs.Internal("failed to get payment", err)
	}
	if payment == nil {
		return nil, errs.NotFound("payment not found")
	}
	if !identity.CanActFor(payment.UserID) {
		return nil, errs.Forbidden("you do not have access to this payment")
	}
	return payment, nil
}

// persist saves a payment after a model-level transition and mirrors the new
// status onto the booking
func (s *PaymentService) persist(payment *models.Payment) error {
	if err := s.paymentRepo.Update(payment); err != nil {
		return errs.Internal("failed to update payment", err)
	}
	if err := s.bookingRepo.SetPaymentStatus(payment.BookingID, payment.Status); err != nil {
		s.logger.WithError(err).WithField("booking_id", payment.BookingID).
			Warn("Failed to mirror payment status onto booking")
	}
	return nil
}

// applyRequestMeta records client metadata on the payment row
func applyRequestMeta(payment *models.Payment, meta RequestMeta) {
	if meta.IPAddress != "" {
		payment.IPAddress = &meta.IPAddress
	}
	if meta.UserAgent == "" {
		return
	}

	payment.UserAgent = &meta.UserAgent

	ua := user_agent.New(meta.UserAgent)
	deviceType := "desktop"
	switch {
	case ua.Bot():
		deviceType = "bot"
	case ua.Mobile():
		deviceType = "mobile"
	}
	payment.DeviceType = &deviceType
}

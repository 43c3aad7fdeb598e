package models

import (
	"database/sql/driver"
	"time"

	"github.com/transitworks/bus-booking-backend/internal/errs"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusProcessing        PaymentStatus = "processing"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusCancelled         PaymentStatus = "cancelled"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially-refunded"
)

// PaymentMethod represents how the payment is made
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit-card"
	PaymentMethodDebitCard  PaymentMethod = "debit-card"
	PaymentMethodNetBanking PaymentMethod = "net-banking"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodWallet     PaymentMethod = "wallet"
)

// ValidPaymentMethod reports whether m is a known payment method
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodNetBanking,
		PaymentMethodUPI, PaymentMethodWallet:
		return true
	}
	return false
}

// RefundEntry is one event in the append-only partial refund ledger
type RefundEntry struct {
	Amount        float64   `json:"amount"`
	Reason        string    `json:"reason"`
	Date          time.Time `json:"date"`
	TransactionID string    `json:"transaction_id"`
}

// RefundList stores the partial refund ledger as JSONB
type RefundList []RefundEntry

// Value implements the driver.Valuer interface
func (l RefundList) Value() (driver.Value, error) {
	if l == nil {
		return jsonbValue([]RefundEntry{})
	}
	return jsonbValue([]RefundEntry(l))
}

// Scan implements the sql.Scanner interface
func (l *RefundList) Scan(src interface{}) error {
	return jsonbScan(src, (*[]RefundEntry)(l))
}

// Total returns the accumulated ledger amount
func (l RefundList) Total() float64 {
	var total float64
	for _, e := range l {
		total += e.Amount
	}
	return total
}

// Payment represents one monetary transaction tied 1:1 to a booking
type Payment struct {
	ID            string `json:"id" db:"id"`
	PaymentNumber string `json:"payment_number" db:"payment_number"`
	BookingID     string `json:"booking_id" db:"booking_id"`
	UserID        string `json:"user_id" db:"user_id"`

	BaseAmount  float64 `json:"base_amount" db:"base_amount"`
	Taxes       float64 `json:"taxes" db:"taxes"`
	Fees        float64 `json:"fees" db:"fees"`
	Discounts   float64 `json:"discounts" db:"discounts"`
	TotalAmount float64 `json:"total_amount" db:"total_amount"`
	Currency    string  `json:"currency" db:"currency"`

	Method           PaymentMethod   `json:"method" db:"method"`
	Status           PaymentStatus   `json:"status" db:"status"`
	TransactionID    *string         `json:"transaction_id,omitempty" db:"transaction_id"`
	ReferenceID      *string         `json:"reference_id,omitempty" db:"reference_id"`
	Gateway          string          `json:"gateway" db:"gateway"`
	GatewayResponse  GatewayResponse `json:"gateway_response,omitempty" db:"gateway_response"`
	ProcessingTimeMS *int64          `json:"processing_time_ms,omitempty" db:"processing_time_ms"`

	IsRefunded     bool       `json:"is_refunded" db:"is_refunded"`
	RefundAmount   float64    `json:"refund_amount" db:"refund_amount"`
	RefundReason   *string    `json:"refund_reason,omitempty" db:"refund_reason"`
	RefundDate     *time.Time `json:"refund_date,omitempty" db:"refund_date"`
	RefundMethod   *string    `json:"refund_method,omitempty" db:"refund_method"`
	PartialRefunds RefundList `json:"partial_refunds" db:"partial_refunds"`

	IPAddress  *string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  *string `json:"user_agent,omitempty" db:"user_agent"`
	DeviceType *string `json:"device_type,omitempty" db:"device_type"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NormalizeAmount recomputes the total from its components. Runs before every
// save so the stored total can never drift from the parts.
func (p *Payment) NormalizeAmount() {
	total := p.BaseAmount + p.Taxes + p.Fees - p.Discounts
	if total < 0 {
		total = 0
	}
	p.TotalAmount = total
}

// IsRefundable reports whether the payment can accept a (further) refund.
// Partially refunded payments remain refundable until the ledger reaches the
// original total.
func (p *Payment) IsRefundable() bool {
	switch p.Status {
	case PaymentStatusCompleted:
		return true
	case PaymentStatusPartiallyRefunded:
		return p.RefundAmount < p.TotalAmount
	}
	return false
}

// RefundableAmount returns how much can still be refunded
func (p *Payment) RefundableAmount() float64 {
	if !p.IsRefundable() {
		return 0
	}
	return p.TotalAmount - p.RefundAmount
}

// MarkProcessing records the gateway payload and moves to processing
func (p *Payment) MarkProcessing(gatewayResponse GatewayResponse) {
	elapsed := time.Since(p.CreatedAt).Milliseconds()
	p.Status = PaymentStatusProcessing
	p.GatewayResponse = gatewayResponse
	p.ProcessingTimeMS = &elapsed
	p.UpdatedAt = time.Now()
}

// Complete records the gateway transaction identifiers and moves to completed
func (p *Payment) Complete(transactionID, referenceID string) {
	p.Status = PaymentStatusCompleted
	p.TransactionID = &transactionID
	p.ReferenceID = &referenceID
	p.UpdatedAt = time.Now()
}

// Fail records the failure reason and moves to failed
func (p *Payment) Fail(reason string) {
	p.Status = PaymentStatusFailed
	p.GatewayResponse = GatewayResponse{"error": reason}
	p.UpdatedAt = time.Now()
}

// CancelPayment cancels a payment that has not yet completed
func (p *Payment) CancelPayment(reason string) error {
	if p.Status != PaymentStatusPending && p.Status != PaymentStatusProcessing {
		return errs.InvalidState("payment cannot be cancelled from status " + string(p.Status))
	}
	p.Status = PaymentStatusCancelled
	p.GatewayResponse = GatewayResponse{"cancellation_reason": reason}
	p.UpdatedAt = time.Now()
	return nil
}

// ProcessRefund appends a refund event to the ledger and accumulates the
// refunded amount. The ledger is monotonic: the running total can never
// exceed the payment total.
func (p *Payment) ProcessRefund(amount float64, reason, method, transactionID string) error {
	if !p.IsRefundable() {
		return errs.InvalidState("payment is not refundable")
	}
	if amount <= 0 {
		return errs.Validation("refund amount must be positive")
	}
	if amount > p.RefundableAmount() {
		return errs.Conflict("refund amount exceeds refundable amount")
	}

	now := time.Now()
	p.IsRefunded = true
	p.RefundAmount += amount
	p.RefundReason = &reason
	p.RefundDate = &now
	p.RefundMethod = &method
	p.PartialRefunds = append(p.PartialRefunds, RefundEntry{
		Amount:        amount,
		Reason:        reason,
		Date:          now,
		TransactionID: transactionID,
	})

	if p.RefundAmount >= p.TotalAmount {
		p.Status = PaymentStatusRefunded
	} else {
		p.Status = PaymentStatusPartiallyRefunded
	}
	p.UpdatedAt = now
	return nil
}

// ResetForRetry resets a failed payment to pending for another attempt,
// keeping the same identity and clearing the stored gateway response.
func (p *Payment) ResetForRetry() error {
	if p.Status != PaymentStatusFailed {
		return errs.InvalidState("only failed payments can be retried")
	}
	p.Status = PaymentStatusPending
	p.GatewayResponse = nil
	p.UpdatedAt = time.Now()
	return nil
}

// CreatePaymentIntentRequest represents the request to create a payment intent
type CreatePaymentIntentRequest struct {
	BookingID string        `json:"booking_id" binding:"required"`
	Method    PaymentMethod `json:"method" binding:"required"`
	Amount    float64       `json:"amount" binding:"required,gt=0"`
}

// Validate validates the create intent request
func (r *CreatePaymentIntentRequest) Validate() error {
	if !ValidPaymentMethod(r.Method) {
		return errInvalid("invalid payment method " + string(r.Method))
	}
	if r.Amount <= 0 {
		return errInvalid("amount must be positive")
	}
	return nil
}

// ProcessPaymentRequest carries the raw gateway payload recorded when a
// payment moves to processing
type ProcessPaymentRequest struct {
	GatewayResponse GatewayResponse `json:"gateway_response" binding:"required"`
}

// ConfirmPaymentRequest represents the request to confirm a payment
type ConfirmPaymentRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
}

// RefundPaymentRequest represents an admin refund request
type RefundPaymentRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Reason string  `json:"reason" binding:"required"`
	Method string  `json:"method"`
}

// FailPaymentRequest represents a reported gateway failure
type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CancelPaymentRequest represents the request to cancel a payment
type CancelPaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// PaymentIntent is the stubbed gateway payload returned on intent creation
type PaymentIntent struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	AmountMinor  int64  `json:"amount_minor"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	UserID   string
	Status   PaymentStatus
	Method   PaymentMethod
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
	Page     int
	PageSize int
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transitworks/bus-booking-backend/internal/errs"
)

func TestNormalizeAmount(t *testing.T) {
	payment := &Payment{BaseAmount: 100, Taxes: 10, Fees: 5, Discounts: 15}
	payment.NormalizeAmount()
	assert.Equal(t, 100.0, payment.TotalAmount)

	// Discounts larger than the rest clamp to zero instead of going negative
	payment = &Payment{BaseAmount: 20, Discounts: 50}
	payment.NormalizeAmount()
	assert.Equal(t, 0.0, payment.TotalAmount)
}

func TestProcessRefund_Partial(t *testing.T) {
	payment := &Payment{Status: PaymentStatusCompleted, TotalAmount: 100}

	err := payment.ProcessRefund(40, "seat downgrade", "original-method", "RFD-1")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPartiallyRefunded, payment.Status)
	assert.Equal(t, 40.0, payment.RefundAmount)
	assert.True(t, payment.IsRefunded)
	require.Len(t, payment.PartialRefunds, 1)
	assert.Equal(t, 40.0, payment.PartialRefunds.Total())

	// A partially refunded payment stays refundable for the remainder
	assert.True(t, payment.IsRefundable())
	assert.Equal(t, 60.0, payment.RefundableAmount())

	err = payment.ProcessRefund(60, "full cancellation", "original-method", "RFD-2")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusRefunded, payment.Status)
	assert.Equal(t, 100.0, payment.RefundAmount)
	assert.Len(t, payment.PartialRefunds, 2)

	// Ledger is exhausted
	assert.False(t, payment.IsRefundable())
	assert.Equal(t, 0.0, payment.RefundableAmount())
}

func TestProcessRefund_ExceedsRefundable(t *testing.T) {
	payment := &Payment{Status: PaymentStatusCompleted, TotalAmount: 100}
	require.NoError(t, payment.ProcessRefund(70, "partial", "original-method", "RFD-1"))

	err := payment.ProcessRefund(31, "too much", "original-method", "RFD-2")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindConflict))
	assert.Equal(t, 70.0, payment.RefundAmount)
	assert.Len(t, payment.PartialRefunds, 1)
}

func TestProcessRefund_NotRefundable(t *testing.T) {
	for _, status := range []PaymentStatus{
		PaymentStatusPending, PaymentStatusProcessing,
		PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded,
	} {
		payment := &Payment{Status: status, TotalAmount: 100, RefundAmount: 100}
		err := payment.ProcessRefund(10, "no", "original-method", "RFD-X")
		require.Error(t, err, string(status))
		assert.True(t, errs.Is(err, errs.KindInvalidState))
	}
}

func TestProcessRefund_InvalidAmount(t *testing.T) {
	payment := &Payment{Status: PaymentStatusCompleted, TotalAmount: 100}

	err := payment.ProcessRefund(0, "zero", "original-method", "RFD-1")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))

	err = payment.ProcessRefund(-5, "negative", "original-method", "RFD-2")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestResetForRetry(t *testing.T) {
	payment := &Payment{
		Status:          PaymentStatusFailed,
		GatewayResponse: GatewayResponse{"error": "card declined"},
	}

	require.NoError(t, payment.ResetForRetry())
	assert.Equal(t, PaymentStatusPending, payment.Status)
	assert.Nil(t, payment.GatewayResponse)
}

func TestResetForRetry_OnlyFailed(t *testing.T) {
	for _, status := range []PaymentStatus{
		PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted,
		PaymentStatusCancelled, PaymentStatusRefunded,
	} {
		payment := &Payment{Status: status}
		err := payment.ResetForRetry()
		require.Error(t, err, string(status))
		assert.True(t, errs.Is(err, errs.KindInvalidState))
	}
}

func TestCancelPayment(t *testing.T) {
	payment := &Payment{Status: PaymentStatusPending}
	require.NoError(t, payment.CancelPayment("user abandoned checkout"))
	assert.Equal(t, PaymentStatusCancelled, payment.Status)
	assert.Equal(t, "user abandoned checkout", payment.GatewayResponse["cancellation_reason"])

	completed := &Payment{Status: PaymentStatusCompleted}
	err := completed.CancelPayment("too late")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidState))
}

func TestValidPaymentMethod(t *testing.T) {
	assert.True(t, ValidPaymentMethod(PaymentMethodCreditCard))
	assert.True(t, ValidPaymentMethod(PaymentMethodUPI))
	assert.False(t, ValidPaymentMethod("barter"))
}

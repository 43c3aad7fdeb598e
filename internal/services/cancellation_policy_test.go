package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCancellationPolicy(t *testing.T) {
	policy, err := NewCancellationPolicy("24:100,12:75,6:50,0:25")
	require.NoError(t, err)
	assert.NotNil(t, policy)
}

func TestNewCancellationPolicy_Invalid(t *testing.T) {
	cases := []string{
		"",
		"24",
		"24:abc",
		"xyz:50",
		"-1:50",
		"24:150",
	}
	for _, schedule := range cases {
		_, err := NewCancellationPolicy(schedule)
		assert.Error(t, err, schedule)
	}
}

func TestAssess_Tiers(t *testing.T) {
	policy, err := NewCancellationPolicy("24:100,12:75,6:50,0:25")
	require.NoError(t, err)

	departure := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		cancelAt   time.Time
		wantRefund float64
		wantFee    float64
	}{
		{"more than 24h", departure.Add(-48 * time.Hour), 200, 0},
		{"exactly 24h", departure.Add(-24 * time.Hour), 200, 0},
		{"between 12h and 24h", departure.Add(-18 * time.Hour), 150, 50},
		{"between 6h and 12h", departure.Add(-8 * time.Hour), 100, 100},
		{"under 6h", departure.Add(-1 * time.Hour), 50, 150},
		{"after departure", departure.Add(1 * time.Hour), 0, 200},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := policy.Assess(200, departure, tc.cancelAt)
			assert.Equal(t, tc.wantRefund, result.RefundAmount)
			assert.Equal(t, tc.wantFee, result.CancellationFee)
		})
	}
}

func TestAssess_Rounding(t *testing.T) {
	policy, err := NewCancellationPolicy("0:33")
	require.NoError(t, err)

	departure := time.Now().Add(2 * time.Hour)
	result := policy.Assess(99.99, departure, time.Now())

	assert.Equal(t, 33.0, result.RefundAmount)
	assert.Equal(t, 66.99, result.CancellationFee)
	assert.Equal(t, 99.99, result.RefundAmount+result.CancellationFee)
}

func TestAssess_TierOrderIndependent(t *testing.T) {
	// Tiers are sorted internally, so a scrambled schedule behaves the same
	policy, err := NewCancellationPolicy("0:25,24:100,6:50,12:75")
	require.NoError(t, err)

	departure := time.Now().Add(30 * time.Hour)
	result := policy.Assess(100, departure, time.Now())
	assert.Equal(t, 100.0, result.RefundAmount)
}

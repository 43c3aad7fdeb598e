package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transitworks/bus-booking-backend/internal/errs"
)

func TestClampAvailableSeats(t *testing.T) {
	bus := &Bus{TotalSeats: 40, AvailableSeats: 55}
	bus.ClampAvailableSeats()
	assert.Equal(t, 40, bus.AvailableSeats)

	bus.AvailableSeats = -3
	bus.ClampAvailableSeats()
	assert.Equal(t, 0, bus.AvailableSeats)

	bus.AvailableSeats = 12
	bus.ClampAvailableSeats()
	assert.Equal(t, 12, bus.AvailableSeats)
}

func TestApplySeatDelta(t *testing.T) {
	bus := &Bus{TotalSeats: 40, AvailableSeats: 10}

	require.NoError(t, bus.ApplySeatDelta(-10))
	assert.Equal(t, 0, bus.AvailableSeats)

	// Deltas are rejected, not clamped
	err := bus.ApplySeatDelta(-1)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidState))
	assert.Equal(t, 0, bus.AvailableSeats)

	require.NoError(t, bus.ApplySeatDelta(40))
	err = bus.ApplySeatDelta(1)
	require.Error(t, err)
	assert.Equal(t, 40, bus.AvailableSeats)
}

func TestOccupancyPercent(t *testing.T) {
	bus := &Bus{TotalSeats: 40, AvailableSeats: 30}
	assert.Equal(t, 25, bus.OccupancyPercent())

	empty := &Bus{TotalSeats: 0}
	assert.Equal(t, 0, empty.OccupancyPercent())
}

func TestTripIsBookable(t *testing.T) {
	trip := &Trip{Status: TripStatusScheduled, IsActive: true}
	assert.True(t, trip.IsBookable())

	trip.Status = TripStatusBoarding
	assert.True(t, trip.IsBookable())

	trip.Status = TripStatusDelayed
	assert.True(t, trip.IsBookable())

	trip.Status = TripStatusDeparted
	assert.False(t, trip.IsBookable())

	trip.Status = TripStatusCancelled
	assert.False(t, trip.IsBookable())

	trip.Status = TripStatusScheduled
	trip.IsActive = false
	assert.False(t, trip.IsBookable())
}

package models

import (
	"time"

	"github.com/transitworks/bus-booking-backend/internal/errs"
)

// BusStatus represents the operational status of a bus
type BusStatus string

const (
	BusStatusActive       BusStatus = "active"
	BusStatusMaintenance  BusStatus = "maintenance"
	BusStatusOutOfService BusStatus = "out-of-service"
	BusStatusRetired      BusStatus = "retired"
)

// Bus represents a physical vehicle in the fleet.
//
// AvailableSeats is a fleet-level rough counter: it is decremented by
// passenger count on booking and restored on cancellation, but it is not kept
// in lockstep with any single trip's seat map.
type Bus struct {
	ID                string     `json:"id" db:"id"`
	BusNumber         string     `json:"bus_number" db:"bus_number"`
	BusName           string     `json:"bus_name" db:"bus_name"`
	BusType           string     `json:"bus_type" db:"bus_type"` // standard, premium, luxury, sleeper, ac, non-ac
	TotalSeats        int        `json:"total_seats" db:"total_seats"`
	AvailableSeats    int        `json:"available_seats" db:"available_seats"`
	Status            BusStatus  `json:"status" db:"status"`
	Latitude          *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude         *float64   `json:"longitude,omitempty" db:"longitude"`
	Address           *string    `json:"address,omitempty" db:"address"`
	LocationUpdatedAt *time.Time `json:"location_updated_at,omitempty" db:"location_updated_at"`
	IsActive          bool       `json:"is_active" db:"is_active"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// IsBookable checks whether new bookings may reference this bus
func (b *Bus) IsBookable() bool {
	return b.IsActive && b.Status == BusStatusActive
}

// ClampAvailableSeats forces the counter back into [0, TotalSeats]. Applied
// before direct writes; delta updates reject instead (see ApplySeatDelta).
func (b *Bus) ClampAvailableSeats() {
	if b.AvailableSeats > b.TotalSeats {
		b.AvailableSeats = b.TotalSeats
	}
	if b.AvailableSeats < 0 {
		b.AvailableSeats = 0
	}
}

// ApplySeatDelta adjusts the available-seat counter by delta. The result must
// stay within [0, TotalSeats]; out-of-range deltas are rejected, not clamped.
func (b *Bus) ApplySeatDelta(delta int) error {
	newAvailable := b.AvailableSeats + delta
	if newAvailable < 0 || newAvailable > b.TotalSeats {
		return errs.InvalidState("invalid seat count change")
	}
	b.AvailableSeats = newAvailable
	return nil
}

// OccupancyPercent returns the fleet-level occupancy percentage
func (b *Bus) OccupancyPercent() int {
	if b.TotalSeats == 0 {
		return 0
	}
	return int(float64(b.TotalSeats-b.AvailableSeats) / float64(b.TotalSeats) * 100)
}

// UpdateLocation stamps a new current location
func (b *Bus) UpdateLocation(latitude, longitude float64, address string) {
	now := time.Now()
	b.Latitude = &latitude
	b.Longitude = &longitude
	b.Address = &address
	b.LocationUpdatedAt = &now
}

// CreateBusRequest represents the request to register a bus
type CreateBusRequest struct {
	BusNumber  string `json:"bus_number" binding:"required"`
	BusName    string `json:"bus_name" binding:"required"`
	BusType    string `json:"bus_type"`
	TotalSeats int    `json:"total_seats" binding:"required,min=1,max=100"`
}

// UpdateBusCommand enumerates the mutable bus fields
type UpdateBusCommand struct {
	BusName *string    `json:"bus_name,omitempty"`
	BusType *string    `json:"bus_type,omitempty"`
	Status  *BusStatus `json:"status,omitempty"`
}

// Validate validates the update command
func (c *UpdateBusCommand) Validate() error {
	if c.Status != nil {
		switch *c.Status {
		case BusStatusActive, BusStatusMaintenance, BusStatusOutOfService, BusStatusRetired:
		default:
			return errInvalid("invalid bus status")
		}
	}
	return nil
}

// AdjustSeatsRequest represents an admin seat counter correction
type AdjustSeatsRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// UpdateLocationRequest represents a driver location report
type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
	Address   string  `json:"address"`
}

package models

import (
	"time"
)

// TripStatus represents the status of a scheduled trip
type TripStatus string

const (
	TripStatusScheduled TripStatus = "scheduled"
	TripStatusBoarding  TripStatus = "boarding"
	TripStatusDeparted  TripStatus = "departed"
	TripStatusInTransit TripStatus = "in-transit"
	TripStatusArrived   TripStatus = "arrived"
	TripStatusCancelled TripStatus = "cancelled"
	TripStatusDelayed   TripStatus = "delayed"
)

// SeatType represents the position class of a seat
type SeatType string

const (
	SeatTypeWindow SeatType = "window"
	SeatTypeAisle  SeatType = "aisle"
	SeatTypeFront  SeatType = "front"
	SeatTypeBack   SeatType = "back"
)

// ValidSeatType reports whether t is a known seat type
func ValidSeatType(t SeatType) bool {
	switch t {
	case SeatTypeWindow, SeatTypeAisle, SeatTypeFront, SeatTypeBack:
		return true
	}
	return false
}

// Trip represents one scheduled run of a bus on a route.
//
// TotalSeats/BookedSeats/AvailableSeats are the occupancy counters; the seat
// map rows in trip_seats are the ground truth and the counters are mutated in
// the same transaction as seat rows, so bookedSeats always equals the number
// of booked seat-map entries at commit boundaries.
type Trip struct {
	ID             string     `json:"id" db:"id"`
	TripNumber     string     `json:"trip_number" db:"trip_number"`
	RouteID        string     `json:"route_id" db:"route_id"`
	BusID          string     `json:"bus_id" db:"bus_id"`
	DriverID       *string    `json:"driver_id,omitempty" db:"driver_id"`
	DepartureAt    time.Time  `json:"departure_at" db:"departure_at"`
	ArrivalAt      time.Time  `json:"arrival_at" db:"arrival_at"`
	Status         TripStatus `json:"status" db:"status"`
	TotalSeats     int        `json:"total_seats" db:"total_seats"`
	BookedSeats    int        `json:"booked_seats" db:"booked_seats"`
	AvailableSeats int        `json:"available_seats" db:"available_seats"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the trip has reached a terminal status
func (t *Trip) IsTerminal() bool {
	return t.Status == TripStatusArrived || t.Status == TripStatusCancelled
}

// IsBookable checks whether seats on this trip may still be booked
func (t *Trip) IsBookable() bool {
	if !t.IsActive || t.IsTerminal() {
		return false
	}
	switch t.Status {
	case TripStatusScheduled, TripStatusBoarding, TripStatusDelayed:
		return true
	}
	return false
}

// TripSeat represents one slot in a trip's seat map
type TripSeat struct {
	ID          string    `json:"id" db:"id"`
	TripID      string    `json:"trip_id" db:"trip_id"`
	SeatNumber  string    `json:"seat_number" db:"seat_number"`
	SeatType    SeatType  `json:"seat_type" db:"seat_type"`
	IsBooked    bool      `json:"is_booked" db:"is_booked"`
	PassengerID *string   `json:"passenger_id,omitempty" db:"passenger_id"`
	BookingID   *string   `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// TripWithSeatMap bundles a trip with its full seat map for display
type TripWithSeatMap struct {
	Trip
	SeatMap []TripSeat `json:"seat_map"`
}

// CreateTripRequest represents the request to schedule a trip. The seat map is
// seeded from the bus capacity at creation time.
type CreateTripRequest struct {
	RouteID     string    `json:"route_id" binding:"required"`
	BusID       string    `json:"bus_id" binding:"required"`
	DriverID    *string   `json:"driver_id,omitempty"`
	DepartureAt time.Time `json:"departure_at" binding:"required"`
}

// UpdateTripStatusRequest represents a trip status transition
type UpdateTripStatusRequest struct {
	Status TripStatus `json:"status" binding:"required"`
}

// Validate validates the status transition request
func (r *UpdateTripStatusRequest) Validate() error {
	switch r.Status {
	case TripStatusScheduled, TripStatusBoarding, TripStatusDeparted,
		TripStatusInTransit, TripStatusArrived, TripStatusCancelled, TripStatusDelayed:
		return nil
	}
	return errInvalid("invalid trip status")
}

// TripFilter narrows trip listings
type TripFilter struct {
	RouteID  string
	BusID    string
	Status   TripStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

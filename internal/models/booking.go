package models

import (
	"database/sql/driver"
	"time"

	"github.com/transitworks/bus-booking-backend/internal/errs"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// CancelledByUser and CancelledByAdmin identify who triggered a cancellation
const (
	CancelledByUser  = "user"
	CancelledByAdmin = "admin"
)

// Passenger is one traveller within a booking, owning one seat on the trip
type Passenger struct {
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	Age        int      `json:"age"`
	SeatNumber string   `json:"seat_number"`
	SeatType   SeatType `json:"seat_type"`
}

// PassengerList stores booking passengers as JSONB
type PassengerList []Passenger

// Value implements the driver.Valuer interface
func (l PassengerList) Value() (driver.Value, error) {
	if l == nil {
		return jsonbValue([]Passenger{})
	}
	return jsonbValue([]Passenger(l))
}

// Scan implements the sql.Scanner interface
func (l *PassengerList) Scan(src interface{}) error {
	return jsonbScan(src, (*[]Passenger)(l))
}

// SeatNumbers returns the seat numbers this booking party occupies
func (l PassengerList) SeatNumbers() []string {
	seats := make([]string, len(l))
	for i, p := range l {
		seats[i] = p.SeatNumber
	}
	return seats
}

// TravelPoint is a pickup or drop location stored as JSONB
type TravelPoint struct {
	City     string `json:"city"`
	Terminal string `json:"terminal,omitempty"`
}

// Value implements the driver.Valuer interface
func (p TravelPoint) Value() (driver.Value, error) {
	return jsonbValue(p)
}

// Scan implements the sql.Scanner interface
func (p *TravelPoint) Scan(src interface{}) error {
	return jsonbScan(src, p)
}

// Booking represents one passenger party's reservation on one trip
type Booking struct {
	ID              string        `json:"id" db:"id"`
	BookingNumber   string        `json:"booking_number" db:"booking_number"`
	UserID          string        `json:"user_id" db:"user_id"`
	RouteID         string        `json:"route_id" db:"route_id"`
	BusID           string        `json:"bus_id" db:"bus_id"`
	TripID          string        `json:"trip_id" db:"trip_id"`
	Passengers      PassengerList `json:"passengers" db:"passengers"`
	PickupPoint     TravelPoint   `json:"pickup_point" db:"pickup_point"`
	DropPoint       TravelPoint   `json:"drop_point" db:"drop_point"`
	DepartureAt     time.Time     `json:"departure_at" db:"departure_at"`
	ArrivalAt       time.Time     `json:"arrival_at" db:"arrival_at"`
	BaseFare        float64       `json:"base_fare" db:"base_fare"`
	TotalAmount     float64       `json:"total_amount" db:"total_amount"`
	Currency        string        `json:"currency" db:"currency"`
	Status          BookingStatus `json:"status" db:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status" db:"payment_status"`
	SpecialRequests *string       `json:"special_requests,omitempty" db:"special_requests"`

	// Cancellation sub-record, populated only on cancel
	CancellationReason *string    `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CancelledBy        *string    `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancellationFee    *float64   `json:"cancellation_fee,omitempty" db:"cancellation_fee"`
	RefundAmount       *float64   `json:"refund_amount,omitempty" db:"refund_amount"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the booking status admits no further transitions
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCompleted || b.Status == BookingStatusCancelled
}

// CanBeCancelled checks if the booking can still be cancelled
func (b *Booking) CanBeCancelled() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// CanBeUpdated checks if passenger/pickup fields may still be edited
func (b *Booking) CanBeUpdated() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// Confirm moves the booking to confirmed. Only the payment completion flow
// calls this, and only a pending booking may be confirmed.
func (b *Booking) Confirm() error {
	if b.Status != BookingStatusPending {
		return errs.InvalidState("booking cannot be confirmed from status " + string(b.Status))
	}
	b.Status = BookingStatusConfirmed
	b.UpdatedAt = time.Now()
	return nil
}

// Cancel marks the booking cancelled and records the cancellation sub-record
func (b *Booking) Cancel(reason, cancelledBy string, fee, refund float64) error {
	if !b.CanBeCancelled() {
		return errs.InvalidState("booking cannot be cancelled from status " + string(b.Status))
	}
	now := time.Now()
	b.Status = BookingStatusCancelled
	b.CancellationReason = &reason
	b.CancelledBy = &cancelledBy
	b.CancellationFee = &fee
	b.RefundAmount = &refund
	b.CancelledAt = &now
	b.UpdatedAt = now
	return nil
}

// Complete marks a confirmed booking as completed
func (b *Booking) Complete() error {
	if b.Status != BookingStatusConfirmed {
		return errs.InvalidState("booking cannot be completed from status " + string(b.Status))
	}
	b.Status = BookingStatusCompleted
	b.UpdatedAt = time.Now()
	return nil
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	RouteID         string      `json:"route_id" binding:"required"`
	BusID           string      `json:"bus_id" binding:"required"`
	TripID          string      `json:"trip_id" binding:"required"`
	Passengers      []Passenger `json:"passengers" binding:"required,min=1,dive"`
	PickupPoint     TravelPoint `json:"pickup_point" binding:"required"`
	DropPoint       TravelPoint `json:"drop_point" binding:"required"`
	SpecialRequests *string     `json:"special_requests,omitempty"`
}

// Validate validates the create booking request
func (r *CreateBookingRequest) Validate() error {
	if len(r.Passengers) == 0 {
		return errInvalid("at least one passenger is required")
	}
	if len(r.Passengers) > 10 {
		return errInvalid("maximum 10 seats can be booked at once")
	}
	seen := make(map[string]bool, len(r.Passengers))
	for _, p := range r.Passengers {
		if p.FirstName == "" || p.LastName == "" {
			return errInvalid("passenger first and last name are required")
		}
		if p.Age < 0 {
			return errInvalid("passenger age cannot be negative")
		}
		if p.SeatNumber == "" {
			return errInvalid("passenger seat number is required")
		}
		if seen[p.SeatNumber] {
			return errInvalid("duplicate seat number " + p.SeatNumber + " in request")
		}
		seen[p.SeatNumber] = true
		if p.SeatType != "" && !ValidSeatType(p.SeatType) {
			return errInvalid("invalid seat type " + string(p.SeatType))
		}
	}
	if r.PickupPoint.City == "" {
		return errInvalid("pickup city is required")
	}
	if r.DropPoint.City == "" {
		return errInvalid("drop city is required")
	}
	return nil
}

// PassengerUpdate edits the contact details of one passenger, addressed by the
// seat they hold. The seat assignment itself cannot change through an update.
type PassengerUpdate struct {
	SeatNumber string  `json:"seat_number" binding:"required"`
	FirstName  *string `json:"first_name,omitempty"`
	LastName   *string `json:"last_name,omitempty"`
	Age        *int    `json:"age,omitempty"`
}

// UpdateBookingCommand enumerates the booking fields that may be edited while
// the booking is pending or confirmed. Seat assignments are immutable; only
// passenger contact details and journey points may change.
type UpdateBookingCommand struct {
	Passengers      []PassengerUpdate `json:"passengers,omitempty"`
	PickupPoint     *TravelPoint      `json:"pickup_point,omitempty"`
	DropPoint       *TravelPoint      `json:"drop_point,omitempty"`
	SpecialRequests *string           `json:"special_requests,omitempty"`
}

// Validate validates the update command
func (c *UpdateBookingCommand) Validate() error {
	seen := make(map[string]bool, len(c.Passengers))
	for _, u := range c.Passengers {
		if u.SeatNumber == "" {
			return errInvalid("passenger update seat number is required")
		}
		if seen[u.SeatNumber] {
			return errInvalid("duplicate seat number " + u.SeatNumber + " in request")
		}
		seen[u.SeatNumber] = true
		if u.FirstName != nil && *u.FirstName == "" {
			return errInvalid("passenger first name cannot be empty")
		}
		if u.LastName != nil && *u.LastName == "" {
			return errInvalid("passenger last name cannot be empty")
		}
		if u.Age != nil && *u.Age < 0 {
			return errInvalid("passenger age cannot be negative")
		}
	}
	if c.PickupPoint != nil && c.PickupPoint.City == "" {
		return errInvalid("pickup city is required")
	}
	if c.DropPoint != nil && c.DropPoint.City == "" {
		return errInvalid("drop city is required")
	}
	return nil
}

// ApplyPassengerUpdates merges contact-detail edits into the passenger list.
// Each update must address a seat the booking actually holds.
func (b *Booking) ApplyPassengerUpdates(updates []PassengerUpdate) error {
	for _, u := range updates {
		applied := false
		for i := range b.Passengers {
			if b.Passengers[i].SeatNumber != u.SeatNumber {
				continue
			}
			if u.FirstName != nil {
				b.Passengers[i].FirstName = *u.FirstName
			}
			if u.LastName != nil {
				b.Passengers[i].LastName = *u.LastName
			}
			if u.Age != nil {
				b.Passengers[i].Age = *u.Age
			}
			applied = true
			break
		}
		if !applied {
			return errs.NotFound("no passenger holds seat " + u.SeatNumber + " on this booking")
		}
	}
	b.UpdatedAt = time.Now()
	return nil
}

// CancelBookingRequest represents the request to cancel a booking
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CancellationResult is returned from a successful cancellation
type CancellationResult struct {
	CancellationFee float64 `json:"cancellation_fee"`
	RefundAmount    float64 `json:"refund_amount"`
}

// BookingFilter narrows booking listings
type BookingFilter struct {
	UserID   string
	TripID   string
	Status   BookingStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
	Page     int
	PageSize int
}

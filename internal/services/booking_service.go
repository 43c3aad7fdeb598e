package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/transitworks/bus-booking-backend/internal/database"
	"github.com/transitworks/bus-booking-backend/internal/errs"
	"github.com/transitworks/bus-booking-backend/internal/events"
	"github.com/transitworks/bus-booking-backend/internal/models"
	"github.com/transitworks/bus-booking-backend/pkg/reference"
)

// BookingService orchestrates the booking lifecycle: seat reservation,
// cancellation with fee assessment, and completion.
type BookingService struct {
	bookingRepo *database.BookingRepository
	tripRepo    *database.TripRepository
	routeRepo   *database.RouteRepository
	busRepo     *database.BusRepository
	policy      *CancellationPolicy
	emitter     events.Emitter
	logger      *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookingRepo *database.BookingRepository,
	tripRepo *database.TripRepository,
	routeRepo *database.RouteRepository,
	busRepo *database.BusRepository,
	policy *CancellationPolicy,
	emitter events.Emitter,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		tripRepo:    tripRepo,
		routeRepo:   routeRepo,
		busRepo:     busRepo,
		policy:      policy,
		emitter:     emitter,
		logger:      logger,
	}
}

// CreateBooking reserves seats on a trip for the caller. Preconditions are
// checked in order (route, bus, trip, capacity); the seat claims themselves
// happen atomically in the repository, so two parties racing for the same
// seats cannot both win.
func (s *BookingService) CreateBooking(identity models.Identity, req *models.CreateBookingRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	route, err := s.routeRepo.GetByID(req.RouteID)
	if err != nil {
		return nil, errs.Internal("failed to create booking", err)
	}
	if route == nil {
		return nil, errs.NotFound("route not found")
	}
	if !route.IsBookable() {
		return nil, errs.InvalidState("route is not accepting bookings")
	}

	bus, err := s.busRepo.GetByID(req.BusID)
	if err != nil {
		return nil, errs.Internal("failed to create booking", err)
	}
	if bus == nil {
		return nil, errs.NotFound("bus not found")
	}
	if !bus.IsBookable() {
		return nil, errs.InvalidState("bus is not in service")
	}

	trip, err := s.tripRepo.GetByID(req.TripID)
	if err != nil {
		return nil, errs.Internal("failed to create booking", err)
	}
	if trip == nil {
		return nil, errs.NotFound("trip not found")
	}
	if trip.RouteID != route.ID || trip.BusID != bus.ID {
		return nil, errs.Validation("trip does not belong to the given route and bus")
	}
	if !trip.IsBookable() {
		return nil, errs.InvalidState("trip is not open for booking")
	}
	if !trip.DepartureAt.After(time.Now()) {
		return nil, errs.InvalidState("trip has already departed")
	}

	seatCount := len(req.Passengers)
	if trip.AvailableSeats < seatCount {
		return nil, errs.Conflict("not enough available seats on this trip")
	}

	bookingNumber, err := reference.New(reference.BookingPrefix)
	if err != nil {
		return nil, errs.Internal("failed to create booking", err)
	}

	booking := &models.Booking{
		BookingNumber:   bookingNumber,
		UserID:          identity.UserID,
		RouteID:         route.ID,
		BusID:           bus.ID,
		TripID:          trip.ID,
		Passengers:      req.Passengers,
		PickupPoint:     req.PickupPoint,
		DropPoint:       req.DropPoint,
		DepartureAt:     trip.DepartureAt,
		ArrivalAt:       trip.ArrivalAt,
		BaseFare:        route.BaseFare,
		TotalAmount:     roundMoney(route.BaseFare * float64(seatCount)),
		Currency:        route.Currency,
		SpecialRequests: req.SpecialRequests,
	}

	if err := s.bookingRepo.CreateWithSeats(booking); err != nil {
		if errs.Is(err, errs.KindConflict) {
			s.logger.WithFields(logrus.Fields{
				"trip_id": trip.ID,
				"user_id": identity.UserID,
				"seats":   errs.DetailsOf(err),
			}).Info("Booking rejected on seat conflict")
			return nil, err
		}
		return nil, errs.Internal("failed to create booking", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"booking_number": booking.BookingNumber,
		"trip_id":        trip.ID,
		"user_id":        identity.UserID,
		"seats":          seatCount,
		"total_amount":   booking.TotalAmount,
	}).Info("Booking created")

	s.emitter.Emit(events.BookingCreated, map[string]interface{}{
		"booking_id":     booking.ID,
		"booking_number": booking.BookingNumber,
		"trip_id":        trip.ID,
		"seats":          booking.Passengers.SeatNumbers(),
	})

	return booking, nil
}

// GetBooking retrieves a booking, enforcing ownership for non-admin callers
func (s *BookingService) GetBooking(identity models.Identity, bookingID string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, errs.Internal("failed to get booking", err)
	}
	if booking == nil {
		return nil, errs.NotFound("booking not found")
	}
	if !identity.CanActFor(booking.UserID) {
		return nil, errs.Forbidden("you do not have access to this booking")
	}
	return booking, nil
}

// ListBookings lists bookings. Non-admin callers only ever see their own.
func (s *BookingService) ListBookings(identity models.Identity, filter models.BookingFilter) ([]models.Booking, int, error) {
	if !identity.IsAdmin() {
		filter.UserID = identity.UserID
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)

	bookings, total, err := s.bookingRepo.List(filter)
	if err != nil {
		return nil, 0, errs.Internal("failed to list bookings", err)
	}
	return bookings, total, nil
}

// ListUpcoming lists the caller's not-yet-departed pending and confirmed
// bookings, soonest first
func (s *BookingService) ListUpcoming(identity models.Identity) ([]models.Booking, error) {
	bookings, err := s.bookingRepo.ListUpcoming(identity.UserID, time.Now())
	if err != nil {
		return nil, errs.Internal("failed to list upcoming bookings", err)
	}
	return bookings, nil
}

// UpdateBooking edits the mutable journey fields and passenger contact details
// of a pending or confirmed booking. Seat assignments never change through
// this path.
func (s *BookingService) UpdateBooking(identity models.Identity, bookingID string, cmd *models.UpdateBookingCommand) (*models.Booking, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	booking, err := s.GetBooking(identity, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.CanBeUpdated() {
		return nil, errs.InvalidState("booking can no longer be updated")
	}

	if len(cmd.Passengers) > 0 {
		if err := booking.ApplyPassengerUpdates(cmd.Passengers); err != nil {
			return nil, err
		}
	}

	err = s.bookingRepo.Update(booking, cmd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.InvalidState("booking can no longer be updated")
	}
	if err != nil {
		return nil, errs.Internal("failed to update booking", err)
	}

	return s.GetBooking(identity, bookingID)
}

// CancelBooking cancels a booking, assesses the cancellation fee against the
// departure lead time, and releases the held seats.
func (s *BookingService) CancelBooking(identity models.Identity, bookingID string, req *models.CancelBookingRequest) (*models.CancellationResult, error) {
	booking, err := s.GetBooking(identity, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.CanBeCancelled() {
		return nil, errs.InvalidState("booking cannot be cancelled from status " + string(booking.Status))
	}

	cancelledBy := models.CancelledByUser
	if identity.IsAdmin() && identity.UserID != booking.UserID {
		cancelledBy = models.CancelledByAdmin
	}

	result := s.policy.Assess(booking.TotalAmount, booking.DepartureAt, time.Now())
	if err := booking.Cancel(req.Reason, cancelledBy, result.CancellationFee, result.RefundAmount); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.CancelWithSeats(booking); err != nil {
		if errs.Is(err, errs.KindInvalidState) {
			return nil, err
		}
		return nil, errs.Internal("failed to cancel booking", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":       booking.ID,
		"cancelled_by":     cancelledBy,
		"cancellation_fee": result.CancellationFee,
		"refund_amount":    result.RefundAmount,
	}).Info("Booking cancelled")

	s.emitter.Emit(events.BookingCancelled, map[string]interface{}{
		"booking_id":    booking.ID,
		"trip_id":       booking.TripID,
		"seats":         booking.Passengers.SeatNumbers(),
		"refund_amount": result.RefundAmount,
	})

	return &result, nil
}

// CompleteBooking marks a confirmed booking completed after travel. Only
// admins and drivers may complete bookings.
func (s *BookingService) CompleteBooking(identity models.Identity, bookingID string) (*models.Booking, error) {
	if !identity.IsAdmin() && !identity.IsDriver() {
		return nil, errs.Forbidden("only admins and drivers can complete bookings")
	}

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, errs.Internal("failed to complete booking", err)
	}
	if booking == nil {
		return nil, errs.NotFound("booking not found")
	}

	if err := booking.Complete(); err != nil {
		return nil, err
	}

	err = s.bookingRepo.SetStatus(bookingID, models.BookingStatusConfirmed, models.BookingStatusCompleted, booking.PaymentStatus)
	if err != nil {
		if errs.Is(err, errs.KindInvalidState) {
			return nil, err
		}
		return nil, errs.Internal("failed to complete booking", err)
	}

	s.logger.WithField("booking_id", bookingID).Info("Booking completed")
	return booking, nil
}

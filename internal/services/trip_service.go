package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/transitworks/bus-booking-backend/internal/database"
	"github.com/transitworks/bus-booking-backend/internal/errs"
	"github.com/transitworks/bus-booking-backend/internal/events"
	"github.com/transitworks/bus-booking-backend/internal/models"
	"github.com/transitworks/bus-booking-backend/pkg/reference"
)

// seatsPerRow is the layout used when seeding seat maps: two window seats and
// two aisle seats per row, numbered 1A..ND.
const seatsPerRow = 4

// tripTransitions enumerates the allowed trip status transitions
var tripTransitions = map[models.TripStatus][]models.TripStatus{
	models.TripStatusScheduled: {models.TripStatusBoarding, models.TripStatusDelayed, models.TripStatusCancelled},
	models.TripStatusBoarding:  {models.TripStatusDeparted, models.TripStatusDelayed, models.TripStatusCancelled},
	models.TripStatusDelayed:   {models.TripStatusBoarding, models.TripStatusDeparted, models.TripStatusCancelled},
	models.TripStatusDeparted:  {models.TripStatusInTransit, models.TripStatusArrived},
	models.TripStatusInTransit: {models.TripStatusArrived},
}

// TripService handles trip scheduling and lifecycle
type TripService struct {
	tripRepo  *database.TripRepository
	routeRepo *database.RouteRepository
	busRepo   *database.BusRepository
	emitter   events.Emitter
	logger    *logrus.Logger
}

// NewTripService creates a new TripService
func NewTripService(
	tripRepo *database.TripRepository,
	routeRepo *database.RouteRepository,
	busRepo *database.BusRepository,
	emitter events.Emitter,
	logger *logrus.Logger,
) *TripService {
	return &TripService{
		tripRepo:  tripRepo,
		routeRepo: routeRepo,
		busRepo:   busRepo,
		emitter:   emitter,
		logger:    logger,
	}
}

// ScheduleTrip creates a trip on a route with a bus, seeding the seat map
// from the bus capacity. The arrival time is derived from the route duration.
func (s *TripService) ScheduleTrip(req *models.CreateTripRequest) (*models.Trip, error) {
	route, err := s.routeRepo.GetByID(req.RouteID)
	if err != nil {
		return nil, errs.Internal("failed to schedule trip", err)
	}
	if route == nil {
		return nil, errs.NotFound("route not found")
	}
	if !route.IsBookable() {
		return nil, errs.InvalidState("route is not active")
	}

	bus, err := s.busRepo.GetByID(req.BusID)
	if err != nil {
		return nil, errs.Internal("failed to schedule trip", err)
	}
	if bus == nil {
		return nil, errs.NotFound("bus not found")
	}
	if !bus.IsBookable() {
		return nil, errs.InvalidState("bus is not in service")
	}

	if !req.DepartureAt.After(time.Now()) {
		return nil, errs.Validation("departure time must be in the future")
	}

	tripNumber, err := reference.New("TRP")
	if err != nil {
		return nil, errs.Internal("failed to schedule trip", err)
	}

	trip := &models.Trip{
		TripNumber:  tripNumber,
		RouteID:     route.ID,
		BusID:       bus.ID,
		DriverID:    req.DriverID,
		DepartureAt: req.DepartureAt,
		ArrivalAt:   req.DepartureAt.Add(route.EstimatedDuration()),
	}

	if err := s.tripRepo.CreateWithSeatMap(trip, buildSeatMap(bus.TotalSeats)); err != nil {
		return nil, errs.Internal("failed to schedule trip", err)
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":     trip.ID,
		"trip_number": trip.TripNumber,
		"route_id":    route.ID,
		"bus_id":      bus.ID,
		"seats":       trip.TotalSeats,
	}).Info("Trip scheduled")

	return trip, nil
}

// GetTrip retrieves a trip together with its seat map
func (s *TripService) GetTrip(tripID string) (*models.TripWithSeatMap, error) {
	trip, err := s.tripRepo.GetByID(tripID)
	if err != nil {
		return nil, errs.Internal("failed to get trip", err)
	}
	if trip == nil {
		return nil, errs.NotFound("trip not found")
	}

	seats, err := s.tripRepo.GetSeatMap(tripID)
	if err != nil {
		return nil, errs.Internal("failed to get trip", err)
	}

	return &models.TripWithSeatMap{Trip: *trip, SeatMap: seats}, nil
}

// ListTrips lists trips matching the filter
func (s *TripService) ListTrips(filter models.TripFilter) ([]models.Trip, int, error) {
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	trips, total, err := s.tripRepo.List(filter)
	if err != nil {
		return nil, 0, errs.Internal("failed to list trips", err)
	}
	return trips, total, nil
}

// UpdateTripStatus transitions a trip through its lifecycle
func (s *TripService) UpdateTripStatus(tripID string, req *models.UpdateTripStatusRequest) (*models.Trip, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	trip, err := s.tripRepo.GetByID(tripID)
	if err != nil {
		return nil, errs.Internal("failed to update trip status", err)
	}
	if trip == nil {
		return nil, errs.NotFound("trip not found")
	}

	if !transitionAllowed(trip.Status, req.Status) {
		return nil, errs.InvalidState(fmt.Sprintf(
			"trip cannot move from %s to %s", trip.Status, req.Status))
	}

	err = s.tripRepo.UpdateStatus(tripID, req.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("trip not found")
	}
	if err != nil {
		return nil, errs.Internal("failed to update trip status", err)
	}

	s.emitter.Emit(events.TripStatusChanged, map[string]interface{}{
		"trip_id": tripID,
		"from":    trip.Status,
		"to":      req.Status,
	})

	trip.Status = req.Status
	return trip, nil
}

func transitionAllowed(from, to models.TripStatus) bool {
	for _, allowed := range tripTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// buildSeatMap lays out totalSeats in rows of four. The first row is typed
// front, the last row back, and the rest window or aisle by column.
func buildSeatMap(totalSeats int) []models.TripSeat {
	columns := []string{"A", "B", "C", "D"}
	lastRow := (totalSeats + seatsPerRow - 1) / seatsPerRow

	seats := make([]models.TripSeat, 0, totalSeats)
	for i := 0; i < totalSeats; i++ {
		row := i/seatsPerRow + 1
		col := columns[i%seatsPerRow]

		var seatType models.SeatType
		switch {
		case row == 1:
			seatType = models.SeatTypeFront
		case row == lastRow:
			seatType = models.SeatTypeBack
		case col == "A" || col == "D":
			seatType = models.SeatTypeWindow
		default:
			seatType = models.SeatTypeAisle
		}

		seats = append(seats, models.TripSeat{
			SeatNumber: fmt.Sprintf("%d%s", row, col),
			SeatType:   seatType,
		})
	}

	return seats
}

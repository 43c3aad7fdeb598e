package services

import (
	"database/sql"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/transitworks/bus-booking-backend/internal/database"
	"github.com/transitworks/bus-booking-backend/internal/errs"
	"github.com/transitworks/bus-booking-backend/internal/events"
	"github.com/transitworks/bus-booking-backend/internal/models"
)

// BusService handles fleet management
type BusService struct {
	busRepo *database.BusRepository
	emitter events.Emitter
	logger  *logrus.Logger
}

// NewBusService creates a new BusService
func NewBusService(busRepo *database.BusRepository, emitter events.Emitter, logger *logrus.Logger) *BusService {
	return &BusService{busRepo: busRepo, emitter: emitter, logger: logger}
}

// CreateBus registers a new bus with its seat counter at full capacity
func (s *BusService) CreateBus(req *models.CreateBusRequest) (*models.Bus, error) {
	bus := &models.Bus{
		BusNumber:  req.BusNumber,
		BusName:    req.BusName,
		BusType:    req.BusType,
		TotalSeats: req.TotalSeats,
	}

	if err := s.busRepo.Create(bus); err != nil {
		return nil, errs.Internal("failed to create bus", err)
	}

	s.logger.WithFields(logrus.Fields{
		"bus_id":     bus.ID,
		"bus_number": bus.BusNumber,
		"seats":      bus.TotalSeats,
	}).Info("Bus registered")

	return bus, nil
}

// GetBus retrieves a bus by ID
func (s *BusService) GetBus(busID string) (*models.Bus, error) {
	bus, err := s.busRepo.GetByID(busID)
	if err != nil {
		return nil, errs.Internal("failed to get bus", err)
	}
	if bus == nil {
		return nil, errs.NotFound("bus not found")
	}
	return bus, nil
}

// ListBuses lists buses with an optional status filter
func (s *BusService) ListBuses(status models.BusStatus, page, pageSize int) ([]models.Bus, int, error) {
	page, pageSize = normalizePage(page, pageSize)
	buses, total, err := s.busRepo.List(status, page, pageSize)
	if err != nil {
		return nil, 0, errs.Internal("failed to list buses", err)
	}
	return buses, total, nil
}

// UpdateBus applies an update command to a bus
func (s *BusService) UpdateBus(busID string, cmd *models.UpdateBusCommand) (*models.Bus, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	err := s.busRepo.Update(busID, cmd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("bus not found")
	}
	if err != nil {
		return nil, errs.Internal("failed to update bus", err)
	}

	return s.GetBus(busID)
}

// UpdateLocation records a driver's location report and publishes it for live
// tracking consumers
func (s *BusService) UpdateLocation(busID string, req *models.UpdateLocationRequest) error {
	err := s.busRepo.UpdateLocation(busID, req.Latitude, req.Longitude, req.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return errs.NotFound("bus not found")
	}
	if err != nil {
		return errs.Internal("failed to update bus location", err)
	}

	s.emitter.Emit(events.BusLocationChanged, map[string]interface{}{
		"bus_id":    busID,
		"latitude":  req.Latitude,
		"longitude": req.Longitude,
		"address":   req.Address,
	})

	return nil
}

// AdjustSeats applies an admin correction to the fleet-level seat counter.
// Deltas that would push the counter outside [0, total_seats] are rejected.
func (s *BusService) AdjustSeats(busID string, delta int) (*models.Bus, error) {
	if delta == 0 {
		return s.GetBus(busID)
	}

	if err := s.busRepo.UpdateAvailableSeats(busID, delta); err != nil {
		if errs.Is(err, errs.KindInvalidState) {
			// Distinguish a missing bus from an out-of-range delta
			bus, gerr := s.busRepo.GetByID(busID)
			if gerr == nil && bus == nil {
				return nil, errs.NotFound("bus not found")
			}
			return nil, err
		}
		return nil, errs.Internal("failed to adjust seats", err)
	}

	return s.GetBus(busID)
}

package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transitworks/bus-booking-backend/internal/errs"
	"github.com/transitworks/bus-booking-backend/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func testBooking() *models.Booking {
	return &models.Booking{
		BookingNumber: "BK-20260310-A1B2C3",
		UserID:        "user-1",
		RouteID:       "route-1",
		BusID:         "bus-1",
		TripID:        "trip-1",
		Passengers: models.PassengerList{
			{FirstName: "Amal", LastName: "Perera", Age: 30, SeatNumber: "1A"},
			{FirstName: "Nimal", LastName: "Silva", Age: 28, SeatNumber: "1B"},
		},
		PickupPoint: models.TravelPoint{City: "Colombo"},
		DropPoint:   models.TravelPoint{City: "Kandy"},
		DepartureAt: time.Now().Add(48 * time.Hour),
		ArrivalAt:   time.Now().Add(51 * time.Hour),
		BaseFare:    50,
		TotalAmount: 100,
		Currency:    "USD",
	}
}

func TestCreateWithSeats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	booking := testBooking()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	// One compare-and-set claim per passenger seat
	mock.ExpectExec("UPDATE trip_seats").
		WithArgs("trip-1", "1A", sqlmock.AnyArg(), "Amal Perera").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE trip_seats").
		WithArgs("trip-1", "1B", sqlmock.AnyArg(), "Nimal Silva").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Counters move inside the same transaction
	mock.ExpectExec("UPDATE trips").
		WithArgs("trip-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE buses").
		WithArgs("bus-1", -2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CreateWithSeats(booking)
	require.NoError(t, err)
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithSeats_SeatConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	booking := testBooking()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	// First claim loses the race: zero rows affected
	mock.ExpectExec("UPDATE trip_seats").
		WithArgs("trip-1", "1A", sqlmock.AnyArg(), "Amal Perera").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	// Post-rollback conflict check: only 1B is still free
	mock.ExpectQuery("SELECT seat_number FROM trip_seats").
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow("1B"))

	err := repo.CreateWithSeats(booking)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindConflict))
	assert.Equal(t, []string{"1A"}, errs.DetailsOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithSeats_CounterGuardFails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	booking := testBooking()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec("UPDATE trip_seats").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE trip_seats").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE trips").WillReturnResult(sqlmock.NewResult(0, 1))

	// Bus counter would go out of range: everything rolls back
	mock.ExpectExec("UPDATE buses").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CreateWithSeats(booking)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidState))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelWithSeats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	booking := testBooking()
	booking.ID = "booking-1"
	booking.Status = models.BookingStatusConfirmed
	require.NoError(t, booking.Cancel("change of plans", models.CancelledByUser, 25, 75))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE trip_seats").
		WithArgs("booking-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE trips").
		WithArgs("trip-1", -2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE buses").
		WithArgs("bus-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CancelWithSeats(booking)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingUpdate_RewritesPassengerList(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	booking := testBooking()
	booking.ID = "booking-1"
	name := "Kamal"
	cmd := &models.UpdateBookingCommand{
		Passengers: []models.PassengerUpdate{{SeatNumber: "1A", FirstName: &name}},
	}
	require.NoError(t, booking.ApplyPassengerUpdates(cmd.Passengers))

	mock.ExpectExec("UPDATE bookings").
		WithArgs("booking-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(booking, cmd)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelWithSeats_AlreadyTerminal(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	booking := testBooking()
	booking.ID = "booking-1"
	booking.Status = models.BookingStatusConfirmed
	require.NoError(t, booking.Cancel("too late", models.CancelledByUser, 100, 0))

	// Guarded update misses: the booking moved to a terminal status first
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CancelWithSeats(booking)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidState))
	assert.NoError(t, mock.ExpectationsWereMet())
}

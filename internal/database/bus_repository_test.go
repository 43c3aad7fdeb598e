package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transitworks/bus-booking-backend/internal/errs"
	"github.com/transitworks/bus-booking-backend/internal/models"
)

func TestBusCreate_SeedsAvailableSeats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBusRepository(db)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO buses").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	bus := &models.Bus{BusNumber: "NB-1234", BusName: "Express One", TotalSeats: 40}
	err := repo.Create(bus)
	require.NoError(t, err)

	assert.NotEmpty(t, bus.ID)
	assert.Equal(t, 40, bus.AvailableSeats)
	assert.Equal(t, models.BusStatusActive, bus.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAvailableSeats_RejectsOutOfRange(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBusRepository(db)

	// The guarded update matches no rows when the delta would leave the
	// counter outside [0, total_seats]
	mock.ExpectExec("UPDATE buses").
		WithArgs("bus-1", -5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateAvailableSeats("bus-1", -5)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidState))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAvailableSeats_AppliesDelta(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBusRepository(db)

	mock.ExpectExec("UPDATE buses").
		WithArgs("bus-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateAvailableSeats("bus-1", 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBusUpdate_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBusRepository(db)

	mock.ExpectExec("UPDATE buses").WillReturnResult(sqlmock.NewResult(0, 0))

	name := "Renamed"
	err := repo.Update("missing", &models.UpdateBusCommand{BusName: &name})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

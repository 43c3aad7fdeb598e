package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transitworks/bus-booking-backend/internal/errs"
)

func TestBookingConfirm(t *testing.T) {
	booking := &Booking{Status: BookingStatusPending}

	err := booking.Confirm()
	require.NoError(t, err)
	assert.Equal(t, BookingStatusConfirmed, booking.Status)

	// Confirming again is a state violation
	err = booking.Confirm()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidState))
}

func TestBookingConfirm_FromCancelled(t *testing.T) {
	booking := &Booking{Status: BookingStatusCancelled}

	err := booking.Confirm()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidState))
	assert.Equal(t, BookingStatusCancelled, booking.Status)
}

func TestBookingCancel(t *testing.T) {
	booking := &Booking{Status: BookingStatusConfirmed, TotalAmount: 100}

	err := booking.Cancel("change of plans", CancelledByUser, 25, 75)
	require.NoError(t, err)

	assert.Equal(t, BookingStatusCancelled, booking.Status)
	require.NotNil(t, booking.CancellationReason)
	assert.Equal(t, "change of plans", *booking.CancellationReason)
	require.NotNil(t, booking.CancelledBy)
	assert.Equal(t, CancelledByUser, *booking.CancelledBy)
	require.NotNil(t, booking.CancellationFee)
	assert.Equal(t, 25.0, *booking.CancellationFee)
	require.NotNil(t, booking.RefundAmount)
	assert.Equal(t, 75.0, *booking.RefundAmount)
	assert.NotNil(t, booking.CancelledAt)
}

func TestBookingCancel_Terminal(t *testing.T) {
	for _, status := range []BookingStatus{BookingStatusCompleted, BookingStatusCancelled} {
		booking := &Booking{Status: status}
		err := booking.Cancel("too late", CancelledByUser, 0, 0)
		require.Error(t, err, string(status))
		assert.True(t, errs.Is(err, errs.KindInvalidState))
	}
}

func TestBookingComplete(t *testing.T) {
	booking := &Booking{Status: BookingStatusConfirmed}
	require.NoError(t, booking.Complete())
	assert.Equal(t, BookingStatusCompleted, booking.Status)

	// Pending bookings cannot skip straight to completed
	pending := &Booking{Status: BookingStatusPending}
	err := pending.Complete()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidState))
}

func TestCreateBookingRequestValidate(t *testing.T) {
	valid := func() *CreateBookingRequest {
		return &CreateBookingRequest{
			RouteID: "r1", BusID: "b1", TripID: "t1",
			Passengers: []Passenger{
				{FirstName: "Amal", LastName: "Perera", Age: 30, SeatNumber: "1A"},
				{FirstName: "Nimal", LastName: "Silva", Age: 28, SeatNumber: "1B"},
			},
			PickupPoint: TravelPoint{City: "Colombo"},
			DropPoint:   TravelPoint{City: "Kandy"},
		}
	}

	require.NoError(t, valid().Validate())

	noPassengers := valid()
	noPassengers.Passengers = nil
	assert.Error(t, noPassengers.Validate())

	tooMany := valid()
	tooMany.Passengers = make([]Passenger, 11)
	for i := range tooMany.Passengers {
		tooMany.Passengers[i] = Passenger{FirstName: "A", LastName: "B", SeatNumber: string(rune('A' + i))}
	}
	assert.Error(t, tooMany.Validate())

	duplicateSeat := valid()
	duplicateSeat.Passengers[1].SeatNumber = "1A"
	err := duplicateSeat.Validate()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))

	negativeAge := valid()
	negativeAge.Passengers[0].Age = -1
	assert.Error(t, negativeAge.Validate())

	badSeatType := valid()
	badSeatType.Passengers[0].SeatType = "middle"
	assert.Error(t, badSeatType.Validate())

	noPickup := valid()
	noPickup.PickupPoint.City = ""
	assert.Error(t, noPickup.Validate())
}

func TestPassengerListSeatNumbers(t *testing.T) {
	list := PassengerList{
		{SeatNumber: "2A"},
		{SeatNumber: "2B"},
	}
	assert.Equal(t, []string{"2A", "2B"}, list.SeatNumbers())
}

func TestApplyPassengerUpdates(t *testing.T) {
	booking := &Booking{
		Passengers: PassengerList{
			{FirstName: "Amal", LastName: "Perera", Age: 30, SeatNumber: "1A", SeatType: SeatTypeWindow},
			{FirstName: "Nimal", LastName: "Silva", Age: 28, SeatNumber: "1B", SeatType: SeatTypeAisle},
		},
	}

	name := "Kamal"
	age := 31
	err := booking.ApplyPassengerUpdates([]PassengerUpdate{
		{SeatNumber: "1A", FirstName: &name, Age: &age},
	})
	require.NoError(t, err)

	assert.Equal(t, "Kamal", booking.Passengers[0].FirstName)
	assert.Equal(t, "Perera", booking.Passengers[0].LastName)
	assert.Equal(t, 31, booking.Passengers[0].Age)

	// Seat assignments survive contact edits untouched
	assert.Equal(t, "1A", booking.Passengers[0].SeatNumber)
	assert.Equal(t, SeatTypeWindow, booking.Passengers[0].SeatType)
	assert.Equal(t, "Nimal", booking.Passengers[1].FirstName)
}

func TestApplyPassengerUpdates_UnknownSeat(t *testing.T) {
	booking := &Booking{
		Passengers: PassengerList{
			{FirstName: "Amal", LastName: "Perera", SeatNumber: "1A"},
		},
	}

	name := "Kamal"
	err := booking.ApplyPassengerUpdates([]PassengerUpdate{
		{SeatNumber: "9Z", FirstName: &name},
	})

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNotFound))
	assert.Equal(t, "Amal", booking.Passengers[0].FirstName)
}

func TestUpdateBookingCommandValidate(t *testing.T) {
	name := "Kamal"
	empty := ""
	negative := -1

	valid := &UpdateBookingCommand{
		Passengers: []PassengerUpdate{{SeatNumber: "1A", FirstName: &name}},
	}
	assert.NoError(t, valid.Validate())

	noSeat := &UpdateBookingCommand{
		Passengers: []PassengerUpdate{{FirstName: &name}},
	}
	assert.Error(t, noSeat.Validate())

	duplicate := &UpdateBookingCommand{
		Passengers: []PassengerUpdate{{SeatNumber: "1A"}, {SeatNumber: "1A"}},
	}
	assert.Error(t, duplicate.Validate())

	emptyName := &UpdateBookingCommand{
		Passengers: []PassengerUpdate{{SeatNumber: "1A", LastName: &empty}},
	}
	assert.Error(t, emptyName.Validate())

	negativeAge := &UpdateBookingCommand{
		Passengers: []PassengerUpdate{{SeatNumber: "1A", Age: &negative}},
	}
	assert.Error(t, negativeAge.Validate())
}

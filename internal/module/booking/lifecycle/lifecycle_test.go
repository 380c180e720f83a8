package lifecycle_test

import (
	stderrors "errors"
	"testing"
	"time"

	"bed-booking-service/internal/module/booking/lifecycle"
	"bed-booking-service/internal/module/booking/models/entity"
	"bed-booking-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now     = time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)
	actors  = []lifecycle.Actor{lifecycle.ActorPilgrim, lifecycle.ActorStaff, lifecycle.ActorPayment, lifecycle.ActorSweeper}
	checkIn = time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
)

func booking(status entity.BookingStatus) entity.Booking {
	return entity.Booking{
		ID:                   7,
		ReferenceNumber:      "ALB-20240801-ABC123",
		Status:               status,
		Version:              3,
		CheckInDate:          checkIn,
		CheckOutDate:         checkIn.AddDate(0, 0, 2),
		ReservationExpiresAt: now.Add(-time.Second),
		PaymentDeadline:      now.Add(-time.Second),
	}
}

func TestHappyPath(t *testing.T) {
	b := booking(entity.StatusReserved)

	steps := []struct {
		to    entity.BookingStatus
		actor lifecycle.Actor
		at    time.Time
	}{
		{to: entity.StatusAwaitingPayment, actor: lifecycle.ActorPilgrim, at: now},
		{to: entity.StatusConfirmed, actor: lifecycle.ActorPayment, at: now},
		{to: entity.StatusCheckedIn, actor: lifecycle.ActorStaff, at: now},
		{to: entity.StatusCheckedOut, actor: lifecycle.ActorStaff, at: now.AddDate(0, 0, 2)},
	}

	version := b.Version
	for _, step := range steps {
		next, event, err := lifecycle.Apply(b, lifecycle.Transition{To: step.to, Actor: step.actor, At: step.at})
		require.NoError(t, err, "transition to %s", step.to)
		assert.Equal(t, step.to, next.Status)
		assert.Equal(t, version+1, next.Version)
		assert.Equal(t, b.Status, event.FromStatus)
		assert.Equal(t, step.to, event.ToStatus)
		assert.Equal(t, next.Version, event.Version)
		version = next.Version
		b = next
	}

	assert.True(t, b.CheckedInAt.Valid)
	assert.True(t, b.CheckedOutAt.Valid)
}

func TestIllegalTransitionDoesNotMutate(t *testing.T) {
	b := booking(entity.StatusCheckedOut)
	before := b

	next, _, err := lifecycle.Apply(b, lifecycle.Transition{To: entity.StatusConfirmed, Actor: lifecycle.ActorPayment, At: now})

	assert.True(t, stderrors.Is(err, errors.ErrInvalidTransition))
	assert.Equal(t, entity.Booking{}, next)
	assert.Equal(t, before, b)
}

func TestOnlySweeperExpires(t *testing.T) {
	for _, actor := range actors {
		_, _, err := lifecycle.Apply(booking(entity.StatusReserved), lifecycle.Transition{To: entity.StatusExpired, Actor: actor, At: now})
		if actor == lifecycle.ActorSweeper {
			assert.NoError(t, err)
			continue
		}
		assert.Error(t, err, "actor %s must not expire bookings", actor)
	}
}

func TestExpireRequiresDeadline(t *testing.T) {
	b := booking(entity.StatusReserved)
	b.ReservationExpiresAt = now.Add(time.Minute)

	_, _, err := lifecycle.Apply(b, lifecycle.Transition{To: entity.StatusExpired, Actor: lifecycle.ActorSweeper, At: now})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidTransition))

	b = booking(entity.StatusAwaitingPayment)
	b.ReservationExpiresAt = now.Add(-time.Hour)
	b.PaymentDeadline = now.Add(time.Hour)
	_, _, err = lifecycle.Apply(b, lifecycle.Transition{To: entity.StatusExpired, Actor: lifecycle.ActorSweeper, At: now})
	assert.Error(t, err, "awaiting_payment follows the payment deadline")
}

func TestConfirmedBookingsDoNotExpire(t *testing.T) {
	assert.True(t, lifecycle.CanTransition(entity.StatusConfirmed, entity.StatusExpired, lifecycle.ActorSweeper))
	assert.False(t, lifecycle.CanTransition(entity.StatusConfirmed, entity.StatusExpired, lifecycle.ActorStaff))

	b := booking(entity.StatusConfirmed)
	_, _, err := lifecycle.Apply(b, lifecycle.Transition{To: entity.StatusExpired, Actor: lifecycle.ActorSweeper, At: now.AddDate(0, 1, 0)})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidTransition))
	assert.False(t, lifecycle.Expirable(b, now.AddDate(0, 1, 0)))
}

func TestExpireMarksCleanup(t *testing.T) {
	next, _, err := lifecycle.Apply(booking(entity.StatusAwaitingPayment), lifecycle.Transition{To: entity.StatusExpired, Actor: lifecycle.ActorSweeper, At: now})
	require.NoError(t, err)
	assert.True(t, next.AutoCleanupProcessed)
}

func TestNoShowOnlyAfterCheckInDate(t *testing.T) {
	b := booking(entity.StatusConfirmed)

	_, _, err := lifecycle.Apply(b, lifecycle.Transition{To: entity.StatusNoShow, Actor: lifecycle.ActorStaff, At: now})
	assert.Error(t, err)

	next, _, err := lifecycle.Apply(b, lifecycle.Transition{To: entity.StatusNoShow, Actor: lifecycle.ActorStaff, At: now.AddDate(0, 0, 1)})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNoShow, next.Status)

	_, _, err = lifecycle.Apply(booking(entity.StatusCheckedIn), lifecycle.Transition{To: entity.StatusNoShow, Actor: lifecycle.ActorStaff, At: now.AddDate(0, 0, 1)})
	assert.Error(t, err, "no_show is only reachable from confirmed")
}

func TestCheckInWindow(t *testing.T) {
	b := booking(entity.StatusConfirmed)

	_, _, err := lifecycle.Apply(b, lifecycle.Transition{To: entity.StatusCheckedIn, Actor: lifecycle.ActorStaff, At: now.AddDate(0, 0, -1)})
	assert.Error(t, err, "too early")

	_, _, err = lifecycle.Apply(b, lifecycle.Transition{To: entity.StatusCheckedIn, Actor: lifecycle.ActorStaff, At: now.AddDate(0, 0, 2)})
	assert.Error(t, err, "on check-out day")
}

func TestCancelKeepsReason(t *testing.T) {
	next, _, err := lifecycle.Apply(booking(entity.StatusConfirmed), lifecycle.Transition{To: entity.StatusCancelled, Actor: lifecycle.ActorPilgrim, At: now, Reason: "blisters"})
	require.NoError(t, err)
	assert.Equal(t, "blisters", next.CancellationReason)
}

// Terminal states admit no transition for any actor at any time.
func TestTerminalStatesAreFinal(t *testing.T) {
	later := now.AddDate(0, 1, 0)
	for _, from := range entity.AllStatuses {
		if !from.Terminal() {
			continue
		}
		for _, to := range entity.AllStatuses {
			for _, actor := range actors {
				assert.False(t, lifecycle.CanTransition(from, to, actor), "%s -> %s by %s", from, to, actor)
				_, _, err := lifecycle.Apply(booking(from), lifecycle.Transition{To: to, Actor: actor, At: later})
				assert.Error(t, err)
			}
		}
	}
}

func TestNothingLeadsBackToReserved(t *testing.T) {
	for _, from := range entity.AllStatuses {
		for _, actor := range actors {
			assert.False(t, lifecycle.CanTransition(from, entity.StatusReserved, actor))
		}
	}
}

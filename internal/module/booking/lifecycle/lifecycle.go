// Package lifecycle holds the booking state machine. It is pure: callers persist the
// returned booking with a version-guarded write.
package lifecycle

import (
	"database/sql"
	"fmt"
	"time"

	"bed-booking-service/internal/module/booking/models/entity"
	"bed-booking-service/internal/pkg/errors"
	"bed-booking-service/internal/pkg/helpers"
)

type Actor string

const (
	ActorPilgrim Actor = "pilgrim"
	ActorStaff   Actor = "staff"
	ActorPayment Actor = "payment"
	ActorSweeper Actor = "sweeper"
)

type edge map[entity.BookingStatus][]Actor

// transitions lists every legal move and who may make it. Anything absent is rejected.
var transitions = map[entity.BookingStatus]edge{
	entity.StatusReserved: {
		entity.StatusAwaitingPayment: {ActorPilgrim, ActorPayment},
		entity.StatusConfirmed:       {ActorPayment},
		entity.StatusCancelled:       {ActorPilgrim, ActorStaff},
		entity.StatusExpired:         {ActorSweeper},
	},
	entity.StatusAwaitingPayment: {
		entity.StatusConfirmed: {ActorPayment},
		entity.StatusCancelled: {ActorPilgrim, ActorStaff},
		entity.StatusExpired:   {ActorSweeper},
	},
	entity.StatusConfirmed: {
		entity.StatusCheckedIn: {ActorStaff},
		entity.StatusCancelled: {ActorPilgrim, ActorStaff},
		entity.StatusExpired:   {ActorSweeper},
		entity.StatusNoShow:    {ActorStaff, ActorSweeper},
	},
	entity.StatusCheckedIn: {
		entity.StatusCheckedOut: {ActorStaff},
	},
}

type Transition struct {
	To     entity.BookingStatus
	Actor  Actor
	At     time.Time
	Reason string
}

func CanTransition(from, to entity.BookingStatus, actor Actor) bool {
	actors, ok := transitions[from][to]
	if !ok {
		return false
	}
	for _, a := range actors {
		if a == actor {
			return true
		}
	}
	return false
}

// Apply returns the booking after the transition and the event describing it.
// On error the input is untouched and the zero booking is returned.
func Apply(b entity.Booking, t Transition) (entity.Booking, entity.Event, error) {
	if !CanTransition(b.Status, t.To, t.Actor) {
		return entity.Booking{}, entity.Event{}, errors.InvalidTransition(
			fmt.Sprintf("booking %d: %s -> %s not allowed for %s", b.ID, b.Status, t.To, t.Actor))
	}

	if err := checkTiming(b, t); err != nil {
		return entity.Booking{}, entity.Event{}, err
	}

	next := b
	next.Status = t.To
	next.Version = b.Version + 1
	next.UpdatedAt = sql.NullTime{Time: t.At, Valid: true}

	switch t.To {
	case entity.StatusCancelled:
		next.CancellationReason = t.Reason
	case entity.StatusExpired:
		next.AutoCleanupProcessed = true
	case entity.StatusCheckedIn:
		next.CheckedInAt = sql.NullTime{Time: t.At, Valid: true}
	case entity.StatusCheckedOut:
		next.CheckedOutAt = sql.NullTime{Time: t.At, Valid: true}
	}

	event := entity.Event{
		BookingID:       next.ID,
		ReferenceNumber: next.ReferenceNumber,
		BedID:           next.BedID.Int64,
		FromStatus:      b.Status,
		ToStatus:        next.Status,
		Version:         next.Version,
		OccurredAt:      t.At,
	}

	return next, event, nil
}

func checkTiming(b entity.Booking, t Transition) error {
	today := helpers.TruncateDay(t.At)

	switch t.To {
	case entity.StatusExpired:
		if !Expirable(b, t.At) {
			return errors.InvalidTransition(fmt.Sprintf("booking %d: deadline not reached", b.ID))
		}
	case entity.StatusNoShow:
		if !today.After(b.CheckInDate) {
			return errors.InvalidTransition(fmt.Sprintf("booking %d: check-in date has not passed", b.ID))
		}
	case entity.StatusCheckedIn:
		if today.Before(b.CheckInDate) || !today.Before(b.CheckOutDate) {
			return errors.InvalidTransition(fmt.Sprintf("booking %d: check-in only within %s", b.ID, b.Range()))
		}
	}
	return nil
}

// Expirable reports whether the deadline that applies to the current status has passed.
// A confirmed booking has met its deadlines; it lapses through no_show instead.
func Expirable(b entity.Booking, now time.Time) bool {
	switch b.Status {
	case entity.StatusReserved:
		return now.After(b.ReservationExpiresAt)
	case entity.StatusAwaitingPayment:
		return now.After(b.PaymentDeadline)
	}
	return false
}

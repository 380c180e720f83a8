package usecases

import (
	"context"
	"time"

	"bed-booking-service/config"
	"bed-booking-service/internal/module/booking/availability"
	"bed-booking-service/internal/module/booking/events"
	"bed-booking-service/internal/module/booking/lifecycle"
	"bed-booking-service/internal/module/booking/models/entity"
	"bed-booking-service/internal/module/booking/models/request"
	"bed-booking-service/internal/module/booking/models/response"
	"bed-booking-service/internal/module/booking/repositories"
	"bed-booking-service/internal/pkg/errors"
	"bed-booking-service/internal/pkg/log"
)

// ExpiryScheduler enqueues a delayed expiry check for a fresh reservation.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, bookingID int64, at time.Time) error
}

type usecase struct {
	repo      repositories.Repositories
	index     *availability.Index
	emitter   events.Emitter
	scheduler ExpiryScheduler
	cfg       *config.ReservationConfig
	log       log.Logger
	now       func() time.Time
}

type Usecase interface {
	// bookings
	Allocate(ctx context.Context, payload *request.Allocate) (entity.Booking, error)
	GetBooking(ctx context.Context, id int64) (entity.Booking, error)
	Cancel(ctx context.Context, id int64, reason string, actor lifecycle.Actor) (entity.Booking, error)
	InitiatePayment(ctx context.Context, id int64) (entity.Booking, error)
	RecordPayment(ctx context.Context, payload *request.Payment) (entity.Booking, error)
	CheckIn(ctx context.Context, id int64) (entity.Booking, error)
	CheckOut(ctx context.Context, id int64) (entity.Booking, error)
	MarkNoShow(ctx context.Context, id int64) (entity.Booking, error)
	Availability(ctx context.Context, payload *request.Availability) (response.Availability, error)
	// catalog
	RegisterBed(ctx context.Context, payload *request.RegisterBed) (entity.Bed, error)
	ListBeds(ctx context.Context, roomType string) ([]entity.Bed, error)
	SetBedStatus(ctx context.Context, id int64, payload *request.SetBedStatus) (entity.Bed, error)
}

type Option func(*usecase)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(u *usecase) {
		u.now = now
	}
}

func New(repo repositories.Repositories, index *availability.Index, emitter events.Emitter, scheduler ExpiryScheduler, cfg *config.ReservationConfig, log log.Logger, opts ...Option) Usecase {
	u := &usecase{
		repo:      repo,
		index:     index,
		emitter:   emitter,
		scheduler: scheduler,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *usecase) retryLimit() int {
	if u.cfg.AllocationRetryLimit > 0 {
		return u.cfg.AllocationRetryLimit
	}
	return 1
}

func (u *usecase) GetBooking(ctx context.Context, id int64) (entity.Booking, error) {
	return u.repo.FindBookingByID(ctx, id)
}

func (u *usecase) Cancel(ctx context.Context, id int64, reason string, actor lifecycle.Actor) (entity.Booking, error) {
	return u.transition(ctx, id, lifecycle.Transition{To: entity.StatusCancelled, Actor: actor, Reason: reason})
}

func (u *usecase) InitiatePayment(ctx context.Context, id int64) (entity.Booking, error) {
	return u.transition(ctx, id, lifecycle.Transition{To: entity.StatusAwaitingPayment, Actor: lifecycle.ActorPilgrim})
}

func (u *usecase) CheckIn(ctx context.Context, id int64) (entity.Booking, error) {
	return u.transition(ctx, id, lifecycle.Transition{To: entity.StatusCheckedIn, Actor: lifecycle.ActorStaff})
}

func (u *usecase) CheckOut(ctx context.Context, id int64) (entity.Booking, error) {
	return u.transition(ctx, id, lifecycle.Transition{To: entity.StatusCheckedOut, Actor: lifecycle.ActorStaff})
}

func (u *usecase) MarkNoShow(ctx context.Context, id int64) (entity.Booking, error) {
	return u.transition(ctx, id, lifecycle.Transition{To: entity.StatusNoShow, Actor: lifecycle.ActorStaff})
}

// transition re-reads and re-applies t while the guarded write loses to a concurrent
// writer, up to the retry limit.
func (u *usecase) transition(ctx context.Context, id int64, t lifecycle.Transition) (entity.Booking, error) {
	var lastErr error
	for attempt := 0; attempt < u.retryLimit(); attempt++ {
		current, err := u.repo.FindBookingByID(ctx, id)
		if err != nil {
			return entity.Booking{}, err
		}

		t.At = u.now()
		next, event, err := lifecycle.Apply(current, t)
		if err != nil {
			return entity.Booking{}, err
		}

		err = u.repo.UpdateBookingStatus(ctx, next, current.Version)
		if err == nil {
			u.afterTransition(ctx, next, event)
			return next, nil
		}
		if !errors.Is(err, errors.CodeVersionConflict) {
			return entity.Booking{}, err
		}
		lastErr = err
	}
	return entity.Booking{}, lastErr
}

func (u *usecase) afterTransition(ctx context.Context, b entity.Booking, event entity.Event) {
	if b.BedID.Valid {
		u.index.Invalidate(ctx, b.BedID.Int64)
	}
	u.emitter.BookingTransitioned(ctx, event)
}

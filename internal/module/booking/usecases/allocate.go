package usecases

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"bed-booking-service/internal/module/booking/models/entity"
	"bed-booking-service/internal/module/booking/models/request"
	"bed-booking-service/internal/module/booking/pricing"
	"bed-booking-service/internal/pkg/errors"
	"bed-booking-service/internal/pkg/helpers"

	"github.com/google/uuid"
	"go.elastic.co/apm"
)

type allocation struct {
	pilgrimID int64
	roomType  entity.RoomType
	stay      entity.DateRange
	partySize int
	key       string
	notes     string
	arrival   string
}

func (u *usecase) Allocate(ctx context.Context, payload *request.Allocate) (entity.Booking, error) {
	span, ctx := apm.StartSpan(ctx, "Allocate", "usecase")
	defer span.End()

	req, err := u.parseAllocation(payload)
	if err != nil {
		return entity.Booking{}, err
	}

	existing, err := u.repo.FindBookingByIdempotencyKey(ctx, req.key)
	if err == nil {
		return replay(existing, req)
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return entity.Booking{}, err
	}

	rates, err := u.repo.ListActiveRates(ctx)
	if err != nil {
		return entity.Booking{}, err
	}

	limit := u.retryLimit()
	candidates, err := u.index.FreeBeds(ctx, req.roomType, req.stay, req.partySize, limit)
	if err != nil {
		return entity.Booking{}, err
	}

	next, fresh := 0, false
	for attempt := 0; attempt < limit; attempt++ {
		if next == len(candidates) {
			if fresh {
				break
			}
			// the cache may still hold a booking that was released since; ask the store
			fresh = true
			candidates, err = u.index.FreshFreeBeds(ctx, req.roomType, req.stay, req.partySize, limit)
			if err != nil {
				return entity.Booking{}, err
			}
			next = 0
			if len(candidates) == 0 {
				break
			}
		}
		bed := candidates[next]

		quote, err := pricing.Price(bed, req.stay.Nights(), req.partySize, rates)
		if err != nil {
			u.log.Error(ctx, fmt.Sprintf("error pricing bed %d", bed.ID), err)
			return entity.Booking{}, errors.InternalServerError("error pricing stay")
		}

		booking := u.newBooking(req, bed, quote)
		err = u.insert(ctx, &booking)
		switch {
		case err == nil:
			u.afterAllocate(ctx, booking)
			return booking, nil
		case errors.Is(err, errors.CodeDuplicate):
			// either a concurrent twin with our key won, or the reference collided
			if twin, ferr := u.repo.FindBookingByIdempotencyKey(ctx, req.key); ferr == nil {
				return replay(twin, req)
			}
		case errors.Is(err, errors.CodeNoAvailability), errors.Is(err, errors.CodeVersionConflict):
			u.log.Info(ctx, fmt.Sprintf("bed %d lost for %s, trying next candidate", bed.ID, req.stay))
			u.index.Invalidate(ctx, bed.ID)
			next++
		default:
			return entity.Booking{}, err
		}
	}

	return entity.Booking{}, errors.NoAvailability(
		fmt.Sprintf("no %s bed free for %d persons in %s", req.roomType, req.partySize, req.stay))
}

func (u *usecase) insert(ctx context.Context, booking *entity.Booking) error {
	txCtx, cancel := context.WithTimeout(ctx, u.cfg.AllocationTxTimeout)
	defer cancel()
	return u.repo.InsertBookingIfFree(txCtx, booking)
}

func (u *usecase) parseAllocation(payload *request.Allocate) (allocation, error) {
	checkIn, err := helpers.ParseDate(payload.CheckInDate)
	if err != nil {
		return allocation{}, errors.ValidationError("check-in date must be YYYY-MM-DD")
	}
	checkOut, err := helpers.ParseDate(payload.CheckOutDate)
	if err != nil {
		return allocation{}, errors.ValidationError("check-out date must be YYYY-MM-DD")
	}
	stay := entity.DateRange{CheckIn: checkIn, CheckOut: checkOut}

	switch {
	case !stay.Valid():
		return allocation{}, errors.ValidationError("check-out must be after check-in")
	case checkIn.Before(helpers.TruncateDay(u.now())):
		return allocation{}, errors.ValidationError("check-in is in the past")
	case u.cfg.MaxNights > 0 && stay.Nights() > u.cfg.MaxNights:
		return allocation{}, errors.ValidationError(fmt.Sprintf("stays are limited to %d nights", u.cfg.MaxNights))
	case payload.PartySize <= 0:
		return allocation{}, errors.ValidationError("party size must be positive")
	case strings.TrimSpace(payload.IdempotencyKey) == "":
		return allocation{}, errors.ValidationError("idempotency key is required")
	case !entity.RoomType(payload.RoomType).Valid():
		return allocation{}, errors.ValidationError(fmt.Sprintf("unknown room type %q", payload.RoomType))
	}

	return allocation{
		pilgrimID: payload.PilgrimID,
		roomType:  entity.RoomType(payload.RoomType),
		stay:      stay,
		partySize: payload.PartySize,
		key:       strings.TrimSpace(payload.IdempotencyKey),
		notes:     payload.Notes,
		arrival:   payload.EstimatedArrivalTime,
	}, nil
}

// replay answers a repeated request with the booking it created. Reusing a key for a
// different stay is a client error.
func replay(existing entity.Booking, req allocation) (entity.Booking, error) {
	same := existing.PilgrimID == req.pilgrimID &&
		existing.RoomType == req.roomType &&
		existing.NumberOfPersons == req.partySize &&
		existing.CheckInDate.Equal(req.stay.CheckIn) &&
		existing.CheckOutDate.Equal(req.stay.CheckOut)
	if !same {
		return entity.Booking{}, errors.ValidationError("idempotency key already used for a different request")
	}
	return existing, nil
}

func (u *usecase) newBooking(req allocation, bed entity.Bed, quote pricing.Quote) entity.Booking {
	now := u.now()
	return entity.Booking{
		PilgrimID:            req.pilgrimID,
		ReferenceNumber:      referenceNumber(now),
		IdempotencyKey:       req.key,
		RoomType:             req.roomType,
		CheckInDate:          req.stay.CheckIn,
		CheckOutDate:         req.stay.CheckOut,
		NumberOfNights:       req.stay.Nights(),
		NumberOfPersons:      req.partySize,
		NumberOfRooms:        1,
		BedID:                sql.NullInt64{Int64: bed.ID, Valid: true},
		TotalAmount:          quote.Amount,
		Currency:             quote.Currency,
		Status:               entity.StatusReserved,
		Version:              1,
		ReservationExpiresAt: now.Add(u.cfg.IntakeWindow),
		PaymentDeadline:      now.Add(u.cfg.PaymentWindow),
		Notes:                req.notes,
		EstimatedArrivalTime: req.arrival,
	}
}

// referenceNumber renders ALB-YYYYMMDD-XXXXXX.
func referenceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("ALB-%s-%s", now.UTC().Format("20060102"), suffix)
}

func (u *usecase) afterAllocate(ctx context.Context, b entity.Booking) {
	u.index.Invalidate(ctx, b.BedID.Int64)
	u.emitter.BookingTransitioned(ctx, entity.Event{
		BookingID:       b.ID,
		ReferenceNumber: b.ReferenceNumber,
		BedID:           b.BedID.Int64,
		ToStatus:        b.Status,
		Version:         b.Version,
		OccurredAt:      u.now(),
	})

	if u.scheduler == nil {
		return
	}
	if err := u.scheduler.ScheduleExpiry(ctx, b.ID, b.ReservationExpiresAt); err != nil {
		u.log.Warn(ctx, fmt.Sprintf("error scheduling expiry of booking %d, sweeper will pick it up", b.ID), err)
	}
}

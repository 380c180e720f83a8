package handler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"bed-booking-service/internal/module/booking/lifecycle"
	"bed-booking-service/internal/module/booking/models/entity"
	"bed-booking-service/internal/module/booking/models/request"
	"bed-booking-service/internal/module/booking/models/response"
	"bed-booking-service/internal/module/booking/sweeper"
	"bed-booking-service/internal/module/booking/usecases"
	"bed-booking-service/internal/pkg/errors"
	"bed-booking-service/internal/pkg/helpers"
	"bed-booking-service/internal/pkg/middleware"
	"bed-booking-service/internal/pkg/scheduler"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

// Sweeper is the part of the expiry sweeper the transport layer drives.
type Sweeper interface {
	SweepOnce(ctx context.Context, now time.Time) sweeper.SweepReport
	ExpireBooking(ctx context.Context, bookingID int64, now time.Time) (bool, error)
}

type BookingHandler struct {
	Log       *otelzap.Logger
	Validator *validator.Validate
	Usecase   usecases.Usecase
	Sweeper   Sweeper
}

func (h *BookingHandler) Allocate(ctx *fiber.Ctx) error {
	var req request.Allocate
	if err := ctx.BodyParser(&req); err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error parse request: %v", err))
		return helpers.RespError(ctx, h.Log, errors.BadRequest("error parse request"))
	}

	if key := ctx.Get("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	// pilgrims book for themselves; staff may book on someone's behalf
	if role, _ := ctx.Locals("role").(string); role == middleware.RolePilgrim {
		req.PilgrimID, _ = ctx.Locals("user_id").(int64)
	}

	if err := h.Validator.Struct(req); err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error validate request: %v", err))
		return helpers.RespError(ctx, h.Log, errors.ValidationError(err.Error()))
	}

	booking, err := h.Usecase.Allocate(ctx.UserContext(), &req)
	if err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error allocate bed: %v", err))
		return helpers.RespError(ctx, h.Log, err)
	}

	return helpers.RespCreated(ctx, h.Log, response.NewBooking(booking), "bed reserved, complete payment before the reservation expires")
}

func (h *BookingHandler) GetBooking(ctx *fiber.Ctx) error {
	id, err := bookingID(ctx)
	if err != nil {
		return helpers.RespError(ctx, h.Log, err)
	}

	booking, err := h.authorize(ctx, id)
	if err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error get booking: %v", err))
		return helpers.RespError(ctx, h.Log, err)
	}

	return helpers.RespSuccess(ctx, h.Log, response.NewBooking(booking), "success get booking")
}

// authorize loads the booking and lets staff through; anyone else must own it.
// Bookings of other pilgrims are reported as missing.
func (h *BookingHandler) authorize(ctx *fiber.Ctx, id int64) (entity.Booking, error) {
	booking, err := h.Usecase.GetBooking(ctx.UserContext(), id)
	if err != nil {
		return entity.Booking{}, err
	}
	if role, _ := ctx.Locals("role").(string); role == middleware.RoleStaff {
		return booking, nil
	}
	userID, ok := ctx.Locals("user_id").(int64)
	if !ok || userID != booking.PilgrimID {
		return entity.Booking{}, errors.NotFound(fmt.Sprintf("booking %d not found", id))
	}
	return booking, nil
}

// Cancel serves both the pilgrim and the staff route.
func (h *BookingHandler) Cancel(ctx *fiber.Ctx) error {
	id, err := bookingID(ctx)
	if err != nil {
		return helpers.RespError(ctx, h.Log, err)
	}

	var req request.Cancel
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error parse request: %v", err))
			return helpers.RespError(ctx, h.Log, errors.BadRequest("error parse request"))
		}
	}
	if err := h.Validator.Struct(req); err != nil {
		return helpers.RespError(ctx, h.Log, errors.ValidationError(err.Error()))
	}

	actor := lifecycle.ActorPilgrim
	if role, _ := ctx.Locals("role").(string); role == middleware.RoleStaff {
		actor = lifecycle.ActorStaff
	}

	if _, err := h.authorize(ctx, id); err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error cancel booking: %v", err))
		return helpers.RespError(ctx, h.Log, err)
	}

	booking, err := h.Usecase.Cancel(ctx.UserContext(), id, req.Reason, actor)
	if err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error cancel booking: %v", err))
		return helpers.RespError(ctx, h.Log, err)
	}

	return helpers.RespSuccess(ctx, h.Log, response.NewBooking(booking), "booking cancelled")
}

func (h *BookingHandler) InitiatePayment(ctx *fiber.Ctx) error {
	id, err := bookingID(ctx)
	if err != nil {
		return helpers.RespError(ctx, h.Log, err)
	}
	if _, err := h.authorize(ctx, id); err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error initiate payment: %v", err))
		return helpers.RespError(ctx, h.Log, err)
	}
	return h.transition(ctx, h.Usecase.InitiatePayment, "awaiting payment")
}

func (h *BookingHandler) CheckIn(ctx *fiber.Ctx) error {
	return h.transition(ctx, h.Usecase.CheckIn, "checked in")
}

func (h *BookingHandler) CheckOut(ctx *fiber.Ctx) error {
	return h.transition(ctx, h.Usecase.CheckOut, "checked out")
}

func (h *BookingHandler) MarkNoShow(ctx *fiber.Ctx) error {
	return h.transition(ctx, h.Usecase.MarkNoShow, "marked as no-show")
}

func (h *BookingHandler) transition(ctx *fiber.Ctx, apply func(context.Context, int64) (entity.Booking, error), done string) error {
	id, err := bookingID(ctx)
	if err != nil {
		return helpers.RespError(ctx, h.Log, err)
	}

	booking, err := apply(ctx.UserContext(), id)
	if err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error transition booking %d: %v", id, err))
		return helpers.RespError(ctx, h.Log, err)
	}

	return helpers.RespSuccess(ctx, h.Log, response.NewBooking(booking), done)
}

func (h *BookingHandler) RecordPayment(ctx *fiber.Ctx) error {
	id, err := bookingID(ctx)
	if err != nil {
		return helpers.RespError(ctx, h.Log, err)
	}

	var req request.Payment
	if err := ctx.BodyParser(&req); err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error parse request: %v", err))
		return helpers.RespError(ctx, h.Log, errors.BadRequest("error parse request"))
	}
	req.BookingID = id

	if err := h.Validator.Struct(req); err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error validate request: %v", err))
		return helpers.RespError(ctx, h.Log, errors.ValidationError(err.Error()))
	}

	booking, err := h.Usecase.RecordPayment(ctx.UserContext(), &req)
	if err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error record payment: %v", err))
		return helpers.RespError(ctx, h.Log, err)
	}

	return helpers.RespSuccess(ctx, h.Log, response.NewBooking(booking), "payment recorded")
}

func (h *BookingHandler) Availability(ctx *fiber.Ctx) error {
	var req request.Availability
	if err := ctx.QueryParser(&req); err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error parse query: %v", err))
		return helpers.RespError(ctx, h.Log, errors.BadRequest("error parse query"))
	}

	if err := h.Validator.Struct(req); err != nil {
		return helpers.RespError(ctx, h.Log, errors.ValidationError(err.Error()))
	}

	resp, err := h.Usecase.Availability(ctx.UserContext(), &req)
	if err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error availability: %v", err))
		return helpers.RespError(ctx, h.Log, err)
	}

	return helpers.RespSuccess(ctx, h.Log, resp, "success get availability")
}

func (h *BookingHandler) RegisterBed(ctx *fiber.Ctx) error {
	var req request.RegisterBed
	if err := ctx.BodyParser(&req); err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error parse request: %v", err))
		return helpers.RespError(ctx, h.Log, errors.BadRequest("error parse request"))
	}

	if err := h.Validator.Struct(req); err != nil {
		return helpers.RespError(ctx, h.Log, errors.ValidationError(err.Error()))
	}

	bed, err := h.Usecase.RegisterBed(ctx.UserContext(), &req)
	if err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error register bed: %v", err))
		return helpers.RespError(ctx, h.Log, err)
	}

	return helpers.RespCreated(ctx, h.Log, response.NewBed(bed), "bed registered")
}

func (h *BookingHandler) ListBeds(ctx *fiber.Ctx) error {
	beds, err := h.Usecase.ListBeds(ctx.UserContext(), ctx.Query("room_type"))
	if err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error list beds: %v", err))
		return helpers.RespError(ctx, h.Log, err)
	}

	return helpers.RespSuccess(ctx, h.Log, response.NewBeds(beds), "success list beds")
}

func (h *BookingHandler) SetBedStatus(ctx *fiber.Ctx) error {
	id, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil {
		return helpers.RespError(ctx, h.Log, errors.BadRequest("invalid bed id"))
	}

	var req request.SetBedStatus
	if err := ctx.BodyParser(&req); err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error parse request: %v", err))
		return helpers.RespError(ctx, h.Log, errors.BadRequest("error parse request"))
	}

	if err := h.Validator.Struct(req); err != nil {
		return helpers.RespError(ctx, h.Log, errors.ValidationError(err.Error()))
	}

	bed, err := h.Usecase.SetBedStatus(ctx.UserContext(), id, &req)
	if err != nil {
		h.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error set bed status: %v", err))
		return helpers.RespError(ctx, h.Log, err)
	}

	return helpers.RespSuccess(ctx, h.Log, response.NewBed(bed), "bed status updated")
}

// Sweep runs one sweep cycle on demand.
func (h *BookingHandler) Sweep(ctx *fiber.Ctx) error {
	report := h.Sweeper.SweepOnce(ctx.UserContext(), time.Now())
	return helpers.RespSuccess(ctx, h.Log, report, "sweep done")
}

// ConsumePaymentCallback records a gateway outcome delivered over the message stream.
// Returning an error leaves the message to the retry and poison queue middleware.
func (h *BookingHandler) ConsumePaymentCallback(msg *message.Message) error {
	ctx := msg.Context()

	var req request.Payment
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		h.Log.Ctx(ctx).Error(fmt.Sprintf("error unmarshal payment callback: %v", err))
		return err
	}

	if err := h.Validator.Struct(req); err != nil {
		h.Log.Ctx(ctx).Error(fmt.Sprintf("error validate payment callback: %v", err))
		return err
	}

	_, err := h.Usecase.RecordPayment(ctx, &req)
	if errors.Is(err, errors.CodeInvalidTransition) {
		// stored with refund_required, nothing left to retry
		h.Log.Ctx(ctx).Warn(fmt.Sprintf("payment %s needs a refund: %v", req.TransactionID, err))
		return nil
	}
	if err != nil {
		h.Log.Ctx(ctx).Error(fmt.Sprintf("error record payment callback: %v", err))
		return err
	}

	return nil
}

// ExpireReservation is the delayed task enqueued at allocation time.
func (h *BookingHandler) ExpireReservation(ctx context.Context, t *asynq.Task) error {
	var req scheduler.ExpireReservationPayload
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		h.Log.Ctx(ctx).Error(fmt.Sprintf("error unmarshal payload: %v", err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := h.Validator.Struct(req); err != nil {
		h.Log.Ctx(ctx).Error(fmt.Sprintf("error validate payload: %v", err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	expired, err := h.Sweeper.ExpireBooking(ctx, req.BookingID, time.Now())
	if err != nil {
		h.Log.Ctx(ctx).Error(fmt.Sprintf("error expire booking %d: %v", req.BookingID, err))
		return err
	}
	if expired {
		h.Log.Ctx(ctx).Info(fmt.Sprintf("booking %d expired", req.BookingID))
	}

	return nil
}

func bookingID(ctx *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.BadRequest("invalid booking id")
	}
	return id, nil
}

package usecases

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bed-booking-service/internal/module/booking/lifecycle"
	"bed-booking-service/internal/module/booking/models/entity"
	"bed-booking-service/internal/module/booking/models/request"
	"bed-booking-service/internal/module/booking/pricing"
	"bed-booking-service/internal/pkg/errors"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// RecordPayment stores a gateway outcome and confirms the booking once the paid sum
// reaches the amount the deposit policy requires. Replays of a transaction id return
// the current booking without recording anything.
func (u *usecase) RecordPayment(ctx context.Context, payload *request.Payment) (entity.Booking, error) {
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil || !amount.IsPositive() {
		return entity.Booking{}, errors.ValidationError("amount must be a positive decimal")
	}
	if strings.TrimSpace(payload.TransactionID) == "" {
		return entity.Booking{}, errors.ValidationError("transaction id is required")
	}

	if existing, err := u.repo.FindPaymentByTransactionID(ctx, payload.TransactionID); err == nil {
		return u.replayPayment(ctx, existing, payload)
	} else if !errors.Is(err, errors.CodeNotFound) {
		return entity.Booking{}, err
	}

	var gateway *json.RawMessage
	if payload.GatewayResponse != nil {
		raw, err := json.Marshal(payload.GatewayResponse)
		if err != nil {
			return entity.Booking{}, errors.ValidationError("gateway response is not valid json")
		}
		msg := json.RawMessage(raw)
		gateway = &msg
	}

	var lastErr error
	for attempt := 0; attempt < u.retryLimit(); attempt++ {
		booking, err := u.repo.FindBookingByID(ctx, payload.BookingID)
		if err != nil {
			return entity.Booking{}, err
		}
		if !strings.EqualFold(booking.Currency, payload.Currency) {
			return entity.Booking{}, errors.ValidationError(
				fmt.Sprintf("payment currency %s does not match booking currency %s", payload.Currency, booking.Currency))
		}

		result, err := u.applyPayment(ctx, booking, amount, payload, gateway)
		switch {
		case err == nil:
			return result, nil
		case errors.Is(err, errors.CodeVersionConflict):
			lastErr = err
			continue
		case errors.Is(err, errors.CodeDuplicate):
			// a concurrent delivery of the same callback got in first
			existing, ferr := u.repo.FindPaymentByTransactionID(ctx, payload.TransactionID)
			if ferr != nil {
				return entity.Booking{}, ferr
			}
			return u.replayPayment(ctx, existing, payload)
		default:
			return entity.Booking{}, err
		}
	}
	return entity.Booking{}, lastErr
}

func (u *usecase) applyPayment(ctx context.Context, booking entity.Booking, amount decimal.Decimal, payload *request.Payment, gateway *json.RawMessage) (entity.Booking, error) {
	now := u.now()
	payment := entity.Payment{
		BookingID:       booking.ID,
		Amount:          amount,
		Currency:        booking.Currency,
		PaymentType:     paymentType(booking, amount),
		PaymentDeadline: booking.PaymentDeadline,
		TransactionID:   payload.TransactionID,
		ReceiptNumber:   payload.ReceiptNumber,
		GatewayResponse: gateway,
	}

	if !payload.Succeeded {
		payment.Status = entity.PaymentStatusFailed
		if err := u.repo.InsertPayment(ctx, &payment, nil, 0); err != nil {
			return entity.Booking{}, err
		}
		u.emitter.PaymentRecorded(ctx, payment, now)
		return booking, nil
	}

	payment.Status = entity.PaymentStatusPaid
	payment.PaymentDate = sql.NullTime{Time: now, Valid: true}

	unconfirmed := booking.Status == entity.StatusReserved || booking.Status == entity.StatusAwaitingPayment
	if booking.Status.Terminal() || (unconfirmed && now.After(booking.PaymentDeadline)) {
		payment.RefundRequired = true
		if err := u.repo.InsertPayment(ctx, &payment, nil, 0); err != nil {
			return entity.Booking{}, err
		}
		u.log.Warn(ctx, fmt.Sprintf("payment %s arrived for booking %d in %s, refund required",
			payment.TransactionID, booking.ID, booking.Status))
		u.emitter.PaymentRecorded(ctx, payment, now)
		return entity.Booking{}, errors.InvalidTransition(
			fmt.Sprintf("booking %s can no longer be paid", booking.ReferenceNumber))
	}

	if !unconfirmed {
		// balance payment on a confirmed or checked-in stay
		if err := u.repo.InsertPayment(ctx, &payment, nil, 0); err != nil {
			return entity.Booking{}, err
		}
		u.emitter.PaymentRecorded(ctx, payment, now)
		return booking, nil
	}

	paid, err := u.paidSoFar(ctx, booking.ID)
	if err != nil {
		return entity.Booking{}, err
	}
	paid = paid.Add(amount)

	required := pricing.RequiredAmount(booking.TotalAmount, booking.Currency, u.cfg.DepositPolicy, u.cfg.DepositPercent)
	to := entity.StatusAwaitingPayment
	if paid.GreaterThanOrEqual(required) {
		to = entity.StatusConfirmed
	}

	if to == booking.Status {
		// still short of the required amount: the version moves anyway so a concurrent
		// payment that summed the same rows conflicts and re-sums
		next := booking
		next.Version = booking.Version + 1
		next.UpdatedAt = sql.NullTime{Time: now, Valid: true}
		if err := u.repo.InsertPayment(ctx, &payment, &next, booking.Version); err != nil {
			return entity.Booking{}, err
		}
		u.emitter.PaymentRecorded(ctx, payment, now)
		return next, nil
	}

	next, event, err := lifecycle.Apply(booking, lifecycle.Transition{To: to, Actor: lifecycle.ActorPayment, At: now})
	if err != nil {
		return entity.Booking{}, err
	}
	if err := u.repo.InsertPayment(ctx, &payment, &next, booking.Version); err != nil {
		return entity.Booking{}, err
	}

	u.emitter.PaymentRecorded(ctx, payment, now)
	u.afterTransition(ctx, next, event)
	return next, nil
}

func (u *usecase) paidSoFar(ctx context.Context, bookingID int64) (decimal.Decimal, error) {
	payments, err := u.repo.ListPaymentsByBookingID(ctx, bookingID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, p := range payments {
		if p.Status == entity.PaymentStatusPaid && !p.RefundRequired {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (u *usecase) replayPayment(ctx context.Context, existing entity.Payment, payload *request.Payment) (entity.Booking, error) {
	if existing.BookingID != payload.BookingID {
		return entity.Booking{}, errors.ValidationError("transaction id already recorded for another booking")
	}
	if existing.RefundRequired {
		return entity.Booking{}, errors.InvalidTransition("payment already recorded for refund")
	}
	return u.repo.FindBookingByID(ctx, existing.BookingID)
}

func paymentType(b entity.Booking, amount decimal.Decimal) entity.PaymentType {
	switch {
	case b.Status == entity.StatusConfirmed || b.Status == entity.StatusCheckedIn:
		return entity.PaymentTypeBalance
	case amount.GreaterThanOrEqual(b.TotalAmount):
		return entity.PaymentTypeFull
	}
	return entity.PaymentTypeDeposit
}

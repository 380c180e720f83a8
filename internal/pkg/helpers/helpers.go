package helpers

import (
	stderrors "errors"
	"fmt"
	"time"

	"bed-booking-service/internal/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

const DateLayout = "2006-01-02"

type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func RespSuccess(ctx *fiber.Ctx, log *otelzap.Logger, data interface{}, message string) error {
	return ctx.Status(fiber.StatusOK).JSON(Response{
		Message: message,
		Data:    data,
	})
}

func RespCreated(ctx *fiber.Ctx, log *otelzap.Logger, data interface{}, message string) error {
	return ctx.Status(fiber.StatusCreated).JSON(Response{
		Message: message,
		Data:    data,
	})
}

// RespError maps a CustomError onto its HTTP status. Only user-facing errors keep their message.
func RespError(ctx *fiber.Ctx, log *otelzap.Logger, err error) error {
	var ce errors.CustomError
	if !stderrors.As(err, &ce) {
		log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("unexpected error: %v", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(Response{
			Message: "internal server error",
			Code:    errors.CodeInternal,
		})
	}

	message := ce.Message
	if !errors.UserFacing(err) && ce.HttpCode >= fiber.StatusInternalServerError {
		message = "internal server error"
	}

	status := ce.HttpCode
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	return ctx.Status(status).JSON(Response{
		Message: message,
		Code:    ce.Code,
	})
}

// DurationCalculation returns how long from now until t, never negative.
func DurationCalculation(t time.Time) time.Duration {
	d := time.Until(t)
	if d < 0 {
		return 0
	}
	return d
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// TruncateDay drops the clock part of t in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

const (
	CodeBadRequest        = "BAD_REQUEST"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeInternal          = "INTERNAL_SERVER_ERROR"
	CodeValidation        = "VALIDATION_ERROR"
	CodeNoAvailability    = "NO_AVAILABILITY"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeVersionConflict   = "VERSION_CONFLICT"
	CodeDeadlineExceeded  = "DEADLINE_EXCEEDED"
	CodeDuplicate         = "DUPLICATE"
)

type CustomError struct {
	Code     string
	HttpCode int
	Message  string
}

func (e CustomError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on the error code only, so sentinels like ErrNoAvailability work with errors.Is.
func (e CustomError) Is(target error) bool {
	t, ok := target.(CustomError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrNoAvailability    = CustomError{Code: CodeNoAvailability}
	ErrInvalidTransition = CustomError{Code: CodeInvalidTransition}
	ErrVersionConflict   = CustomError{Code: CodeVersionConflict}
	ErrDeadlineExceeded  = CustomError{Code: CodeDeadlineExceeded}
	ErrValidation        = CustomError{Code: CodeValidation}
	ErrNotFound          = CustomError{Code: CodeNotFound}
	ErrDuplicate         = CustomError{Code: CodeDuplicate}
)

func BadRequest(msg string) error {
	return CustomError{Code: CodeBadRequest, HttpCode: http.StatusBadRequest, Message: msg}
}

func UnauthorizedError(msg string) error {
	return CustomError{Code: CodeUnauthorized, HttpCode: http.StatusUnauthorized, Message: msg}
}

func Forbidden(msg string) error {
	return CustomError{Code: CodeForbidden, HttpCode: http.StatusForbidden, Message: msg}
}

func NotFound(msg string) error {
	return CustomError{Code: CodeNotFound, HttpCode: http.StatusNotFound, Message: msg}
}

func InternalServerError(msg string) error {
	return CustomError{Code: CodeInternal, HttpCode: http.StatusInternalServerError, Message: msg}
}

// ValidationError rejects malformed input before any transaction is opened.
func ValidationError(msg string) error {
	return CustomError{Code: CodeValidation, HttpCode: http.StatusUnprocessableEntity, Message: msg}
}

// NoAvailability means no bed satisfies the request; the caller may pick other dates.
func NoAvailability(msg string) error {
	return CustomError{Code: CodeNoAvailability, HttpCode: http.StatusConflict, Message: msg}
}

func InvalidTransition(msg string) error {
	return CustomError{Code: CodeInvalidTransition, HttpCode: http.StatusConflict, Message: msg}
}

// VersionConflict means another writer updated the row first.
func VersionConflict(msg string) error {
	return CustomError{Code: CodeVersionConflict, HttpCode: http.StatusConflict, Message: msg}
}

// DeadlineExceeded is a transient transaction timeout, safe to retry.
func DeadlineExceeded(msg string) error {
	return CustomError{Code: CodeDeadlineExceeded, HttpCode: http.StatusServiceUnavailable, Message: msg}
}

// Duplicate means a unique key (idempotency key, reference, transaction id) already exists.
func Duplicate(msg string) error {
	return CustomError{Code: CodeDuplicate, HttpCode: http.StatusConflict, Message: msg}
}

// Is reports whether any error in err's chain carries the given code.
func Is(err error, code string) bool {
	var ce CustomError
	if !stderrors.As(err, &ce) {
		return false
	}
	return ce.Code == code
}

// UserFacing reports whether the message of err may be shown to a pilgrim as-is.
func UserFacing(err error) bool {
	return Is(err, CodeNoAvailability) || Is(err, CodeValidation) || Is(err, CodeBadRequest) || Is(err, CodeNotFound)
}

// Retryable reports whether the operation may succeed if attempted again.
func Retryable(err error) bool {
	return Is(err, CodeVersionConflict) || Is(err, CodeDeadlineExceeded)
}

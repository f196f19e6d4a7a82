package api

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"tracker-backend/internal/tracker"
)

// Error codes of the response envelope.
const (
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeInvalidPayload = "INVALID_PAYLOAD"
	CodeInvalidValue   = "INVALID_VALUE"
	CodeInvalidDate    = "INVALID_DATE"
	CodeOutOfRange     = "OUT_OF_RANGE"
	CodeInvalidAction  = "INVALID_ACTION"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeServerError    = "SERVER_ERROR"
)

type AppError struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func UnauthorizedError(msg string) *AppError {
	return NewAppError(CodeUnauthorized, fiber.StatusUnauthorized, msg)
}

func InvalidPayloadError(msg string) *AppError {
	return NewAppError(CodeInvalidPayload, fiber.StatusBadRequest, msg)
}

func InvalidValueError(format string, args ...any) *AppError {
	return NewAppError(CodeInvalidValue, fiber.StatusBadRequest, fmt.Sprintf(format, args...))
}

func ServerError() *AppError {
	return NewAppError(CodeServerError, fiber.StatusInternalServerError, "Internal server error")
}

// fromTrackerError translates data-access failures. Anything unrecognized is
// logged and reported as SERVER_ERROR without detail.
func fromTrackerError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	status, code := fiber.StatusBadRequest, ""
	switch {
	case errors.Is(err, tracker.ErrInvalidDate):
		code = CodeInvalidDate
	case errors.Is(err, tracker.ErrOutOfRange):
		code = CodeOutOfRange
	case errors.Is(err, tracker.ErrInvalidValue):
		code = CodeInvalidValue
	case errors.Is(err, tracker.ErrInvalidAction):
		code = CodeInvalidAction
	case errors.Is(err, tracker.ErrNotFound):
		status, code = fiber.StatusNotFound, CodeNotFound
	case errors.Is(err, tracker.ErrConflict):
		status, code = fiber.StatusConflict, CodeConflict
	default:
		log.Printf("ERROR: %v", err)
		return ServerError()
	}
	return NewAppError(code, status, err.Error())
}

// ErrorHandler renders every error returned by a handler as the failure envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := CodeServerError
		switch {
		case fiberErr.Code == fiber.StatusNotFound:
			code = CodeNotFound
		case fiberErr.Code == fiber.StatusUnauthorized:
			code = CodeUnauthorized
		case fiberErr.Code < fiber.StatusInternalServerError:
			code = CodeInvalidPayload
		}
		if code != CodeServerError {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{Error: NewAppError(code, fiberErr.Code, fiberErr.Message)})
		}
	}

	log.Printf("ERROR: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: ServerError()})
}

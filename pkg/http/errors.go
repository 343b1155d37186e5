package http

import (
	"fmt"
	"math"
	"net/http"
	"time"
)

// AppError is an API error rendered inside the response envelope.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`

	// RetryAfter is sent as the Retry-After header when positive.
	RetryAfter time.Duration `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError attaches the cause. It is logged but never serialized.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// retryAfterSeconds rounds up so clients never retry early.
func (e *AppError) retryAfterSeconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

func NotFoundError(message string) *AppError {
	return newAppError("ERR_NOT_FOUND", http.StatusNotFound, message)
}

func BadRequestError(message string) *AppError {
	return newAppError("ERR_BAD_REQUEST", http.StatusBadRequest, message)
}

// BadGatewayError reports a device that could not be reached.
func BadGatewayError(message string) *AppError {
	return newAppError("ERR_NETWORK_FAILURE", http.StatusBadGateway, message)
}

// UnprocessableError reports a device payload that could not be used.
func UnprocessableError(message string) *AppError {
	return newAppError("ERR_INVALID_PAYLOAD", http.StatusUnprocessableEntity, message)
}

// TooManyRequestsError tells the client to come back after retryAfter.
func TooManyRequestsError(message string, retryAfter time.Duration) *AppError {
	e := newAppError("ERR_RATE_LIMITED", http.StatusTooManyRequests, message)
	e.RetryAfter = retryAfter
	return e.WithParam("retry_after_seconds", e.retryAfterSeconds())
}

func InternalError(message string) *AppError {
	return newAppError("ERR_INTERNAL", http.StatusInternalServerError, message)
}

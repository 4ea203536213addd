package http

import (
	"fmt"
	"net/http"
)

// AppError is returned by handlers and rendered by AppErrorResponse.
// Err is kept for logs only.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = map[string]interface{}{}
	}
	e.Params[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func statusError(status int, code, message string) *AppError {
	return NewAppError(code, "", message, status)
}

func NotFoundError(message string) *AppError {
	return statusError(http.StatusNotFound, "ERR_NOT_FOUND", message)
}

func BadRequestError(message string) *AppError {
	return statusError(http.StatusBadRequest, "ERR_BAD_REQUEST", message)
}

func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

// BadGatewayError is for an upstream that answered but refused us.
func BadGatewayError(code, message string) *AppError {
	return statusError(http.StatusBadGateway, code, message)
}

func ServiceUnavailableError(code, message string) *AppError {
	return statusError(http.StatusServiceUnavailable, code, message)
}

func InternalError(message string) *AppError {
	return statusError(http.StatusInternalServerError, "ERR_INTERNAL", message)
}

package http

import (
	"fmt"
	"net/http"
)

// Error codes returned in AppError.Code.
const (
	CodeBadRequest       = "ERR_BAD_REQUEST"
	CodeInvalidInput     = "ERR_INVALID_INPUT"
	CodeInvalidThreshold = "ERR_INVALID_THRESHOLD"
	CodeInsufficientData = "ERR_INSUFFICIENT_DATA"
	CodeNoAnalysis       = "ERR_NO_ANALYSIS"
	CodeNotFound         = "ERR_NOT_FOUND"
	CodeUpstream         = "ERR_UPSTREAM"
	CodeRateLimited      = "ERR_RATE_LIMITED"
	CodeInternal         = "ERR_INTERNAL"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NotFoundError creates a 404 error.
func NotFoundError(message string) *AppError {
	return NewAppError(CodeNotFound, "", message, http.StatusNotFound)
}

// BadRequestError creates a 400 error.
func BadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, "", message, http.StatusBadRequest)
}

// BadRequestErrorf creates a 400 error with formatting.
func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

// ConflictError creates a 409 error.
func ConflictError(code, message string) *AppError {
	return NewAppError(code, "", message, http.StatusConflict)
}

// BadGatewayError creates a 502 error for failing upstream data sources.
func BadGatewayError(message string) *AppError {
	return NewAppError(CodeUpstream, "", message, http.StatusBadGateway)
}

// TooManyRequestsError creates a 429 error.
func TooManyRequestsError(message string) *AppError {
	return NewAppError(CodeRateLimited, "", message, http.StatusTooManyRequests)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError(CodeInternal, "", message, http.StatusInternalServerError)
}

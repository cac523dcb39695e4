package apperror

import (
	"errors"
	"net/http"
)

// Error codes surfaced to API clients so they can tell failure kinds apart
const (
	CodeBadRequest           = "bad_request"
	CodeValidation           = "validation_error"
	CodeUnauthorized         = "unauthorized"
	CodeForbidden            = "forbidden"
	CodeNotFound             = "not_found"
	CodeConflict             = "conflict"
	CodeInternal             = "internal_error"
	CodeMissingHash          = "missing_hash"
	CodeUpstreamFailure      = "upstream_verification_error"
	CodeReceiptGeneration    = "receipt_generation_error"
	CodeStorageUpload        = "storage_upload_error"
	CodeDepartmentUnapproved = "department_not_verified"
	CodeRateLimited          = "rate_limited"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Status  int          `json:"-"`
	Code    string       `json:"code"`
	Message string       `json:"error"`
	Detail  string       `json:"detail,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Err     error        `json:"-"`
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrNotFound           = &AppError{Status: http.StatusNotFound, Code: CodeNotFound, Message: "Resource not found"}
	ErrUnauthorized       = &AppError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "Unauthorized"}
	ErrForbidden          = &AppError{Status: http.StatusForbidden, Code: CodeForbidden, Message: "Forbidden"}
	ErrInvalidCredentials = &AppError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "Email or Password is incorrect"}
	ErrMissingHash        = &AppError{Status: http.StatusBadRequest, Code: CodeMissingHash, Message: "hash query parameter is required"}
	ErrRateLimited        = &AppError{Status: http.StatusTooManyRequests, Code: CodeRateLimited, Message: "Too many requests, slow down"}
)

// New creates an application error with the given status and code
func New(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

// Wrap attaches a cause to a new application error
func Wrap(status int, code, message string, err error) *AppError {
	e := &AppError{Status: status, Code: code, Message: message, Err: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// NewValidationError creates a new validation error
func NewValidationError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeValidation,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return New(http.StatusNotFound, CodeNotFound, resource+" not found")
}

// NewConflictError creates a conflict error with a custom message
func NewConflictError(message string) *AppError {
	return New(http.StatusConflict, CodeConflict, message)
}

// NewBadRequestError creates a bad request error with a custom message
func NewBadRequestError(message string) *AppError {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

// NewUpstreamError reports a failed or unparseable payment provider response.
// It is client visible and never retried.
func NewUpstreamError(message string, err error) *AppError {
	return Wrap(http.StatusBadRequest, CodeUpstreamFailure, message, err)
}

// NewReceiptGenerationError reports a layout or rendering failure
func NewReceiptGenerationError(message string, err error) *AppError {
	return Wrap(http.StatusUnprocessableEntity, CodeReceiptGeneration, message, err)
}

// NewStorageUploadError reports a failed upload of a generated document
func NewStorageUploadError(err error) *AppError {
	return Wrap(http.StatusBadGateway, CodeStorageUpload, "Problem encountered storing receipt", err)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// HasCode reports whether err is an AppError carrying the given code
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// GetAppError converts an error to AppError if possible
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

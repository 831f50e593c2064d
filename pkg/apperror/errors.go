package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // internal cause, never rendered
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError by code, so errors.Is(err, ErrNotFound())
// holds for any tracker-not-found error regardless of message or cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Tracking (TRK) ----

// ErrBadCurrency is returned when an amount cannot be converted to the payout currency.
func ErrBadCurrency(currency string) *AppError {
	return New("TRK_001", fmt.Sprintf("No exchange rate available for currency %q", currency), http.StatusBadRequest)
}

// ErrInvalidAmount is returned for negative or non-finite converted amounts.
func ErrInvalidAmount() *AppError {
	return New("TRK_002", "Invalid amount", http.StatusBadRequest)
}

// ErrNotFound is returned when the tracking identifier resolves to nothing.
func ErrNotFound() *AppError {
	return New("TRK_003", "Tracker not found", http.StatusNotFound)
}

// ---- Accounts (ACC) ----

// ErrAccountExists is returned when an account with the same email is already provisioned.
func ErrAccountExists() *AppError {
	return New("ACC_001", "Account already exists", http.StatusConflict)
}

// ---- Security (SEC) ----

func ErrInvalidTrackToken() *AppError {
	return New("SEC_001", "Invalid track token", http.StatusUnauthorized)
}

func ErrInvalidManagementToken() *AppError {
	return New("SEC_002", "Invalid management token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// ErrStorage wraps a ledger store failure.
func ErrStorage(err error) *AppError {
	return Wrap("SYS_001", "Internal storage error", http.StatusInternalServerError, err)
}

// InternalError wraps any other internal failure.
func InternalError(err error) *AppError {
	return Wrap("SYS_000", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// ErrBodyTooLarge is returned when a request body exceeds the server limit.
func ErrBodyTooLarge() *AppError {
	return New("VAL_002", "Request body too large", http.StatusRequestEntityTooLarge)
}

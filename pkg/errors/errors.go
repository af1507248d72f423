package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies failures by how the run should react to them.
type ErrorType string

const (
	// ErrorTypeTransient covers network errors, timeouts and malformed
	// responses; retried with bounded attempts, unit-local.
	ErrorTypeTransient ErrorType = "transient"
	// ErrorTypeQuota is the remote capacity-exhausted condition; the run
	// stops gracefully and is resumable.
	ErrorTypeQuota ErrorType = "quota"
	// ErrorTypeCommit is a failed repository commit; warned and retried at
	// the next checkpoint opportunity.
	ErrorTypeCommit ErrorType = "commit"
	// ErrorTypeLedger is a failed durable ledger write; fatal for the run.
	ErrorTypeLedger ErrorType = "ledger"
	// ErrorTypeAuth covers credential problems; not retryable.
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeNotFound is a missing remote item; the unit fails, the run
	// continues.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeParsing is an unparseable response after retries.
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeFatal covers misconfiguration and other run-level failures.
	ErrorTypeFatal ErrorType = "fatal"
)

// Error is a classified failure from a remote call or a collaborator.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a classified error.
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// NewWithCode creates a classified error carrying an HTTP status code.
func NewWithCode(t ErrorType, code int, message string) *Error {
	return &Error{Type: t, Message: message, Code: code}
}

// IsRetryable checks if an error type should be retried.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransient:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429, 500, 502, 503, 504:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}

// QuotaError is the distinguished capacity-exhausted signal from the remote
// API. ResetAt, when known, is the replenishment time the API reported;
// the zero time means the API gave no hint.
type QuotaError struct {
	Message string
	ResetAt time.Time
}

func (e *QuotaError) Error() string {
	if e.ResetAt.IsZero() {
		return fmt.Sprintf("quota exhausted: %s", e.Message)
	}
	return fmt.Sprintf("quota exhausted until %s: %s", e.ResetAt.Format(time.RFC3339), e.Message)
}

// IsQuotaExceeded reports whether err carries the remote capacity-exhausted
// signal, either as a *QuotaError or as a classified quota error.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaError
	if errors.As(err, &qe) {
		return true
	}
	var ce *Error
	return errors.As(err, &ce) && ce.Type == ErrorTypeQuota
}

// Package errors defines the failure taxonomy of the compile pipeline.
// Every failure the compile client surfaces is a *CompileError whose Type
// tells callers whether the user, the network, or the remote compiler is
// at fault, and whether a retry can help.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType categorizes compile failures for user messaging and retry decisions.
type ErrorType string

const (
	// ErrorTypeEmptyInput indicates the document was empty or whitespace-only.
	// No network activity happens for this type.
	ErrorTypeEmptyInput ErrorType = "empty_input"

	// ErrorTypeCancelled indicates the caller abandoned the compile.
	// Internal signal only; never shown to users as a failure.
	ErrorTypeCancelled ErrorType = "cancelled"

	// ErrorTypeNetwork indicates a transport failure such as a refused
	// connection, a timeout, an open circuit, or a rate limit (retryable).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeService indicates the remote compiler rejected the document.
	ErrorTypeService ErrorType = "service_error"

	// ErrorTypeUnexpectedContent indicates the service broke its response contract.
	ErrorTypeUnexpectedContent ErrorType = "unexpected_content"
)

// Common compile errors. They are wrapped as the Cause of a CompileError so
// callers can match them with errors.Is.
var (
	// ErrEmptyInput indicates no LaTeX source was provided.
	ErrEmptyInput = errors.New("no LaTeX code provided")

	// ErrCircuitOpen indicates the circuit breaker is rejecting requests.
	ErrCircuitOpen = errors.New("compile service circuit open")

	// ErrRateLimited indicates a local or global rate limit rejected the request.
	ErrRateLimited = errors.New("compile rate limit exceeded")

	// ErrResponseTooLarge indicates the response body exceeded the configured cap.
	ErrResponseTooLarge = errors.New("compile response too large")

	// ErrNotPDF indicates a successful status without a PDF content type.
	ErrNotPDF = errors.New("response is not a PDF")
)

// CompileError is the classified failure of one compile call.
// Message is safe to show a user. Log carries the compiler's diagnostic
// output for engineers and is never dropped on the way up.
type CompileError struct {
	Type       ErrorType     `json:"type"`
	Message    string        `json:"message"`
	Log        string        `json:"log,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Cause      error         `json:"-"`
}

// Error returns the classified message, prefixed with the type.
func (e *CompileError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As compatibility.
func (e *CompileError) Unwrap() error { return e.Cause }

// IsRetryable reports whether a later attempt of the same document may succeed.
// Document errors (4xx) are permanent; throttling and server faults are not.
func (e *CompileError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeService:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

// GetRetryAfter returns the server- or limiter-provided backoff hint.
func (e *CompileError) GetRetryAfter() time.Duration { return e.RetryAfter }

// HasLog reports whether a diagnostic log accompanies the error.
func (e *CompileError) HasLog() bool { return e.Log != "" }

// NewEmptyInput returns the EmptyInput failure.
func NewEmptyInput() *CompileError {
	return &CompileError{Type: ErrorTypeEmptyInput, Message: ErrEmptyInput.Error(), Cause: ErrEmptyInput}
}

// NewCancelled wraps a context cancellation.
func NewCancelled(cause error) *CompileError {
	return &CompileError{Type: ErrorTypeCancelled, Message: "compile cancelled", Cause: cause}
}

// NewNetwork wraps a transport-level failure.
func NewNetwork(msg string, cause error) *CompileError {
	return &CompileError{Type: ErrorTypeNetwork, Message: msg, Cause: cause}
}

// NewService builds a rejection reported by the remote compiler.
func NewService(status int, msg, log string) *CompileError {
	return &CompileError{Type: ErrorTypeService, StatusCode: status, Message: msg, Log: log}
}

// NewUnexpectedContent builds a contract violation with the offending body as log.
func NewUnexpectedContent(status int, msg, log string, cause error) *CompileError {
	return &CompileError{
		Type:       ErrorTypeUnexpectedContent,
		StatusCode: status,
		Message:    msg,
		Log:        log,
		Cause:      cause,
	}
}

package client

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorClass represents a classification of remote-call failures.
type ErrorClass string

const (
	// ErrorClassThrottled represents HTTP 429 throttling responses.
	ErrorClassThrottled ErrorClass = "throttled"

	// ErrorClassTransient represents 5xx responses and network errors.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassAuth represents 401/403 authorization failures.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassNotFound represents 404 "does not exist" responses.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassClient represents other non-retriable 4xx responses.
	ErrorClassClient ErrorClass = "client"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrAuthFailed is returned on authorization failures, which never
	// self-resolve and are not retried.
	ErrAuthFailed = errors.New("authorization failed")

	// ErrContextCancelled is returned when the context is cancelled
	// during a fetch or its backoff sleeps.
	ErrContextCancelled = errors.New("context cancelled")
)

// RequestError carries the classification and throttle hints of a failed
// remote call.
type RequestError struct {
	StatusCode int
	Class      ErrorClass
	Endpoint   string
	Message    string
	RetryAfter time.Duration // server-provided backoff hint, 0 if absent
	Err        error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (status %d) on %s: %s: %v",
			e.Class, e.StatusCode, e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (status %d) on %s: %s",
		e.Class, e.StatusCode, e.Endpoint, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Class == ErrorClassAuth {
		return ErrAuthFailed
	}
	return nil
}

// classifyStatus maps an HTTP status code to its error class.
// 2xx/3xx status codes are not errors and classify as "".
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassThrottled
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorClassAuth
	case status == http.StatusNotFound:
		return ErrorClassNotFound
	case status >= 500:
		return ErrorClassTransient
	case status >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// shouldRetry determines if an error class is worth another attempt.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassThrottled:
		// Server asked us to slow down; it will accept the request later.
		return true
	case ErrorClassTransient:
		return true
	case ErrorClassAuth:
		// A bad token stays bad; retrying burns quota for nothing.
		return false
	case ErrorClassNotFound:
		// Not an error at all on this surface: probed resources are
		// routinely absent.
		return false
	case ErrorClassClient:
		return false
	default:
		return false
	}
}

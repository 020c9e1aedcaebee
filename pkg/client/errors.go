package client

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Common errors returned by the client.
var (
	// ErrMissingAPIKey is returned when no upstream API key is configured.
	ErrMissingAPIKey = errors.New("API key not configured")

	// ErrContextCancelled is returned when the context is cancelled during a
	// backoff wait.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassUnauthorized represents 401, a missing or insufficient subscription.
	ErrorClassUnauthorized ErrorClass = "unauthorized"

	// ErrorClassNotFound represents 404.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassClient represents other 4xx errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures and timeouts.
	ErrorClassNetwork ErrorClass = "network"
)

// UpstreamError is a failed upstream call. Callers inspect StatusCode and Class.
type UpstreamError struct {
	StatusCode int
	Class      ErrorClass
	Message    string

	// RetryAfter is the parsed retry-after header; HasRetryAfter reports
	// whether the header was present and parseable.
	RetryAfter    time.Duration
	HasRetryAfter bool

	// Header holds the response headers (nil for network errors).
	Header http.Header
	Err    error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ResponseHeader returns the headers of the failed response, if any.
func (e *UpstreamError) ResponseHeader() http.Header {
	return e.Header
}

// classifyStatus maps an HTTP status code to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status == http.StatusUnauthorized:
		return ErrorClassUnauthorized
	case status == http.StatusNotFound:
		return ErrorClassNotFound
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// shouldRetry determines if an error class is retried. Only rate limiting is:
// everything else is surfaced immediately.
func shouldRetry(class ErrorClass) bool {
	return class == ErrorClassRateLimit
}

// AsUpstream extracts an *UpstreamError from err.
func AsUpstream(err error) (*UpstreamError, bool) {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr, true
	}
	return nil, false
}

// IsRateLimited reports whether err is an upstream 429.
func IsRateLimited(err error) bool {
	upErr, ok := AsUpstream(err)
	return ok && upErr.Class == ErrorClassRateLimit
}

// IsUnauthorized reports whether err is an upstream 401.
func IsUnauthorized(err error) bool {
	upErr, ok := AsUpstream(err)
	return ok && upErr.Class == ErrorClassUnauthorized
}

// StatusCode returns the upstream status carried by err, or 0.
func StatusCode(err error) int {
	if upErr, ok := AsUpstream(err); ok {
		return upErr.StatusCode
	}
	return 0
}

// parseRetryAfter reads a retry-after header given in seconds or as an HTTP date.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		wait := at.Sub(now)
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}
	return 0, false
}

package relay

import (
	"fmt"
	"time"
)

// AuthError is an invalid or missing client API key (HTTP 401).
type AuthError struct {
	// Message describes the failure without echoing the key itself.
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// QuotaExceededError is a client whose consumed quota reached its limit
// (HTTP 429).
type QuotaExceededError struct {
	UserID int64
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for user %d", e.UserID)
}

// RateLimitedError is a client over its request-rate window (HTTP 429).
type RateLimitedError struct {
	UserID int64

	// RetryAfter is the suggested wait before retrying, if known.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for user %d (retry after %s)", e.UserID, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for user %d", e.UserID)
}

// ModelNotFoundError is a virtual model that resolves to no channel
// (HTTP 404).
type ModelNotFoundError struct {
	Model string
}

// Error implements the error interface.
func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %q not found", e.Model)
}

// UpstreamError is a non-2xx status or transport failure from a provider
// (HTTP 502). Message carries the vendor's error body; it never contains
// channel secrets.
type UpstreamError struct {
	// Vendor is the display name of the upstream API ("OpenAI",
	// "Anthropic", ...).
	Vendor string

	// StatusCode is the upstream HTTP status (0 for transport failures).
	StatusCode int

	// Message is the vendor error body or transport error text.
	Message string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s API error: %d - %s", e.Vendor, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Vendor, e.Message)
}

// TimeoutError is an upstream call that exceeded the channel's timeout.
type TimeoutError struct {
	Vendor  string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request timeout after %s", e.Vendor, e.Timeout)
}

// MalformedRequestError is an inbound request body that could not be
// parsed (HTTP 400).
type MalformedRequestError struct {
	Cause error
}

// Error implements the error interface.
func (e *MalformedRequestError) Error() string {
	return fmt.Sprintf("malformed request: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *MalformedRequestError) Unwrap() error {
	return e.Cause
}

// ParseError is an upstream response body that could not be parsed.
type ParseError struct {
	Vendor      string
	RawResponse string
	Cause       error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s response parse error: %v", e.Vendor, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

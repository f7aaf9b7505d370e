package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCacheMiss indicates that the key is absent or its entry has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrRateLimited indicates that the upstream answered 429 Too Many Requests
	ErrRateLimited = errors.New("upstream rate limited")

	// ErrUpstreamStatus indicates any other non-2xx upstream status
	ErrUpstreamStatus = errors.New("unexpected upstream status")

	// ErrFetchTimeout indicates that the upstream call did not finish in time
	ErrFetchTimeout = errors.New("timeout while fetching market data")

	// ErrMalformedResponse indicates that the upstream payload did not match the expected shape
	ErrMalformedResponse = errors.New("malformed upstream response")

	// ErrInvalidParams indicates that the caller passed unusable request parameters
	ErrInvalidParams = errors.New("invalid request parameters")

	// ErrCoinNotFound indicates that a lookup found no matching instrument
	ErrCoinNotFound = errors.New("coin not found")

	// ErrDispatchTimeout indicates that a dispatched operation exceeded the limiter's dispatch timeout
	ErrDispatchTimeout = errors.New("dispatched operation timed out")

	// ErrLimiterClosed indicates that the queue no longer accepts operations
	ErrLimiterClosed = errors.New("rate limiter closed")

	// ErrRateLimitExceeded indicates that an inbound client exceeded its request budget
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// UpstreamError describes a non-2xx answer from the market data API
type UpstreamError struct {
	StatusCode int
	Endpoint   string
	RetryAfter time.Duration
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %v", e.Endpoint, e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError classifies an HTTP status into ErrRateLimited or ErrUpstreamStatus
func NewUpstreamError(endpoint string, statusCode int, retryAfter time.Duration) *UpstreamError {
	err := ErrUpstreamStatus
	if statusCode == 429 {
		err = ErrRateLimited
	}
	return &UpstreamError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		RetryAfter: retryAfter,
		Err:        err,
	}
}

// IsRateLimited reports whether err carries the "too many requests" signal
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// MarketDataError represents a failed facade operation for one data kind
type MarketDataError struct {
	Kind    string
	Key     string
	Message string
	Err     error
}

func (e *MarketDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Kind, e.Key, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Key, e.Message)
}

func (e *MarketDataError) Unwrap() error {
	return e.Err
}

// NewMarketDataError creates a new facade error
func NewMarketDataError(kind, key, message string, err error) *MarketDataError {
	return &MarketDataError{
		Kind:    kind,
		Key:     key,
		Message: message,
		Err:     err,
	}
}

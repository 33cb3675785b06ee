package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown resource kind or store backend.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncInProgress indicates a sync run is already active.
	ErrSyncInProgress = errors.New("sync already in progress")

	// Remote Errors.

	// ErrTransient indicates a connectivity failure (reset connection, socket
	// or DNS error) that is worth retrying.
	ErrTransient = errors.New("transient connectivity failure")

	// ErrUnretryable marks a remote failure that must not be retried.
	ErrUnretryable = errors.New("unretryable remote failure")

	// ErrVersionOutdated indicates the server rejected the client protocol version.
	ErrVersionOutdated = errors.New("client protocol version is outdated")

	// ErrNoteFetchFailed indicates a stale note could not be fetched after all retries.
	ErrNoteFetchFailed = errors.New("note fetch failed")

	// Authentication Errors.

	// ErrAuthRequired indicates no authentication credential is configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the authentication credential was rejected.
	ErrAuthInvalid = errors.New("authentication invalid")
)

// RateLimitError is returned by the remote when the caller must wait
// for Duration before issuing another request.
type RateLimitError struct {
	Duration time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit reached, retry after %s", e.Duration)
}

// AsRateLimit reports whether err carries a RateLimitError.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

// Transient wraps err so that it classifies as ErrTransient.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Unretryable wraps err so that it classifies as ErrUnretryable.
func Unretryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnretryable, err)
}

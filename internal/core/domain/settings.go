package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const unknownDescription = "Unknown"

// Protocol constants sent to the server in the version check.
const (
	ClientName       = "notesync (Go)"
	EDAMVersionMajor = int16(1)
	EDAMVersionMinor = int16(28)
)

// NoteFailurePolicy decides what a note refresh pass does when a stale
// note cannot be fetched after all retries.
type NoteFailurePolicy string

// Available failure policies.
const (
	// NoteFailureSkip logs the failure and continues with the next note.
	NoteFailureSkip NoteFailurePolicy = "skip"

	// NoteFailureAbort stops the pass with ErrNoteFetchFailed.
	NoteFailureAbort NoteFailurePolicy = "abort"
)

// IsValid returns true if the policy is recognised.
func (p NoteFailurePolicy) IsValid() bool {
	switch p {
	case NoteFailureSkip, NoteFailureAbort:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p NoteFailurePolicy) String() string {
	return string(p)
}

// Description returns a human-readable description of the policy.
func (p NoteFailurePolicy) Description() string {
	switch p {
	case NoteFailureSkip:
		return "Skip (log and continue)"
	case NoteFailureAbort:
		return "Abort (stop the pass)"
	default:
		return unknownDescription
	}
}

// SyncSettings tunes the sync engine.
type SyncSettings struct {
	// MaxRetries is the number of attempts per remote operation.
	MaxRetries int

	// Interval is the minimum spacing between consecutive remote fetches.
	Interval time.Duration

	// RateLimitMargin is added to every server mandated cooldown.
	RateLimitMargin time.Duration

	// RetryDelay is the pause after a non rate-limit failure.
	RetryDelay time.Duration

	// MaxEntries caps the entries per chunk request.
	MaxEntries int32

	// StartUSN is the cursor used when no chunk has been stored yet.
	StartUSN int32

	// NoteFailurePolicy controls the note refresh pass.
	NoteFailurePolicy NoteFailurePolicy

	// Filter selects the entity types requested with each chunk.
	Filter SyncChunkFilter
}

// DefaultSyncSettings returns the engine defaults.
func DefaultSyncSettings() SyncSettings {
	return SyncSettings{
		MaxRetries:        5,
		Interval:          1500 * time.Millisecond,
		RateLimitMargin:   500 * time.Millisecond,
		RetryDelay:        0,
		MaxEntries:        math.MaxInt32,
		StartUSN:          0,
		NoteFailurePolicy: NoteFailureSkip,
		Filter:            DefaultChunkFilter(),
	}
}

// Validate checks that every field is within range.
func (s SyncSettings) Validate() error {
	var errs []error
	if s.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("max retries must be at least 1, got %d", s.MaxRetries))
	}
	if s.Interval < 0 {
		errs = append(errs, fmt.Errorf("interval must not be negative, got %s", s.Interval))
	}
	if s.RateLimitMargin < 0 {
		errs = append(errs, fmt.Errorf("rate limit margin must not be negative, got %s", s.RateLimitMargin))
	}
	if s.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry delay must not be negative, got %s", s.RetryDelay))
	}
	if s.MaxEntries < 1 {
		errs = append(errs, fmt.Errorf("max entries must be at least 1, got %d", s.MaxEntries))
	}
	if s.StartUSN < 0 {
		errs = append(errs, fmt.Errorf("start usn must not be negative, got %d", s.StartUSN))
	}
	if !s.NoteFailurePolicy.IsValid() {
		errs = append(errs, fmt.Errorf("unknown note failure policy %q", s.NoteFailurePolicy))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// AllNoteFailurePolicies returns the recognised policies.
func AllNoteFailurePolicies() []NoteFailurePolicy {
	return []NoteFailurePolicy{NoteFailureSkip, NoteFailureAbort}
}

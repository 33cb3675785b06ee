package services

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/logger"
)

// FailureClass groups remote failures by how the executor reacts to them.
type FailureClass int

const (
	// FailureRemote is any other remote error. It is logged and retried.
	FailureRemote FailureClass = iota

	// FailureTransient is a connectivity failure. It is logged and retried.
	FailureTransient

	// FailureRateLimited is a server cooldown. The executor sleeps for the
	// mandated duration plus a margin and retries.
	FailureRateLimited

	// FailureUnretryable stops the executor immediately.
	FailureUnretryable
)

// String returns the class name used in log lines.
func (c FailureClass) String() string {
	switch c {
	case FailureTransient:
		return "transient"
	case FailureRateLimited:
		return "rate limited"
	case FailureUnretryable:
		return "unretryable"
	default:
		return "remote"
	}
}

// ClassifyFailure decides how a remote failure is handled.
func ClassifyFailure(err error) FailureClass {
	if _, ok := domain.AsRateLimit(err); ok {
		return FailureRateLimited
	}
	if errors.Is(err, domain.ErrUnretryable) || errors.Is(err, context.Canceled) {
		return FailureUnretryable
	}
	if isTransient(err) {
		return FailureTransient
	}
	return FailureRemote
}

func isTransient(err error) bool {
	switch {
	case errors.Is(err, domain.ErrTransient),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// RetryExecutor runs a remote operation with a bounded number of attempts.
// It never raises: once the budget is spent the caller receives absence.
type RetryExecutor struct {
	maxRetries      int
	rateLimitMargin time.Duration
	retryDelay      time.Duration
	pacer           *Pacer
}

// NewRetryExecutor creates an executor from sync settings.
// The pacer is optional; when set it is told about server cooldowns.
func NewRetryExecutor(settings domain.SyncSettings, pacer *Pacer) *RetryExecutor {
	maxRetries := settings.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryExecutor{
		maxRetries:      maxRetries,
		rateLimitMargin: settings.RateLimitMargin,
		retryDelay:      settings.RetryDelay,
		pacer:           pacer,
	}
}

// Attempt runs op through the executor and returns its result.
// The boolean is false when no attempt succeeded.
func Attempt[T any](ctx context.Context, r *RetryExecutor, name string, op func(ctx context.Context) (T, error)) (T, bool) {
	var (
		result   T
		attempts int
		next     time.Duration
	)

	// Budget is per invocation.
	backoff := retry.WithMaxRetries(uint64(r.maxRetries-1), retry.BackoffFunc(func() (time.Duration, bool) {
		return next, false
	}))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		v, err := op(ctx)
		if err == nil {
			result = v
			return nil
		}
		if ctx.Err() != nil {
			return err
		}

		class := ClassifyFailure(err)
		switch class {
		case FailureUnretryable:
			return err
		case FailureRateLimited:
			rl, _ := domain.AsRateLimit(err)
			next = rl.Duration + r.rateLimitMargin
			if r.pacer != nil {
				r.pacer.Cooldown(next)
			}
			logger.Warn("%s: rate limited, sleeping %s (attempt %d/%d)", name, next, attempts, r.maxRetries)
		default:
			next = r.retryDelay
			logger.Warn("%s: %s failure (attempt %d/%d): %v", name, class, attempts, r.maxRetries, err)
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		return result, true
	}

	var zero T
	switch {
	case ctx.Err() != nil:
		logger.Debug("%s: stopped: %v", name, ctx.Err())
	case ClassifyFailure(err) == FailureUnretryable:
		logger.Error("%s: unretryable failure: %v", name, err)
	default:
		logger.Error("%s: giving up after %d attempts: %v", name, attempts, err)
	}
	return zero, false
}

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// EDAM error codes the client reacts to.
const (
	CodePermissionDenied = 3
	CodeInvalidAuth      = 8
	CodeAuthExpired      = 9
	CodeShardUnavailable = 12
	CodeRateLimitReached = 19
)

// APIError is an error response from the gateway.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	ErrorCode  int    `json:"errorCode"`
	Message    string `json:"message"`
	Parameter  string `json:"parameter,omitempty"`

	// RateLimitDuration is the cooldown in seconds for RATE_LIMIT_REACHED.
	RateLimitDuration int `json:"rateLimitDuration,omitempty"`
}

func (e *APIError) Error() string {
	kind := e.Type
	if kind == "" {
		kind = "EDAMSystemException"
	}
	msg := e.Message
	if e.Parameter != "" {
		msg = strings.TrimSpace(msg + " " + e.Parameter)
	}
	return fmt.Sprintf("%s: http %d, code %d: %s", kind, e.StatusCode, e.ErrorCode, msg)
}

// IsNotFound checks if the error indicates a missing entity, such as a
// note expunged between the chunk listing it and the fetch.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound || apiErr.Type == "EDAMNotFoundException"
	}
	return false
}

// mapHTTPError converts a non-2xx response into the failure classes the
// retry executor understands.
func mapHTTPError(op string, resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	apiErr := &APIError{}
	body := resp.Body()
	if len(body) == 0 || json.Unmarshal(body, apiErr) != nil {
		apiErr = &APIError{Message: strings.TrimSpace(string(body))}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
	}
	apiErr.StatusCode = resp.StatusCode()

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests || apiErr.ErrorCode == CodeRateLimitReached:
		return fmt.Errorf("%s: %w", op, &domain.RateLimitError{Duration: cooldown(apiErr, resp.Header())})
	case resp.StatusCode() == http.StatusUnauthorized,
		resp.StatusCode() == http.StatusForbidden,
		apiErr.ErrorCode == CodeInvalidAuth,
		apiErr.ErrorCode == CodeAuthExpired,
		apiErr.ErrorCode == CodePermissionDenied:
		return fmt.Errorf("%s: %w", op, domain.Unretryable(fmt.Errorf("%w: %w", domain.ErrAuthInvalid, apiErr)))
	case resp.StatusCode() == http.StatusBadGateway,
		resp.StatusCode() == http.StatusServiceUnavailable,
		resp.StatusCode() == http.StatusGatewayTimeout,
		apiErr.ErrorCode == CodeShardUnavailable:
		return fmt.Errorf("%s: %w", op, domain.Transient(apiErr))
	case IsNotFound(apiErr):
		return fmt.Errorf("%s: %w", op, domain.Unretryable(fmt.Errorf("%w: %w", domain.ErrNotFound, apiErr)))
	default:
		return fmt.Errorf("%s: %w", op, apiErr)
	}
}

// cooldown prefers the EDAM duration and falls back to Retry-After.
func cooldown(apiErr *APIError, header http.Header) time.Duration {
	if apiErr.RateLimitDuration > 0 {
		return time.Duration(apiErr.RateLimitDuration) * time.Second
	}

	retryAfter := header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

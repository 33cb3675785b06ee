package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces consecutive remote fetches at least the configured interval apart.
// It uses a token bucket with a burst of one, plus an optional cooldown
// set when the server reports a rate limit.
type Pacer struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewPacer creates a pacer. An interval of zero disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Wait blocks until the next fetch may start.
// It respects any cooldown set by Cooldown.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	retryAt := p.retryAt
	p.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	return p.limiter.Wait(ctx)
}

// Cooldown delays every subsequent Wait until d has elapsed.
func (p *Pacer) Cooldown(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if until := time.Now().Add(d); until.After(p.retryAt) {
		p.retryAt = until
	}
}

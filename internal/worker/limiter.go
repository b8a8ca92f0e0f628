package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// SourceLimiter implements per-source rate limiting for the external
// search collaborators.
type SourceLimiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewSourceLimiter creates a new per-source rate limiter
func NewSourceLimiter(requestsPerSecond float64, burst int) *SourceLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &SourceLimiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until the named source has rate-limit clearance
func (l *SourceLimiter) Wait(ctx context.Context, source string) error {
	return l.getLimiter(source).Wait(ctx)
}

// Allow checks clearance for the named source without waiting
func (l *SourceLimiter) Allow(source string) bool {
	return l.getLimiter(source).Allow()
}

// SetSourceRate sets a custom rate limit for a specific source
func (l *SourceLimiter) SetSourceRate(source string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[source] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// getLimiter returns the rate limiter for a source
func (l *SourceLimiter) getLimiter(source string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[source]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[source]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[source] = limiter
	return limiter
}

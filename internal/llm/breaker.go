package llm

import (
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

// Breaker guards the completion client against provider rate limiting. A
// single rate-limit error opens the circuit for the configured cooldown;
// while open, callers fall back to deterministic resolution instead of
// queueing doomed requests. Non-rate-limit errors never trip it.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a breaker that opens on the first rate-limit error and
// stays open for cooldown.
func NewBreaker(cooldown time.Duration) *Breaker {
	settings := gobreaker.Settings{
		Name:    "llm-rate-limit",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRateLimit(err)
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Open reports whether the circuit is currently rejecting calls.
func (b *Breaker) Open() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// Do runs fn through the circuit. When the circuit is open it returns
// gobreaker.ErrOpenState without invoking fn.
func (b *Breaker) Do(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// IsRateLimit reports whether err is a provider rate-limit response.
func IsRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

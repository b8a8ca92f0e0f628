package llm

import (
	"errors"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

func rateLimitErr() error {
	return &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "rate limit exceeded"}
}

func TestBreaker_OpensOnFirstRateLimit(t *testing.T) {
	b := NewBreaker(time.Minute)
	if b.Open() {
		t.Fatal("breaker should start closed")
	}

	if err := b.Do(func() error { return rateLimitErr() }); err == nil {
		t.Fatal("expected the rate-limit error to propagate")
	}
	if !b.Open() {
		t.Error("expected breaker open after one rate-limit error")
	}

	err := b.Do(func() error { t.Error("call should not run while open"); return nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
}

func TestBreaker_IgnoresOtherErrors(t *testing.T) {
	b := NewBreaker(time.Minute)
	for i := 0; i < 5; i++ {
		if err := b.Do(func() error { return errors.New("schema mismatch") }); err == nil {
			t.Fatal("expected error to propagate")
		}
	}
	if b.Open() {
		t.Error("non-rate-limit errors must not open the breaker")
	}
}

func TestBreaker_RecoversAfterCooldown(t *testing.T) {
	b := NewBreaker(20 * time.Millisecond)
	_ = b.Do(func() error { return rateLimitErr() })
	if !b.Open() {
		t.Fatal("expected breaker open")
	}

	time.Sleep(40 * time.Millisecond)
	if err := b.Do(func() error { return nil }); err != nil {
		t.Errorf("expected half-open probe to succeed, got %v", err)
	}
	if b.Open() {
		t.Error("expected breaker closed after successful probe")
	}
}

func TestIsRateLimit(t *testing.T) {
	if !IsRateLimit(rateLimitErr()) {
		t.Error("expected 429 APIError to be a rate limit")
	}
	if IsRateLimit(&openai.APIError{HTTPStatusCode: http.StatusInternalServerError}) {
		t.Error("500 is not a rate limit")
	}
	if IsRateLimit(errors.New("timeout")) {
		t.Error("plain error is not a rate limit")
	}
	if !IsRateLimit(&openai.RequestError{HTTPStatusCode: http.StatusTooManyRequests}) {
		t.Error("expected 429 RequestError to be a rate limit")
	}
}

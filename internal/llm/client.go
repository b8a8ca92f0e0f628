// Package llm provides the optional language-model disambiguation layer:
// a provider-agnostic completion client, a rate-limit circuit breaker, and
// the strict request/response schemas the resolver exchanges with the model.
package llm

import (
	"context"
	"encoding/json"
	"time"
)

// CompletionRequest is a single structured-output completion call.
type CompletionRequest struct {
	System    string
	User      string
	MaxTokens int
	Timeout   time.Duration
}

// Completer produces a JSON object for a prompt. Implementations must
// return the raw JSON payload without surrounding prose.
type Completer interface {
	// Name identifies the backing model for logging and rationale strings
	Name() string

	// Complete runs one completion and returns the raw JSON body
	Complete(ctx context.Context, req CompletionRequest) (json.RawMessage, error)
}

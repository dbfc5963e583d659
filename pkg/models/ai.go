package models

import "context"

// Completion is the result of one model call.
type Completion struct {
	Text         string
	TokensInput  int64
	TokensOutput int64
	Model        string
	FinishReason string
}

// Provider is the core interface every AI integration must implement.
// Never call a concrete provider directly — always inject this interface.
// Errors returned by Complete must be classifiable as transient or
// permanent via IsTransient, i.e. carry a ModelError in their chain.
type Provider interface {
	// Complete sends a single prompt and returns the raw model output
	// together with token usage.
	Complete(ctx context.Context, prompt string) (Completion, error)
	// Name returns the provider identifier (e.g. "openai", "anthropic").
	Name() string
}

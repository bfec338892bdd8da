package domain

import "context"

// GenerationParams are the knobs passed through to a hosted model call.
type GenerationParams struct {
	Temperature float32
	MaxTokens   int
}

// Provider defines the interface for a hosted language-model API.
// Every provider is treated uniformly as prompt in, text out.
type Provider interface {
	// Name identifies the provider in logs and knowledge-item sources.
	Name() string
	// Ask sends a prompt and returns the generated text. Failures are
	// reported as *ProviderError so callers can distinguish retryable
	// conditions such as rate limits from hard failures.
	Ask(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// ProviderSelector asks whichever configured provider answers first.
// It returns the generated text together with the name of the provider
// that produced it; when every provider fails the error wraps
// ErrProviderUnavailable.
type ProviderSelector interface {
	AskAny(ctx context.Context, prompt string, params GenerationParams) (text, source string, err error)
}

package infrastructure

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"self-evolving-ai/domain"
)

// ProviderPool tries each configured provider in preference order and
// returns the first answer, implementing domain.ProviderSelector.
type ProviderPool struct {
	providers []domain.Provider
	logger    *zap.Logger
}

// NewProviderPool creates a pool over the given providers. The order of
// the slice is the preference order. An empty pool is a configuration
// error: without at least one provider key the system cannot run.
func NewProviderPool(logger *zap.Logger, providers ...domain.Provider) (*ProviderPool, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers configured: %w", domain.ErrProviderUnavailable)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderPool{providers: providers, logger: logger}, nil
}

// Providers returns the pool's providers in preference order.
func (p *ProviderPool) Providers() []domain.Provider {
	return p.providers
}

// AskAny queries providers in order and returns the first non-empty
// answer with the provider's name. When every provider fails, the error
// wraps domain.ErrProviderUnavailable and the last provider failure.
func (p *ProviderPool) AskAny(ctx context.Context, prompt string, params domain.GenerationParams) (string, string, error) {
	var lastErr error
	for _, provider := range p.providers {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		text, err := provider.Ask(ctx, prompt, params)
		if err != nil {
			lastErr = err
			p.logger.Warn("provider call failed",
				zap.String("provider", provider.Name()),
				zap.Bool("retryable", domain.IsRetryable(err)),
				zap.Error(err))
			continue
		}
		if text == "" {
			lastErr = fmt.Errorf("provider %s returned empty text", provider.Name())
			continue
		}
		return text, provider.Name(), nil
	}

	if lastErr != nil {
		return "", "", fmt.Errorf("%w: last failure: %v", domain.ErrProviderUnavailable, lastErr)
	}
	return "", "", domain.ErrProviderUnavailable
}

// Answerer adapts the pool to the benchmark's Answerer signature.
func (p *ProviderPool) Answerer(params domain.GenerationParams) domain.Answerer {
	return func(ctx context.Context, question string) (string, error) {
		text, _, err := p.AskAny(ctx, question, params)
		return text, err
	}
}

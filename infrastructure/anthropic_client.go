package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"self-evolving-ai/domain"
)

// AnthropicClient is a domain.Provider backed by the Anthropic
// messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropicClient creates an Anthropic provider for the given model.
func NewAnthropicClient(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is not set")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	resolved := anthropic.ModelClaude3_7SonnetLatest
	if model != "" {
		resolved = anthropic.Model(model)
	}

	return &AnthropicClient{
		client: &client,
		model:  resolved,
	}, nil
}

func (a *AnthropicClient) Name() string {
	return "anthropic"
}

// Ask sends a single-turn message and concatenates the text blocks of
// the response.
func (a *AnthropicClient) Ask(ctx context.Context, prompt string, params domain.GenerationParams) (string, error) {
	maxTokens := int64(1024)
	if params.MaxTokens > 0 {
		maxTokens = int64(params.MaxTokens)
	}

	req := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if params.Temperature > 0 {
		req.Temperature = anthropic.Float(float64(params.Temperature))
	}

	message, err := a.client.Messages.New(ctx, req)
	if err != nil {
		return "", classifyAnthropicError(err)
	}

	var builder strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			builder.WriteString(content.Text)
		}
	}
	return builder.String(), nil
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &domain.ProviderError{
			Provider:   "anthropic",
			StatusCode: apiErr.StatusCode,
			Retryable:  apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500,
			Err:        err,
		}
	}
	return &domain.ProviderError{Provider: "anthropic", Retryable: true, Err: err}
}

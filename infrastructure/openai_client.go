package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"self-evolving-ai/domain"
)

// chatClient implements domain.Provider over any OpenAI-compatible chat
// completion endpoint. OpenAIClient and GroqClient both build on it;
// only the base URL and the provider name differ.
type chatClient struct {
	name   string
	client *openai.Client
	model  string
}

func (c *chatClient) Name() string {
	return c.name
}

// Ask sends a single-turn chat completion request and returns the text
// of the first choice.
func (c *chatClient) Ask(ctx context.Context, prompt string, params domain.GenerationParams) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: params.Temperature,
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = params.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyProviderError(c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", &domain.ProviderError{
			Provider: c.name,
			Err:      errors.New("empty completion response"),
		}
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyProviderError wraps an API failure as *domain.ProviderError,
// marking rate limits and server-side failures as retryable.
func classifyProviderError(name string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ProviderError{
			Provider:   name,
			StatusCode: apiErr.HTTPStatusCode,
			Retryable:  apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500,
			Err:        err,
		}
	}
	// Network-level failures (timeouts, refused connections) are
	// transient as far as the loop is concerned.
	return &domain.ProviderError{Provider: name, Retryable: true, Err: err}
}

// OpenAIClient is a domain.Provider backed by the OpenAI chat API.
type OpenAIClient struct {
	chatClient
}

// NewOpenAIClient creates an OpenAI provider for the given model.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is not set")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{chatClient{
		name:   "openai",
		client: openai.NewClient(apiKey),
		model:  model,
	}}, nil
}

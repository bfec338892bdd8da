package infrastructure

import (
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqClient is a domain.Provider backed by the Groq chat API. Groq
// exposes an OpenAI-compatible endpoint, so the client reuses the
// go-openai transport with a different base URL.
type GroqClient struct {
	chatClient
}

// NewGroqClient creates a Groq provider for the given model.
func NewGroqClient(apiKey, model string) (*GroqClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq api key is not set")
	}
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = groqBaseURL
	return &GroqClient{chatClient{
		name:   "groq",
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}}, nil
}

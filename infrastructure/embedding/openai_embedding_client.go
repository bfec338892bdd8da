package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"self-evolving-ai/domain"
)

// OpenAIEmbeddingClient implements the domain.EmbeddingClient interface using the OpenAI API.
type OpenAIEmbeddingClient struct {
	client *openai.Client
	model  openai.EmbeddingModel // e.g., text-embedding-3-small
}

// NewOpenAIEmbeddingClient creates a new OpenAIEmbeddingClient for the
// given model. An empty model defaults to text-embedding-3-small.
func NewOpenAIEmbeddingClient(apiKey string, model openai.EmbeddingModel) (*OpenAIEmbeddingClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required for embeddings")
	}
	if model == "" {
		model = openai.SmallEmbedding3
	}
	client := openai.NewClient(apiKey)
	return &OpenAIEmbeddingClient{client: client, model: model}, nil
}

// GenerateEmbeddings generates embeddings for the given texts using the specified OpenAI model.
func (c *OpenAIEmbeddingClient) GenerateEmbeddings(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: c.model,
	}

	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	embeddings := make([]domain.Embedding, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = domain.Embedding(data.Embedding)
	}

	return embeddings, nil
}

// Dimensions reports the vector size produced by the configured model,
// used when creating the backing collection.
func (c *OpenAIEmbeddingClient) Dimensions() uint64 {
	switch c.model {
	case openai.LargeEmbedding3:
		return 3072
	case openai.AdaEmbeddingV2:
		return 1536
	default:
		return 1536
	}
}

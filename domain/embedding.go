package domain

import "context"

// Embedding is a numerical vector representation of text.
type Embedding []float32

// EmbeddingClient defines the interface for generating embeddings from text.
type EmbeddingClient interface {
	// GenerateEmbeddings generates one embedding per input text.
	GenerateEmbeddings(ctx context.Context, texts []string) ([]Embedding, error)
	// Dimensions returns the vector size produced by the underlying model.
	Dimensions() uint64
}

package domain

import "context"

// VectorMemory defines the interface for the long-term knowledge store.
type VectorMemory interface {
	// Add stores a knowledge item and returns its assigned ID.
	Add(ctx context.Context, item KnowledgeItem) (string, error)
	// Search returns up to k items ordered by descending similarity to the query.
	Search(ctx context.Context, query string, k int) ([]KnowledgeItem, error)
	// Count returns the number of stored items.
	Count(ctx context.Context) (uint64, error)
}

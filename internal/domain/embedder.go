package domain

import "context"

// Embedder produces fixed-dimension embedding vectors for text.
type Embedder interface {
	// Embed encodes a single text, typically a query or pinned passage.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch encodes texts in one call, returning one vector per input
	// in the same order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Version() string
}

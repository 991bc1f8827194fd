package interfaces

import (
	"context"
)

// EmbeddingService generates L2-normalized vector embeddings
type EmbeddingService interface {
	// Embed generates an embedding for a single text (used for queries)
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts in order and reports the USD cost of the call
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, float64, error)

	ModelName() string
	Dimension() int
}

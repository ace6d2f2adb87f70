package embeddings

import "context"

// Provider generates vector embeddings for text. Implementations can use
// different backends; the repository layer only depends on this interface.
type Provider interface {
	// GenerateEmbedding creates a vector embedding for a single text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the dimensionality of embeddings produced by this provider
	Dimensions() int

	// Name returns the model name used for filtering stored embeddings
	Name() string
}

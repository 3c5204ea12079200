package embedding

import "context"

// Embedder converts free text into an L2-normalized vector representation
// suitable for cosine similarity search.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

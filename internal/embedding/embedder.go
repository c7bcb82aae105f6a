// Package embedding provides text embedding providers and caching. Models
// are never run in-process; vectors come from an external provider.
package embedding

import "context"

// Embedder produces vector embeddings for text. Provider failures are
// reported as models.ErrEmbeddingUnavailable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

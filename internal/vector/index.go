// Package vector provides vector indices and cosine similarity search.
package vector

import "context"

// VectorIndex defines vector storage and similarity search. Every vector
// passed in, stored or queried, must have exactly Dimensions() components.
type VectorIndex interface {
	// Add stores vectors under ids, replacing any previous vector for an id.
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns up to k hits by cosine similarity descending, ties by
	// id ascending.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Close() error
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	ID    string
	Score float64 // cosine similarity in [-1, 1]
}

package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses exact brute-force search. Good for small corpora
	// and as the reference for approximate results.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeHNSW uses an approximate graph search.
	IndexTypeHNSW IndexType = "hnsw"
)

// NewVectorIndex creates a vector index of the specified type.
// Supported types: "memory" (default), "hnsw". Options only apply to hnsw.
func NewVectorIndex(indexType string, dimensions int, opts ...HNSWOption) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions)
	case IndexTypeHNSW:
		return NewHNSWIndex(dimensions, opts...)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, hnsw)", indexType)
	}
}

package vector

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

type memorySnapshot struct {
	ids     []string
	vectors [][]float32 // unit length
	pos     map[string]int
}

// MemoryIndex is an exact vector index using brute-force cosine search.
// Writers publish a new snapshot; searches run lock-free on the snapshot
// current when they started.
type MemoryIndex struct {
	dimensions int
	writeMu    sync.Mutex
	current    atomic.Pointer[memorySnapshot]
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	m := &MemoryIndex{dimensions: dimensions}
	m.current.Store(&memorySnapshot{pos: map[string]int{}})
	return m, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Dimensions returns the configured vector length.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Add stores vectors, replacing existing ids in place.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	if err := checkDimensions(m.dimensions, vectors...); err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	cur := m.current.Load()
	next := &memorySnapshot{
		ids:     append(make([]string, 0, len(cur.ids)+len(ids)), cur.ids...),
		vectors: append(make([][]float32, 0, len(cur.vectors)+len(ids)), cur.vectors...),
		pos:     make(map[string]int, len(cur.pos)+len(ids)),
	}
	for id, p := range cur.pos {
		next.pos[id] = p
	}
	for i, id := range ids {
		vec := Normalize(vectors[i])
		if p, ok := next.pos[id]; ok {
			next.vectors[p] = vec
			continue
		}
		next.pos[id] = len(next.ids)
		next.ids = append(next.ids, id)
		next.vectors = append(next.vectors, vec)
	}
	m.current.Store(next)
	return nil
}

// Search scans every vector and returns the top k by cosine similarity.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if err := checkDimensions(m.dimensions, query); err != nil {
		return nil, err
	}
	snap := m.current.Load()
	if k <= 0 || len(snap.ids) == 0 {
		return []*VectorResult{}, nil
	}
	q := Normalize(query)
	results := make([]*VectorResult, len(snap.ids))
	for i, vec := range snap.vectors {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		results[i] = &VectorResult{ID: snap.ids[i], Score: clampCosine(InnerProduct(q, vec))}
	}
	sortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Remove deletes vectors by id. Unknown ids are ignored.
func (m *MemoryIndex) Remove(ctx context.Context, ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	cur := m.current.Load()
	present := false
	for id := range removeSet {
		if _, ok := cur.pos[id]; ok {
			present = true
			break
		}
	}
	if !present {
		return nil
	}
	next := &memorySnapshot{
		ids:     make([]string, 0, len(cur.ids)),
		vectors: make([][]float32, 0, len(cur.vectors)),
		pos:     make(map[string]int, len(cur.pos)),
	}
	for i, id := range cur.ids {
		if removeSet[id] {
			continue
		}
		next.pos[id] = len(next.ids)
		next.ids = append(next.ids, id)
		next.vectors = append(next.vectors, cur.vectors[i])
	}
	m.current.Store(next)
	return nil
}

// Save persists the index to path. An empty path is a no-op.
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	snap := m.current.Load()
	return writeVectors(path, m.dimensions, snap.ids, snap.vectors)
}

// Load replaces the index contents with the vectors stored at path.
// If the file does not exist the index is unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	ids, vectors, err := readVectors(path, m.dimensions)
	if err != nil || ids == nil {
		return err
	}
	next := &memorySnapshot{pos: make(map[string]int, len(ids))}
	for i, id := range ids {
		if p, ok := next.pos[id]; ok {
			next.vectors[p] = Normalize(vectors[i])
			continue
		}
		next.pos[id] = len(next.ids)
		next.ids = append(next.ids, id)
		next.vectors = append(next.vectors, Normalize(vectors[i]))
	}

	m.writeMu.Lock()
	m.current.Store(next)
	m.writeMu.Unlock()
	return nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	return len(m.current.Load().ids)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

func clampCosine(c float64) float64 {
	return math.Max(-1, math.Min(1, c))
}

package vector

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// HNSW defaults.
const (
	DefaultHNSWM              = 16
	DefaultHNSWEfConstruction = 200
	DefaultHNSWEfSearch       = 64
)

// HNSWIndex is an approximate vector index over a hierarchical navigable
// small world graph. Candidates are re-ranked by exact cosine before
// returning.
//
// Add takes the write lock once per vector rather than once per batch, so
// searches interleave with a large batch insert and may observe part of it.
// A batch therefore is not atomic with respect to concurrent readers.
type HNSWIndex struct {
	dimensions     int
	m              int
	efConstruction int
	efSearch       int
	seed           int64

	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	vectors map[string][]float32 // unit length, mirrors the graph
}

// HNSWOption configures an HNSWIndex.
type HNSWOption func(*HNSWIndex)

// WithM sets the maximum number of neighbors kept per node.
func WithM(m int) HNSWOption {
	return func(h *HNSWIndex) {
		if m >= 2 {
			h.m = m
		}
	}
}

// WithEfConstruction sets the candidate list size used while inserting.
func WithEfConstruction(ef int) HNSWOption {
	return func(h *HNSWIndex) {
		if ef > 0 {
			h.efConstruction = ef
		}
	}
}

// WithEfSearch sets the minimum candidate list size used while searching.
func WithEfSearch(ef int) HNSWOption {
	return func(h *HNSWIndex) {
		if ef > 0 {
			h.efSearch = ef
		}
	}
}

// WithSeed fixes the level generator so graph construction is reproducible.
func WithSeed(seed uint64) HNSWOption {
	return func(h *HNSWIndex) {
		h.seed = int64(seed)
	}
}

// NewHNSWIndex creates an empty approximate index.
func NewHNSWIndex(dimensions int, opts ...HNSWOption) (*HNSWIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	h := &HNSWIndex{
		dimensions:     dimensions,
		m:              DefaultHNSWM,
		efConstruction: DefaultHNSWEfConstruction,
		efSearch:       DefaultHNSWEfSearch,
		seed:           1,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.reset()
	return h, nil
}

// reset replaces the graph with an empty one. Callers hold the write lock
// or own h exclusively.
func (h *HNSWIndex) reset() {
	g := hnsw.NewGraph[string]()
	g.M = h.m
	g.EfSearch = h.efSearch
	g.Distance = hnsw.CosineDistance
	g.Rng = rand.New(rand.NewSource(h.seed))
	h.graph = g
	h.vectors = make(map[string][]float32)
}

// Type returns the index type identifier.
func (h *HNSWIndex) Type() string {
	return string(IndexTypeHNSW)
}

// Dimensions returns the configured vector length.
func (h *HNSWIndex) Dimensions() int {
	return h.dimensions
}

// Add inserts vectors, replacing any previous vector for an id.
func (h *HNSWIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	if err := checkDimensions(h.dimensions, vectors...); err != nil {
		return err
	}
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		vec := Normalize(vectors[i])
		h.mu.Lock()
		h.insert(id, vec)
		h.mu.Unlock()
	}
	return nil
}

// insert adds one node under the write lock. The graph's beam width is
// efConstruction while inserting and efSearch otherwise.
func (h *HNSWIndex) insert(id string, vec []float32) {
	if _, ok := h.vectors[id]; ok {
		h.drop(id)
	}
	h.graph.EfSearch = max(h.efConstruction, h.efSearch)
	h.graph.Add(hnsw.MakeNode(id, vec))
	h.graph.EfSearch = h.efSearch
	h.vectors[id] = vec
}

// drop unlinks id from the graph. An emptied graph is replaced so the next
// insert starts from a fresh entry point.
func (h *HNSWIndex) drop(id string) {
	delete(h.vectors, id)
	if len(h.vectors) == 0 {
		h.reset()
		return
	}
	h.graph.Delete(id)
}

// Search returns up to k approximate nearest neighbors by cosine similarity.
func (h *HNSWIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if err := checkDimensions(h.dimensions, query); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if k <= 0 || len(h.vectors) == 0 {
		return []*VectorResult{}, nil
	}

	q := Normalize(query)
	nodes := h.graph.Search(q, min(max(k, h.efSearch), len(h.vectors)))
	results := make([]*VectorResult, 0, len(nodes))
	for _, n := range nodes {
		vec, ok := h.vectors[n.Key]
		if !ok {
			continue
		}
		results = append(results, &VectorResult{ID: n.Key, Score: clampCosine(InnerProduct(q, vec))})
	}
	sortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Remove deletes vectors by id. Unknown ids are ignored.
func (h *HNSWIndex) Remove(ctx context.Context, ids []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		if _, ok := h.vectors[id]; ok {
			h.drop(id)
		}
	}
	return nil
}

// Save persists vectors to path. The graph is rebuilt on Load.
func (h *HNSWIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	h.mu.RLock()
	ids := make([]string, 0, len(h.vectors))
	for id := range h.vectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	vectors := make([][]float32, len(ids))
	for i, id := range ids {
		vectors[i] = h.vectors[id]
	}
	h.mu.RUnlock()
	return writeVectors(path, h.dimensions, ids, vectors)
}

// Load replaces the index with the vectors stored at path, rebuilding the
// graph. If the file does not exist the index is unchanged.
func (h *HNSWIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	ids, vectors, err := readVectors(path, h.dimensions)
	if err != nil || ids == nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reset()
	for i, id := range ids {
		h.insert(id, Normalize(vectors[i]))
	}
	return nil
}

// Size returns the number of stored vectors.
func (h *HNSWIndex) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.vectors)
}

// Close is a no-op for HNSWIndex.
func (h *HNSWIndex) Close() error {
	return nil
}

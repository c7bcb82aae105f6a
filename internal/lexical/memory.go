package lexical

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hyperjump/hybridrank/internal/models"
)

// BM25 parameters.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

var errIndexClosed = errors.New("lexical index is closed")

// docStats holds the per-document statistics a snapshot needs for scoring.
type docStats struct {
	length   int
	terms    map[string]int // term -> frequency within the document
	metadata map[string]interface{}
}

// snapshot is an immutable view of the index. Writers never mutate a
// published snapshot; they derive a new one and swap it in.
type snapshot struct {
	docs     map[string]*docStats
	postings map[string]map[string]int // term -> docID -> tf
	totalLen int
}

func (s *snapshot) avgLen() float64 {
	if len(s.docs) == 0 {
		return 0
	}
	return float64(s.totalLen) / float64(len(s.docs))
}

// MemoryIndex is an in-memory BM25 index. Reads load the current snapshot
// without locking; writes are serialized and publish a new snapshot that
// shares every posting list they did not touch.
type MemoryIndex struct {
	k1, b float64

	writeMu sync.Mutex
	current atomic.Pointer[snapshot]
	closed  atomic.Bool
}

// MemoryOption configures a MemoryIndex.
type MemoryOption func(*MemoryIndex)

// WithBM25 overrides the k1 and b parameters. Non-positive k1 or b outside
// [0,1] are ignored.
func WithBM25(k1, b float64) MemoryOption {
	return func(m *MemoryIndex) {
		if k1 > 0 {
			m.k1 = k1
		}
		if b >= 0 && b <= 1 {
			m.b = b
		}
	}
}

// NewMemoryIndex creates an empty in-memory BM25 index.
func NewMemoryIndex(opts ...MemoryOption) *MemoryIndex {
	m := &MemoryIndex{k1: DefaultK1, b: DefaultB}
	for _, opt := range opts {
		opt(m)
	}
	m.current.Store(&snapshot{
		docs:     map[string]*docStats{},
		postings: map[string]map[string]int{},
	})
	return m
}

// Index adds or replaces a document.
func (m *MemoryIndex) Index(ctx context.Context, doc *models.Document) error {
	return m.IndexBatch(ctx, []*models.Document{doc})
}

// IndexBatch adds or replaces several documents and publishes them as a
// single snapshot.
func (m *MemoryIndex) IndexBatch(ctx context.Context, docs []*models.Document) error {
	if m.closed.Load() {
		return errIndexClosed
	}
	for _, doc := range docs {
		if doc == nil || doc.ID == "" {
			return &models.ValidationError{Field: "id", Reason: "document id cannot be empty"}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	next := m.current.Load().clone()
	copied := make(map[string]bool)
	for _, doc := range docs {
		next.remove(doc.ID, copied)
		next.add(doc, copied)
	}
	m.current.Store(next)
	return nil
}

// Delete removes a document. Deleting an unknown id is a no-op.
func (m *MemoryIndex) Delete(ctx context.Context, id string) error {
	if m.closed.Load() {
		return errIndexClosed
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	cur := m.current.Load()
	if _, ok := cur.docs[id]; !ok {
		return nil
	}
	next := cur.clone()
	next.remove(id, make(map[string]bool))
	m.current.Store(next)
	return nil
}

// Search scores every document sharing at least one term with query.
func (m *MemoryIndex) Search(ctx context.Context, query string, limit int, filters map[string]interface{}) ([]*Result, error) {
	if m.closed.Load() {
		return nil, errIndexClosed
	}
	if limit <= 0 {
		return nil, models.ErrInvalidLimit
	}
	snap := m.current.Load()
	terms := uniqueTerms(Tokenize(query))
	if len(terms) == 0 || len(snap.docs) == 0 {
		return []*Result{}, nil
	}

	n := float64(len(snap.docs))
	avg := snap.avgLen()
	scores := make(map[string]float64)
	for _, term := range terms {
		posting, ok := snap.postings[term]
		if !ok {
			continue
		}
		df := float64(len(posting))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for id, tf := range posting {
			stats := snap.docs[id]
			norm := m.k1 * (1 - m.b + m.b*float64(stats.length)/avg)
			scores[id] += idf * (float64(tf) * (m.k1 + 1)) / (float64(tf) + norm)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	out := make([]*Result, 0, len(scores))
	for id, score := range scores {
		if score <= 0 || !MatchesFilters(snap.docs[id].metadata, filters) {
			continue
		}
		out = append(out, &Result{ID: id, Score: score})
	}
	SortResults(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DocCount returns the total number of documents in the index.
func (m *MemoryIndex) DocCount() (uint64, error) {
	return uint64(len(m.current.Load().docs)), nil
}

// Close releases the index. Subsequent calls fail.
func (m *MemoryIndex) Close() error {
	m.closed.Store(true)
	return nil
}

// GetAllTerms returns the indexed vocabulary in lexical order.
func (m *MemoryIndex) GetAllTerms() ([]string, error) {
	snap := m.current.Load()
	terms := make([]string, 0, len(snap.postings))
	for t := range snap.postings {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms, nil
}

// GetTermFrequency returns the number of documents containing term.
func (m *MemoryIndex) GetTermFrequency(term string) (int, error) {
	return len(m.current.Load().postings[term]), nil
}

// ContainsTerm checks if a term exists in the index.
func (m *MemoryIndex) ContainsTerm(term string) (bool, error) {
	_, ok := m.current.Load().postings[term]
	return ok, nil
}

// clone copies the top-level maps. Posting lists stay shared until a writer
// touches them.
func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		docs:     make(map[string]*docStats, len(s.docs)+1),
		postings: make(map[string]map[string]int, len(s.postings)),
		totalLen: s.totalLen,
	}
	for id, d := range s.docs {
		next.docs[id] = d
	}
	for t, p := range s.postings {
		next.postings[t] = p
	}
	return next
}

// posting returns a writable posting list for term, copying the shared one
// the first time it is touched in this write.
func (s *snapshot) posting(term string, copied map[string]bool) map[string]int {
	if copied[term] {
		return s.postings[term]
	}
	old := s.postings[term]
	p := make(map[string]int, len(old)+1)
	for id, tf := range old {
		p[id] = tf
	}
	s.postings[term] = p
	copied[term] = true
	return p
}

func (s *snapshot) remove(id string, copied map[string]bool) {
	stats, ok := s.docs[id]
	if !ok {
		return
	}
	for term := range stats.terms {
		p := s.posting(term, copied)
		delete(p, id)
		if len(p) == 0 {
			delete(s.postings, term)
			delete(copied, term)
		}
	}
	s.totalLen -= stats.length
	delete(s.docs, id)
}

func (s *snapshot) add(doc *models.Document, copied map[string]bool) {
	tokens := Tokenize(doc.Title + " " + doc.Text)
	stats := &docStats{
		length:   len(tokens),
		terms:    make(map[string]int),
		metadata: doc.Metadata,
	}
	for _, t := range tokens {
		stats.terms[t]++
	}
	for term, tf := range stats.terms {
		s.posting(term, copied)[doc.ID] = tf
	}
	s.totalLen += stats.length
	s.docs[doc.ID] = stats
}

// SortResults orders results by score descending, ties by id ascending.
func SortResults(results []*Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}

// MatchesFilters reports whether metadata satisfies every filter by
// equality. Filters with no metadata counterpart never match.
func MatchesFilters(metadata, filters map[string]interface{}) bool {
	for k, want := range filters {
		got, ok := metadata[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

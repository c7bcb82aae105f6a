// Package lexical provides term-based (BM25) indexing and search.
package lexical

import (
	"context"

	"github.com/hyperjump/hybridrank/internal/models"
)

// Index defines lexical search operations. Implementations must be safe for
// concurrent use; searches never observe a partially applied write.
type Index interface {
	// Index adds or replaces a document. Re-indexing an id replaces its
	// term statistics.
	Index(ctx context.Context, doc *models.Document) error
	// Search returns up to limit hits ordered by score descending, ties by
	// id ascending. Documents with zero score are omitted.
	Search(ctx context.Context, query string, limit int, filters map[string]interface{}) ([]*Result, error)
	Delete(ctx context.Context, id string) error
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
	Close() error
}

// Result is a single lexical search hit.
type Result struct {
	ID    string
	Score float64
}

// TermDictionary provides access to the term dictionary for spell checking.
type TermDictionary interface {
	// GetAllTerms returns all unique terms in the index.
	GetAllTerms() ([]string, error)
	// GetTermFrequency returns the document frequency for a term.
	GetTermFrequency(term string) (int, error)
	// ContainsTerm checks if a term exists in the index.
	ContainsTerm(term string) (bool, error)
}

package lexical

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/hybridrank/internal/models"
)

// bleveDoc is the indexed shape of a document. Embeddings are never indexed.
// Metadata is reduced to exact "key=value" filter terms.
type bleveDoc struct {
	Title   string   `json:"title"`
	Text    string   `json:"text"`
	Filters []string `json:"filters,omitempty"`
}

const filterField = "filters"

// filterTerm renders one metadata pair the way MatchesFilters compares it.
func filterTerm(key string, value interface{}) string {
	return key + "=" + fmt.Sprint(value)
}

func filterTerms(metadata map[string]interface{}) []string {
	if len(metadata) == 0 {
		return nil
	}
	terms := make([]string, 0, len(metadata))
	for k, v := range metadata {
		terms = append(terms, filterTerm(k, v))
	}
	sort.Strings(terms)
	return terms
}

// BleveIndex implements Index on a persistent Bleve index.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path
// creates an in-memory index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase and tokenize, no stemming, matching Tokenize.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	filterMapping := bleve.NewTextFieldMapping()
	filterMapping.Analyzer = keyword.Name
	filterMapping.IncludeInAll = false
	filterMapping.IncludeTermVectors = false
	docMapping.AddFieldMappingsAt(filterField, filterMapping)
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes a document by id.
func (b *BleveIndex) Index(ctx context.Context, doc *models.Document) error {
	if doc == nil || doc.ID == "" {
		return &models.ValidationError{Field: "id", Reason: "document id cannot be empty"}
	}
	return b.index.Index(doc.ID, bleveDoc{Title: doc.Title, Text: doc.Text, Filters: filterTerms(doc.Metadata)})
}

// Search runs a match query over title and text. Each filter is an exact
// term query on the keyword-analyzed filter field, combined by conjunction.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, filters map[string]interface{}) ([]*Result, error) {
	if limit <= 0 {
		return nil, models.ErrInvalidLimit
	}
	if len(Tokenize(query)) == 0 {
		return []*Result{}, nil
	}

	var q blevequery.Query = bleve.NewMatchQuery(query)
	if len(filters) > 0 {
		keys := make([]string, 0, len(filters))
		for k := range filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		conj := []blevequery.Query{q}
		for _, k := range keys {
			fq := bleve.NewTermQuery(filterTerm(k, filters[k]))
			fq.SetField(filterField)
			conj = append(conj, fq)
		}
		q = bleve.NewConjunctionQuery(conj...)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.SortBy([]string{"-_score", "_id"})
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		if hit.Score <= 0 {
			continue
		}
		out = append(out, &Result{ID: hit.ID, Score: hit.Score})
	}
	return out, nil
}

// Delete removes a document from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// GetAllTerms returns all unique terms from the title and text dictionaries.
func (b *BleveIndex) GetAllTerms() ([]string, error) {
	seen := make(map[string]struct{})
	terms := make([]string, 0)
	for _, field := range []string{"text", "title"} {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s dictionary: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			if _, ok := seen[entry.Term]; !ok {
				terms = append(terms, entry.Term)
				seen[entry.Term] = struct{}{}
			}
		}
		_ = dict.Close()
	}
	sort.Strings(terms)
	return terms, nil
}

// GetTermFrequency returns the number of documents containing the term.
func (b *BleveIndex) GetTermFrequency(term string) (int, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(term))
	req.Size = 0
	results, err := b.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("failed to search for term frequency: %w", err)
	}
	return int(results.Total), nil
}

// ContainsTerm checks if a term exists in the index.
func (b *BleveIndex) ContainsTerm(term string) (bool, error) {
	freq, err := b.GetTermFrequency(term)
	if err != nil {
		return false, err
	}
	return freq > 0, nil
}

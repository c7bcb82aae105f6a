package models

// Source identifies a retrieval branch.
type Source string

const (
	SourceLexical   Source = "lexical"
	SourceVector    Source = "vector"
	SourceEmbedding Source = "embedding"
)

// ScoredHit is a fused hit. Ranks are 1-based; zero means the document was
// absent from that list, in which case the matching raw score is nil.
type ScoredHit struct {
	DocumentID   string   `json:"document_id"`
	FusedScore   float64  `json:"fused_score"`
	LexicalScore *float64 `json:"lexical_score"`
	VectorScore  *float64 `json:"vector_score"`
	LexicalRank  int      `json:"lexical_rank,omitempty"`
	VectorRank   int      `json:"vector_rank,omitempty"`
	Rank         int      `json:"rank"`
}

// Sources lists the branches that contributed to the hit.
func (h *ScoredHit) Sources() []Source {
	var out []Source
	if h.LexicalRank > 0 {
		out = append(out, SourceLexical)
	}
	if h.VectorRank > 0 {
		out = append(out, SourceVector)
	}
	return out
}

// ResultRecord is a presented search result.
type ResultRecord struct {
	Rank         int       `json:"rank"`
	DocumentID   string    `json:"document_id"`
	FusedScore   float64   `json:"fused_score"`
	LexicalScore *float64  `json:"lexical_score"`
	VectorScore  *float64  `json:"vector_score"`
	LexicalRank  int       `json:"lexical_rank,omitempty"`
	VectorRank   int       `json:"vector_rank,omitempty"`
	Sources      []Source  `json:"sources"`
	Document     *Document `json:"document,omitempty"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []ResultRecord `json:"results"`
	// Partial is set when one retrieval branch failed or timed out and the
	// results come from the other branch alone.
	Partial  bool     `json:"partial"`
	Degraded []Source `json:"degraded,omitempty"`
	// Expansions are the lexical expansion terms actually applied.
	Expansions []string `json:"expansions,omitempty"`
	QueryTime  int64    `json:"query_time_ms"`
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Package fusion merges independently ranked result lists with weighted
// Reciprocal Rank Fusion.
package fusion

import (
	"sort"

	"github.com/hyperjump/hybridrank/internal/models"
)

// Defaults for the fusion parameters.
const (
	// DefaultK is the RRF smoothing constant (Cormack et al. 2009).
	DefaultK = 60.0
	// DefaultAlpha weights the lexical list; the vector list gets 1-alpha.
	DefaultAlpha = 0.3
)

// Ranked is one entry of a source list, already ordered best first.
type Ranked struct {
	ID    string
	Score float64
}

// Params are the fusion parameters.
type Params struct {
	K     float64
	Alpha float64
}

// DefaultParams returns k=60, alpha=0.3.
func DefaultParams() Params {
	return Params{K: DefaultK, Alpha: DefaultAlpha}
}

// Validate checks that alpha is in [0,1] and k is positive.
func (p Params) Validate() error {
	if !models.ValidAlpha(p.Alpha) {
		return models.ErrInvalidFusionWeight
	}
	if !models.ValidK(p.K) {
		return models.ErrInvalidSmoothing
	}
	return nil
}

// Contribution is the reciprocal-rank contribution 1/(k+rank) of a 1-based
// rank. Rank 0 means absent and contributes nothing.
func Contribution(k float64, rank int) float64 {
	if rank <= 0 {
		return 0
	}
	return 1 / (k + float64(rank))
}

// Fuse merges the lexical and vector lists:
//
//	fused(d) = alpha/(k + rankLex(d)) + (1-alpha)/(k + rankVec(d))
//
// A document missing from one list gets 0 from it. The union is ordered by
// fused score descending, ties by id ascending, and truncated to limit.
// If an id repeats within one list only its first (best) rank counts.
// The output is a pure function of the inputs.
func Fuse(lexical, vector []Ranked, p Params, limit int) ([]models.ScoredHit, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, models.ErrInvalidLimit
	}

	merged := make(map[string]*models.ScoredHit, len(lexical)+len(vector))
	get := func(id string) *models.ScoredHit {
		h, ok := merged[id]
		if !ok {
			h = &models.ScoredHit{DocumentID: id}
			merged[id] = h
		}
		return h
	}
	for i, r := range lexical {
		h := get(r.ID)
		if h.LexicalRank != 0 {
			continue
		}
		h.LexicalRank = i + 1
		h.LexicalScore = models.Float64Ptr(r.Score)
	}
	for i, r := range vector {
		h := get(r.ID)
		if h.VectorRank != 0 {
			continue
		}
		h.VectorRank = i + 1
		h.VectorScore = models.Float64Ptr(r.Score)
	}

	hits := make([]models.ScoredHit, 0, len(merged))
	for _, h := range merged {
		h.FusedScore = p.Alpha*Contribution(p.K, h.LexicalRank) + (1-p.Alpha)*Contribution(p.K, h.VectorRank)
		hits = append(hits, *h)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].FusedScore != hits[j].FusedScore {
			return hits[i].FusedScore > hits[j].FusedScore
		}
		return hits[i].DocumentID < hits[j].DocumentID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	for i := range hits {
		hits[i].Rank = i + 1
	}
	return hits, nil
}

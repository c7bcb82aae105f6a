package models

import (
	"math"
	"strings"
	"time"
)

// SearchQuery represents a hybrid search request.
type SearchQuery struct {
	Query string `json:"query" yaml:"query"`
	Limit int    `json:"limit" yaml:"limit"`
	// Alpha is the lexical fusion weight; nil uses the configured default.
	Alpha *float64 `json:"alpha,omitempty" yaml:"alpha,omitempty"`
	// K is the RRF smoothing constant; nil uses the configured default.
	K *float64 `json:"k,omitempty" yaml:"k,omitempty"`
	// Expansions are extra lexical terms supplied by the caller.
	Expansions []string `json:"expansions,omitempty" yaml:"expansions,omitempty"`
	// Filters restrict hits by metadata equality. They are opaque to fusion.
	Filters map[string]interface{} `json:"filters,omitempty" yaml:"filters,omitempty"`
	// Timeout bounds each retrieval branch; zero uses the configured default.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Validate checks the caller-controlled fields. It never rewrites them.
func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return ErrEmptyQuery
	}
	if q.Limit <= 0 {
		return ErrInvalidLimit
	}
	if q.Alpha != nil && !ValidAlpha(*q.Alpha) {
		return ErrInvalidFusionWeight
	}
	if q.K != nil && !ValidK(*q.K) {
		return ErrInvalidSmoothing
	}
	return nil
}

// ValidAlpha reports whether alpha is a usable fusion weight.
func ValidAlpha(alpha float64) bool {
	return !math.IsNaN(alpha) && alpha >= 0 && alpha <= 1
}

// ValidK reports whether k is a usable RRF smoothing constant.
func ValidK(k float64) bool {
	return !math.IsNaN(k) && !math.IsInf(k, 0) && k > 0
}

// Package metrics exposes Prometheus collectors for search, fusion,
// embedding and match scoring. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hybridrank"

// Metrics groups the collectors of one process.
type Metrics struct {
	SearchRequestsTotal    *prometheus.CounterVec
	SearchDuration         prometheus.Histogram
	SearchDegradedTotal    *prometheus.CounterVec
	BranchDuration         *prometheus.HistogramVec
	FusionCandidates       prometheus.Histogram
	EmbeddingRequestsTotal *prometheus.CounterVec
	EmbeddingCacheTotal    *prometheus.CounterVec
	DocumentsIndexedTotal  *prometheus.CounterVec
	MatchScore             prometheus.Histogram
}

// New creates the collectors and registers them on reg. A nil reg creates
// unregistered collectors, which is handy in tests.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		SearchRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Total number of search requests",
			},
			[]string{"status"}, // ok, partial, invalid, unavailable, error
		),
		SearchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "End-to-end search duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		SearchDegradedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_degraded_total",
				Help:      "Searches answered without one retrieval branch",
			},
			[]string{"source"},
		),
		BranchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_branch_duration_seconds",
				Help:      "Retrieval branch duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"source"},
		),
		FusionCandidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fusion_candidates",
				Help:      "Number of hits entering fusion per search",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		EmbeddingRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_requests_total",
				Help:      "Total number of embedding requests",
			},
			[]string{"status"},
		),
		EmbeddingCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_cache_total",
				Help:      "Embedding cache hits and misses",
			},
			[]string{"result"}, // "hit" / "miss"
		),
		DocumentsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_indexed_total",
				Help:      "Documents indexed",
			},
			[]string{"status"},
		),
		MatchScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "match_overall_score",
				Help:      "Distribution of overall match scores",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SearchRequestsTotal,
		m.SearchDuration,
		m.SearchDegradedTotal,
		m.BranchDuration,
		m.FusionCandidates,
		m.EmbeddingRequestsTotal,
		m.EmbeddingCacheTotal,
		m.DocumentsIndexedTotal,
		m.MatchScore,
	}
}

// ObserveSearch records one finished search.
func (m *Metrics) ObserveSearch(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SearchRequestsTotal.WithLabelValues(status).Inc()
	m.SearchDuration.Observe(elapsed.Seconds())
}

// ObserveBranch records the duration of one retrieval branch.
func (m *Metrics) ObserveBranch(source string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BranchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// Degraded records a search that dropped source.
func (m *Metrics) Degraded(source string) {
	if m == nil {
		return
	}
	m.SearchDegradedTotal.WithLabelValues(source).Inc()
}

// ObserveCandidates records the fusion input size.
func (m *Metrics) ObserveCandidates(n int) {
	if m == nil {
		return
	}
	m.FusionCandidates.Observe(float64(n))
}

// Embedding records an embedding request outcome.
func (m *Metrics) Embedding(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EmbeddingRequestsTotal.WithLabelValues(status).Inc()
}

// CacheLookup records an embedding cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.EmbeddingCacheTotal.WithLabelValues(result).Inc()
}

// Indexed records an indexing outcome.
func (m *Metrics) Indexed(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.DocumentsIndexedTotal.WithLabelValues(status).Inc()
}

// ObserveMatch records an overall match score.
func (m *Metrics) ObserveMatch(score float64) {
	if m == nil {
		return
	}
	m.MatchScore.Observe(score)
}

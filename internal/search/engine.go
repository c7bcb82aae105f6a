// Package search provides the hybrid search engine: it plans a query, runs
// the lexical and vector branches concurrently, fuses their rankings, and
// presents the result.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/hybridrank/internal/embedding"
	"github.com/hyperjump/hybridrank/internal/fusion"
	"github.com/hyperjump/hybridrank/internal/lexical"
	"github.com/hyperjump/hybridrank/internal/metrics"
	"github.com/hyperjump/hybridrank/internal/models"
	"github.com/hyperjump/hybridrank/internal/planner"
	"github.com/hyperjump/hybridrank/internal/presenter"
	"github.com/hyperjump/hybridrank/internal/vector"
)

// Defaults for engine settings.
const (
	DefaultTopKCandidates = 100
	DefaultSourceTimeout  = 2 * time.Second
)

// Search outcome labels for metrics.
const (
	statusOK          = "ok"
	statusPartial     = "partial"
	statusInvalid     = "invalid"
	statusUnavailable = "unavailable"
	statusError       = "error"
)

// LexicalSearcher is the lexical branch collaborator. lexical.Index satisfies it.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, limit int, filters map[string]interface{}) ([]*lexical.Result, error)
}

// VectorSearcher is the vector branch collaborator. vector.VectorIndex satisfies it.
type VectorSearcher interface {
	Search(ctx context.Context, query []float32, k int) ([]*vector.VectorResult, error)
}

// Engine runs hybrid (lexical + vector) search. It holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	lexical   LexicalSearcher
	vector    VectorSearcher
	embedder  embedding.Embedder
	planner   *planner.Planner
	presenter *presenter.Presenter
	resolver  presenter.DocumentResolver
	params    fusion.Params
	topK      int
	timeout   time.Duration
	maxLimit  int
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFusionParams sets the default k and alpha. Per-query values override them.
func WithFusionParams(p fusion.Params) Option {
	return func(e *Engine) { e.params = p }
}

// WithTopKCandidates sets how many hits each branch contributes to fusion.
func WithTopKCandidates(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topK = n
		}
	}
}

// WithSourceTimeout sets the default per-request bound on both branches.
// Zero disables it.
func WithSourceTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.timeout = d
		}
	}
}

// WithMaxLimit rejects queries asking for more than n results. Zero means no cap.
func WithMaxLimit(n int) Option {
	return func(e *Engine) { e.maxLimit = n }
}

// WithPlanner sets the query planner.
func WithPlanner(p *planner.Planner) Option {
	return func(e *Engine) { e.planner = p }
}

// WithPresenter sets the result presenter.
func WithPresenter(p *presenter.Presenter) Option {
	return func(e *Engine) { e.presenter = p }
}

// WithDocumentResolver lets the vector branch apply query filters by
// looking up candidate metadata. Without it, filters only narrow the
// lexical branch.
func WithDocumentResolver(r presenter.DocumentResolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(lex LexicalSearcher, vec VectorSearcher, embedder embedding.Embedder, opts ...Option) (*Engine, error) {
	if lex == nil || vec == nil || embedder == nil {
		return nil, fmt.Errorf("lexical index, vector index and embedder are required")
	}
	e := &Engine{
		lexical:  lex,
		vector:   vec,
		embedder: embedder,
		params:   fusion.DefaultParams(),
		topK:     DefaultTopKCandidates,
		timeout:  DefaultSourceTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fusion defaults: %w", err)
	}
	if e.planner == nil {
		e.planner = planner.New(planner.WithDimensions(embedder.Dimensions()), planner.WithLogger(e.logger))
	}
	if e.presenter == nil {
		e.presenter = presenter.New(presenter.WithLogger(e.logger))
	}
	return e, nil
}

// branchResult is the outcome of one retrieval branch.
type branchResult struct {
	ranked []fusion.Ranked
	err    error
}

// Search runs hybrid search. A failing or slow branch is dropped and the
// response is marked partial; the search only fails when both branches do.
func (e *Engine) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	resp, status, err := e.search(ctx, q)
	e.metrics.ObserveSearch(status, time.Since(start))
	if err != nil {
		return nil, err
	}
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

func (e *Engine) search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, string, error) {
	if q == nil {
		return nil, statusInvalid, models.ErrEmptyQuery
	}
	if err := q.Validate(); err != nil {
		return nil, statusInvalid, err
	}
	if e.maxLimit > 0 && q.Limit > e.maxLimit {
		return nil, statusInvalid, &models.ValidationError{
			Field:  "limit",
			Reason: fmt.Sprintf("limit must not exceed %d", e.maxLimit),
		}
	}
	params := e.params
	if q.Alpha != nil {
		params.Alpha = *q.Alpha
	}
	if q.K != nil {
		params.K = *q.K
	}

	plan, err := e.planner.Plan(ctx, q.Query, q.Expansions)
	if err != nil {
		return nil, statusInvalid, err
	}

	topK := max(e.topK, q.Limit)
	timeout := e.timeout
	if q.Timeout > 0 {
		timeout = q.Timeout
	}
	branchCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		branchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var lex, vec branchResult
	g, gctx := errgroup.WithContext(branchCtx)
	g.Go(func() error {
		lex = e.runBranch(gctx, models.SourceLexical, func(ctx context.Context) ([]fusion.Ranked, error) {
			return e.searchLexical(ctx, plan.LexicalText, topK, q.Filters)
		})
		return nil
	})
	g.Go(func() error {
		vec = e.runBranch(gctx, models.SourceVector, func(ctx context.Context) ([]fusion.Ranked, error) {
			return e.searchVector(ctx, plan.Embedding, topK, q.Filters)
		})
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, statusError, err
	}

	resp := &models.SearchResponse{
		Query:      q.Query,
		Expansions: plan.Expansions,
	}
	status := statusOK
	switch {
	case lex.err != nil && vec.err != nil:
		e.logger.Error("all retrieval sources failed",
			zap.NamedError("lexical", lex.err), zap.NamedError("vector", vec.err))
		return nil, statusUnavailable, fmt.Errorf("all retrieval sources failed: %w", errors.Join(lex.err, vec.err))
	case lex.err != nil:
		e.degrade(resp, models.SourceLexical, lex.err)
		status = statusPartial
	case vec.err != nil:
		e.degrade(resp, models.SourceVector, vec.err)
		status = statusPartial
	}

	e.metrics.ObserveCandidates(len(lex.ranked) + len(vec.ranked))
	hits, err := fusion.Fuse(lex.ranked, vec.ranked, params, q.Limit)
	if err != nil {
		return nil, statusInvalid, err
	}
	records, err := e.presenter.Present(ctx, hits)
	if err != nil {
		return nil, statusError, err
	}
	resp.Results = records

	e.logger.Debug("search completed",
		zap.String("query", plan.Normalized),
		zap.Int("lexical_candidates", len(lex.ranked)),
		zap.Int("vector_candidates", len(vec.ranked)),
		zap.Int("results", len(records)),
		zap.Bool("partial", resp.Partial),
	)
	return resp, status, nil
}

func (e *Engine) degrade(resp *models.SearchResponse, source models.Source, err error) {
	resp.Partial = true
	resp.Degraded = append(resp.Degraded, source)
	e.metrics.Degraded(string(source))
	e.logger.Warn("retrieval source degraded", zap.String("source", string(source)), zap.Error(err))
}

// runBranch runs fn under ctx and gives up as soon as ctx is done, even if
// fn ignores cancellation. Errors are reported as unavailability of source.
func (e *Engine) runBranch(ctx context.Context, source models.Source, fn func(context.Context) ([]fusion.Ranked, error)) branchResult {
	start := time.Now()
	defer func() { e.metrics.ObserveBranch(string(source), time.Since(start)) }()

	done := make(chan branchResult, 1)
	go func() {
		ranked, err := fn(ctx)
		done <- branchResult{ranked: ranked, err: err}
	}()

	var res branchResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = branchResult{err: ctx.Err()}
	}
	if res.err != nil {
		var up *models.UpstreamError
		if !errors.As(res.err, &up) {
			res.err = models.NewUpstreamError(source, res.err)
		}
		res.ranked = nil
	}
	return res
}

func (e *Engine) searchLexical(ctx context.Context, text string, topK int, filters map[string]interface{}) ([]fusion.Ranked, error) {
	results, err := e.lexical.Search(ctx, text, topK, filters)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}
	ranked := make([]fusion.Ranked, len(results))
	for i, r := range results {
		ranked[i] = fusion.Ranked{ID: r.ID, Score: r.Score}
	}
	return ranked, nil
}

func (e *Engine) searchVector(ctx context.Context, req planner.EmbeddingRequest, topK int, filters map[string]interface{}) ([]fusion.Ranked, error) {
	emb, err := e.embedder.Embed(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	if req.Dimensions > 0 && len(emb) != req.Dimensions {
		return nil, models.NewDimensionMismatchError(req.Dimensions, len(emb))
	}
	results, err := e.vector.Search(ctx, emb, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	ranked := make([]fusion.Ranked, len(results))
	for i, r := range results {
		ranked[i] = fusion.Ranked{ID: r.ID, Score: r.Score}
	}
	if len(filters) == 0 || e.resolver == nil || len(ranked) == 0 {
		return ranked, nil
	}
	return e.filterRanked(ctx, ranked, filters)
}

// filterRanked keeps the vector candidates whose metadata matches filters,
// preserving order.
func (e *Engine) filterRanked(ctx context.Context, ranked []fusion.Ranked, filters map[string]interface{}) ([]fusion.Ranked, error) {
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}
	docs, err := e.resolver.GetDocuments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vector candidates: %w", err)
	}
	out := ranked[:0]
	for _, r := range ranked {
		doc, ok := docs[r.ID]
		if ok && lexical.MatchesFilters(doc.Metadata, filters) {
			out = append(out, r)
		}
	}
	return out, nil
}

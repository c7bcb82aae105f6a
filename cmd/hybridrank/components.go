package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hyperjump/hybridrank/internal/config"
	"github.com/hyperjump/hybridrank/internal/embedding"
	"github.com/hyperjump/hybridrank/internal/fusion"
	"github.com/hyperjump/hybridrank/internal/indexer"
	"github.com/hyperjump/hybridrank/internal/lexical"
	"github.com/hyperjump/hybridrank/internal/match"
	"github.com/hyperjump/hybridrank/internal/metrics"
	"github.com/hyperjump/hybridrank/internal/planner"
	"github.com/hyperjump/hybridrank/internal/presenter"
	"github.com/hyperjump/hybridrank/internal/search"
	"github.com/hyperjump/hybridrank/internal/storage"
	"github.com/hyperjump/hybridrank/internal/vector"
)

// lexicalStore is a lexical index that also exposes its term dictionary.
type lexicalStore interface {
	lexical.Index
	lexical.TermDictionary
}

// components holds the wired application. Close releases everything in
// reverse order of construction.
type components struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	store    storage.Storage
	lexical  lexicalStore
	vector   vector.VectorIndex
	embedder embedding.Embedder
	spelling *lexical.SpellChecker

	indexer *indexer.Indexer
	engine  *search.Engine
	scorer  *match.Scorer

	metricsFile string
	ready       bool
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, metricsFile string) (_ *components, err error) {
	c := &components{cfg: cfg, logger: logger, metricsFile: metricsFile}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	c.registry = prometheus.NewRegistry()
	m, err := metrics.New(c.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	c.metrics = m

	if cfg.Storage.Driver == storage.DriverBadger {
		store, err := storage.NewBadgerStorage(cfg.Storage.BadgerPath, logger.Named("badger"))
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		c.store = store
	} else {
		store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		c.store = store
	}

	switch cfg.Search.LexicalBackend {
	case "bleve":
		idx, err := lexical.NewBleveIndex(cfg.Storage.BleveIndexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open bleve index: %w", err)
		}
		c.lexical = idx
	default:
		c.lexical = lexical.NewMemoryIndex()
	}

	vec, err := vector.NewVectorIndex(cfg.Vector.IndexType, cfg.Embedding.Dimensions,
		vector.WithM(cfg.Vector.HNSWM),
		vector.WithEfConstruction(cfg.Vector.HNSWEfConstruction),
		vector.WithEfSearch(cfg.Vector.HNSWEfSearch),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}
	c.vector = vec

	emb, err := newEmbedder(cfg, logger, c.metrics)
	if err != nil {
		return nil, err
	}
	c.embedder = emb

	c.indexer = indexer.NewIndexer(c.store, c.embedder, c.vector, c.lexical,
		indexer.WithLogger(logger.Named("indexer")),
		indexer.WithMetrics(c.metrics),
		indexer.WithPoolSize(cfg.Indexer.PoolSize),
		indexer.WithBatchSize(cfg.Indexer.BatchSize),
	)
	if err := c.restoreIndices(ctx); err != nil {
		return nil, err
	}

	var expanders planner.Chain
	if len(cfg.Planner.Synonyms) > 0 {
		expanders = append(expanders, planner.NewStaticExpander(cfg.Planner.Synonyms))
	}
	if cfg.Planner.SpellingEnabled {
		c.spelling = lexical.NewSpellChecker(c.lexical,
			lexical.WithMaxDistance(cfg.Planner.SpellingMaxDistance),
			lexical.WithTranspositions(),
		)
		expanders = append(expanders, planner.NewSpellingExpander(c.spelling))
	}
	plannerOpts := []planner.Option{
		planner.WithDimensions(cfg.Embedding.Dimensions),
		planner.WithMaxExpansions(cfg.Planner.MaxExpansions),
		planner.WithLogger(logger.Named("planner")),
	}
	if len(expanders) > 0 {
		plannerOpts = append(plannerOpts, planner.WithExpander(expanders))
	}

	engine, err := search.NewEngine(c.lexical, c.vector, c.embedder,
		search.WithFusionParams(fusion.Params{K: cfg.Search.FusionK, Alpha: *cfg.Search.FusionAlpha}),
		search.WithTopKCandidates(cfg.Search.TopKCandidates),
		search.WithSourceTimeout(cfg.Search.SourceTimeout),
		search.WithMaxLimit(cfg.Search.MaxLimit),
		search.WithPlanner(planner.New(plannerOpts...)),
		search.WithPresenter(presenter.New(
			presenter.WithResolver(c.store),
			presenter.WithSnippetLength(cfg.Search.SnippetLength),
			presenter.WithLogger(logger.Named("presenter")),
		)),
		search.WithDocumentResolver(c.store),
		search.WithMetrics(c.metrics),
		search.WithLogger(logger.Named("search")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search engine: %w", err)
	}
	c.engine = engine

	scorerOpts := []match.Option{
		match.WithWeights(cfg.Match.Weights()),
		match.WithMetrics(c.metrics),
		match.WithLogger(logger.Named("match")),
	}
	if cfg.Match.CaseInsensitive || len(cfg.Match.Aliases) > 0 {
		scorerOpts = append(scorerOpts, match.WithNormalizer(match.NewAliasNormalizer(cfg.Match.Aliases)))
	}
	scorer, err := match.NewScorer(scorerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create match scorer: %w", err)
	}
	c.scorer = scorer
	c.ready = true
	return c, nil
}

func newEmbedder(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (embedding.Embedder, error) {
	var base embedding.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		oe, err := embedding.NewOpenAIEmbedder(&embedding.OpenAIConfig{
			APIKey:     cfg.Embedding.ResolveAPIKey(),
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Metrics:    m,
			Logger:     logger.Named("embedding"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		base = oe
	default:
		base = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.CacheSize > 0 {
		return embedding.NewCachedEmbedder(base, cfg.Embedding.CacheSize, m), nil
	}
	return base, nil
}

// restoreIndices re-populates the in-memory indices from storage. A saved
// vector index is only trusted alongside a persistent lexical index.
func (c *components) restoreIndices(ctx context.Context) error {
	if path := c.cfg.Storage.VectorIndexPath; path != "" && c.cfg.Search.LexicalBackend == "bleve" {
		if err := c.vector.Load(path); err != nil {
			return fmt.Errorf("failed to load vector index: %w", err)
		}
		if c.vector.Size() > 0 {
			c.logger.Debug("vector index loaded", zap.Int("vectors", c.vector.Size()))
			return nil
		}
	}
	n, err := c.indexer.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("failed to rebuild indices: %w", err)
	}
	c.logger.Debug("indices restored", zap.Int("documents", n))
	return nil
}

// Close persists the vector index and metrics, then closes all stores.
func (c *components) Close() error {
	var errs []error
	if c.vector != nil {
		if path := c.cfg.Storage.VectorIndexPath; path != "" && c.ready {
			if err := c.vector.Save(path); err != nil {
				errs = append(errs, fmt.Errorf("failed to save vector index: %w", err))
			}
		}
		errs = append(errs, c.vector.Close())
	}
	if c.lexical != nil {
		errs = append(errs, c.lexical.Close())
	}
	if c.embedder != nil {
		errs = append(errs, c.embedder.Close())
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	if c.metricsFile != "" && c.registry != nil {
		if err := prometheus.WriteToTextfile(c.metricsFile, c.registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Package indexer provides document indexing into storage, lexical, and vector indices.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/hybridrank/internal/embedding"
	"github.com/hyperjump/hybridrank/internal/lexical"
	"github.com/hyperjump/hybridrank/internal/metrics"
	"github.com/hyperjump/hybridrank/internal/models"
	"github.com/hyperjump/hybridrank/internal/storage"
	"github.com/hyperjump/hybridrank/internal/vector"
)

const (
	defaultPoolSize  = 4
	defaultBatchSize = 32
	rebuildPageSize  = 500
)

var errEmptyText = &models.ValidationError{Field: "text", Reason: "document text cannot be empty"}

// Indexer indexes documents into storage, the lexical index, and the vector index.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	lexicalIndex lexical.Index
	metrics      *metrics.Metrics
	logger       *zap.Logger
	poolSize     int
	batchSize    int

	// mu serializes writes so storage and both indices agree per document.
	mu sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) IndexerOption {
	return func(idx *Indexer) { idx.metrics = m }
}

// WithPoolSize sets the number of concurrent embedding workers used by IndexBatch.
func WithPoolSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.poolSize = n
		}
	}
}

// WithBatchSize sets how many texts IndexBatch sends per embedding request.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// NewIndexer creates an indexer with the given dependencies. embedder may be
// nil, in which case only documents that carry an embedding are vector indexed.
func NewIndexer(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	lexicalIndex lexical.Index,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:      storage,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		lexicalIndex: lexicalIndex,
		logger:       zap.NewNop(),
		poolSize:     defaultPoolSize,
		batchSize:    defaultBatchSize,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexDocument stores a document and indexes it lexically and, when an
// embedding is supplied or can be computed, in the vector index. A supplied
// embedding of the wrong length fails with a DimensionMismatchError before
// anything is written. An embedding provider failure does not fail indexing;
// the document stays lexical-only until AttachEmbedding is called.
func (idx *Indexer) IndexDocument(ctx context.Context, input *models.DocumentInput) error {
	if err := idx.validate(input); err != nil {
		idx.metrics.Indexed(err)
		return err
	}
	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	emb := input.Embedding
	if len(emb) == 0 && idx.embedder != nil {
		v, err := idx.embedder.Embed(ctx, input.Text)
		if err != nil {
			idx.logger.Warn("embedding failed; indexing lexically only",
				zap.String("doc_id", input.ID), zap.Error(err))
		} else {
			emb = v
		}
	}
	err := idx.write(ctx, input, emb)
	idx.metrics.Indexed(err)
	return err
}

// IndexBatch indexes inputs, computing missing embeddings on a worker pool in
// batches. It returns the number of documents indexed and the joined errors
// of those that failed.
func (idx *Indexer) IndexBatch(ctx context.Context, inputs []*models.DocumentInput) (int, error) {
	var errs []error
	valid := make([]*models.DocumentInput, 0, len(inputs))
	for _, in := range inputs {
		if err := idx.validate(in); err != nil {
			idx.metrics.Indexed(err)
			errs = append(errs, fmt.Errorf("document %q: %w", in.ID, err))
			continue
		}
		if in.ID == "" {
			in.ID = uuid.New().String()
		}
		valid = append(valid, in)
	}

	embeddings, err := idx.embedMissing(ctx, valid)
	if err != nil {
		return 0, err
	}

	n := 0
	for i, in := range valid {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		err := idx.write(ctx, in, embeddings[i])
		idx.metrics.Indexed(err)
		if err != nil {
			errs = append(errs, fmt.Errorf("document %q: %w", in.ID, err))
			continue
		}
		n++
	}
	idx.logger.Info("batch indexed", zap.Int("indexed", n), zap.Int("failed", len(inputs)-n))
	return n, errors.Join(errs...)
}

// embedMissing returns one embedding per input, computing those not supplied.
// Failed batches leave their entries nil.
func (idx *Indexer) embedMissing(ctx context.Context, inputs []*models.DocumentInput) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	var pending []int
	for i, in := range inputs {
		if len(in.Embedding) > 0 {
			out[i] = in.Embedding
			continue
		}
		pending = append(pending, i)
	}
	if idx.embedder == nil || len(pending) == 0 {
		return out, nil
	}

	pool, err := ants.NewPool(idx.poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for start := 0; start < len(pending); start += idx.batchSize {
		batch := pending[start:min(start+idx.batchSize, len(pending))]
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			texts := make([]string, len(batch))
			for j, i := range batch {
				texts[j] = inputs[i].Text
			}
			vecs, err := idx.embedder.EmbedBatch(ctx, texts)
			if err != nil || len(vecs) != len(batch) {
				idx.logger.Warn("batch embedding failed; indexing lexically only",
					zap.Int("documents", len(batch)), zap.Error(err))
				return
			}
			for j, i := range batch {
				out[i] = vecs[j]
			}
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("failed to submit embedding task: %w", submitErr)
		}
	}
	wg.Wait()
	return out, nil
}

// AttachEmbedding adds an embedding to an indexed document that has none.
func (idx *Indexer) AttachEmbedding(ctx context.Context, id string, emb []float32) error {
	if len(emb) != idx.vectorIndex.Dimensions() {
		return models.NewDimensionMismatchError(idx.vectorIndex.Dimensions(), len(emb))
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	doc, err := idx.storage.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc.HasEmbedding() {
		return &models.ValidationError{Field: "embedding", Reason: fmt.Sprintf("document %s already has an embedding", id)}
	}
	if err := idx.storage.UpdateEmbedding(ctx, id, emb); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	if err := idx.vectorIndex.Add(ctx, []string{id}, [][]float32{emb}); err != nil {
		return fmt.Errorf("failed to index vector: %w", err)
	}
	idx.logger.Debug("embedding attached", zap.String("doc_id", id))
	return nil
}

// DeleteDocument removes a document from all indices and storage.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.logger.Debug("indexer deleting document", zap.String("id", id))
	if err := idx.lexicalIndex.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from lexical index: %w", err)
	}
	if err := idx.vectorIndex.Remove(ctx, []string{id}); err != nil {
		return fmt.Errorf("failed to delete from vector index: %w", err)
	}
	if err := idx.storage.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Rebuild re-indexes every stored document into the lexical and vector
// indices. Used at startup when the indices are held in memory.
func (idx *Indexer) Rebuild(ctx context.Context) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	n := 0
	for offset := 0; ; offset += rebuildPageSize {
		docs, err := idx.storage.ListDocuments(ctx, offset, rebuildPageSize)
		if err != nil {
			return n, fmt.Errorf("failed to list documents: %w", err)
		}
		for _, doc := range docs {
			if err := idx.lexicalIndex.Index(ctx, doc); err != nil {
				return n, fmt.Errorf("failed to index %s lexically: %w", doc.ID, err)
			}
			if doc.HasEmbedding() {
				if err := idx.vectorIndex.Add(ctx, []string{doc.ID}, [][]float32{doc.Embedding}); err != nil {
					return n, fmt.Errorf("failed to index %s vector: %w", doc.ID, err)
				}
			}
			n++
		}
		if len(docs) < rebuildPageSize {
			break
		}
	}
	idx.logger.Info("indices rebuilt from storage", zap.Int("documents", n))
	return n, nil
}

func (idx *Indexer) validate(input *models.DocumentInput) error {
	if strings.TrimSpace(input.Text) == "" {
		return errEmptyText
	}
	if len(input.Embedding) > 0 && len(input.Embedding) != idx.vectorIndex.Dimensions() {
		return models.NewDimensionMismatchError(idx.vectorIndex.Dimensions(), len(input.Embedding))
	}
	return nil
}

// write stores the document and updates both indices. A nil emb removes any
// stale vector left by a previous version of the document. Storage is the
// source of truth: when an index update fails after the save, the id is
// evicted from both indices so no index serves a version storage lacks.
func (idx *Indexer) write(ctx context.Context, input *models.DocumentInput, emb []float32) error {
	if len(emb) > 0 && len(emb) != idx.vectorIndex.Dimensions() {
		return models.NewDimensionMismatchError(idx.vectorIndex.Dimensions(), len(emb))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	doc := &models.Document{
		ID:        input.ID,
		Title:     input.Title,
		Text:      input.Text,
		Embedding: emb,
		Metadata:  input.Metadata,
	}
	if err := idx.storage.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	if err := idx.updateIndices(ctx, doc); err != nil {
		evictErr := idx.evict(ctx, doc.ID)
		idx.logger.Error("document stored but not indexed",
			zap.String("doc_id", doc.ID), zap.Error(err), zap.NamedError("evict_error", evictErr))
		return errors.Join(err, evictErr)
	}
	idx.logger.Debug("document indexed",
		zap.String("doc_id", doc.ID), zap.Bool("embedded", len(emb) > 0))
	return nil
}

func (idx *Indexer) updateIndices(ctx context.Context, doc *models.Document) error {
	if doc.HasEmbedding() {
		if err := idx.vectorIndex.Add(ctx, []string{doc.ID}, [][]float32{doc.Embedding}); err != nil {
			return fmt.Errorf("failed to index vector: %w", err)
		}
	} else if err := idx.vectorIndex.Remove(ctx, []string{doc.ID}); err != nil {
		return fmt.Errorf("failed to remove stale vector: %w", err)
	}
	if err := idx.lexicalIndex.Index(ctx, doc); err != nil {
		return fmt.Errorf("failed to index lexically: %w", err)
	}
	return nil
}

// evict drops id from both indices. Rebuild restores it from storage.
func (idx *Indexer) evict(ctx context.Context, id string) error {
	return errors.Join(
		idx.vectorIndex.Remove(ctx, []string{id}),
		idx.lexicalIndex.Delete(ctx, id),
	)
}

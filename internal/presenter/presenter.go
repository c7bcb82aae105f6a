// Package presenter turns fused hits into result records, optionally
// resolving each id to its stored document.
package presenter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/hybridrank/internal/models"
	"github.com/hyperjump/hybridrank/pkg/utils"
)

// DocumentResolver looks documents up by id. Unknown ids are absent from
// the returned map. storage.Storage satisfies it.
type DocumentResolver interface {
	GetDocuments(ctx context.Context, ids []string) (map[string]*models.Document, error)
}

// Presenter builds result records. It never filters or re-scores hits.
type Presenter struct {
	resolver   DocumentResolver
	snippetLen int
	embeddings bool
	logger     *zap.Logger
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithResolver attaches documents to records. A hit whose id cannot be
// resolved then fails the whole presentation.
func WithResolver(r DocumentResolver) Option {
	return func(p *Presenter) { p.resolver = r }
}

// WithSnippetLength truncates attached document text to n runes. Zero keeps
// the full text.
func WithSnippetLength(n int) Option {
	return func(p *Presenter) { p.snippetLen = n }
}

// WithEmbeddings keeps document embeddings in presented records.
func WithEmbeddings(keep bool) Option {
	return func(p *Presenter) { p.embeddings = keep }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Presenter) { p.logger = l }
}

// New creates a Presenter.
func New(opts ...Option) *Presenter {
	p := &Presenter{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Present converts hits to records in the given order. With a resolver, a
// missing document yields an *models.InconsistencyError and no records.
func (p *Presenter) Present(ctx context.Context, hits []models.ScoredHit) ([]models.ResultRecord, error) {
	records := make([]models.ResultRecord, len(hits))
	for i := range hits {
		h := &hits[i]
		records[i] = models.ResultRecord{
			Rank:         h.Rank,
			DocumentID:   h.DocumentID,
			FusedScore:   h.FusedScore,
			LexicalScore: h.LexicalScore,
			VectorScore:  h.VectorScore,
			LexicalRank:  h.LexicalRank,
			VectorRank:   h.VectorRank,
			Sources:      h.Sources(),
		}
	}
	if p.resolver == nil || len(hits) == 0 {
		return records, nil
	}

	ids := make([]string, len(hits))
	for i := range hits {
		ids[i] = hits[i].DocumentID
	}
	docs, err := p.resolver.GetDocuments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve documents: %w", err)
	}
	for i := range records {
		doc, ok := docs[records[i].DocumentID]
		if !ok || doc == nil {
			p.logger.Error("fused document missing from storage", zap.String("doc_id", records[i].DocumentID))
			return nil, &models.InconsistencyError{DocumentID: records[i].DocumentID, Cause: models.ErrDocumentNotFound}
		}
		records[i].Document = p.view(doc)
	}
	return records, nil
}

func (p *Presenter) view(doc *models.Document) *models.Document {
	out := *doc
	if !p.embeddings {
		out.Embedding = nil
	}
	if p.snippetLen > 0 {
		out.Text = utils.Truncate(out.Text, p.snippetLen)
	}
	return &out
}

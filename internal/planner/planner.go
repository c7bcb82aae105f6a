// Package planner turns raw query text into the inputs of the lexical and
// vector retrieval branches.
package planner

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/hybridrank/internal/lexical"
	"github.com/hyperjump/hybridrank/internal/models"
	"github.com/hyperjump/hybridrank/pkg/utils"
)

// DefaultMaxExpansions caps the expansion terms appended to a query.
const DefaultMaxExpansions = 10

// EmbeddingRequest is what the vector branch asks the embedder for.
type EmbeddingRequest struct {
	Text       string
	Dimensions int
}

// PlannedQuery is the planner output.
type PlannedQuery struct {
	Raw        string
	Normalized string
	// Terms are the tokens of Normalized, before expansion.
	Terms []string
	// Expansions are appended to LexicalText only.
	Expansions  []string
	LexicalText string
	Embedding   EmbeddingRequest
}

// Planner normalizes and expands queries. It is safe for concurrent use.
type Planner struct {
	expander      Expander
	dimensions    int
	maxExpansions int
	logger        *zap.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithExpander sets the expansion collaborator.
func WithExpander(e Expander) Option {
	return func(p *Planner) {
		p.expander = e
	}
}

// WithDimensions sets the embedding dimension carried on every request.
func WithDimensions(d int) Option {
	return func(p *Planner) {
		if d > 0 {
			p.dimensions = d
		}
	}
}

// WithMaxExpansions caps the number of expansion terms.
func WithMaxExpansions(n int) Option {
	return func(p *Planner) {
		if n >= 0 {
			p.maxExpansions = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Planner. Without an expander no expansion is applied.
func New(opts ...Option) *Planner {
	p := &Planner{
		maxExpansions: DefaultMaxExpansions,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Normalize lowercases raw and collapses its whitespace.
func Normalize(raw string) string {
	return strings.ToLower(utils.CollapseWhitespace(raw))
}

// Plan normalizes raw and derives the lexical text and the embedding
// request. extra are caller-supplied expansion terms and come first.
// An expander failure is logged and planning keeps whatever terms the
// expander still returned.
func (p *Planner) Plan(ctx context.Context, raw string, extra []string) (*PlannedQuery, error) {
	normalized := Normalize(raw)
	if normalized == "" {
		return nil, models.ErrEmptyQuery
	}
	terms := lexical.Tokenize(normalized)

	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		seen[t] = struct{}{}
	}
	expansions := make([]string, 0)
	add := func(candidates []string) {
		for _, c := range candidates {
			c = Normalize(c)
			if c == "" {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			if len(expansions) >= p.maxExpansions {
				return
			}
			seen[c] = struct{}{}
			expansions = append(expansions, c)
		}
	}
	add(extra)
	if p.expander != nil {
		more, err := p.expander.Expand(ctx, terms)
		if err != nil {
			p.logger.Warn("query expansion failed", zap.String("query", normalized), zap.Error(err))
		}
		add(more)
	}

	lexicalText := normalized
	if len(expansions) > 0 {
		lexicalText = normalized + " " + strings.Join(expansions, " ")
	}
	p.logger.Debug("query planned",
		zap.String("normalized", normalized),
		zap.Strings("expansions", expansions),
	)
	return &PlannedQuery{
		Raw:         raw,
		Normalized:  normalized,
		Terms:       terms,
		Expansions:  expansions,
		LexicalText: lexicalText,
		Embedding:   EmbeddingRequest{Text: normalized, Dimensions: p.dimensions},
	}, nil
}

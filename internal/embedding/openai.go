package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/hybridrank/internal/metrics"
	"github.com/hyperjump/hybridrank/internal/models"
)

// OpenAIConfig holds the settings of an OpenAI-compatible embedding API.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewOpenAIEmbedder creates an embedder for cfg. Dimensions is required;
// responses of another length are rejected.
func NewOpenAIEmbedder(cfg *OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		metrics:    cfg.Metrics,
		logger:     logger,
	}, nil
}

// Embed returns the embedding of text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in a single request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     e.dimensions,
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	e.metrics.Embedding(err)
	if err != nil {
		e.logger.Warn("embedding request failed",
			zap.String("model", string(e.model)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, parseAPIError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, models.NewUpstreamError(models.SourceEmbedding,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, models.NewUpstreamError(models.SourceEmbedding, fmt.Errorf("embedding index %d out of range", d.Index))
		}
		if len(d.Embedding) != e.dimensions {
			return nil, models.NewDimensionMismatchError(e.dimensions, len(d.Embedding))
		}
		out[d.Index] = d.Embedding
	}
	e.logger.Debug("embedded texts",
		zap.Int("count", len(texts)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client needs no teardown.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

// parseAPIError extracts a readable message and marks the failure as an
// unavailable embedding provider.
func parseAPIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewUpstreamError(models.SourceEmbedding, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return models.NewUpstreamError(models.SourceEmbedding,
			fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, detail))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return models.NewUpstreamError(models.SourceEmbedding,
			fmt.Errorf("embedding API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message))
	}

	return models.NewUpstreamError(models.SourceEmbedding, fmt.Errorf("embedding request failed: %w", err))
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

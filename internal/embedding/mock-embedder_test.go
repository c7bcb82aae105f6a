package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/hybridrank/internal/vector"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(32)
	ctx := context.Background()

	a, err := e.Embed(ctx, "distributed systems engineer")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "distributed systems engineer")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
	assert.InDelta(t, 1.0, vector.L2Norm(a), 1e-5)
}

func TestMockEmbedder_SharedWordsAreCloser(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()

	q, _ := e.Embed(ctx, "golang backend")
	near, _ := e.Embed(ctx, "golang backend services")
	far, _ := e.Embed(ctx, "watercolor painting")

	assert.Greater(t, vector.CosineSimilarity(q, near), vector.CosineSimilarity(q, far))
}

func TestMockEmbedder_Batch(t *testing.T) {
	e := NewMockEmbedder(0)
	assert.Equal(t, 384, e.Dimensions())

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	single, _ := e.Embed(context.Background(), "b")
	assert.Equal(t, single, vecs[1])
}

func TestMockEmbedder_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockEmbedder(8).Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}

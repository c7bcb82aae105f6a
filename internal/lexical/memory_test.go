package lexical

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/hybridrank/internal/models"
)

func indexAll(t *testing.T, idx *MemoryIndex, docs ...*models.Document) {
	t.Helper()
	for _, d := range docs {
		require.NoError(t, idx.Index(context.Background(), d))
	}
}

func ids(results []*Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestMemoryIndex_RanksByBM25(t *testing.T) {
	idx := NewMemoryIndex()
	indexAll(t, idx,
		&models.Document{ID: "a", Text: "go concurrency patterns with channels and goroutines"},
		&models.Document{ID: "b", Text: "go go go"},
		&models.Document{ID: "c", Text: "rust ownership and borrowing"},
	)

	results, err := idx.Search(context.Background(), "go channels", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID, "a matches both terms")
	for _, r := range results {
		assert.Greater(t, r.Score, 0.0)
	}
	assert.NotContains(t, ids(results), "c")
}

func TestMemoryIndex_TiesBreakByID(t *testing.T) {
	idx := NewMemoryIndex()
	indexAll(t, idx,
		&models.Document{ID: "z", Text: "python"},
		&models.Document{ID: "m", Text: "python"},
		&models.Document{ID: "a", Text: "python"},
	)
	results, err := idx.Search(context.Background(), "python", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m"}, ids(results))
}

func TestMemoryIndex_ReindexReplacesStatistics(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	indexAll(t, idx,
		&models.Document{ID: "a", Text: "kafka streams"},
		&models.Document{ID: "b", Text: "kafka connect"},
	)

	require.NoError(t, idx.Index(ctx, &models.Document{ID: "a", Text: "postgres replication"}))

	results, err := idx.Search(ctx, "kafka", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(results))

	freq, err := idx.GetTermFrequency("kafka")
	require.NoError(t, err)
	assert.Equal(t, 1, freq)

	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestMemoryIndex_SnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	indexAll(t, idx, &models.Document{ID: "a", Text: "search engine"})

	before := idx.current.Load()
	indexAll(t, idx, &models.Document{ID: "b", Text: "search index"})

	// The published snapshot taken earlier is untouched by the later write.
	assert.Len(t, before.docs, 1)
	assert.Len(t, before.postings["search"], 1)

	results, err := idx.Search(ctx, "search", 10, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestMemoryIndex_Delete(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	indexAll(t, idx, &models.Document{ID: "a", Text: "only here"})

	require.NoError(t, idx.Delete(ctx, "a"))
	require.NoError(t, idx.Delete(ctx, "missing"))

	results, err := idx.Search(ctx, "only", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	ok, _ := idx.ContainsTerm("only")
	assert.False(t, ok)
}

func TestMemoryIndex_Filters(t *testing.T) {
	idx := NewMemoryIndex()
	indexAll(t, idx,
		&models.Document{ID: "a", Text: "transformer attention", Metadata: map[string]interface{}{models.MetaSectionType: "methods"}},
		&models.Document{ID: "b", Text: "transformer results", Metadata: map[string]interface{}{models.MetaSectionType: "results"}},
		&models.Document{ID: "c", Text: "transformer"},
	)
	results, err := idx.Search(context.Background(), "transformer", 10, map[string]interface{}{models.MetaSectionType: "methods"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(results))
}

func TestMemoryIndex_EdgeCases(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	results, err := idx.Search(ctx, "anything", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = idx.Search(ctx, "anything", 0, nil)
	assert.ErrorIs(t, err, models.ErrInvalidLimit)

	assert.ErrorIs(t, idx.Index(ctx, &models.Document{Text: "no id"}), models.ErrValidation)

	require.NoError(t, idx.Close())
	_, err = idx.Search(ctx, "anything", 5, nil)
	assert.Error(t, err)
}

func TestMemoryIndex_ConcurrentReadWrite(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = idx.Index(ctx, &models.Document{ID: fmt.Sprintf("w%d-%d", w, i), Text: "shared term plus unique"})
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				res, err := idx.Search(ctx, "shared", 1000, nil)
				if err != nil {
					t.Error(err)
					return
				}
				for j := 1; j < len(res); j++ {
					if res[j-1].Score < res[j].Score {
						t.Error("results out of order")
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	n, _ := idx.DocCount()
	assert.Equal(t, uint64(200), n)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world", "2024"}, Tokenize("Hello, WORLD! 2024"))
	assert.Equal(t, []string{"naïve", "café"}, Tokenize("naïve-café"))
	assert.Empty(t, Tokenize("  ...  "))
}

package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hyperjump/hybridrank/internal/models"
)

func randomVectors(n, dim int, seed uint64) ([]string, [][]float32) {
	r := rand.New(rand.NewPCG(seed, seed))
	ids := make([]string, n)
	vecs := make([][]float32, n)
	for i := range vecs {
		ids[i] = fmt.Sprintf("v%04d", i)
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(r.NormFloat64())
		}
		vecs[i] = v
	}
	return ids, vecs
}

func TestHNSWIndex_RecallAgainstExact(t *testing.T) {
	const dim, n, k = 16, 500, 10
	ctx := context.Background()
	ids, vecs := randomVectors(n, dim, 7)

	exact, _ := NewMemoryIndex(dim)
	approx, _ := NewHNSWIndex(dim, WithSeed(42), WithM(12), WithEfSearch(80))
	if err := exact.Add(ctx, ids, vecs); err != nil {
		t.Fatal(err)
	}
	if err := approx.Add(ctx, ids, vecs); err != nil {
		t.Fatal(err)
	}

	_, queries := randomVectors(20, dim, 99)
	hits, total := 0, 0
	for _, q := range queries {
		want, _ := exact.Search(ctx, q, k)
		got, err := approx.Search(ctx, q, k)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != k {
			t.Fatalf("expected %d results, got %d", k, len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i-1].Score < got[i].Score {
				t.Fatal("approximate results must be sorted by similarity")
			}
		}
		wantSet := make(map[string]bool, k)
		for _, r := range want {
			wantSet[r.ID] = true
		}
		for _, r := range got {
			if wantSet[r.ID] {
				hits++
			}
		}
		total += k
	}
	if recall := float64(hits) / float64(total); recall < 0.9 {
		t.Errorf("recall@%d = %.2f, want >= 0.90", k, recall)
	}
}

func TestHNSWIndex_RemoveAndReplace(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewHNSWIndex(2, WithSeed(1))
	_ = idx.Add(ctx, []string{"a", "b", "c"}, [][]float32{{1, 0}, {0, 1}, {1, 1}})

	if err := idx.Remove(ctx, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	results, _ := idx.Search(ctx, []float32{1, 0}, 3)
	if len(results) != 2 {
		t.Fatalf("expected 2 live results, got %d", len(results))
	}
	for _, r := range results {
		if r.ID == "a" {
			t.Fatal("removed vector returned")
		}
	}

	_ = idx.Add(ctx, []string{"b"}, [][]float32{{1, 0}})
	if idx.Size() != 2 {
		t.Errorf("Size=%d, want 2", idx.Size())
	}
	results, _ = idx.Search(ctx, []float32{1, 0}, 1)
	if results[0].ID != "b" {
		t.Errorf("replaced b should now be closest, got %s", results[0].ID)
	}
}

func TestHNSWIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewHNSWIndex(4)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"a"}, [][]float32{{1, 2}}); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("Add error = %v", err)
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("Search error = %v", err)
	}
}

func TestHNSWIndex_SaveLoadRebuilds(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hnsw.bin")
	ids, vecs := randomVectors(50, 8, 3)

	idx, _ := NewHNSWIndex(8, WithSeed(5))
	_ = idx.Add(ctx, ids, vecs)
	_ = idx.Remove(ctx, ids[:10])
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewHNSWIndex(8, WithSeed(5))
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 40 {
		t.Fatalf("loaded size=%d, want 40", loaded.Size())
	}
	results, _ := loaded.Search(ctx, vecs[20], 1)
	if results[0].ID != ids[20] {
		t.Errorf("self query returned %s, want %s", results[0].ID, ids[20])
	}
}

func TestHNSWIndex_RemoveAllThenReuse(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewHNSWIndex(2, WithSeed(3))
	_ = idx.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}})
	_ = idx.Remove(ctx, []string{"a", "b", "missing"})
	if idx.Size() != 0 {
		t.Fatalf("Size=%d, want 0", idx.Size())
	}
	results, err := idx.Search(ctx, []float32{1, 0}, 5)
	if err != nil || len(results) != 0 {
		t.Fatalf("empty index search = %v, %v", results, err)
	}

	_ = idx.Add(ctx, []string{"c"}, [][]float32{{1, 1}})
	_ = idx.Add(ctx, []string{"c"}, [][]float32{{1, 0}})
	results, _ = idx.Search(ctx, []float32{1, 0}, 5)
	if len(results) != 1 || results[0].ID != "c" {
		t.Fatalf("results = %+v, want only c", results)
	}
	if math.Abs(results[0].Score-1) > 1e-6 {
		t.Errorf("replaced c score = %v, want 1", results[0].Score)
	}
}

func TestHNSWIndex_SearchDuringBatchAdd(t *testing.T) {
	const dim, n = 8, 2000
	ctx := context.Background()
	ids, vecs := randomVectors(n, dim, 11)
	known := make(map[string]bool, n)
	for _, id := range ids {
		known[id] = true
	}

	idx, _ := NewHNSWIndex(dim, WithSeed(9), WithEfConstruction(32))
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		if err := idx.Add(ctx, ids, vecs); err != nil {
			t.Error(err)
		}
	}()

	last := 0
	for searching := true; searching; {
		select {
		case <-done:
			searching = false
		default:
		}
		size := idx.Size()
		if size < last {
			t.Fatalf("size went from %d to %d", last, size)
		}
		last = size
		results, err := idx.Search(ctx, vecs[0], 5)
		if err != nil {
			t.Fatal(err)
		}
		for i, r := range results {
			if !known[r.ID] {
				t.Fatalf("unknown id %q", r.ID)
			}
			if i > 0 && results[i-1].Score < r.Score {
				t.Fatal("results not sorted by similarity")
			}
		}
	}
	wg.Wait()
	if idx.Size() != n {
		t.Errorf("Size=%d, want %d", idx.Size(), n)
	}
}

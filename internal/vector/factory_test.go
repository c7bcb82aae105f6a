package vector

import (
	"context"
	"testing"
)

func TestNewVectorIndex(t *testing.T) {
	for _, typ := range []string{"memory", "", "hnsw"} {
		t.Run("type="+typ, func(t *testing.T) {
			idx, err := NewVectorIndex(typ, 3)
			if err != nil {
				t.Fatalf("NewVectorIndex(%q): %v", typ, err)
			}
			defer idx.Close()

			ctx := context.Background()
			if err := idx.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}}); err != nil {
				t.Fatalf("Add: %v", err)
			}
			if idx.Size() != 1 {
				t.Errorf("Size=%d, want 1", idx.Size())
			}
			if idx.Dimensions() != 3 {
				t.Errorf("Dimensions=%d, want 3", idx.Dimensions())
			}
		})
	}
}

func TestNewVectorIndex_Unknown(t *testing.T) {
	if _, err := NewVectorIndex("faiss", 3); err == nil {
		t.Error("expected error for unknown index type")
	}
}

func TestNewVectorIndex_InvalidDimension(t *testing.T) {
	for _, typ := range []string{"memory", "hnsw"} {
		if _, err := NewVectorIndex(typ, 0); err == nil {
			t.Errorf("%s: expected error for zero dimension", typ)
		}
	}
}

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/hybridrank/internal/models"
)

var (
	_ Storage = (*SQLiteStorage)(nil)
	_ Storage = (*BadgerStorage)(nil)
)

func backends(t *testing.T) map[string]Storage {
	t.Helper()
	sqlite, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	mem, err := Open(DriverBadger, "")
	require.NoError(t, err)
	disk, err := NewBadgerStorage(filepath.Join(t.TempDir(), "badger"), nil)
	require.NoError(t, err)

	stores := map[string]Storage{"sqlite": sqlite, "badger-memory": mem, "badger-disk": disk}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStorage_Contract(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, id := range []string{"c", "a", "b"} {
				require.NoError(t, store.SaveDocument(ctx, &models.Document{
					ID:       id,
					Text:     "text " + id,
					Metadata: map[string]interface{}{models.MetaSectionType: "abstract"},
				}))
			}

			n, err := store.CountDocuments(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)

			doc, err := store.GetDocument(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, "text a", doc.Text)
			assert.Equal(t, "abstract", doc.SectionType())
			assert.False(t, doc.HasEmbedding())

			_, err = store.GetDocument(ctx, "missing")
			assert.ErrorIs(t, err, models.ErrDocumentNotFound)

			found, err := store.GetDocuments(ctx, []string{"a", "missing", "c"})
			require.NoError(t, err)
			assert.Len(t, found, 2)
			assert.Contains(t, found, "a")
			assert.Contains(t, found, "c")

			require.NoError(t, store.UpdateEmbedding(ctx, "b", []float32{0.5, -0.25}))
			doc, err = store.GetDocument(ctx, "b")
			require.NoError(t, err)
			assert.Equal(t, []float32{0.5, -0.25}, doc.Embedding)
			assert.ErrorIs(t, store.UpdateEmbedding(ctx, "missing", []float32{1}), models.ErrDocumentNotFound)

			page, err := store.ListDocuments(ctx, 1, 2)
			require.NoError(t, err)
			require.Len(t, page, 2)
			assert.Equal(t, "b", page[0].ID)
			assert.Equal(t, "c", page[1].ID)

			original, err := store.GetDocument(ctx, "c")
			require.NoError(t, err)
			require.NoError(t, store.SaveDocument(ctx, &models.Document{ID: "c", Text: "replaced"}))
			doc, err = store.GetDocument(ctx, "c")
			require.NoError(t, err)
			assert.Equal(t, "replaced", doc.Text)
			assert.True(t, doc.CreatedAt.Equal(original.CreatedAt), "CreatedAt kept on replace")

			require.NoError(t, store.DeleteDocument(ctx, "a"))
			require.NoError(t, store.DeleteDocument(ctx, "a"))
			n, err = store.CountDocuments(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("postgres", "x")
	assert.Error(t, err)
}

func TestEmbeddingCodec(t *testing.T) {
	assert.Nil(t, encodeEmbedding(nil))
	v, err := decodeEmbedding(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	in := []float32{1.5, -2, 0}
	out, err := decodeEmbedding(encodeEmbedding(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}

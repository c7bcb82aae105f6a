package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/hybridrank/internal/models"
)

func TestSQLiteStorage_CRUD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	doc := &models.Document{
		ID:       "doc1",
		Title:    "Title",
		Text:     "Content",
		Metadata: map[string]interface{}{"k": "v"},
	}
	if err := store.SaveDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Title" || got.Text != "Content" || got.Metadata["k"] != "v" {
		t.Errorf("got %+v", got)
	}

	doc.Title = "Updated"
	if err := store.SaveDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetDocument(ctx, "doc1")
	if got.Title != "Updated" {
		t.Errorf("expected Updated, got %s", got.Title)
	}

	if err := store.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatal(err)
	}
	_, err = store.GetDocument(ctx, "doc1")
	if !errors.Is(err, models.ErrDocumentNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	ctx := context.Background()

	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveDocument(ctx, &models.Document{ID: "a", Text: "x", Embedding: []float32{1, 2}}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	got, err := store.GetDocument(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Embedding) != 2 || got.Embedding[1] != 2 {
		t.Errorf("embedding not persisted: %v", got.Embedding)
	}
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteStorage(""); err == nil {
		t.Error("expected error for empty path")
	}
}

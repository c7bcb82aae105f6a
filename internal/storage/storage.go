// Package storage defines the persistence interface for documents.
package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hyperjump/hybridrank/internal/models"
)

// Supported storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// Storage defines document persistence operations.
type Storage interface {
	// SaveDocument inserts doc or replaces the document with the same ID.
	// CreatedAt is kept on replace.
	SaveDocument(ctx context.Context, doc *models.Document) error
	// GetDocument returns models.ErrDocumentNotFound (wrapped) for unknown ids.
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// GetDocuments returns the documents found for ids; unknown ids are absent.
	GetDocuments(ctx context.Context, ids []string) (map[string]*models.Document, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	DeleteDocument(ctx context.Context, id string) error
	// ListDocuments pages through documents in id order.
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	CountDocuments(ctx context.Context) (int64, error)

	Close() error
}

// Open opens the storage for driver. path is a file for sqlite and a
// directory for badger; an empty badger path keeps data in memory.
func Open(driver, path string) (Storage, error) {
	switch driver {
	case "", DriverSQLite:
		return NewSQLiteStorage(path)
	case DriverBadger:
		return NewBadgerStorage(path, nil)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", models.ErrDocumentNotFound, id)
}

// encodeEmbedding encodes v as little-endian float32s.
func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding: %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

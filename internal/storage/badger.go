package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/hyperjump/hybridrank/internal/models"
)

const documentPrefix = "doc:"

func makeDocumentKey(id string) []byte {
	return []byte(documentPrefix + id)
}

// badgerLogger adapts zap to badger's logger interface.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...any)   { l.logger.Errorf(msg, items...) }
func (l *badgerLogger) Warningf(msg string, items ...any) { l.logger.Warnf(msg, items...) }
func (l *badgerLogger) Infof(msg string, items ...any)    { l.logger.Debugf(msg, items...) }
func (l *badgerLogger) Debugf(msg string, items ...any)   { l.logger.Debugf(msg, items...) }

// badgerRecord is the stored form of a document.
type badgerRecord struct {
	ID        string         `json:"id"`
	Title     string         `json:"title,omitempty"`
	Text      string         `json:"text"`
	Embedding []byte         `json:"embedding,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func marshalDocument(doc *models.Document) ([]byte, error) {
	return json.Marshal(badgerRecord{
		ID:        doc.ID,
		Title:     doc.Title,
		Text:      doc.Text,
		Embedding: encodeEmbedding(doc.Embedding),
		Metadata:  doc.Metadata,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	})
}

func unmarshalDocument(val []byte) (*models.Document, error) {
	var rec badgerRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	emb, err := decodeEmbedding(rec.Embedding)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", rec.ID, err)
	}
	return &models.Document{
		ID:        rec.ID,
		Title:     rec.Title,
		Text:      rec.Text,
		Embedding: emb,
		Metadata:  rec.Metadata,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// BadgerStorage implements Storage on an embedded BadgerDB key-value store.
type BadgerStorage struct {
	db *badger.DB
}

// NewBadgerStorage opens a BadgerDB database in dir, creating it if needed.
// An empty dir opens an in-memory database.
func NewBadgerStorage(dir string, logger *zap.Logger) (*BadgerStorage, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create badger directory: %w", err)
			}
		} else if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", dir)
		}
		opts = badger.DefaultOptions(dir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Logger = &badgerLogger{logger: logger.Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStorage{db: db}, nil
}

func readDocument(txn *badger.Txn, id string) (*models.Document, error) {
	item, err := txn.Get(makeDocumentKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var doc *models.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = unmarshalDocument(val)
		return err
	})
	return doc, err
}

func writeDocument(txn *badger.Txn, doc *models.Document) error {
	val, err := marshalDocument(doc)
	if err != nil {
		return err
	}
	return txn.Set(makeDocumentKey(doc.ID), val)
}

// SaveDocument inserts or replaces a document.
func (s *BadgerStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	return s.db.Update(func(txn *badger.Txn) error {
		old, err := readDocument(txn, doc.ID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		switch {
		case old != nil:
			doc.CreatedAt = old.CreatedAt
		case doc.CreatedAt.IsZero():
			doc.CreatedAt = now
		}
		doc.UpdatedAt = now
		return writeDocument(txn, doc)
	})
}

// GetDocument returns a document by ID.
func (s *BadgerStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc *models.Document
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = readDocument(txn, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return notFound(id)
		}
		return nil
	})
	return doc, err
}

// GetDocuments returns the documents for ids from a single read transaction.
func (s *BadgerStorage) GetDocuments(ctx context.Context, ids []string) (map[string]*models.Document, error) {
	out := make(map[string]*models.Document, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(txn, id)
			if err != nil {
				return err
			}
			if doc != nil {
				out[id] = doc
			}
		}
		return nil
	})
	return out, err
}

// UpdateEmbedding sets the embedding of an existing document.
func (s *BadgerStorage) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	return s.db.Update(func(txn *badger.Txn) error {
		doc, err := readDocument(txn, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return notFound(id)
		}
		doc.Embedding = embedding
		doc.UpdatedAt = time.Now().UTC()
		return writeDocument(txn, doc)
	})
}

// DeleteDocument removes a document by ID. Unknown ids are not an error.
func (s *BadgerStorage) DeleteDocument(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(makeDocumentKey(id))
	})
}

// ListDocuments returns documents ordered by id.
func (s *BadgerStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	var docs []*models.Document
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		skipped := 0
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if limit > 0 && len(docs) >= limit {
				break
			}
			if skipped < offset {
				skipped++
				continue
			}
			err := iter.Item().Value(func(val []byte) error {
				doc, err := unmarshalDocument(val)
				if err != nil {
					return err
				}
				docs = append(docs, doc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return docs, err
}

// CountDocuments returns the total number of documents.
func (s *BadgerStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix)
		opts.PrefetchValues = false
		iter := txn.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close closes the database.
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

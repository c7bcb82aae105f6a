// Package models defines core data structures for documents, queries, search
// results and match scoring, plus the error taxonomy shared by every component.
package models

import "time"

// Well-known metadata keys. Metadata is opaque to ranking; these are only
// conventions used by loaders and the CLI.
const (
	MetaSectionType = "section_type"
	MetaCategory    = "category"
)

// Document represents a stored, searchable unit. Text is immutable after
// creation; the embedding may be attached once, later.
type Document struct {
	ID        string                 `json:"id" yaml:"id" db:"id"`
	Title     string                 `json:"title,omitempty" yaml:"title,omitempty" db:"title"`
	Text      string                 `json:"text" yaml:"text" db:"text"`
	Embedding []float32              `json:"embedding,omitempty" yaml:"embedding,omitempty" db:"-"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" yaml:"-" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" yaml:"-" db:"updated_at"`
}

// HasEmbedding reports whether an embedding is attached.
func (d *Document) HasEmbedding() bool {
	return len(d.Embedding) > 0
}

// SectionType returns the section_type metadata value, if any.
func (d *Document) SectionType() string {
	s, _ := d.Metadata[MetaSectionType].(string)
	return s
}

// Category returns the category metadata value, if any.
func (d *Document) Category() string {
	s, _ := d.Metadata[MetaCategory].(string)
	return s
}

// DocumentInput is the input for indexing a document. ID and Embedding are
// optional; a missing ID is generated and a missing embedding is requested
// from the configured embedder.
type DocumentInput struct {
	ID        string                 `json:"id,omitempty" yaml:"id,omitempty"`
	Title     string                 `json:"title,omitempty" yaml:"title,omitempty"`
	Text      string                 `json:"text" yaml:"text"`
	Embedding []float32              `json:"embedding,omitempty" yaml:"embedding,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

package models

import (
	"errors"
	"fmt"
)

// Error categories. Every error produced by the retrieval core matches exactly
// one of these through errors.Is.
var (
	// ErrValidation marks caller mistakes. Surfaced immediately, never retried.
	ErrValidation = errors.New("validation error")

	// ErrUpstreamUnavailable marks a failing or slow collaborator (index,
	// embedding provider). Search degrades around it when possible.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInternalInconsistency marks corrupted state, such as a fused id that
	// no longer resolves to a document. Fatal for the request.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

// Specific errors.
var (
	ErrEmptyQuery          = &ValidationError{Field: "query", Reason: "query cannot be empty"}
	ErrInvalidLimit        = &ValidationError{Field: "limit", Reason: "limit must be positive"}
	ErrInvalidFusionWeight = &ValidationError{Field: "alpha", Reason: "fusion weight must be between 0 and 1"}
	ErrInvalidSmoothing    = &ValidationError{Field: "k", Reason: "smoothing constant must be positive"}
	ErrInvalidMatchWeights = &ValidationError{Field: "weights", Reason: "match weights must be non-negative and not all zero"}

	ErrDimensionMismatch      = errors.New("dimension mismatch")
	ErrIncompatibleDimensions = errors.New("incompatible dimensions")

	ErrEmbeddingUnavailable = &UpstreamError{Source: SourceEmbedding}
	ErrDocumentNotFound     = errors.New("document not found")
)

// ValidationError describes an invalid input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// DimensionMismatchError is returned when a vector's length differs from the
// dimension an index was configured with.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch || target == ErrValidation
}

// NewDimensionMismatchError creates a new DimensionMismatchError
func NewDimensionMismatchError(expected, got int) *DimensionMismatchError {
	return &DimensionMismatchError{Expected: expected, Got: got}
}

// IncompatibleDimensionsError is returned when a profile and a target carry
// embeddings of different lengths.
type IncompatibleDimensionsError struct {
	Profile int
	Target  int
}

func (e *IncompatibleDimensionsError) Error() string {
	return fmt.Sprintf("incompatible embedding dimensions: profile has %d, target has %d", e.Profile, e.Target)
}

func (e *IncompatibleDimensionsError) Is(target error) bool {
	return target == ErrIncompatibleDimensions || target == ErrValidation
}

// UpstreamError wraps a failure of an external collaborator.
type UpstreamError struct {
	Source Source
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s unavailable", e.Source)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is matches the upstream category, and ErrEmbeddingUnavailable for any
// embedding failure.
func (e *UpstreamError) Is(target error) bool {
	if target == ErrUpstreamUnavailable {
		return true
	}
	if t, ok := target.(*UpstreamError); ok && t.Err == nil {
		return t.Source == e.Source
	}
	return false
}

// NewUpstreamError wraps err as a failure of source.
func NewUpstreamError(source Source, err error) *UpstreamError {
	return &UpstreamError{Source: source, Err: err}
}

// InconsistencyError is returned when internal state contradicts itself.
type InconsistencyError struct {
	DocumentID string
	Cause      error
}

func (e *InconsistencyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal inconsistency: document '%s' cannot be resolved: %v", e.DocumentID, e.Cause)
	}
	return fmt.Sprintf("internal inconsistency: document '%s' cannot be resolved", e.DocumentID)
}

func (e *InconsistencyError) Unwrap() error {
	return e.Cause
}

func (e *InconsistencyError) Is(target error) bool {
	return target == ErrInternalInconsistency
}

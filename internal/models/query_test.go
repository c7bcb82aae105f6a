package models

import (
	"errors"
	"math"
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *SearchQuery
		wantErr error
	}{
		{"empty query", &SearchQuery{Query: "", Limit: 10}, ErrEmptyQuery},
		{"whitespace query", &SearchQuery{Query: "  \t ", Limit: 10}, ErrEmptyQuery},
		{"valid query", &SearchQuery{Query: "hello", Limit: 10}, nil},
		{"zero limit", &SearchQuery{Query: "x", Limit: 0}, ErrInvalidLimit},
		{"negative limit", &SearchQuery{Query: "x", Limit: -3}, ErrInvalidLimit},
		{"alpha above one", &SearchQuery{Query: "x", Limit: 1, Alpha: Float64Ptr(1.5)}, ErrInvalidFusionWeight},
		{"alpha below zero", &SearchQuery{Query: "x", Limit: 1, Alpha: Float64Ptr(-0.1)}, ErrInvalidFusionWeight},
		{"alpha NaN", &SearchQuery{Query: "x", Limit: 1, Alpha: Float64Ptr(math.NaN())}, ErrInvalidFusionWeight},
		{"alpha bounds", &SearchQuery{Query: "x", Limit: 1, Alpha: Float64Ptr(1)}, nil},
		{"k zero", &SearchQuery{Query: "x", Limit: 1, K: Float64Ptr(0)}, ErrInvalidSmoothing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected %v to be a validation error", err)
			}
		})
	}
}

func TestSearchQuery_ValidateDoesNotRewrite(t *testing.T) {
	q := &SearchQuery{Query: "  Go  ", Limit: 500}
	if err := q.Validate(); err != nil {
		t.Fatal(err)
	}
	if q.Query != "  Go  " || q.Limit != 500 {
		t.Errorf("Validate rewrote query: %+v", q)
	}
}

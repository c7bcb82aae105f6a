package planner

import (
	"context"
	"errors"
	"strings"

	"github.com/hyperjump/hybridrank/internal/lexical"
)

// Expander proposes additional lexical terms for a tokenized query.
type Expander interface {
	Expand(ctx context.Context, terms []string) ([]string, error)
}

// ExpanderFunc adapts a function to Expander.
type ExpanderFunc func(ctx context.Context, terms []string) ([]string, error)

// Expand calls f.
func (f ExpanderFunc) Expand(ctx context.Context, terms []string) ([]string, error) {
	return f(ctx, terms)
}

// StaticExpander expands terms from a fixed synonym table.
type StaticExpander struct {
	synonyms map[string][]string
}

// NewStaticExpander builds a StaticExpander. Keys are matched
// case-insensitively and the table is copied.
func NewStaticExpander(synonyms map[string][]string) *StaticExpander {
	table := make(map[string][]string, len(synonyms))
	for k, v := range synonyms {
		key := strings.ToLower(strings.TrimSpace(k))
		table[key] = append(table[key], v...)
	}
	return &StaticExpander{synonyms: table}
}

// Expand returns the synonyms of each term, in term order.
func (s *StaticExpander) Expand(ctx context.Context, terms []string) ([]string, error) {
	var out []string
	for _, t := range terms {
		out = append(out, s.synonyms[t]...)
	}
	return out, nil
}

// SpellingExpander adds the best dictionary correction of every term the
// lexical index does not contain.
type SpellingExpander struct {
	checker *lexical.SpellChecker
}

// NewSpellingExpander creates a SpellingExpander over checker.
func NewSpellingExpander(checker *lexical.SpellChecker) *SpellingExpander {
	return &SpellingExpander{checker: checker}
}

// Expand returns one suggestion per misspelled term.
func (s *SpellingExpander) Expand(ctx context.Context, terms []string) ([]string, error) {
	var out []string
	for _, t := range terms {
		miss, err := s.checker.IsMisspelled(t)
		if err != nil {
			return nil, err
		}
		if !miss {
			continue
		}
		suggestions, err := s.checker.Suggest(t)
		if err != nil {
			return nil, err
		}
		if len(suggestions) > 0 {
			out = append(out, suggestions[0].Term)
		}
	}
	return out, nil
}

// Chain runs expanders in order and concatenates their output. Failing
// expanders are skipped; their errors are joined and returned alongside
// whatever the others produced.
type Chain []Expander

// Expand implements Expander.
func (c Chain) Expand(ctx context.Context, terms []string) ([]string, error) {
	var out []string
	var errs []error
	for _, e := range c {
		more, err := e.Expand(ctx, terms)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, more...)
	}
	return out, errors.Join(errs...)
}

package lexical

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// Suggestion is a dictionary term close to a queried term.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
	Score     float64
}

// SpellChecker suggests dictionary terms for terms the index does not know.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int
	distance       func(a, b string) int

	mu    sync.RWMutex
	terms []string
	set   map[string]struct{}
	valid bool
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores dictionary terms rarer than f documents.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions caps the suggestions returned per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// WithTranspositions counts adjacent swaps as a single edit.
func WithTranspositions() SpellCheckerOption {
	return func(s *SpellChecker) {
		s.distance = DamerauLevenshteinDistance
	}
}

// NewSpellChecker creates a new SpellChecker over dict.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 3,
		distance:       LevenshteinDistance,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh reloads the cached vocabulary. Call after the index changes.
func (s *SpellChecker) Refresh() error {
	terms, err := s.dictionary.GetAllTerms()
	if err != nil {
		return err
	}
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[strings.ToLower(t)] = struct{}{}
	}

	s.mu.Lock()
	s.terms = terms
	s.set = set
	s.valid = true
	s.mu.Unlock()
	return nil
}

// Invalidate marks the cached vocabulary stale; the next lookup refreshes it.
func (s *SpellChecker) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.mu.Unlock()
}

func (s *SpellChecker) ensure() error {
	s.mu.RLock()
	valid := s.valid
	s.mu.RUnlock()
	if valid {
		return nil
	}
	return s.Refresh()
}

// IsMisspelled reports whether term is absent from the dictionary.
func (s *SpellChecker) IsMisspelled(term string) (bool, error) {
	if err := s.ensure(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[strings.ToLower(term)]
	return !ok, nil
}

// Suggest returns dictionary terms within the maximum edit distance of term,
// best first. Ordering is deterministic: score descending, then term.
func (s *SpellChecker) Suggest(term string) ([]Suggestion, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	term = strings.ToLower(term)

	s.mu.RLock()
	terms := s.terms
	s.mu.RUnlock()

	out := make([]Suggestion, 0)
	termLen := utf8.RuneCountInString(term)
	for _, dictTerm := range terms {
		candidate := strings.ToLower(dictTerm)
		if candidate == term {
			continue
		}
		diff := utf8.RuneCountInString(candidate) - termLen
		if diff < 0 {
			diff = -diff
		}
		if diff > s.maxDistance {
			continue
		}
		d := s.distance(term, candidate)
		if d > s.maxDistance {
			continue
		}
		freq, err := s.dictionary.GetTermFrequency(dictTerm)
		if err != nil || freq < s.minFreq {
			continue
		}
		out = append(out, Suggestion{
			Term:      candidate,
			Distance:  d,
			Frequency: freq,
			Score:     float64(freq) / float64(d+1),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > s.maxSuggestions {
		out = out[:s.maxSuggestions]
	}
	return out, nil
}

package lexical

import (
	"errors"
	"testing"
)

// mockTermDictionary is a mock implementation of TermDictionary for testing.
type mockTermDictionary struct {
	terms       map[string]int // term -> frequency
	getAllError error
	calls       int
}

func (m *mockTermDictionary) GetAllTerms() ([]string, error) {
	m.calls++
	if m.getAllError != nil {
		return nil, m.getAllError
	}
	out := make([]string, 0, len(m.terms))
	for term := range m.terms {
		out = append(out, term)
	}
	return out, nil
}

func (m *mockTermDictionary) GetTermFrequency(term string) (int, error) {
	return m.terms[term], nil
}

func (m *mockTermDictionary) ContainsTerm(term string) (bool, error) {
	_, ok := m.terms[term]
	return ok, nil
}

func TestSpellChecker_Suggest(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{
		"python":     100,
		"pytorch":    20,
		"kubernetes": 50,
		"learning":   40,
		"leaning":    1,
	}}
	sc := NewSpellChecker(dict, WithMaxDistance(2))

	tests := []struct {
		name      string
		term      string
		wantFirst string
	}{
		{"kubernets -> kubernetes", "kubernets", "kubernetes"},
		{"pyton -> python", "pyton", "python"},
		{"lerning prefers frequent term", "lerning", "learning"},
		{"xyz (no match)", "xyz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestions, err := sc.Suggest(tt.term)
			if err != nil {
				t.Fatalf("Suggest: %v", err)
			}
			if tt.wantFirst == "" {
				if len(suggestions) != 0 {
					t.Errorf("Suggest(%q) = %+v, want none", tt.term, suggestions)
				}
				return
			}
			if len(suggestions) == 0 || suggestions[0].Term != tt.wantFirst {
				t.Errorf("Suggest(%q) = %+v, want first %q", tt.term, suggestions, tt.wantFirst)
			}
		})
	}
}

func TestSpellChecker_Options(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{"the": 10, "tea": 1}}

	sc := NewSpellChecker(dict, WithMaxDistance(1), WithMinFrequency(5))
	got, err := sc.Suggest("teh")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("plain distance treats teh/the as 2 edits, got %+v", got)
	}

	sc = NewSpellChecker(dict, WithMaxDistance(1), WithMinFrequency(5), WithTranspositions(), WithMaxSuggestions(1))
	got, err = sc.Suggest("teh")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Term != "the" {
		t.Errorf("expected transposition suggestion \"the\", got %+v", got)
	}
}

func TestSpellChecker_CacheRefresh(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{"golang": 3}}
	sc := NewSpellChecker(dict)

	miss, err := sc.IsMisspelled("golang")
	if err != nil || miss {
		t.Fatalf("IsMisspelled(golang) = %v, %v", miss, err)
	}
	_, _ = sc.Suggest("golan")
	if dict.calls != 1 {
		t.Errorf("expected vocabulary to be loaded once, loaded %d times", dict.calls)
	}

	dict.terms["rust"] = 2
	sc.Invalidate()
	miss, err = sc.IsMisspelled("rust")
	if err != nil || miss {
		t.Errorf("expected rust after invalidate, got %v, %v", miss, err)
	}
}

func TestSpellChecker_DictionaryError(t *testing.T) {
	dict := &mockTermDictionary{getAllError: errors.New("closed")}
	sc := NewSpellChecker(dict)
	if _, err := sc.Suggest("x"); err == nil {
		t.Error("expected dictionary error to surface")
	}
}

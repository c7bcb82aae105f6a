package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/hybridrank/internal/lexical"
	"github.com/hyperjump/hybridrank/internal/models"
)

func TestPlan_Normalizes(t *testing.T) {
	p := New(WithDimensions(384))
	q, err := p.Plan(context.Background(), "  Kubernetes\tOperators \n", nil)
	require.NoError(t, err)
	assert.Equal(t, "kubernetes operators", q.Normalized)
	assert.Equal(t, "kubernetes operators", q.LexicalText)
	assert.Equal(t, []string{"kubernetes", "operators"}, q.Terms)
	assert.Equal(t, EmbeddingRequest{Text: "kubernetes operators", Dimensions: 384}, q.Embedding)
	assert.Empty(t, q.Expansions)
}

func TestPlan_EmptyQuery(t *testing.T) {
	p := New()
	for _, raw := range []string{"", "   ", "\n\t"} {
		_, err := p.Plan(context.Background(), raw, nil)
		assert.ErrorIs(t, err, models.ErrEmptyQuery)
		assert.ErrorIs(t, err, models.ErrValidation)
	}
}

func TestPlan_ExpansionOnlyAffectsLexicalText(t *testing.T) {
	p := New(WithExpander(NewStaticExpander(map[string][]string{
		"K8s": {"kubernetes", "k8s"},
	})))
	q, err := p.Plan(context.Background(), "k8s autoscaling", []string{"HPA", "autoscaling"})
	require.NoError(t, err)

	assert.Equal(t, []string{"hpa", "kubernetes"}, q.Expansions, "caller terms first, duplicates of query terms dropped")
	assert.Equal(t, "k8s autoscaling hpa kubernetes", q.LexicalText)
	assert.Equal(t, "k8s autoscaling", q.Embedding.Text)
}

func TestPlan_MaxExpansions(t *testing.T) {
	p := New(WithMaxExpansions(1), WithExpander(NewStaticExpander(map[string][]string{
		"db": {"database", "postgres"},
	})))
	q, err := p.Plan(context.Background(), "db", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"database"}, q.Expansions)
}

func TestPlan_ExpanderFailureKeepsPartialTerms(t *testing.T) {
	failing := ExpanderFunc(func(ctx context.Context, terms []string) ([]string, error) {
		return nil, errors.New("thesaurus offline")
	})
	p := New(WithExpander(Chain{failing, NewStaticExpander(map[string][]string{"ml": {"machine learning"}})}))
	q, err := p.Plan(context.Background(), "ml", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"machine learning"}, q.Expansions)
}

func TestSpellingExpander(t *testing.T) {
	ctx := context.Background()
	idx := lexical.NewMemoryIndex()
	require.NoError(t, idx.Index(ctx, &models.Document{ID: "a", Text: "kubernetes operators in golang"}))
	require.NoError(t, idx.Index(ctx, &models.Document{ID: "b", Text: "kubernetes networking"}))

	p := New(WithExpander(NewSpellingExpander(lexical.NewSpellChecker(idx))))
	q, err := p.Plan(ctx, "kubernets golang", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"kubernetes"}, q.Expansions)
	assert.Equal(t, "kubernets golang kubernetes", q.LexicalText)
}

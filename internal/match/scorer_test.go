package match

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/hybridrank/internal/models"
)

func newScorer(t *testing.T, opts ...Option) *Scorer {
	t.Helper()
	s, err := NewScorer(opts...)
	require.NoError(t, err)
	return s
}

func years(v float64) *float64 { return &v }

func TestScore_SkillOverlap(t *testing.T) {
	s := newScorer(t)
	r, err := s.Score(
		&models.MatchProfile{ID: "resume-1", Attributes: []string{"Python", "SQL"}},
		&models.MatchTarget{ID: "job-1", Attributes: []string{"Python", "React"}},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, 0.5, r.SubScores[models.SubScoreSkill])
	assert.Equal(t, []string{"Python"}, r.MatchingAttributes)
	assert.Equal(t, []string{"React"}, r.MissingAttributes)
	// No embeddings: the vector weight drops out and skill carries everything.
	assert.Equal(t, 0.5, r.Overall)
	assert.NotContains(t, r.SubScores, models.SubScoreVector)
	assert.Contains(t, r.Recommendations, "Add React experience")
	assert.Contains(t, r.Recommendations, "Highlight Python projects")
}

func TestScore_IncompatibleDimensions(t *testing.T) {
	s := newScorer(t)
	_, err := s.Score(
		&models.MatchProfile{Attributes: []string{"Go"}, Embedding: make([]float32, 384)},
		&models.MatchTarget{Attributes: []string{"Go"}, Embedding: make([]float32, 256)},
		nil,
	)
	var dimErr *models.IncompatibleDimensionsError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 384, dimErr.Profile)
	assert.Equal(t, 256, dimErr.Target)
	assert.ErrorIs(t, err, models.ErrIncompatibleDimensions)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestScore_EmptyTargetIsPerfectSkillMatch(t *testing.T) {
	s := newScorer(t)
	r, err := s.Score(&models.MatchProfile{Attributes: []string{"Go"}}, &models.MatchTarget{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.SubScores[models.SubScoreSkill])
	assert.Equal(t, 1.0, r.Overall)
	assert.Empty(t, r.MissingAttributes)
}

func TestScore_WithEmbeddings(t *testing.T) {
	s := newScorer(t)
	r, err := s.Score(
		&models.MatchProfile{Attributes: []string{"Go", "SQL"}, Embedding: []float32{1, 0}},
		&models.MatchTarget{Attributes: []string{"Go", "SQL"}, Embedding: []float32{1, 1}},
		nil,
	)
	require.NoError(t, err)
	sim := 1 / math.Sqrt2
	assert.InDelta(t, sim, r.SubScores[models.SubScoreVector], 1e-6)
	assert.InDelta(t, 0.5*1+0.5*sim, r.Overall, 1e-6)
}

func TestScore_NegativeSimilarityClamped(t *testing.T) {
	s := newScorer(t)
	r, err := s.Score(
		&models.MatchProfile{Embedding: []float32{1, 0}},
		&models.MatchTarget{Attributes: []string{"Go"}, Embedding: []float32{-1, 0}},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.SubScores[models.SubScoreVector])
	assert.Equal(t, 0.0, r.Overall)
	assert.Contains(t, r.Recommendations, "Tailor the profile summary to the target description")
}

func TestScore_CustomWeights(t *testing.T) {
	s := newScorer(t)
	p := &models.MatchProfile{Attributes: []string{"Go"}, Embedding: []float32{0, 1}}
	tg := &models.MatchTarget{Attributes: []string{"Go", "Rust"}, Embedding: []float32{0, 1}}

	r, err := s.Score(p, tg, &models.MatchWeights{Skill: 1, Vector: 3})
	require.NoError(t, err)
	assert.InDelta(t, (1*0.5+3*1.0)/4, r.Overall, 1e-9)

	_, err = s.Score(p, tg, &models.MatchWeights{Skill: -1, Vector: 1})
	assert.ErrorIs(t, err, models.ErrInvalidMatchWeights)
	_, err = s.Score(p, tg, &models.MatchWeights{})
	assert.ErrorIs(t, err, models.ErrInvalidMatchWeights)

	_, err = NewScorer(WithWeights(models.MatchWeights{Skill: math.NaN()}))
	assert.ErrorIs(t, err, models.ErrInvalidMatchWeights)
}

func TestScore_Experience(t *testing.T) {
	s := newScorer(t, WithWeights(models.MatchWeights{Skill: 0.5, Vector: 0.25, Experience: 0.25}))

	tests := []struct {
		name    string
		profile *models.MatchProfile
		target  *models.MatchTarget
		want    float64
		present bool
	}{
		{"years short", &models.MatchProfile{ExperienceYears: years(3)}, &models.MatchTarget{ExperienceYears: years(6)}, 0.5, true},
		{"years exceed", &models.MatchProfile{ExperienceYears: years(10)}, &models.MatchTarget{ExperienceYears: years(5)}, 1, true},
		{"level equal", &models.MatchProfile{ExperienceLevel: models.ExperienceSenior}, &models.MatchTarget{ExperienceLevel: models.ExperienceSenior}, 1, true},
		{"level two below", &models.MatchProfile{ExperienceLevel: models.ExperienceJunior}, &models.MatchTarget{ExperienceLevel: models.ExperienceSenior}, 0.5, true},
		{"unknown", &models.MatchProfile{}, &models.MatchTarget{ExperienceLevel: models.ExperienceMid}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := s.Score(tt.profile, tt.target, nil)
			require.NoError(t, err)
			got, ok := r.SubScores[models.SubScoreExperience]
			require.Equal(t, tt.present, ok)
			if !ok {
				assert.Equal(t, 1.0, r.Overall, "only the skill score remains")
				return
			}
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.InDelta(t, (0.5*1+0.25*tt.want)/0.75, r.Overall, 1e-9)
		})
	}
}

func TestScore_ExactMatchingByDefault(t *testing.T) {
	s := newScorer(t)
	r, err := s.Score(
		&models.MatchProfile{Attributes: []string{"javascript", " Go "}},
		&models.MatchTarget{Attributes: []string{"JavaScript", "Go", "Go"}},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, r.MatchingAttributes)
	assert.Equal(t, []string{"JavaScript"}, r.MissingAttributes)
	assert.Equal(t, 0.5, r.SubScores[models.SubScoreSkill], "duplicate target attributes count once")
}

func TestScore_AliasNormalizer(t *testing.T) {
	s := newScorer(t, WithNormalizer(NewAliasNormalizer(map[string]string{"JS": "JavaScript", "k8s": "Kubernetes"})))
	r, err := s.Score(
		&models.MatchProfile{Attributes: []string{"js", "K8S"}},
		&models.MatchTarget{Attributes: []string{"JavaScript", "Kubernetes", "AWS"}, Preferred: []string{"Terraform", "kubernetes"}},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"JavaScript", "Kubernetes"}, r.MatchingAttributes)
	assert.Equal(t, []string{"AWS"}, r.MissingAttributes)
	assert.Equal(t, []string{"Terraform"}, r.SkillGaps)
	assert.InDelta(t, 2.0/3, r.Overall, 1e-9)
}

func TestScore_Bounds(t *testing.T) {
	s := newScorer(t, WithWeights(models.MatchWeights{Skill: 1, Vector: 1, Experience: 1}))
	r := rand.New(rand.NewPCG(3, 4))
	pool := []string{"go", "rust", "sql", "python", "react", "aws", "k8s"}
	pick := func() []string {
		var out []string
		for _, a := range pool {
			if r.IntN(2) == 0 {
				out = append(out, a)
			}
		}
		return out
	}
	vec := func() []float32 {
		v := make([]float32, 8)
		for i := range v {
			v[i] = float32(r.NormFloat64())
		}
		return v
	}
	for i := 0; i < 500; i++ {
		res, err := s.Score(
			&models.MatchProfile{Attributes: pick(), Embedding: vec(), ExperienceYears: years(r.Float64() * 20)},
			&models.MatchTarget{Attributes: pick(), Embedding: vec(), ExperienceYears: years(r.Float64() * 20)},
			nil,
		)
		require.NoError(t, err)
		require.False(t, math.IsNaN(res.Overall))
		require.GreaterOrEqual(t, res.Overall, 0.0)
		require.LessOrEqual(t, res.Overall, 1.0)
		for name, v := range res.SubScores {
			require.GreaterOrEqual(t, v, 0.0, name)
			require.LessOrEqual(t, v, 1.0, name)
		}
	}
}

func TestRankTargets(t *testing.T) {
	s := newScorer(t)
	profile := &models.MatchProfile{ID: "me", Attributes: []string{"Go", "SQL"}}
	targets := []*models.MatchTarget{
		{ID: "job-c", Attributes: []string{"Go", "Rust"}},
		{ID: "job-a", Attributes: []string{"Go", "SQL"}},
		{ID: "job-b", Attributes: []string{"SQL", "Java"}},
		{ID: "job-d", Attributes: []string{"PHP"}},
	}
	results, err := s.RankTargets(profile, targets, 10, 0.1)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "job-a", results[0].TargetID)
	assert.Equal(t, "job-b", results[1].TargetID, "ties broken by target id")
	assert.Equal(t, "job-c", results[2].TargetID)

	top, err := s.RankTargets(profile, targets, 1, 0)
	require.NoError(t, err)
	require.Len(t, top, 1)

	_, err = s.RankTargets(profile, targets, 0, 0)
	assert.ErrorIs(t, err, models.ErrInvalidLimit)
}

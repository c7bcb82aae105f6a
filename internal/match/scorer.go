// Package match scores a profile (for example a resume) against a target
// (for example a job posting) and explains the result.
package match

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/hybridrank/internal/metrics"
	"github.com/hyperjump/hybridrank/internal/models"
	"github.com/hyperjump/hybridrank/internal/vector"
	"github.com/hyperjump/hybridrank/pkg/utils"
)

// maxSkillRecommendations caps the per-skill recommendation lines.
const maxSkillRecommendations = 5

// lowSimilarity is the vector similarity under which the profile is
// considered off-topic for the target.
const lowSimilarity = 0.5

// DefaultWeights returns skill 0.5, vector 0.5, experience 0.
func DefaultWeights() models.MatchWeights {
	return models.MatchWeights{Skill: 0.5, Vector: 0.5}
}

// Scorer computes MatchResults. It holds no per-call state and is safe for
// concurrent use.
type Scorer struct {
	weights    models.MatchWeights
	normalizer Normalizer
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWeights sets the default weights used when Score gets none.
func WithWeights(w models.MatchWeights) Option {
	return func(s *Scorer) {
		s.weights = w
	}
}

// WithNormalizer sets how attributes are compared. Without one, attributes
// match only when identical.
func WithNormalizer(n Normalizer) Option {
	return func(s *Scorer) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// WithMetrics records every computed score.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scorer) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScorer creates a Scorer.
func NewScorer(opts ...Option) (*Scorer, error) {
	s := &Scorer{
		weights:    DefaultWeights(),
		normalizer: exact,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := validateWeights(s.weights); err != nil {
		return nil, err
	}
	return s, nil
}

func validateWeights(w models.MatchWeights) error {
	for _, v := range []float64{w.Skill, w.Vector, w.Experience} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return models.ErrInvalidMatchWeights
		}
	}
	if w.Skill+w.Vector+w.Experience == 0 {
		return models.ErrInvalidMatchWeights
	}
	return nil
}

// Score compares profile with target. weights overrides the configured
// weights when non-nil.
//
// Sub-scores that cannot be computed (no embeddings on one side, no
// experience data) are left out and the remaining weights renormalized.
func (s *Scorer) Score(profile *models.MatchProfile, target *models.MatchTarget, weights *models.MatchWeights) (*models.MatchResult, error) {
	if profile == nil || target == nil {
		return nil, &models.ValidationError{Field: "profile", Reason: "profile and target are required"}
	}
	w := s.weights
	if weights != nil {
		if err := validateWeights(*weights); err != nil {
			return nil, err
		}
		w = *weights
	}

	have := s.keys(profile.Attributes)
	required := s.distinct(target.Attributes)

	matching := make([]string, 0)
	missing := make([]string, 0)
	for _, attr := range required {
		if _, ok := have[s.normalizer.Normalize(attr)]; ok {
			matching = append(matching, attr)
		} else {
			missing = append(missing, attr)
		}
	}
	sort.Strings(matching)
	sort.Strings(missing)

	var gaps []string
	for _, attr := range s.distinct(target.Preferred) {
		if _, ok := have[s.normalizer.Normalize(attr)]; !ok {
			gaps = append(gaps, attr)
		}
	}
	sort.Strings(gaps)

	skill := 1.0
	if len(required) > 0 {
		skill = float64(len(matching)) / float64(len(required))
	}
	sub := map[string]float64{models.SubScoreSkill: utils.Clamp01(skill)}
	weighted := w.Skill * sub[models.SubScoreSkill]
	total := w.Skill

	if len(profile.Embedding) > 0 && len(target.Embedding) > 0 {
		if len(profile.Embedding) != len(target.Embedding) {
			return nil, &models.IncompatibleDimensionsError{Profile: len(profile.Embedding), Target: len(target.Embedding)}
		}
		sim := utils.Clamp01(vector.CosineSimilarity(profile.Embedding, target.Embedding))
		sub[models.SubScoreVector] = sim
		weighted += w.Vector * sim
		total += w.Vector
	}

	if exp, ok := experienceScore(profile, target); ok {
		sub[models.SubScoreExperience] = exp
		weighted += w.Experience * exp
		total += w.Experience
	}

	// Only zero-weighted sub-scores present: fall back to the skill score.
	overall := sub[models.SubScoreSkill]
	if total > 0 {
		overall = utils.Clamp01(weighted / total)
	}

	result := &models.MatchResult{
		ProfileID:          profile.ID,
		TargetID:           target.ID,
		Overall:            overall,
		SubScores:          sub,
		MatchingAttributes: matching,
		MissingAttributes:  missing,
		SkillGaps:          gaps,
		Recommendations:    recommend(matching, missing, gaps, sub, target),
	}
	s.metrics.ObserveMatch(overall)
	s.logger.Debug("match scored",
		zap.String("profile", profile.ID),
		zap.String("target", target.ID),
		zap.Float64("overall", overall),
	)
	return result, nil
}

// RankTargets scores profile against every target and returns the best
// limit results with an overall score of at least minScore, ordered by
// overall descending, ties by target id ascending.
func (s *Scorer) RankTargets(profile *models.MatchProfile, targets []*models.MatchTarget, limit int, minScore float64) ([]*models.MatchResult, error) {
	if limit <= 0 {
		return nil, models.ErrInvalidLimit
	}
	results := make([]*models.MatchResult, 0, len(targets))
	for _, t := range targets {
		r, err := s.Score(profile, t, nil)
		if err != nil {
			return nil, fmt.Errorf("score target %q: %w", t.ID, err)
		}
		if r.Overall < minScore {
			continue
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Overall != results[j].Overall {
			return results[i].Overall > results[j].Overall
		}
		return results[i].TargetID < results[j].TargetID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// keys returns the normalized attribute set.
func (s *Scorer) keys(attrs []string) map[string]struct{} {
	out := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		if k := s.normalizer.Normalize(a); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}

// distinct drops blank attributes and those whose key repeats, keeping the
// first spelling.
func (s *Scorer) distinct(attrs []string) []string {
	seen := make(map[string]struct{}, len(attrs))
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		k := s.normalizer.Normalize(a)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, strings.TrimSpace(a))
	}
	return out
}

// experienceScore compares years when the target states them, otherwise
// levels. ok is false when there is nothing to compare.
func experienceScore(p *models.MatchProfile, t *models.MatchTarget) (float64, bool) {
	if t.ExperienceYears != nil && p.ExperienceYears != nil {
		if *t.ExperienceYears <= 0 {
			return 1, true
		}
		return utils.Clamp01(*p.ExperienceYears / *t.ExperienceYears), true
	}
	pl, tl := p.ExperienceLevel.Ordinal(), t.ExperienceLevel.Ordinal()
	if pl == 0 || tl == 0 {
		return 0, false
	}
	if pl >= tl {
		return 1, true
	}
	return utils.Clamp01(1 - float64(tl-pl)/float64(models.ExperienceLevels-1)), true
}

func recommend(matching, missing, gaps []string, sub map[string]float64, t *models.MatchTarget) []string {
	recs := make([]string, 0)
	for i, attr := range missing {
		if i == maxSkillRecommendations {
			recs = append(recs, fmt.Sprintf("Address %d more missing skills", len(missing)-i))
			break
		}
		recs = append(recs, fmt.Sprintf("Add %s experience", attr))
	}
	if len(gaps) > 0 {
		recs = append(recs, "Consider developing preferred skills: "+strings.Join(gaps, ", "))
	}
	if exp, ok := sub[models.SubScoreExperience]; ok && exp < 1 {
		switch {
		case t.ExperienceYears != nil:
			recs = append(recs, fmt.Sprintf("Highlight experience relevant to the %.0f years required", *t.ExperienceYears))
		case t.ExperienceLevel != models.ExperienceUnknown:
			recs = append(recs, fmt.Sprintf("Highlight responsibilities that show %s-level experience", t.ExperienceLevel))
		}
	}
	if sim, ok := sub[models.SubScoreVector]; ok && sim < lowSimilarity {
		recs = append(recs, "Tailor the profile summary to the target description")
	}
	if len(matching) > 0 {
		recs = append(recs, "Highlight "+strings.Join(matching, ", ")+" projects")
	}
	return recs
}

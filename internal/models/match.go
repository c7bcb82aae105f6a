package models

import (
	"fmt"
	"strings"
)

// ExperienceLevel is a coarse seniority bucket.
type ExperienceLevel string

const (
	ExperienceUnknown   ExperienceLevel = ""
	ExperienceEntry     ExperienceLevel = "entry"
	ExperienceJunior    ExperienceLevel = "junior"
	ExperienceMid       ExperienceLevel = "mid"
	ExperienceSenior    ExperienceLevel = "senior"
	ExperienceExecutive ExperienceLevel = "executive"
)

var experienceOrder = map[ExperienceLevel]int{
	ExperienceEntry:     1,
	ExperienceJunior:    2,
	ExperienceMid:       3,
	ExperienceSenior:    4,
	ExperienceExecutive: 5,
}

// ExperienceLevels is the number of known levels.
const ExperienceLevels = 5

// Ordinal returns the 1-based position of the level, or 0 when unknown.
func (l ExperienceLevel) Ordinal() int {
	return experienceOrder[l]
}

// ParseExperienceLevel parses a level name, case-insensitively.
func ParseExperienceLevel(s string) (ExperienceLevel, error) {
	l := ExperienceLevel(strings.ToLower(strings.TrimSpace(s)))
	if l == ExperienceUnknown {
		return l, nil
	}
	if _, ok := experienceOrder[l]; !ok {
		return ExperienceUnknown, &ValidationError{Field: "experience_level", Reason: fmt.Sprintf("unknown experience level %q", s)}
	}
	return l, nil
}

// MatchProfile is the candidate side of a match (for example a resume).
type MatchProfile struct {
	ID              string          `json:"id" yaml:"id"`
	Attributes      []string        `json:"attributes" yaml:"attributes"`
	Embedding       []float32       `json:"embedding,omitempty" yaml:"embedding,omitempty"`
	ExperienceYears *float64        `json:"experience_years,omitempty" yaml:"experience_years,omitempty"`
	ExperienceLevel ExperienceLevel `json:"experience_level,omitempty" yaml:"experience_level,omitempty"`
}

// MatchTarget is the requirement side of a match (for example a job posting).
type MatchTarget struct {
	ID         string   `json:"id" yaml:"id"`
	Attributes []string `json:"attributes" yaml:"attributes"`
	// Preferred attributes do not affect the score; missing ones are
	// reported as skill gaps.
	Preferred       []string        `json:"preferred,omitempty" yaml:"preferred,omitempty"`
	Embedding       []float32       `json:"embedding,omitempty" yaml:"embedding,omitempty"`
	ExperienceYears *float64        `json:"experience_years,omitempty" yaml:"experience_years,omitempty"`
	ExperienceLevel ExperienceLevel `json:"experience_level,omitempty" yaml:"experience_level,omitempty"`
}

// MatchWeights controls the weighted mean of sub-scores.
type MatchWeights struct {
	Skill      float64 `json:"skill" yaml:"skill"`
	Vector     float64 `json:"vector" yaml:"vector"`
	Experience float64 `json:"experience" yaml:"experience"`
}

// Sub-score names.
const (
	SubScoreSkill      = "skill_match"
	SubScoreVector     = "vector_similarity"
	SubScoreExperience = "experience_match"
)

// MatchResult is the outcome of scoring a profile against a target.
type MatchResult struct {
	ProfileID          string             `json:"profile_id,omitempty"`
	TargetID           string             `json:"target_id,omitempty"`
	Overall            float64            `json:"overall"`
	SubScores          map[string]float64 `json:"sub_scores"`
	MatchingAttributes []string           `json:"matching_attributes"`
	MissingAttributes  []string           `json:"missing_attributes"`
	SkillGaps          []string           `json:"skill_gaps,omitempty"`
	Recommendations    []string           `json:"recommendations"`
}

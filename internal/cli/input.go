package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/hybridrank/internal/models"
)

// ProfileInput is a match profile as read from a file. Text, when set, is
// embedded if the profile carries no embedding.
type ProfileInput struct {
	models.MatchProfile `yaml:",inline"`
	Text                string `yaml:"text,omitempty"`
}

// TargetInput is a match target as read from a file.
type TargetInput struct {
	models.MatchTarget `yaml:",inline"`
	Text               string `yaml:"text,omitempty"`
}

// LoadCorpus reads documents from a YAML (or JSON) file holding either a
// list of documents or a mapping with a "documents" list.
func LoadCorpus(path string) ([]*models.DocumentInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	var docs []*models.DocumentInput
	if isSequence(data) {
		err = yaml.Unmarshal(data, &docs)
	} else {
		var wrapped struct {
			Documents []*models.DocumentInput `yaml:"documents"`
		}
		err = yaml.Unmarshal(data, &wrapped)
		docs = wrapped.Documents
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse corpus %s: %w", path, err)
	}
	return docs, nil
}

// LoadProfile reads a single match profile.
func LoadProfile(path string) (*ProfileInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	var p ProfileInput
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	if p.ExperienceLevel, err = models.ParseExperienceLevel(string(p.ExperienceLevel)); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &p, nil
}

// LoadTargets reads one target or a list of targets.
func LoadTargets(path string) ([]*TargetInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets: %w", err)
	}
	var targets []*TargetInput
	if isSequence(data) {
		err = yaml.Unmarshal(data, &targets)
	} else {
		var t TargetInput
		err = yaml.Unmarshal(data, &t)
		targets = []*TargetInput{&t}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse targets %s: %w", path, err)
	}
	for _, t := range targets {
		if t.ExperienceLevel, err = models.ParseExperienceLevel(string(t.ExperienceLevel)); err != nil {
			return nil, fmt.Errorf("target %s: %w", t.ID, err)
		}
	}
	return targets, nil
}

// isSequence reports whether the YAML document's root node is a sequence.
func isSequence(data []byte) bool {
	var node yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&node); err != nil {
		return false
	}
	return len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode
}

// Package config provides configuration loading and structs for hybridrank.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/hybridrank/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Vector    VectorConfig    `yaml:"vector"`
	Planner   PlannerConfig   `yaml:"planner"`
	Match     MatchConfig     `yaml:"match"`
	Indexer   IndexerConfig   `yaml:"indexer"`
}

// LoggingConfig holds logger settings. Level overrides the level implied by Debug.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig holds the document store driver and index paths. An empty
// index path keeps that index in memory only.
type StorageConfig struct {
	Driver          string `yaml:"driver"`
	DatabasePath    string `yaml:"database_path"`
	BadgerPath      string `yaml:"badger_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider is "openai" for any OpenAI-compatible endpoint, or "mock".
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	// APIKeyEnv names the environment variable read when APIKey is empty.
	APIKeyEnv  string `yaml:"api_key_env"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// SearchConfig holds search and fusion settings.
type SearchConfig struct {
	DefaultLimit   int `yaml:"default_limit"`
	MaxLimit       int `yaml:"max_limit"`
	TopKCandidates int `yaml:"top_k_candidates"`
	// FusionK is the RRF smoothing constant.
	FusionK float64 `yaml:"fusion_k"`
	// FusionAlpha is the lexical weight. A pointer because 0 is a valid value.
	FusionAlpha    *float64      `yaml:"fusion_alpha"`
	SourceTimeout  time.Duration `yaml:"source_timeout"`
	LexicalBackend string        `yaml:"lexical_backend"`
	SnippetLength  int           `yaml:"snippet_length"`
}

// VectorConfig selects and tunes the vector index.
type VectorConfig struct {
	IndexType          string `yaml:"index_type"`
	HNSWM              int    `yaml:"hnsw_m"`
	HNSWEfConstruction int    `yaml:"hnsw_ef_construction"`
	HNSWEfSearch       int    `yaml:"hnsw_ef_search"`
}

// PlannerConfig holds query expansion settings.
type PlannerConfig struct {
	Synonyms            map[string][]string `yaml:"synonyms"`
	SpellingEnabled     bool                `yaml:"spelling_enabled"`
	SpellingMaxDistance int                 `yaml:"spelling_max_distance"`
	MaxExpansions       int                 `yaml:"max_expansions"`
}

// MatchConfig holds match scoring settings. Weights are pointers so that an
// explicit 0 is distinguishable from unset.
type MatchConfig struct {
	SkillWeight      *float64          `yaml:"skill_weight"`
	VectorWeight     *float64          `yaml:"vector_weight"`
	ExperienceWeight *float64          `yaml:"experience_weight"`
	CaseInsensitive  bool              `yaml:"case_insensitive"`
	Aliases          map[string]string `yaml:"aliases"`
}

// Weights returns the configured match weights.
func (m *MatchConfig) Weights() models.MatchWeights {
	return models.MatchWeights{
		Skill:      deref(m.SkillWeight),
		Vector:     deref(m.VectorWeight),
		Experience: deref(m.ExperienceWeight),
	}
}

// IndexerConfig holds batch indexing settings.
type IndexerConfig struct {
	PoolSize  int `yaml:"pool_size"`
	BatchSize int `yaml:"batch_size"`
}

// Load reads and parses the config file at path, expands paths, applies
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	cfg.expandPaths(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the default configuration with paths relative to dir.
func Default(dir string) *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.expandPaths(dir)
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "badger":
	default:
		return fmt.Errorf("invalid storage.driver %q: want sqlite or badger", c.Storage.Driver)
	}
	switch c.Embedding.Provider {
	case "openai", "mock":
	default:
		return fmt.Errorf("invalid embedding.provider %q: want openai or mock", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	switch c.Search.LexicalBackend {
	case "memory", "bleve":
	default:
		return fmt.Errorf("invalid search.lexical_backend %q: want memory or bleve", c.Search.LexicalBackend)
	}
	switch c.Vector.IndexType {
	case "memory", "hnsw":
	default:
		return fmt.Errorf("invalid vector.index_type %q: want memory or hnsw", c.Vector.IndexType)
	}
	if c.Search.FusionAlpha != nil && !models.ValidAlpha(*c.Search.FusionAlpha) {
		return fmt.Errorf("search.fusion_alpha: %w", models.ErrInvalidFusionWeight)
	}
	if !models.ValidK(c.Search.FusionK) {
		return fmt.Errorf("search.fusion_k: %w", models.ErrInvalidSmoothing)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit %d exceeds search.max_limit %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	return nil
}

// ResolveAPIKey returns the configured API key or the value of APIKeyEnv.
func (e *EmbeddingConfig) ResolveAPIKey() string {
	if e.APIKey != "" {
		return e.APIKey
	}
	if e.APIKeyEnv != "" {
		return os.Getenv(e.APIKeyEnv)
	}
	return ""
}

func (c *Config) expandPaths(dir string) {
	c.Storage.DatabasePath = expandPath(c.Storage.DatabasePath, dir)
	c.Storage.BadgerPath = expandPath(c.Storage.BadgerPath, dir)
	c.Storage.BleveIndexPath = expandPath(c.Storage.BleveIndexPath, dir)
	c.Storage.VectorIndexPath = expandPath(c.Storage.VectorIndexPath, dir)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	return filepath.Join(configDir, path)
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

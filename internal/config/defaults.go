package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/documents.db"
	}
	if cfg.Storage.BadgerPath == "" {
		cfg.Storage.BadgerPath = "./data/badger"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "mock"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 100
	}
	if cfg.Search.FusionK == 0 {
		cfg.Search.FusionK = 60
	}
	if cfg.Search.FusionAlpha == nil {
		alpha := 0.3
		cfg.Search.FusionAlpha = &alpha
	}
	if cfg.Search.SourceTimeout == 0 {
		cfg.Search.SourceTimeout = 2 * time.Second
	}
	if cfg.Search.LexicalBackend == "" {
		cfg.Search.LexicalBackend = "memory"
	}
	if cfg.Search.SnippetLength == 0 {
		cfg.Search.SnippetLength = 300
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Vector.HNSWM == 0 {
		cfg.Vector.HNSWM = 16
	}
	if cfg.Vector.HNSWEfConstruction == 0 {
		cfg.Vector.HNSWEfConstruction = 200
	}
	if cfg.Vector.HNSWEfSearch == 0 {
		cfg.Vector.HNSWEfSearch = 64
	}
	if cfg.Planner.SpellingMaxDistance == 0 {
		cfg.Planner.SpellingMaxDistance = 2
	}
	if cfg.Planner.MaxExpansions == 0 {
		cfg.Planner.MaxExpansions = 10
	}
	// Weights default only as a group.
	if cfg.Match.SkillWeight == nil && cfg.Match.VectorWeight == nil && cfg.Match.ExperienceWeight == nil {
		skill, vec, exp := 0.5, 0.5, 0.0
		cfg.Match.SkillWeight = &skill
		cfg.Match.VectorWeight = &vec
		cfg.Match.ExperienceWeight = &exp
	}
	if cfg.Indexer.PoolSize == 0 {
		cfg.Indexer.PoolSize = 4
	}
	if cfg.Indexer.BatchSize == 0 {
		cfg.Indexer.BatchSize = 32
	}
}

package config

import (
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/chunker"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/knowledge"
)

// providerDefaults maps each provider to its default chat and embedding models.
var providerDefaults = map[ProviderType]struct {
	Model          string
	EmbeddingModel string
}{
	ProviderOpenAI: {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"},
	ProviderOllama: {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
}

// DefaultIncludes are glob patterns ingested by `ingest-dir` by default.
var DefaultIncludes = []string{
	"**/*.md",
	"**/*.txt",
}

// DefaultExcludes are glob patterns skipped by `ingest-dir` by default.
var DefaultExcludes = []string{
	"vendor/**",
	"node_modules/**",
	".git/**",
	"dist/**",
	"build/**",
	"*.lock",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             providerDefaults[ProviderOpenAI].Model,
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    providerDefaults[ProviderOpenAI].EmbeddingModel,
		DataDir:           ".towerbot",
		ChunkSize:         chunker.DefaultSize,
		ChunkOverlap:      chunker.DefaultOverlap,
		TopN:              knowledge.DefaultTopN,
		FetchTimeoutSecs:  10,
		ServerPort:        8732,
		Include:           DefaultIncludes,
		Exclude:           DefaultExcludes,
	}
}

// DefaultModels returns the default chat and embedding models for the
// given provider, falling back to the OpenAI defaults.
func DefaultModels(provider ProviderType) (model, embeddingModel string) {
	if d, ok := providerDefaults[provider]; ok {
		return d.Model, d.EmbeddingModel
	}
	d := providerDefaults[ProviderOpenAI]
	return d.Model, d.EmbeddingModel
}

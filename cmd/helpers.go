package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/config"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/db"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/documents"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/embeddings"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/fetch"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/knowledge"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/llm"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/vectordb"
)

// newLogger builds the CLI logger. Logs go to stderr so stdout stays
// clean for command output (and MCP protocol messages).
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `towerbot init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}
	model := cfg.EmbeddingModel
	if model == "" {
		_, model = config.DefaultModels(provider)
	}

	switch provider {
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, 768, ""), nil
	default:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)), nil
	}
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	return llm.NewProvider(string(cfg.Provider), cfg.Model)
}

// dbPath returns the SQLite file path under the data directory.
func dbPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "knowledge.db")
}

// vectorDir returns the vector store directory under the data directory.
func vectorDir(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "vectordb")
}

// openStores opens the relational store and loads the vector index from
// the data directory. A missing vector export is fine: the index starts
// empty and is written back on the next persist.
func openStores(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder, logger *slog.Logger) (*db.DB, *documents.Store, *vectordb.ChromemIndex, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("creating data dir: %w", err)
	}

	database, err := db.Open(dbPath(cfg))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	index, err := vectordb.NewChromemIndex(embedder)
	if err != nil {
		database.Close()
		return nil, nil, nil, fmt.Errorf("creating vector index: %w", err)
	}
	if err := index.Load(ctx, vectorDir(cfg)); err != nil {
		logger.Debug("vector index not loaded, starting empty", "dir", vectorDir(cfg), "error", err)
	}

	return database, documents.NewStore(database), index, nil
}

// buildIngestor assembles the ingestion coordinator with a URL fetcher.
func buildIngestor(cfg *config.Config, docs *documents.Store, index vectordb.VectorIndex, embedder embeddings.Embedder, logger *slog.Logger) (*knowledge.Ingestor, error) {
	fetcher := fetch.New(time.Duration(cfg.FetchTimeoutSecs) * time.Second)
	return knowledge.NewIngestor(docs, index, embedder,
		knowledge.WithIngestorLogger(logger),
		knowledge.WithFetcher(fetcher),
	)
}

// buildRetriever assembles the question-answering engine.
func buildRetriever(cfg *config.Config, index vectordb.VectorIndex, embedder embeddings.Embedder, logger *slog.Logger) (*knowledge.Retriever, error) {
	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	return knowledge.NewRetriever(index, embedder, provider, cfg.Model,
		knowledge.WithTopN(cfg.TopN),
		knowledge.WithRetrieverLogger(logger),
	)
}

// persistIndex writes the vector index back to disk.
func persistIndex(ctx context.Context, cfg *config.Config, index *vectordb.ChromemIndex) error {
	if err := index.Persist(ctx, vectorDir(cfg)); err != nil {
		return fmt.Errorf("persisting vector index: %w", err)
	}
	return nil
}

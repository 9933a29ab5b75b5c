package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing the
knowledge base ingestion and question-answering tools for AI agents.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	database, docs, index, err := openStores(ctx, cfg, embedder, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	ingestor, err := buildIngestor(cfg, docs, index, embedder, logger)
	if err != nil {
		return err
	}
	retriever, err := buildRetriever(cfg, index, embedder, logger)
	if err != nil {
		return err
	}

	// Set version from the cmd package variable.
	mcpserver.Version = Version

	fmt.Fprintf(os.Stderr, "towerbot MCP server started on stdio (chunks=%d)\n", index.Count())

	srv := mcpserver.NewServer(ingestor, retriever)
	serveErr := srv.Serve()

	if err := persistIndex(ctx, cfg, index); err != nil {
		logger.Error("persisting vector index failed", "error", err)
	}
	return serveErr
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the knowledge base HTTP server",
	Long: `Starts an HTTP server exposing the knowledge base API: document
ingestion, retrieval, question answering, and reindexing.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().Bool("allow-all-origins", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	port, _ := cmd.Flags().GetInt("port")
	if port == 0 {
		port = cfg.ServerPort
	}
	allowAll, _ := cmd.Flags().GetBool("allow-all-origins")

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

	srv := server.New(server.Config{Port: port, AllowAll: allowAll}, ingestor, retriever, docs, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Persist whatever the API ingested while running.
	return persistIndex(ctx, cfg, index)
}

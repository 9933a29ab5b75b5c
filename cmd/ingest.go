package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/knowledge"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [text or URL]",
	Short: "Add a document to the knowledge base",
	Long: `Ingests a piece of content into the knowledge base. The argument is
either raw text, a URL (fetched and converted to plain text), or a file
path when --file is set. URLs are detected by their http/https scheme.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("title", "", "human-readable document title")
	ingestCmd.Flags().String("proposal", "", "proposal id to scope the document to")
	ingestCmd.Flags().Bool("file", false, "treat the argument as a file path and ingest its contents")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	source := args[0]

	title, _ := cmd.Flags().GetString("title")
	proposalID, _ := cmd.Flags().GetString("proposal")
	fromFile, _ := cmd.Flags().GetBool("file")

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

	req := knowledge.IngestRequest{
		Title:      title,
		ProposalID: proposalID,
		ChunkSize:  cfg.ChunkSize,
		Overlap:    cfg.ChunkOverlap,
	}
	switch {
	case fromFile:
		data, err := os.ReadFile(source)
		if err != nil {
			return fmt.Errorf("reading %s: %w", source, err)
		}
		req.Source = string(data)
		req.Kind = knowledge.SourceText
		if req.Title == "" {
			req.Title = source
		}
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		req.Source = source
		req.Kind = knowledge.SourceURL
	default:
		req.Source = source
		req.Kind = knowledge.SourceText
	}

	result, err := ingestor.Ingest(ctx, req)
	if err != nil {
		return err
	}

	if err := persistIndex(ctx, cfg, index); err != nil {
		return err
	}

	fmt.Printf("Stored document %s with %d chunk(s).\n", result.DocumentID, len(result.ChunkIDs))
	if !result.Searchable {
		fmt.Printf("Warning: the document is not searchable yet (%v). Run `towerbot reindex` to repair it.\n", result.IndexErr)
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/knowledge"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/progress"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/walker"
)

var ingestDirCmd = &cobra.Command{
	Use:   "ingest-dir [directory]",
	Short: "Ingest every matching text file under a directory",
	Long: `Walks a directory tree and ingests every file matching the configured
include/exclude globs. Each file becomes one document titled with its
relative path.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestDir,
}

func init() {
	ingestDirCmd.Flags().String("proposal", "", "proposal id to scope all ingested documents to")
	rootCmd.AddCommand(ingestDirCmd)
}

func runIngestDir(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	root := args[0]

	proposalID, _ := cmd.Flags().GetString("proposal")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	files, err := walker.Walk(walker.Config{
		RootDir: root,
		Include: cfg.Include,
		Exclude: cfg.Exclude,
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No matching files found.")
		return nil
	}

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

	reporter := progress.NewReporter("Ingesting files")
	reporter.Start(len(files))

	var ingested, failed, downgraded int
	for i, f := range files {
		reporter.Update(i+1, f.RelPath)

		data, err := os.ReadFile(f.Path)
		if err != nil {
			logger.Error("reading file failed", "path", f.Path, "error", err)
			failed++
			continue
		}

		result, err := ingestor.Ingest(ctx, knowledge.IngestRequest{
			Source:     string(data),
			Kind:       knowledge.SourceText,
			Title:      f.RelPath,
			ProposalID: proposalID,
			ChunkSize:  cfg.ChunkSize,
			Overlap:    cfg.ChunkOverlap,
		})
		if err != nil {
			logger.Error("ingest failed", "path", f.RelPath, "error", err)
			failed++
			continue
		}
		ingested++
		if !result.Searchable {
			downgraded++
		}
	}
	reporter.Finish()

	if err := persistIndex(ctx, cfg, index); err != nil {
		return err
	}

	fmt.Printf("Ingested %d of %d file(s).\n", ingested, len(files))
	if downgraded > 0 {
		fmt.Printf("%d document(s) are not searchable yet. Run `towerbot reindex` to repair them.\n", downgraded)
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed to ingest", failed)
	}
	return nil
}

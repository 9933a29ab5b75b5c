package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/progress"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Repair documents whose vector indexing failed",
	Long: `Scans for documents that were stored but never made searchable (their
vector write failed at ingestion time) and retries indexing them from
the stored raw text.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
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

	reporter := progress.NewReporter("Reindexing")
	started := false
	ingestor.SetProgressFunc(func(done, total int) {
		if !started {
			reporter.Start(total)
			started = true
		}
		reporter.Update(done, "")
	})

	report, err := ingestor.Reindex(ctx)
	if err != nil {
		return err
	}
	if started {
		reporter.Finish()
	}

	if report.Scanned == 0 {
		fmt.Println("Nothing to repair.")
		return nil
	}

	if err := persistIndex(ctx, cfg, index); err != nil {
		return err
	}

	fmt.Printf("Repaired %d of %d document(s).\n", report.Repaired, report.Scanned)
	for id, ferr := range report.Failed {
		fmt.Printf("  %s: %v\n", id, ferr)
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d document(s) could not be repaired", len(report.Failed))
	}
	return nil
}

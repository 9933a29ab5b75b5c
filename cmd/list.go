package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	RunE:  runList,
}

func init() {
	listCmd.Flags().Int("limit", 50, "maximum number of documents to show")
	listCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	database, docs, _, err := openStores(ctx, cfg, embedder, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	list, err := docs.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No documents stored yet.")
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	fmt.Printf("%d document(s):\n\n", len(list))
	for _, doc := range list {
		title := doc.Title
		if title == "" {
			title = "(untitled)"
		}
		status := "searchable"
		if !doc.Indexed() {
			status = "not indexed"
		}
		fmt.Printf("  %s  %-30s  %s", doc.ID, title, status)
		if doc.ProposalID != "" {
			fmt.Printf("  [proposal %s]", doc.ProposalID)
		}
		fmt.Println()
	}
	return nil
}

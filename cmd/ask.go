package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/knowledge"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question answered from the knowledge base",
	Long: `Embeds the question, retrieves the most relevant stored chunks, and
asks the configured LLM for an answer grounded in them. The answer ends
with a citation line per contributing document. With --proposal, documents
scoped to that proposal are searched first.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("proposal", "", "prefer documents scoped to this proposal id")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := args[0]

	proposalID, _ := cmd.Flags().GetString("proposal")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	database, _, index, err := openStores(ctx, cfg, embedder, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if index.Count() == 0 {
		fmt.Println("The knowledge base is empty. Run `towerbot ingest` first.")
		return nil
	}

	retriever, err := buildRetriever(cfg, index, embedder, logger)
	if err != nil {
		return err
	}

	answer, err := retriever.Answer(ctx, question, proposalID)
	if err != nil {
		switch {
		case errors.Is(err, knowledge.ErrNoRelevantContent),
			errors.Is(err, knowledge.ErrNoUsableText),
			errors.Is(err, knowledge.ErrQuestionEmbedding):
			fmt.Println(knowledge.UserMessage(err))
			return nil
		default:
			return err
		}
	}

	fmt.Println(answer.Text)
	return nil
}

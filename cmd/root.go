package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "towerbot",
	Short: "Community knowledge base with grounded question answering",
	Long: `Towerbot maintains a shared knowledge base for community coordination.
It ingests documents and web pages, indexes them for semantic search,
and answers questions with citations back to the stored sources.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultFileName, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

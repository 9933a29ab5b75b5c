package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize towerbot configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure towerbot and generates a .towerbot.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

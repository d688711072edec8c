package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "folio",
		Short:        "Folio - a personal portfolio site",
		Long:         `Folio serves a portfolio site with a multilingual welcome splash, project pages, a contact form and a small admin dashboard.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	rootCmd.AddCommand(
		newServeCommand(),
		newWelcomeCommand(),
		newMigrateCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

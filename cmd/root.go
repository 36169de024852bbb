package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "golang-quant",
	Short: "Vectorized daily-bar backtesting service",
}

func Execute() error {
	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(migrateCmd)

	return rootCmd.Execute()
}

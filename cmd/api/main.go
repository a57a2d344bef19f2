package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/cinereview/core/cmd/api/commands"
)

// @title CineReview API
// @version 1.0
// @description Per-movie review store

// @license.name MIT

// @host localhost:8080
// @BasePath /api/v1

func main() {
	rootCmd := &cobra.Command{
		Use:           "cinereview",
		Short:         "CineReview API server and client",
		Long:          `CineReview stores reviews per movie and serves them over a small JSON API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())
	rootCmd.AddCommand(commands.NewReviewsCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}

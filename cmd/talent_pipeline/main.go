// Package main provides the entry point for the talent pipeline worker.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "talent_pipeline",
	Short: "Resume ingestion and AI screening pipeline",
	Long:  "Talent pipeline ingests uploaded resumes, parses and scores them against job postings with an AI provider, and materializes candidates and applications.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

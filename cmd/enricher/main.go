// Package main provides the entry point for the archive enricher services.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "enricher",
	Short: "Archive document enrichment pipeline",
	Long:  "Enricher orchestrates multi-phase AI enrichment of OCR-processed archive documents: free local extraction, paid synthesis under a daily budget, and a human review workflow over a REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

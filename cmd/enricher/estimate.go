package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/archive-enricher/internal/cost"
)

var (
	estimateChars  int
	estimatePhase3 bool
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the cost of enriching one document",
	Long:  `Print the per-phase and total USD estimate for a document of the given size, using the default model pricing. No services are contacted.`,
	RunE:  runEstimate,
}

func init() {
	estimateCmd.Flags().IntVar(&estimateChars, "chars", 0, "Document length in characters (required)")
	estimateCmd.Flags().BoolVar(&estimatePhase3, "phase3", true, "Include the optional deep-analysis phase")
	_ = estimateCmd.MarkFlagRequired("chars")
	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(_ *cobra.Command, _ []string) error {
	if estimateChars <= 0 {
		return fmt.Errorf("--chars must be positive")
	}

	breakdown, err := cost.NewEstimator(nil).EstimateDocument(estimateChars, estimatePhase3)
	if err != nil {
		return fmt.Errorf("failed to estimate: %w", err)
	}

	jsonBytes, err := json.MarshalIndent(breakdown, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(jsonBytes))
	return nil
}

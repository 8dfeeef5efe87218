package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/archive-enricher/internal/coordinator"
	"github.com/jonathan/archive-enricher/internal/observability"
)

var (
	enqueueConfigPath string
	enqueueBatchFile  string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Submit a batch of OCR documents for enrichment",
	Long:  `Read a batch JSON file, create an enrichment job, and enqueue one task per document. Intended for operators; the OCR system normally submits batches over the REST API.`,
	RunE:  runEnqueue,
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueConfigPath, "config", "", "Path to JSON config file (optional; env vars and defaults apply)")
	enqueueCmd.Flags().StringVarP(&enqueueBatchFile, "file", "f", "", "Path to batch JSON file (required)")
	_ = enqueueCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(enqueueCmd)
}

func runEnqueue(_ *cobra.Command, _ []string) error {
	data, err := os.ReadFile(enqueueBatchFile)
	if err != nil {
		return fmt.Errorf("failed to read batch file: %w", err)
	}

	var batch coordinator.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("failed to parse batch JSON: %w", err)
	}

	ctx := context.Background()
	deps, err := openDeps(ctx, enqueueConfigPath)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	if err := deps.queue.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("preparing task stream: %w", err)
	}

	coord := coordinator.New(deps.pg, deps.queue, deps.logger)
	job, err := coord.CreateJob(ctx, &batch)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	observability.NewPrinter(os.Stdout).PrintJobSummary(job)
	return nil
}

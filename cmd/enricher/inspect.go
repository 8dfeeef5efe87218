package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/archive-enricher/internal/observability"
	"github.com/jonathan/archive-enricher/internal/store"
)

var (
	inspectConfigPath string
	inspectJobID      string
	inspectDocuments  bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect an enrichment job's progress, review tasks, and document quality",
	Long:  `Print a job's counts and cost, its open review tasks, and optionally the quality report of every enriched document stored so far.`,
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectConfigPath, "config", "", "Path to JSON config file (optional; env vars and defaults apply)")
	inspectCmd.Flags().StringVar(&inspectJobID, "job", "", "Job ID to inspect (required)")
	inspectCmd.Flags().BoolVar(&inspectDocuments, "documents", false, "Also print each stored document's quality report")
	_ = inspectCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, _ []string) error {
	jobID, err := uuid.Parse(inspectJobID)
	if err != nil {
		return fmt.Errorf("invalid job id: %w", err)
	}

	ctx := context.Background()
	deps, err := openDeps(ctx, inspectConfigPath)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	job, err := deps.pg.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", jobID)
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintJobSummary(job)

	tasks, err := deps.pg.ListReviewTasks(ctx, store.ReviewTaskFilters{JobID: jobID})
	if err != nil {
		return fmt.Errorf("failed to list review tasks: %w", err)
	}
	for i := range tasks {
		printer.PrintReviewTask(&tasks[i])
	}

	if inspectDocuments {
		docs, err := deps.mongo.ListDocuments(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		for i := range docs {
			printer.PrintDocumentQuality(&docs[i])
		}
	}

	return nil
}

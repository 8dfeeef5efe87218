package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/archive-enricher/internal/agents"
	"github.com/jonathan/archive-enricher/internal/cost"
	"github.com/jonathan/archive-enricher/internal/enrich"
	"github.com/jonathan/archive-enricher/internal/observability"
	"github.com/jonathan/archive-enricher/internal/rpc"
	"github.com/jonathan/archive-enricher/internal/schema"
	"github.com/jonathan/archive-enricher/internal/store"
	"github.com/jonathan/archive-enricher/internal/worker"
)

var (
	workConfigPath  string
	workConsumer    string
	workConcurrency int
)

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Run an enrichment worker",
	Long:  `Run a competing consumer that pulls documents from the task stream, enriches them through the agent hub, and persists the outcomes.`,
	RunE:  runWork,
}

func init() {
	workCmd.Flags().StringVar(&workConfigPath, "config", "", "Path to JSON config file (optional; env vars and defaults apply)")
	workCmd.Flags().StringVar(&workConsumer, "consumer", "", "Consumer name within the group (must be unique per worker process)")
	workCmd.Flags().IntVar(&workConcurrency, "concurrency", 0, "Max documents processed concurrently (overrides config)")
	rootCmd.AddCommand(workCmd)
}

func runWork(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := openDeps(ctx, workConfigPath)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	sch, err := schema.Load(schema.ResolvePath(deps.cfg.SchemaPath))
	if err != nil {
		return fmt.Errorf("loading document schema: %w", err)
	}

	catalog := agents.DefaultCatalog()
	if err := catalog.Validate(); err != nil {
		return fmt.Errorf("agent catalog: %w", err)
	}

	rpcCounters := observability.NewRPCCounters()
	client := rpc.New(deps.cfg.AgentHubURL, &rpc.Options{
		Token:    deps.cfg.AgentHubToken,
		Counters: rpcCounters,
	})
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to agent hub: %w", err)
	}
	defer client.Close()

	orch := enrich.New(
		client,
		&store.Sink{PG: deps.pg, Mongo: deps.mongo},
		deps.ledger,
		cost.NewEstimator(nil),
		sch,
		catalog,
		enrich.Config{
			CompletenessThreshold:  deps.cfg.CompletenessThreshold,
			LowConfidenceThreshold: deps.cfg.LowConfidenceThreshold,
		},
		deps.logger,
	)

	concurrency := workConcurrency
	if concurrency == 0 {
		concurrency = deps.cfg.WorkerConcurrency
	}

	w := worker.New(deps.queue, deps.pg, orch, worker.Options{
		Consumer:         workConsumer,
		Concurrency:      concurrency,
		DocumentDeadline: catalog.DocumentDeadline(),
		Counters:         observability.NewWorkerCounters(),
		Logger:           deps.logger,
	})

	deps.logger.Printf("worker starting, stream %s group %s", deps.cfg.TaskStream, deps.cfg.ConsumerGroup)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

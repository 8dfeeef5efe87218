package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/archive-enricher/internal/cost"
	"github.com/jonathan/archive-enricher/internal/coordinator"
	"github.com/jonathan/archive-enricher/internal/review"
	"github.com/jonathan/archive-enricher/internal/server"
)

var (
	serveConfigPath string
	servePort       int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the job submission, review workflow, and cost endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to JSON config file (optional; env vars and defaults apply)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	deps, err := openDeps(ctx, serveConfigPath)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	if err := deps.queue.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("preparing task stream: %w", err)
	}

	jwtCfg, err := jwtConfig(deps.cfg)
	if err != nil {
		return fmt.Errorf("configuring review auth: %w", err)
	}

	port := servePort
	if port == 0 {
		port = deps.cfg.Port
	}

	reviewSvc := review.NewService(deps.pg, deps.mongo, deps.queue, deps.logger)
	coord := coordinator.New(deps.pg, deps.queue, deps.logger)

	// Counters stay nil here: RPC and worker activity happens in the worker
	// process, and /metrics omits counter sets this process does not own.
	srv := server.New(server.Config{Port: port}, server.Deps{
		Review:      reviewSvc,
		Coordinator: coord,
		Jobs:        deps.pg,
		Ledger:      deps.ledger,
		Estimator:   cost.NewEstimator(nil),
		JWT:         server.NewJWTService(jwtCfg),
		Logger:      deps.logger,
	})
	return srv.Start()
}

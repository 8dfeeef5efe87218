package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/jonathan/archive-enricher/internal/config"
	"github.com/jonathan/archive-enricher/internal/cost"
	"github.com/jonathan/archive-enricher/internal/queue"
	"github.com/jonathan/archive-enricher/internal/store"
)

// sharedDeps holds the backing services every long-running command needs.
type sharedDeps struct {
	cfg    *config.Config
	pg     *store.DB
	mongo  *store.Mongo
	redis  *redis.Client
	queue  *queue.Queue
	ledger *cost.Ledger
	logger *log.Logger
}

// openDeps connects to PostgreSQL, MongoDB, and Redis per the configuration.
// Callers must Close when done.
func openDeps(ctx context.Context, configPath string) (*sharedDeps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pg, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	mongo, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		pg.Close()
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		pg.Close()
		_ = mongo.Close(ctx)
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	q := queue.New(client, cfg.TaskStream, cfg.ConsumerGroup)
	ledger := cost.NewLedger(cost.NewRedisStore(client), cost.LedgerConfig{
		DailyBudgetUSD:        cfg.DailyBudgetUSD,
		OptionalPhaseFraction: cfg.OptionalPhaseFraction,
		PerDocumentCapUSD:     cfg.PerDocumentCapUSD,
	})

	return &sharedDeps{
		cfg:    cfg,
		pg:     pg,
		mongo:  mongo,
		redis:  client,
		queue:  q,
		ledger: ledger,
		logger: log.New(os.Stderr, "", log.LstdFlags),
	}, nil
}

// Close releases every connection. Errors are logged, not returned; shutdown
// should not abort halfway through.
func (d *sharedDeps) Close(ctx context.Context) {
	if err := d.mongo.Close(ctx); err != nil {
		d.logger.Printf("closing mongo: %v", err)
	}
	if err := d.redis.Close(); err != nil {
		d.logger.Printf("closing redis: %v", err)
	}
	d.pg.Close()
}

// jwtConfig builds the review-API token configuration, preferring the
// environment and falling back to the config file's secret.
func jwtConfig(cfg *config.Config) (*config.JWTConfig, error) {
	jwtCfg, err := config.NewJWTConfig()
	if err == nil {
		return jwtCfg, nil
	}
	if cfg.JWTSecret == "" {
		return nil, err
	}
	return &config.JWTConfig{Secret: cfg.JWTSecret, ExpirationHours: 24}, nil
}

// Package config provides configuration loading and validation for the enricher.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Config represents the enricher configuration loaded from a JSON file.
// Every field can be overridden by an environment variable; missing values
// fall back to defaults where a default makes sense.
type Config struct {
	// Stores
	DatabaseURL   string `json:"database_url,omitempty"`   // PostgreSQL connection URL (jobs, review tasks, cost records)
	MongoURI      string `json:"mongo_uri,omitempty"`      // MongoDB connection URI (enriched documents)
	MongoDatabase string `json:"mongo_database,omitempty"` // MongoDB database name

	// Queue / ledger backend
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisUsername string `json:"redis_username,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	TaskStream    string `json:"task_stream,omitempty"`    // Redis stream carrying enrichment tasks
	ConsumerGroup string `json:"consumer_group,omitempty"` // Competing-consumer group name

	// Agent hub
	AgentHubURL   string `json:"agent_hub_url,omitempty"` // ws:// or wss:// endpoint of the agent hub
	AgentHubToken string `json:"agent_hub_token,omitempty"`

	// Budget policy
	DailyBudgetUSD        float64 `json:"daily_budget_usd,omitempty"`
	OptionalPhaseFraction float64 `json:"optional_phase_fraction,omitempty"` // Fraction of daily budget after which the optional phase is disabled (0.0-1.0)
	PerDocumentCapUSD     float64 `json:"per_document_cap_usd,omitempty"`

	// Validation policy
	SchemaPath             string  `json:"schema_path,omitempty"`             // Path to the versioned enriched-document schema
	CompletenessThreshold  float64 `json:"completeness_threshold,omitempty"`  // Documents scoring below this go to review (0.0-1.0)
	LowConfidenceThreshold float64 `json:"low_confidence_threshold,omitempty"` // Agent confidence below this flags a field (0.0-1.0)

	// Worker behavior
	WorkerConcurrency int `json:"worker_concurrency,omitempty"` // Max documents processed concurrently per worker

	// API server
	Port      int    `json:"port,omitempty"`
	JWTSecret string `json:"jwt_secret,omitempty"` // HS256 secret for the review API

	Verbose bool `json:"verbose,omitempty"`
}

// Defaults used when neither the config file nor the environment sets a value.
const (
	DefaultTaskStream             = "enrich:tasks"
	DefaultConsumerGroup          = "enrich-workers"
	DefaultMongoDatabase          = "archive_enricher"
	DefaultSchemaPath             = "schemas/enriched_document.v1.json"
	DefaultDailyBudgetUSD         = 50.0
	DefaultOptionalPhaseFraction  = 0.75
	DefaultPerDocumentCapUSD      = 0.50
	DefaultCompletenessThreshold  = 0.95
	DefaultLowConfidenceThreshold = 0.7
	DefaultWorkerConcurrency      = 4
	DefaultPort                   = 8080
)

// Load reads configuration from a JSON file, applies environment overrides,
// then fills defaults. An empty path skips the file and uses env + defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv overrides file values with environment variables when set.
func (c *Config) applyEnv() {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.MongoURI, "MONGO_URI")
	setString(&c.MongoDatabase, "MONGO_DATABASE")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisUsername, "REDIS_USERNAME")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setString(&c.TaskStream, "TASK_STREAM")
	setString(&c.ConsumerGroup, "CONSUMER_GROUP")
	setString(&c.AgentHubURL, "AGENT_HUB_URL")
	setString(&c.AgentHubToken, "AGENT_HUB_TOKEN")
	setString(&c.SchemaPath, "SCHEMA_PATH")
	setString(&c.JWTSecret, "JWT_SECRET")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// applyDefaults fills zero values with defaults.
func (c *Config) applyDefaults() {
	if c.TaskStream == "" {
		c.TaskStream = DefaultTaskStream
	}
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = DefaultConsumerGroup
	}
	if c.MongoDatabase == "" {
		c.MongoDatabase = DefaultMongoDatabase
	}
	if c.SchemaPath == "" {
		c.SchemaPath = DefaultSchemaPath
	}
	if c.DailyBudgetUSD == 0 {
		c.DailyBudgetUSD = DefaultDailyBudgetUSD
	}
	if c.OptionalPhaseFraction == 0 {
		c.OptionalPhaseFraction = DefaultOptionalPhaseFraction
	}
	if c.PerDocumentCapUSD == 0 {
		c.PerDocumentCapUSD = DefaultPerDocumentCapUSD
	}
	if c.CompletenessThreshold == 0 {
		c.CompletenessThreshold = DefaultCompletenessThreshold
	}
	if c.LowConfidenceThreshold == 0 {
		c.LowConfidenceThreshold = DefaultLowConfidenceThreshold
	}
	if c.WorkerConcurrency == 0 {
		c.WorkerConcurrency = DefaultWorkerConcurrency
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
}

// validatable mirrors Config with validator tags. Kept separate so the JSON
// shape stays free of tag noise on optional fields.
type validatable struct {
	OptionalPhaseFraction  float64 `validate:"gte=0,lte=1"`
	CompletenessThreshold  float64 `validate:"gt=0,lte=1"`
	LowConfidenceThreshold float64 `validate:"gte=0,lte=1"`
	DailyBudgetUSD         float64 `validate:"gte=0"`
	PerDocumentCapUSD      float64 `validate:"gte=0"`
	WorkerConcurrency      int     `validate:"gte=1"`
	Port                   int     `validate:"gte=1,lte=65535"`
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	v := validatable{
		OptionalPhaseFraction:  c.OptionalPhaseFraction,
		CompletenessThreshold:  c.CompletenessThreshold,
		LowConfidenceThreshold: c.LowConfidenceThreshold,
		DailyBudgetUSD:         c.DailyBudgetUSD,
		PerDocumentCapUSD:      c.PerDocumentCapUSD,
		WorkerConcurrency:      c.WorkerConcurrency,
		Port:                   c.Port,
	}
	if err := validator.New().Struct(v); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

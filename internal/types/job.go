// Package types provides type definitions for structured data used throughout the archive-enricher system.
package types

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of an enrichment job.
type JobStatus string

const (
	JobStatusProcessing    JobStatus = "processing"
	JobStatusCompleted     JobStatus = "completed"
	JobStatusError         JobStatus = "error"
	JobStatusReviewPending JobStatus = "review_pending"
)

// EnrichmentJob represents one batch of documents submitted for enrichment.
// Created by the coordinator; counts are mutated by workers as each document
// resolves. The job is terminal once ProcessedCount == TotalDocuments.
type EnrichmentJob struct {
	ID               uuid.UUID  `json:"id"`
	SourceBatchID    string     `json:"source_batch_id"`
	CollectionID     string     `json:"collection_id,omitempty"`
	Status           JobStatus  `json:"status"`
	TotalDocuments   int        `json:"total_documents"`
	ProcessedCount   int        `json:"processed_count"`
	ReviewCount      int        `json:"review_count"`
	ErrorCount       int        `json:"error_count"`
	AggregateCostUSD float64    `json:"aggregate_cost_usd"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// DocumentOutcome is the terminal resolution of a single document's pipeline run.
type DocumentOutcome string

const (
	OutcomeApproved      DocumentOutcome = "approved"
	OutcomeReviewPending DocumentOutcome = "review_pending"
	OutcomeError         DocumentOutcome = "error"
)

// CostRecord represents one billable remote agent call. Records are append-only
// and are aggregated into the budget ledger and the job's aggregate cost.
type CostRecord struct {
	ID           uuid.UUID `json:"id"`
	JobID        uuid.UUID `json:"job_id"`
	DocumentID   string    `json:"document_id"`
	Model        string    `json:"model"`
	Task         string    `json:"task"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	CreatedAt    time.Time `json:"created_at"`
}

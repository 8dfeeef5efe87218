// Package coordinator accepts OCR batches, registers them as enrichment
// jobs, and fans each batch out to one queue message per document.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/archive-enricher/internal/types"
)

// JobStore persists enrichment jobs.
type JobStore interface {
	CreateJob(ctx context.Context, job *types.EnrichmentJob) error
	GetJobByBatchID(ctx context.Context, batchID string) (*types.EnrichmentJob, error)
}

// Enqueuer appends task messages to the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg *types.TaskMessage) (string, error)
}

// BatchDocument is one OCR'd document in a submitted batch.
type BatchDocument struct {
	DocumentID string            `json:"document_id" validate:"required"`
	OCRPayload string            `json:"ocr_payload" validate:"required"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Batch is a completed OCR batch submitted for enrichment.
type Batch struct {
	SourceBatchID string          `json:"source_batch_id" validate:"required"`
	CollectionID  string          `json:"collection_id,omitempty"`
	Documents     []BatchDocument `json:"documents" validate:"required,min=1,dive"`
}

// Validate checks the batch's precondition fields.
func (b *Batch) Validate() error {
	return validator.New().Struct(b)
}

// ErrDuplicateBatch indicates a batch id was already submitted.
type ErrDuplicateBatch struct {
	SourceBatchID string
}

func (e *ErrDuplicateBatch) Error() string {
	return fmt.Sprintf("batch already submitted: %s", e.SourceBatchID)
}

// Coordinator turns batches into jobs and queue messages.
type Coordinator struct {
	jobs   JobStore
	queue  Enqueuer
	logger *log.Logger
}

// New builds a Coordinator. A nil logger falls back to the default logger.
func New(jobs JobStore, queue Enqueuer, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{jobs: jobs, queue: queue, logger: logger}
}

// CreateJob registers the batch as a processing job and enqueues one task
// message per document. The job row exists before the first message is
// visible, so workers can always resolve the batch id they consume.
func (c *Coordinator) CreateJob(ctx context.Context, batch *Batch) (*types.EnrichmentJob, error) {
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch: %w", err)
	}

	existing, err := c.jobs.GetJobByBatchID(ctx, batch.SourceBatchID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &ErrDuplicateBatch{SourceBatchID: batch.SourceBatchID}
	}

	job := &types.EnrichmentJob{
		ID:             uuid.New(),
		SourceBatchID:  batch.SourceBatchID,
		CollectionID:   batch.CollectionID,
		Status:         types.JobStatusProcessing,
		TotalDocuments: len(batch.Documents),
		CreatedAt:      time.Now().UTC(),
	}
	if err := c.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	for _, doc := range batch.Documents {
		msg := &types.TaskMessage{
			OCRJobID:     batch.SourceBatchID,
			CollectionID: batch.CollectionID,
			DocumentID:   doc.DocumentID,
			OCRPayload:   doc.OCRPayload,
			Metadata:     doc.Metadata,
		}
		if _, err := c.queue.Enqueue(ctx, msg); err != nil {
			return nil, fmt.Errorf("enqueueing document %s of batch %s: %w", doc.DocumentID, batch.SourceBatchID, err)
		}
	}

	c.logger.Printf("job %s created for batch %s (%d documents)", job.ID, batch.SourceBatchID, job.TotalDocuments)
	return job, nil
}

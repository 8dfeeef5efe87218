// Package review implements the human-review workflow: listing and claiming
// review tasks, approving documents with corrections, and rejecting them
// back onto the task queue for reprocessing.
package review

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jonathan/archive-enricher/internal/store"
	"github.com/jonathan/archive-enricher/internal/types"
)

// TaskStore is the review-task and job persistence the service needs.
type TaskStore interface {
	GetReviewTask(ctx context.Context, taskID uuid.UUID) (*types.ReviewTask, error)
	ListReviewTasks(ctx context.Context, filters store.ReviewTaskFilters) ([]types.ReviewTask, error)
	UpdateReviewTaskFrom(ctx context.Context, task *types.ReviewTask, from types.ReviewTaskStatus) (bool, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*types.EnrichmentJob, error)
}

// DocumentStore is the enriched-document persistence the service needs.
type DocumentStore interface {
	GetDocument(ctx context.Context, jobID uuid.UUID, documentID string) (*types.EnrichedDocument, error)
	SetReviewStatus(ctx context.Context, jobID uuid.UUID, documentID string, status types.ReviewStatus, corrections map[string]any) error
}

// Requeuer puts a rejected document's task message back on the queue.
type Requeuer interface {
	Enqueue(ctx context.Context, msg *types.TaskMessage) (string, error)
}

// ErrTaskNotFound indicates the review task does not exist.
type ErrTaskNotFound struct {
	TaskID uuid.UUID
}

func (e *ErrTaskNotFound) Error() string {
	return fmt.Sprintf("review task not found: %s", e.TaskID)
}

// ErrInvalidTransition indicates a reviewer action is not allowed from the
// task's current status.
type ErrInvalidTransition struct {
	From types.ReviewTaskStatus
	To   types.ReviewTaskStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot move review task from %s to %s", e.From, e.To)
}

// ErrConflict indicates another reviewer changed the task concurrently.
type ErrConflict struct {
	TaskID uuid.UUID
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("review task changed concurrently: %s", e.TaskID)
}

// Service coordinates review task transitions across the task store, the
// document store, and the task queue.
type Service struct {
	tasks  TaskStore
	docs   DocumentStore
	queue  Requeuer
	logger *log.Logger
}

// NewService builds a review Service. A nil logger falls back to the
// default logger.
func NewService(tasks TaskStore, docs DocumentStore, queue Requeuer, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{tasks: tasks, docs: docs, queue: queue, logger: logger}
}

// List returns review tasks filtered by status, oldest first.
func (s *Service) List(ctx context.Context, status types.ReviewTaskStatus, limit, offset int) ([]types.ReviewTask, error) {
	return s.tasks.ListReviewTasks(ctx, store.ReviewTaskFilters{Status: status, Limit: limit, Offset: offset})
}

// Get returns one review task.
func (s *Service) Get(ctx context.Context, taskID uuid.UUID) (*types.ReviewTask, error) {
	task, err := s.tasks.GetReviewTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, &ErrTaskNotFound{TaskID: taskID}
	}
	return task, nil
}

// Assign claims a task for a reviewer. A pending task moves to in_progress;
// an in_progress task may be reassigned. Resolved tasks cannot be claimed.
func (s *Service) Assign(ctx context.Context, taskID uuid.UUID, assignee string) (*types.ReviewTask, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != types.ReviewTaskPending && task.Status != types.ReviewTaskInProgress {
		return nil, &ErrInvalidTransition{From: task.Status, To: types.ReviewTaskInProgress}
	}

	from := task.Status
	task.Status = types.ReviewTaskInProgress
	task.Assignee = assignee

	ok, err := s.tasks.UpdateReviewTaskFrom(ctx, task, from)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ErrConflict{TaskID: taskID}
	}
	return task, nil
}

// Approve resolves a task: the stored document becomes approved with the
// reviewer's corrections applied at their field paths.
func (s *Service) Approve(ctx context.Context, taskID uuid.UUID, reviewer, notes string, corrections map[string]any) (*types.ReviewTask, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != types.ReviewTaskPending && task.Status != types.ReviewTaskInProgress {
		return nil, &ErrInvalidTransition{From: task.Status, To: types.ReviewTaskApproved}
	}

	from := task.Status
	task.Status = types.ReviewTaskApproved
	if reviewer != "" {
		task.Assignee = reviewer
	}
	task.Notes = notes
	task.Corrections = corrections

	ok, err := s.tasks.UpdateReviewTaskFrom(ctx, task, from)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ErrConflict{TaskID: taskID}
	}

	if err := s.docs.SetReviewStatus(ctx, task.JobID, task.DocumentID, types.ReviewStatusApproved, corrections); err != nil {
		return nil, fmt.Errorf("approving document %s: %w", task.DocumentID, err)
	}

	s.logger.Printf("review task %s approved by %s (document %s)", taskID, task.Assignee, task.DocumentID)
	return task, nil
}

// Reject resolves a task by sending the document back through the pipeline:
// the original OCR payload is re-enqueued as a fresh task message and the
// stored document will be overwritten by the rerun's upsert.
func (s *Service) Reject(ctx context.Context, taskID uuid.UUID, reviewer, notes string) (*types.ReviewTask, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != types.ReviewTaskPending && task.Status != types.ReviewTaskInProgress {
		return nil, &ErrInvalidTransition{From: task.Status, To: types.ReviewTaskRejected}
	}

	doc, err := s.docs.GetDocument(ctx, task.JobID, task.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document not found for review task %s: %s", taskID, task.DocumentID)
	}

	from := task.Status
	task.Status = types.ReviewTaskRejected
	if reviewer != "" {
		task.Assignee = reviewer
	}
	task.Notes = notes

	ok, err := s.tasks.UpdateReviewTaskFrom(ctx, task, from)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ErrConflict{TaskID: taskID}
	}

	// The worker resolves jobs by the upstream batch id, so the rebuilt
	// message carries the job's source batch id, not the job uuid.
	batchID := task.JobID.String()
	if job, jobErr := s.tasks.GetJob(ctx, task.JobID); jobErr == nil && job != nil {
		batchID = job.SourceBatchID
	}
	msg := &types.TaskMessage{
		OCRJobID:     batchID,
		CollectionID: doc.CollectionID,
		DocumentID:   doc.DocumentID,
		OCRPayload:   doc.RawInput,
	}
	if _, err := s.queue.Enqueue(ctx, msg); err != nil {
		return nil, fmt.Errorf("re-enqueueing document %s: %w", task.DocumentID, err)
	}

	s.logger.Printf("review task %s rejected by %s, document %s re-enqueued", taskID, task.Assignee, task.DocumentID)
	return task, nil
}
